package objectclient

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	cfg "github.com/markdave123-py/flowllm/internal/config"
	"github.com/markdave123-py/flowllm/internal/core"
)

// MinioClient serves self-hosted deployments that keep objects in MinIO.
type MinioClient struct {
	client   *minio.Client
	endpoint string
	secure   bool
	logger   *slog.Logger
}

// NewMinioClient connects and makes sure the image bucket exists.
func NewMinioClient(ctx context.Context, cfg *cfg.Config) (core.ObjectClient, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio init: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.ImageBucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check %s: %w", cfg.ImageBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.ImageBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket %s: %w", cfg.ImageBucket, err)
		}
	}

	logger := slog.Default().With("component", "minio")
	logger.Info("connected to MinIO", "endpoint", cfg.MinioEndpoint, "image_bucket", cfg.ImageBucket)

	return &MinioClient{
		client:   client,
		endpoint: cfg.MinioEndpoint,
		secure:   cfg.MinioUseSSL,
		logger:   logger,
	}, nil
}

func (c *MinioClient) DownloadFile(ctx context.Context, bucket, key, dest string) error {
	if err := c.client.FGetObject(ctx, bucket, key, dest, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("minio download %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (c *MinioClient) UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	_, err := c.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("minio upload failed: %w", err)
	}

	scheme := "http"
	if c.secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, c.endpoint, bucket, key), nil
}

var _ core.ObjectClient = (*MinioClient)(nil)
