package ingestion_engine

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/markdave123-py/flowllm/internal/core"
	"github.com/markdave123-py/flowllm/internal/models"
)

const imageContentType = "image/png"

// AssetUploader stores extracted images in the image bucket.
// The semaphore is shared by every document in the process.
type AssetUploader struct {
	objects core.ObjectClient
	bucket  string
	sem     *semaphore.Weighted
	logger  *slog.Logger
}

func NewAssetUploader(objects core.ObjectClient, bucket string, sem *semaphore.Weighted) *AssetUploader {
	return &AssetUploader{
		objects: objects,
		bucket:  bucket,
		sem:     sem,
		logger:  slog.Default().With("component", "uploader"),
	}
}

// UploadAll uploads images[i] to AssetKey(docPath, i) and returns the keys.
// The first failure cancels the remaining uploads.
func (u *AssetUploader) UploadAll(ctx context.Context, docPath string, images []models.ImageAsset) ([]string, error) {
	if len(images) == 0 {
		return nil, nil
	}

	keys := make([]string, len(images))
	g, gctx := errgroup.WithContext(ctx)
	for i, img := range images {
		keys[i] = AssetKey(docPath, i)
		g.Go(func() error {
			if err := u.sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer u.sem.Release(1)

			if _, err := u.objects.UploadFile(gctx, u.bucket, keys[i], img.Data, imageContentType); err != nil {
				return fmt.Errorf("upload %s: %w", keys[i], err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	u.logger.Debug("uploaded images", "doc", docPath, "count", len(images))
	return keys, nil
}
