package objectclient

import (
	"context"
	"fmt"

	cfg "github.com/markdave123-py/flowllm/internal/config"
	"github.com/markdave123-py/flowllm/internal/core"
)

// New returns the object client selected by BLOB_BACKEND.
func New(ctx context.Context, c *cfg.Config) (core.ObjectClient, error) {
	switch c.BlobBackend {
	case cfg.BlobS3:
		return NewS3Client(ctx, c)
	case cfg.BlobMinio:
		return NewMinioClient(ctx, c)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", c.BlobBackend)
	}
}
