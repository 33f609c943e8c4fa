package core

import (
	"context"
	"errors"

	"github.com/markdave123-py/flowllm/internal/models"
)

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	// DownloadFile copies bucket/key into the local file at dest.
	DownloadFile(ctx context.Context, bucket, key, dest string) error
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
}

// VectorStore persists vector records under an owner namespace.
// Upsert overwrites records with the same id and is all-or-nothing.
type VectorStore interface {
	Upsert(ctx context.Context, namespace string, records []models.VectorRecord) error
	Close() error
}

var (
	// ErrQueueEmpty is returned by WorkQueue.Pop when nothing is pending.
	ErrQueueEmpty = errors.New("queue empty")
	// ErrMalformedItem is returned by WorkQueue.Pop for an entry that could not be decoded.
	// The entry has already been removed from the queue.
	ErrMalformedItem = errors.New("malformed queue item")
)

// WorkQueue hands out pending ingestion requests one at a time.
type WorkQueue interface {
	Pop(ctx context.Context) (models.WorkItem, error)
}
