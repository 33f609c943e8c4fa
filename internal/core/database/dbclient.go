package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/markdave123-py/flowllm/internal/config"
	"github.com/markdave123-py/flowllm/internal/core"
	"github.com/markdave123-py/flowllm/internal/models"
)

var (
	ErrEmptyNamespace = errors.New("vector store: empty namespace")
	ErrDimension      = errors.New("vector store: embedding dimension mismatch")
)

// NewVectorStore opens the store selected by VECTOR_BACKEND.
func NewVectorStore(ctx context.Context, cfg *config.Config) (core.VectorStore, error) {
	switch cfg.VectorBackend {
	case config.VectorPgvector:
		return NewPgVectorStore(ctx, cfg)
	case config.VectorQdrant:
		return NewQdrantStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}
}

// validateRecords rejects a batch before anything is written, so a bad
// record never leaves a partial commit behind. dim <= 0 skips the size check.
func validateRecords(namespace string, records []models.VectorRecord, dim int) error {
	if namespace == "" {
		return ErrEmptyNamespace
	}
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("vector store: record without id")
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("vector store: duplicate id %s", r.ID)
		}
		seen[r.ID] = struct{}{}
		if dim > 0 && len(r.Values) != dim {
			return fmt.Errorf("%w: %s has %d, want %d", ErrDimension, r.ID, len(r.Values), dim)
		}
	}
	return nil
}
