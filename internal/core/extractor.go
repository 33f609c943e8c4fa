package core

import (
	"context"

	"github.com/markdave123-py/flowllm/internal/models"
)

// PDFOpener opens a local PDF for page-level decomposition.
type PDFOpener interface {
	Open(ctx context.Context, path string) (PDFDocument, error)
}

// PDFDocument gives page-level access to an opened PDF.
// Page indexes are zero-based. Implementations must be safe for concurrent
// calls on different pages.
type PDFDocument interface {
	NumPages() int
	PageText(ctx context.Context, page int) (string, error)
	PageImages(ctx context.Context, page int) ([]models.ImageAsset, error)
	Close() error
}

// TextExtractor returns the full text content of a non-PDF text document.
type TextExtractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}
