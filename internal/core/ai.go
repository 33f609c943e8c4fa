package core

import (
	"context"

	"github.com/markdave123-py/flowllm/internal/models"
)

// EmbeddingPurpose tags an embedding request with its intended use.
type EmbeddingPurpose string

const (
	PurposeSearchDocument EmbeddingPurpose = "search_document"
	PurposeSearchQuery    EmbeddingPurpose = "search_query"
)

// EmbeddingProvider turns texts into vectors.
// The returned slice must have the same length and order as texts.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string, purpose EmbeddingPurpose) ([][]float32, error)
}

// Correction is the vision model's reading of an OCR-bearing image.
type Correction struct {
	CleanedText string `json:"cleaned_text"`
	Caption     string `json:"caption"`
}

// VisionProvider wraps the multimodal language model used for images.
type VisionProvider interface {
	// CorrectText cleans raw OCR output using the image as ground truth and captions it.
	CorrectText(ctx context.Context, img models.ImageAsset, rawText string) (Correction, error)
	// Caption describes an image that carries little or no text.
	Caption(ctx context.Context, img models.ImageAsset) (string, error)
}

// OCREngine recognizes text in an image. Implementations are CPU-bound and
// are expected to be called from a worker pool.
type OCREngine interface {
	Recognize(ctx context.Context, img models.ImageAsset) (string, error)
}
