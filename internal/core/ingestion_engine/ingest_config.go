package ingestion_engine

import (
	"os"

	"github.com/markdave123-py/flowllm/internal/config"
)

// IngestConfig tunes document processing.
//
// ChunkSize:         max characters per chunk (e.g., 800).
// ChunkOverlap:      characters shared by consecutive chunks (e.g., 50).
// OCRMinChars:       non-whitespace OCR characters that make an image text-bearing.
// PageConcurrency:   PDF pages processed at once per document.
// ImageConcurrency:  images classified at once per page.
// UploadConcurrency: process-wide cap on in-flight image uploads.
// DocumentBucket:    bucket holding source objects.
// ImageBucket:       bucket receiving extracted images.
// WorkDir:           parent directory for local working copies.
type IngestConfig struct {
	ChunkSize         int
	ChunkOverlap      int
	OCRMinChars       int
	PageConcurrency   int
	ImageConcurrency  int
	UploadConcurrency int
	DocumentBucket    string
	ImageBucket       string
	WorkDir           string
}

// NewIngestConfig copies the processing knobs out of the service config.
func NewIngestConfig(cfg *config.Config) *IngestConfig {
	return &IngestConfig{
		ChunkSize:         cfg.ChunkSize,
		ChunkOverlap:      cfg.ChunkOverlap,
		OCRMinChars:       cfg.OCRMinChars,
		PageConcurrency:   cfg.PageConcurrency,
		ImageConcurrency:  cfg.ImageConcurrency,
		UploadConcurrency: cfg.UploadConcurrency,
		DocumentBucket:    cfg.DocumentBucket,
		ImageBucket:       cfg.ImageBucket,
		WorkDir:           cfg.WorkDir,
	}
}

// DefaultIngestConfig mirrors the service defaults.
func DefaultIngestConfig() *IngestConfig {
	return &IngestConfig{
		ChunkSize:         800,
		ChunkOverlap:      50,
		OCRMinChars:       200,
		PageConcurrency:   8,
		ImageConcurrency:  8,
		UploadConcurrency: 25,
		DocumentBucket:    "flowllm-files",
		ImageBucket:       "flowllm-bucket",
		WorkDir:           os.TempDir(),
	}
}

func limitOrDefault(n, def int) int {
	if n < 1 {
		return def
	}
	return n
}
