// Package ocr provides the Tesseract-backed core.OCREngine.
package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"github.com/markdave123-py/flowllm/internal/core"
	"github.com/markdave123-py/flowllm/internal/core/workerpool"
	"github.com/markdave123-py/flowllm/internal/models"
)

var _ core.OCREngine = (*TesseractEngine)(nil)

// TesseractEngine recognizes text with libtesseract. Recognition runs on the
// shared CPU pool; each call gets its own client since gosseract clients are
// not safe for concurrent use.
type TesseractEngine struct {
	pool      *workerpool.Pool
	languages []string
}

func NewTesseractEngine(pool *workerpool.Pool, languages ...string) *TesseractEngine {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &TesseractEngine{pool: pool, languages: languages}
}

// Recognize returns the raw recognized text of img.
func (e *TesseractEngine) Recognize(ctx context.Context, img models.ImageAsset) (string, error) {
	var text string
	err := e.pool.Run(ctx, func() error {
		client := gosseract.NewClient()
		defer client.Close()

		if err := client.SetLanguage(e.languages...); err != nil {
			return fmt.Errorf("tesseract language: %w", err)
		}
		if err := client.SetImageFromBytes(img.Data); err != nil {
			return fmt.Errorf("tesseract image: %w", err)
		}
		out, err := client.Text()
		if err != nil {
			return fmt.Errorf("tesseract recognize: %w", err)
		}
		text = out
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}
