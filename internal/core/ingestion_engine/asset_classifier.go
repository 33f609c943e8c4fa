package ingestion_engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/markdave123-py/flowllm/internal/core"
	"github.com/markdave123-py/flowllm/internal/models"
)

// Classification is the outcome of looking at one image.
//
// NeedsOCR: the image carries enough text to be treated as text.
// Text:     composed caption + corrected text when NeedsOCR, else the caption.
// Image:    the source image; only uploaded when !NeedsOCR.
type Classification struct {
	NeedsOCR bool
	Text     string
	Image    models.ImageAsset
}

// AssetClassifier decides, per image, between OCR correction and captioning.
type AssetClassifier struct {
	ocr      core.OCREngine
	vision   core.VisionProvider
	minChars int
	logger   *slog.Logger
}

func NewAssetClassifier(ocr core.OCREngine, vision core.VisionProvider, minChars int) *AssetClassifier {
	return &AssetClassifier{
		ocr:      ocr,
		vision:   vision,
		minChars: minChars,
		logger:   slog.Default().With("component", "classifier"),
	}
}

func (c *AssetClassifier) Classify(ctx context.Context, img models.ImageAsset) (Classification, error) {
	raw, err := c.ocr.Recognize(ctx, img)
	if err != nil {
		return Classification{}, fmt.Errorf("ocr page %d image %d: %w", img.Page, img.Ordinal, err)
	}

	if ocrBearing(raw, c.minChars) {
		corr, err := c.vision.CorrectText(ctx, img, raw)
		if err != nil {
			return Classification{}, fmt.Errorf("correct text page %d image %d: %w", img.Page, img.Ordinal, err)
		}
		c.logger.Debug("image is text-bearing", "page", img.Page, "image", img.Ordinal)
		return Classification{
			NeedsOCR: true,
			Text:     composeOCRText(corr.Caption, corr.CleanedText),
			Image:    img,
		}, nil
	}

	caption, err := c.vision.Caption(ctx, img)
	if err != nil {
		return Classification{}, fmt.Errorf("caption page %d image %d: %w", img.Page, img.Ordinal, err)
	}
	return Classification{Text: caption, Image: img}, nil
}

// ocrBearing reports whether text has at least minChars non-whitespace characters.
func ocrBearing(text string, minChars int) bool {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
	return utf8.RuneCountInString(stripped) >= minChars
}

func composeOCRText(caption, cleaned string) string {
	return fmt.Sprintf("\nIMAGE CAPTION: %s\nIMAGE TEXT: %s\n", caption, cleaned)
}
