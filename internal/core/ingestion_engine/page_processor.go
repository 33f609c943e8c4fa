package ingestion_engine

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/flowllm/internal/core"
	"github.com/markdave123-py/flowllm/internal/models"
)

// PageResult is what one PDF page contributes to its document.
//
// Text:     native text followed by the text of OCR-bearing images, in image order.
// Images:   non-OCR images to upload, in image order.
// Captions: one per entry of Images.
type PageResult struct {
	Text     string
	Images   []models.ImageAsset
	Captions []string
}

// PageProcessor extracts and classifies the content of single PDF pages.
type PageProcessor struct {
	classifier       *AssetClassifier
	imageConcurrency int
}

func NewPageProcessor(classifier *AssetClassifier, imageConcurrency int) *PageProcessor {
	return &PageProcessor{
		classifier:       classifier,
		imageConcurrency: limitOrDefault(imageConcurrency, 8),
	}
}

// Process classifies the page's images concurrently and fans the results back
// in image order. Any classification failure fails the page.
func (p *PageProcessor) Process(ctx context.Context, pdf core.PDFDocument, page int) (PageResult, error) {
	text, err := pdf.PageText(ctx, page)
	if err != nil {
		return PageResult{}, fmt.Errorf("page %d text: %w", page, err)
	}

	imgs, err := pdf.PageImages(ctx, page)
	if err != nil {
		return PageResult{}, fmt.Errorf("page %d images: %w", page, err)
	}

	results := make([]Classification, len(imgs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.imageConcurrency)
	for i, img := range imgs {
		g.Go(func() error {
			c, err := p.classifier.Classify(gctx, img)
			if err != nil {
				return err
			}
			results[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return PageResult{}, fmt.Errorf("page %d: %w", page, err)
	}

	var b strings.Builder
	b.WriteString(text)
	res := PageResult{}
	for _, c := range results {
		if c.NeedsOCR {
			b.WriteString(c.Text)
			continue
		}
		res.Images = append(res.Images, c.Image)
		res.Captions = append(res.Captions, c.Text)
	}
	res.Text = b.String()
	return res, nil
}
