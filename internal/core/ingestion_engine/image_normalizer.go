package ingestion_engine

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/png"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/webp"

	"github.com/markdave123-py/flowllm/internal/core/workerpool"
	"github.com/markdave123-py/flowllm/internal/models"
)

// loadImageAsset turns the bytes of an image document into an asset the OCR
// engine and vision model both accept. PNG and JPEG pass through untouched;
// other formats are re-encoded as PNG on the CPU pool.
func loadImageAsset(ctx context.Context, pool *workerpool.Pool, name string, data []byte) (models.ImageAsset, error) {
	asset := models.ImageAsset{Data: data, Page: -1}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		asset.Format = "png"
		return asset, nil
	case ".jpg", ".jpeg":
		asset.Format = "jpeg"
		return asset, nil
	}

	var out []byte
	err := pool.Run(ctx, func() error {
		var err error
		out, err = toPNG(data)
		return err
	})
	if err != nil {
		return models.ImageAsset{}, fmt.Errorf("normalize %s: %w", name, err)
	}
	asset.Data = out
	asset.Format = "png"
	return asset, nil
}

func toPNG(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
