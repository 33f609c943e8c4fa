package ingestion_engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"

	"github.com/markdave123-py/flowllm/internal/core"
)

// plainTextExts are read as-is; everything else goes through docconv.
var plainTextExts = map[string]bool{
	".txt":  true,
	".md":   true,
	".csv":  true,
	".json": true,
	".log":  true,
}

var _ core.TextExtractor = (*DocconvExtractor)(nil)

// DocconvExtractor implements core.TextExtractor using sajari/docconv.
type DocconvExtractor struct {
	useReadability bool
	logger         *slog.Logger
}

func NewDocconvExtractor(useReadability bool) *DocconvExtractor {
	return &DocconvExtractor{
		useReadability: useReadability,
		logger:         slog.Default().With("component", "text-extractor"),
	}
}

// ExtractText returns the text content of the file at path.
func (e *DocconvExtractor) ExtractText(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if plainTextExts[ext] {
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return string(b), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	mimeType := docconv.MimeTypeByExtension(path)
	res, err := docconv.Convert(f, mimeType, e.useReadability)
	if err != nil {
		return "", fmt.Errorf("docconv %s (%s): %w", filepath.Base(path), mimeType, err)
	}
	if res.Body == "" {
		e.logger.Warn("extracted empty text", "file", filepath.Base(path), "mime", mimeType)
	}
	return res.Body, nil
}
