package llm

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/markdave123-py/flowllm/internal/core"
	"github.com/markdave123-py/flowllm/internal/models"
)

// ErrEmptyResponse is returned when the model produced no usable content.
var ErrEmptyResponse = errors.New("llm: empty response")

// parseCorrection decodes the correction JSON, tolerating markdown code fences.
func parseCorrection(raw string) (core.Correction, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if text == "" {
		return core.Correction{}, ErrEmptyResponse
	}

	var c core.Correction
	if err := json.Unmarshal([]byte(text), &c); err != nil {
		return core.Correction{}, fmt.Errorf("decode correction: %w", err)
	}
	return c, nil
}

// imageFormat returns the short format name ("png", "jpeg") of an asset.
func imageFormat(img models.ImageAsset) string {
	if img.Format == "" {
		return "png"
	}
	return img.Format
}

// dataURL encodes an image as an inline data URL for OpenAI-style image parts.
func dataURL(img models.ImageAsset) string {
	return "data:" + img.MIMEType() + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// newLimiter returns a token bucket allowing rps calls per second.
// rps <= 0 disables limiting.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
