package ingestion_engine

import (
	"context"
	"fmt"

	"github.com/markdave123-py/flowllm/internal/core"
	"github.com/markdave123-py/flowllm/internal/models"
)

// EmbedRequestor issues the single embedding request of a document.
type EmbedRequestor struct {
	provider core.EmbeddingProvider
}

func NewEmbedRequestor(provider core.EmbeddingProvider) *EmbedRequestor {
	return &EmbedRequestor{provider: provider}
}

// Embed returns one vector per unit, in unit order. No units means no call.
func (e *EmbedRequestor) Embed(ctx context.Context, units []models.TextUnit) ([][]float32, error) {
	if len(units) == 0 {
		return nil, nil
	}

	texts := make([]string, len(units))
	for i, u := range units {
		texts[i] = u.Text
	}

	vecs, err := e.provider.EmbedTexts(ctx, texts, core.PurposeSearchDocument)
	if err != nil {
		return nil, fmt.Errorf("embed %d units: %w", len(units), err)
	}
	if len(vecs) != len(units) {
		return nil, fmt.Errorf("%w: got %d vectors for %d units", ErrAlignment, len(vecs), len(units))
	}
	return vecs, nil
}
