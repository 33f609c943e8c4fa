package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/markdave123-py/flowllm/internal/core"
)

// geminiMaxBatch is the per-request limit of BatchEmbedContents.
const geminiMaxBatch = 100

type GeminiEmbedder struct {
	client    *genai.Client
	modelName string
	logger    *slog.Logger
}

func NewGeminiEmbedder(ctx context.Context, apiKey, modelName string) (*GeminiEmbedder, error) {
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "text-embedding-004"
	}
	return &GeminiEmbedder{
		client:    cl,
		modelName: modelName,
		logger:    slog.Default().With("component", "gemini-embedder"),
	}, nil
}

func (g *GeminiEmbedder) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// EmbedTexts embeds texts in order. Inputs larger than one API batch are sent
// as sequential sub-batches and stitched back together.
func (g *GeminiEmbedder) EmbedTexts(ctx context.Context, texts []string, purpose core.EmbeddingPurpose) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	em := g.client.EmbeddingModel(g.modelName)
	em.TaskType = taskType(purpose)

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += geminiMaxBatch {
		end := min(start+geminiMaxBatch, len(texts))

		batch := em.NewBatch()
		for _, t := range texts[start:end] {
			batch.AddContent(genai.Text(t))
		}

		resp, err := em.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("gemini batch embed [%d:%d]: %w", start, end, err)
		}
		if len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("gemini batch embed [%d:%d]: got %d embeddings", start, end, len(resp.Embeddings))
		}
		for _, e := range resp.Embeddings {
			out = append(out, e.Values)
		}
	}

	g.logger.Debug("embedded texts", "count", len(texts), "purpose", purpose)
	return out, nil
}

func taskType(p core.EmbeddingPurpose) genai.TaskType {
	switch p {
	case core.PurposeSearchQuery:
		return genai.TaskTypeRetrievalQuery
	default:
		return genai.TaskTypeRetrievalDocument
	}
}

var _ core.EmbeddingProvider = (*GeminiEmbedder)(nil)
