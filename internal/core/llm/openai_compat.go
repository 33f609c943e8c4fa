package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"github.com/markdave123-py/flowllm/internal/core"
	"github.com/markdave123-py/flowllm/internal/models"
)

// OpenAIVision implements core.VisionProvider against any OpenAI-compatible
// chat endpoint (OpenAI, OpenRouter, local gateways).
type OpenAIVision struct {
	client  *openai.LLM
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewOpenAIVision(baseURL, apiKey, model string, rps float64) (*OpenAIVision, error) {
	client, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken(apiKey),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, err
	}
	return &OpenAIVision{
		client:  client,
		limiter: newLimiter(rps),
		logger:  slog.Default().With("component", "openai-vision"),
	}, nil
}

func (o *OpenAIVision) CorrectText(ctx context.Context, img models.ImageAsset, rawText string) (core.Correction, error) {
	out, err := o.generate(ctx, correctionPrompt, rawText, img, llms.WithTemperature(0.0), llms.WithJSONMode())
	if err != nil {
		return core.Correction{}, err
	}
	return parseCorrection(out)
}

func (o *OpenAIVision) Caption(ctx context.Context, img models.ImageAsset) (string, error) {
	out, err := o.generate(ctx, captionPrompt, captionRequest, img)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

func (o *OpenAIVision) generate(ctx context.Context, system, user string, img models.ImageAsset, opts ...llms.CallOption) (string, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return "", err
	}

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(system)},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(user),
				llms.ImageURLPart(dataURL(img)),
			},
		},
	}

	resp, err := o.client.GenerateContent(ctx, content, opts...)
	if err != nil {
		return "", fmt.Errorf("openai generate: %w", err)
	}
	if len(resp.Choices) < 1 {
		o.logger.Warn("model returned no choices")
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Content, nil
}

// OpenAIEmbedder implements core.EmbeddingProvider on an OpenAI-compatible
// embeddings endpoint. The purpose tag has no equivalent there and is ignored.
type OpenAIEmbedder struct {
	embedder embeddings.Embedder
	logger   *slog.Logger
}

func NewOpenAIEmbedder(baseURL, apiKey, model string) (*OpenAIEmbedder, error) {
	client, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, err
	}

	emb, err := embeddings.NewEmbedder(client,
		embeddings.WithStripNewLines(false),
		embeddings.WithBatchSize(geminiMaxBatch),
	)
	if err != nil {
		return nil, err
	}

	return &OpenAIEmbedder{
		embedder: emb,
		logger:   slog.Default().With("component", "openai-embedder"),
	}, nil
}

func (o *OpenAIEmbedder) EmbedTexts(ctx context.Context, texts []string, purpose core.EmbeddingPurpose) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	o.logger.Debug("generating embeddings", "count", len(texts), "purpose", purpose)

	vecs, err := o.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	return vecs, nil
}

var (
	_ core.VisionProvider    = (*OpenAIVision)(nil)
	_ core.EmbeddingProvider = (*OpenAIEmbedder)(nil)
)
