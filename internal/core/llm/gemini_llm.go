package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"github.com/markdave123-py/flowllm/internal/core"
	"github.com/markdave123-py/flowllm/internal/models"
)

// GeminiVision implements core.VisionProvider on a multimodal Gemini model.
type GeminiVision struct {
	client    *genai.Client
	modelName string
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewGeminiVision creates the client. rps bounds model calls per second (0 = unlimited).
func NewGeminiVision(ctx context.Context, apiKey, modelName string, rps float64) (*GeminiVision, error) {
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &GeminiVision{
		client:    cl,
		modelName: modelName,
		limiter:   newLimiter(rps),
		logger:    slog.Default().With("component", "gemini-vision"),
	}, nil
}

func (g *GeminiVision) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiVision) CorrectText(ctx context.Context, img models.ImageAsset, rawText string) (core.Correction, error) {
	m := g.model(correctionPrompt)
	m.ResponseMIMEType = "application/json"

	out, err := g.generate(ctx, m, genai.Text(rawText), genai.ImageData(imageFormat(img), img.Data))
	if err != nil {
		return core.Correction{}, err
	}
	return parseCorrection(out)
}

func (g *GeminiVision) Caption(ctx context.Context, img models.ImageAsset) (string, error) {
	m := g.model(captionPrompt)

	out, err := g.generate(ctx, m, genai.Text(captionRequest), genai.ImageData(imageFormat(img), img.Data))
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

func (g *GeminiVision) model(systemPrompt string) *genai.GenerativeModel {
	m := g.client.GenerativeModel(g.modelName)
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}
	m.SetTemperature(0)
	return m
}

func (g *GeminiVision) generate(ctx context.Context, m *genai.GenerativeModel, parts ...genai.Part) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		g.logger.Warn("model returned no candidates", "model", g.modelName)
		return "", ErrEmptyResponse
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}

var _ core.VisionProvider = (*GeminiVision)(nil)
