package embedding

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/pkg/errors"
	"github.com/reviewdesk/review-engine/internal/config"
	"go.uber.org/zap"
)

// Embedder turns question text into a vector used by similarity lookups
// outside of the allocation core.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Enabled() bool
}

func New(cfg *config.Config) Embedder {
	if cfg.Embedding == nil || !cfg.Embedding.Enabled {
		return NewNoopEmbedder()
	}
	return NewOpenAIEmbedder(cfg.Embedding.APIKey, cfg.Embedding.BaseURL, cfg.Embedding.Model)
}

type NoopEmbedder struct{}

func NewNoopEmbedder() *NoopEmbedder {
	return &NoopEmbedder{}
}

func (NoopEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, nil
}

func (NoopEmbedder) Enabled() bool {
	return false
}

type OpenAIEmbedder struct {
	client openai.Client
	model  string
}

func NewOpenAIEmbedder(apiKey, baseURL, model string) *OpenAIEmbedder {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIEmbedder{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (e *OpenAIEmbedder) Enabled() bool {
	return true
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, errors.New("cannot embed empty text")
	}

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			zap.S().Named("embedding").Warnw("embedding request rejected", "status", apiErr.StatusCode, "model", e.model)
		}
		return nil, errors.Wrapf(err, "failed to embed text with model %s", e.model)
	}
	if len(resp.Data) == 0 {
		return nil, errors.Errorf("empty embedding response from model %s", e.model)
	}

	return toFloat32(resp.Data[0].Embedding), nil
}

func toFloat32(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}
