package embedding

import (
	"context"
	"fmt"

	"roteiro/internal/adapter/analyzer"
	"roteiro/internal/domain"
	"roteiro/internal/port"
)

// Supported embedding providers.
const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
	ProviderGemini     = "gemini"
	ProviderHash       = "hash"
)

// Options selects and configures an embedding provider.
type Options struct {
	Provider          string
	Model             string
	BaseURL           string
	APIKey            string
	Dimension         int
	BatchSize         int
	RequestsPerSecond float64
	Tokenizer         *analyzer.Tokenizer
}

// New builds the embedder for opts.Provider, rate limited when
// RequestsPerSecond is set.
func New(ctx context.Context, opts Options) (port.Embedder, error) {
	var (
		embedder port.Embedder
		err      error
	)

	switch opts.Provider {
	case ProviderOpenAI:
		embedder, err = NewOpenAICompatibleEmbedder(opts.APIKey, opts.Model, orDefault(opts.BaseURL, OpenAIBaseURL), opts.Dimension, opts.BatchSize)
	case ProviderOpenRouter:
		embedder, err = NewOpenAICompatibleEmbedder(opts.APIKey, opts.Model, orDefault(opts.BaseURL, OpenRouterBaseURL), opts.Dimension, opts.BatchSize)
	case ProviderOllama:
		embedder, err = NewOllamaEmbedder(opts.Model, opts.BaseURL)
	case ProviderGemini:
		embedder, err = NewGeminiEmbedder(ctx, opts.APIKey, opts.Model, opts.Dimension, opts.BatchSize)
	case ProviderHash:
		dim := opts.Dimension
		if dim <= 0 {
			dim = 256
		}
		embedder, err = NewHashEmbedder(dim, opts.Tokenizer)
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidConfiguration, opts.Provider)
	}
	if err != nil {
		return nil, err
	}

	if opts.RequestsPerSecond > 0 {
		embedder = NewRateLimited(embedder, opts.RequestsPerSecond, 1)
	}
	return embedder, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
