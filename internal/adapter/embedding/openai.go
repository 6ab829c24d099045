package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"roteiro/internal/domain"
)

// Well-known base URLs for OpenAI-compatible embedding APIs.
const (
	OpenAIBaseURL     = "https://api.openai.com/v1"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
	OllamaBaseURL     = "http://localhost:11434/v1"
)

const defaultBatchSize = 100

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	client    openai.Client
	model     string
	dimension int
	batchSize int
}

// NewOpenAICompatibleEmbedder creates an embedder for any API speaking the
// OpenAI embeddings protocol. A zero dimension is inferred from the model
// name where known.
func NewOpenAICompatibleEmbedder(apiKey, model, baseURL string, dimension, batchSize int, opts ...option.RequestOption) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: no API key for %s", domain.ErrEmbeddingUnavailable, baseURL)
	}
	if model == "" {
		return nil, fmt.Errorf("%w: embedding model is required", domain.ErrInvalidConfiguration)
	}
	if baseURL == "" {
		baseURL = OpenAIBaseURL
	}
	if dimension <= 0 {
		dimension = knownDimension(model)
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	clientOpts := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithRequestTimeout(60 * time.Second),
	}, opts...)

	return &OpenAIEmbedder{
		client:    openai.NewClient(clientOpts...),
		model:     model,
		dimension: dimension,
		batchSize: batchSize,
	}, nil
}

// NewOllamaEmbedder targets a local Ollama server, which needs no API key.
func NewOllamaEmbedder(model, baseURL string) (*OpenAIEmbedder, error) {
	if baseURL == "" {
		baseURL = OllamaBaseURL
	}
	return NewOpenAICompatibleEmbedder("ollama", model, baseURL, 0, 0)
}

func knownDimension(model string) int {
	switch model {
	case "text-embedding-3-large", "openai/text-embedding-3-large":
		return 3072
	case "nomic-embed-text", "text-embedding-004", "text-embedding-005":
		return 768
	case "mxbai-embed-large", "jina-embeddings-v3":
		return 1024
	case "all-minilm":
		return 384
	default:
		return 1536
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := min(i+e.batchSize, len(texts))

		embeddings, err := e.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, embeddings...)
	}

	return all, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || int(data.Index) >= len(embeddings) {
			continue
		}
		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		embeddings[data.Index] = vec
	}

	for i, vec := range embeddings {
		if len(vec) == 0 {
			return nil, fmt.Errorf("%w: no embedding returned for input %d", domain.ErrEmbeddingUnavailable, i)
		}
	}

	return embeddings, nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}
