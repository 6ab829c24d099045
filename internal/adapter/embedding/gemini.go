package embedding

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"roteiro/internal/domain"
)

// GeminiEmbedder embeds text with the Gemini API.
type GeminiEmbedder struct {
	client    *genai.Client
	model     string
	dimension int
	batchSize int
	taskType  string
}

func NewGeminiEmbedder(ctx context.Context, apiKey, model string, dimension, batchSize int) (*GeminiEmbedder, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: no Gemini API key", domain.ErrEmbeddingUnavailable)
	}
	if model == "" {
		model = "text-embedding-004"
	}
	if dimension <= 0 {
		dimension = knownDimension(model)
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", domain.ErrEmbeddingUnavailable, err)
	}

	return &GeminiEmbedder{
		client:    client,
		model:     model,
		dimension: dimension,
		batchSize: batchSize,
		taskType:  "RETRIEVAL_DOCUMENT",
	}, nil
}

func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := min(i+e.batchSize, len(texts))

		var contents []*genai.Content
		for _, text := range texts[i:end] {
			contents = append(contents, genai.Text(text)...)
		}

		res, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
			TaskType: e.taskType,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
		}
		if res == nil || len(res.Embeddings) != end-i {
			return nil, fmt.Errorf("%w: expected %d embeddings from Gemini", domain.ErrEmbeddingUnavailable, end-i)
		}

		for _, emb := range res.Embeddings {
			if emb == nil || len(emb.Values) == 0 {
				return nil, fmt.Errorf("%w: empty embedding from Gemini", domain.ErrEmbeddingUnavailable)
			}
			all = append(all, emb.Values)
		}
	}

	return all, nil
}

func (e *GeminiEmbedder) Dimension() int {
	return e.dimension
}

func (e *GeminiEmbedder) ModelName() string {
	return e.model
}
