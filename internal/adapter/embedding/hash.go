package embedding

import (
	"context"
	"fmt"
	"hash/fnv"

	"roteiro/internal/adapter/analyzer"
	"roteiro/internal/domain"
)

// HashEmbedder maps text to a bag-of-words vector with the hashing trick.
// It needs no model or network, is fully deterministic, and texts sharing
// words get a positive cosine similarity. Useful offline and in tests.
type HashEmbedder struct {
	dimension int
	tokenizer *analyzer.Tokenizer
}

func NewHashEmbedder(dimension int, tokenizer *analyzer.Tokenizer) (*HashEmbedder, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: hash embedding dimension must be positive, got %d", domain.ErrInvalidConfiguration, dimension)
	}
	if tokenizer == nil {
		tokenizer = analyzer.NewTokenizer(nil)
	}
	return &HashEmbedder{dimension: dimension, tokenizer: tokenizer}, nil
}

func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		vec := make([]float32, e.dimension)
		for _, tok := range e.tokenizer.Tokenize(text) {
			h := fnv.New64a()
			h.Write([]byte(tok))
			sum := h.Sum64()

			bucket := int(sum % uint64(e.dimension))
			if sum&(1<<63) != 0 {
				vec[bucket]--
			} else {
				vec[bucket]++
			}
		}
		domain.NormalizeL2(vec)
		embeddings[i] = vec
	}
	return embeddings, nil
}

func (e *HashEmbedder) Dimension() int {
	return e.dimension
}

func (e *HashEmbedder) ModelName() string {
	return fmt.Sprintf("hash-%d", e.dimension)
}
