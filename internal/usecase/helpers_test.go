package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"roteiro/internal/adapter/retriever"
	"roteiro/internal/domain"
)

// stubEmbedder returns fixed vectors by text, or a one-hot vector on axis 0.
type stubEmbedder struct {
	mu       sync.Mutex
	model    string
	dim      int
	vectors  map[string][]float32
	err      error
	failures int
	block    bool
	calls    int
}

func (e *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	calls := e.calls
	e.mu.Unlock()

	if e.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if calls <= e.failures {
		return nil, errors.New("temporary failure")
	}
	if e.err != nil {
		return nil, e.err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if v, ok := e.vectors[text]; ok {
			out[i] = append([]float32(nil), v...)
			continue
		}
		v := make([]float32, e.dim)
		v[0] = 1
		out[i] = v
	}
	return out, nil
}

func (e *stubEmbedder) Dimension() int    { return e.dim }
func (e *stubEmbedder) ModelName() string { return e.model }

func (e *stubEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func textChunks(texts ...string) []domain.Chunk {
	chunks := make([]domain.Chunk, len(texts))
	offset := 0
	for i, text := range texts {
		n := len([]rune(text))
		chunks[i] = domain.Chunk{
			ID:    string(rune('a' + i)),
			DocID: "tese",
			Index: i,
			Start: offset,
			End:   offset + n,
			Text:  text,
		}
		offset += n
	}
	return chunks
}

func mustCorpus(t *testing.T, version string, chunks []domain.Chunk, embeddings [][]float32, model string) *domain.Corpus {
	t.Helper()
	c, err := domain.NewCorpus(version, []domain.Document{{ID: "tese", Source: "tese.md"}}, chunks, embeddings, model)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func defaultRetrieveOptions() RetrieveOptions {
	return RetrieveOptions{
		TopK:               3,
		RelevanceThreshold: 0.1,
		MaxContextLength:   3000,
		EmbedTimeout:       time.Second,
	}
}

func newTestRetriever(t *testing.T, holder *CorpusHolder, embedder *stubEmbedder, terms map[string]float64, opts RetrieveOptions) *RetrieveUseCase {
	t.Helper()
	lexical, err := retriever.NewLexicalScorer(nil, terms)
	if err != nil {
		t.Fatal(err)
	}
	ranker, err := retriever.NewRanker(retriever.DefaultWeights)
	if err != nil {
		t.Fatal(err)
	}

	var u *RetrieveUseCase
	if embedder == nil {
		u, err = NewRetrieveUseCase(holder, lexical, ranker, nil, opts, zerolog.Nop())
	} else {
		u, err = NewRetrieveUseCase(holder, lexical, ranker, embedder, opts, zerolog.Nop())
	}
	if err != nil {
		t.Fatal(err)
	}
	return u
}
