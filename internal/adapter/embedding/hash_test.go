package embedding

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"roteiro/internal/domain"
)

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestHashEmbedderDeterministicAndNormalized(t *testing.T) {
	embedder, err := NewHashEmbedder(64, nil)
	if err != nil {
		t.Fatal(err)
	}

	texts := []string{"dose mensal supervisionada", "dose mensal supervisionada"}
	vecs, err := embedder.Embed(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}

	for i := range vecs[0] {
		if vecs[0][i] != vecs[1][i] {
			t.Fatal("identical texts produced different vectors")
		}
	}
	if norm := math.Sqrt(dot(vecs[0], vecs[0])); math.Abs(norm-1) > 1e-6 {
		t.Errorf("expected unit norm, got %f", norm)
	}
	if len(vecs[0]) != embedder.Dimension() {
		t.Errorf("expected dimension %d, got %d", embedder.Dimension(), len(vecs[0]))
	}
}

func TestHashEmbedderSimilarity(t *testing.T) {
	embedder, err := NewHashEmbedder(512, nil)
	if err != nil {
		t.Fatal(err)
	}

	vecs, err := embedder.Embed(context.Background(), []string{
		"rifampicina dose mensal",
		"dose mensal de rifampicina supervisionada",
		"armazenamento em local seco",
	})
	if err != nil {
		t.Fatal(err)
	}

	related := dot(vecs[0], vecs[1])
	unrelated := dot(vecs[0], vecs[2])
	if related <= unrelated {
		t.Errorf("expected related texts to be closer: related=%f unrelated=%f", related, unrelated)
	}
}

func TestHashEmbedderEmptyText(t *testing.T) {
	embedder, err := NewHashEmbedder(8, nil)
	if err != nil {
		t.Fatal(err)
	}

	vecs, err := embedder.Embed(context.Background(), []string{""})
	if err != nil {
		t.Fatal(err)
	}
	for _, x := range vecs[0] {
		if x != 0 {
			t.Fatalf("expected zero vector, got %v", vecs[0])
		}
	}
}

func TestHashEmbedderInvalidDimension(t *testing.T) {
	if _, err := NewHashEmbedder(0, nil); !errors.Is(err, domain.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestRateLimitedHonoursContext(t *testing.T) {
	inner, err := NewHashEmbedder(8, nil)
	if err != nil {
		t.Fatal(err)
	}
	limited := NewRateLimited(inner, 0.001, 1)

	if _, err := limited.Embed(context.Background(), []string{"a"}); err != nil {
		t.Fatalf("first call should use the burst token: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := limited.Embed(ctx, []string{"b"}); err == nil {
		t.Error("expected second call to fail waiting for a token")
	}

	if limited.Dimension() != 8 || limited.ModelName() != "hash-8" {
		t.Errorf("wrapper should expose the inner model, got %d %s", limited.Dimension(), limited.ModelName())
	}
}

func TestNewProvider(t *testing.T) {
	embedder, err := New(context.Background(), Options{Provider: ProviderHash, Dimension: 32})
	if err != nil {
		t.Fatal(err)
	}
	if embedder.Dimension() != 32 {
		t.Errorf("expected dimension 32, got %d", embedder.Dimension())
	}

	limited, err := New(context.Background(), Options{Provider: ProviderHash, RequestsPerSecond: 5})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := limited.(*RateLimited); !ok {
		t.Errorf("expected rate limited embedder, got %T", limited)
	}

	if _, err := New(context.Background(), Options{Provider: "word2vec"}); !errors.Is(err, domain.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}
	if _, err := New(context.Background(), Options{Provider: ProviderOpenRouter, Model: "openai/text-embedding-3-small"}); !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Errorf("expected ErrEmbeddingUnavailable without API key, got %v", err)
	}
}
