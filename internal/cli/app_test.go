package cli

import (
	"context"
	"errors"
	"testing"

	"roteiro/config"
	"roteiro/internal/adapter/analyzer"
	"roteiro/internal/domain"
)

func TestNewEmbedder(t *testing.T) {
	t.Setenv("ROTEIRO_TEST_EMBED_KEY", "")
	t.Setenv("ROTEIRO_TEST_EMBED_KEY_SET", "sk-test")

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr error
		wantNil bool
	}{
		{
			name:    "disabled",
			mutate:  func(c *config.Config) { c.Embedding.Enabled = false },
			wantNil: true,
		},
		{
			name: "missing api key ranks lexically",
			mutate: func(c *config.Config) {
				c.Embedding.Provider = "openai"
				c.Embedding.APIKeyEnv = "ROTEIRO_TEST_EMBED_KEY"
			},
			wantNil: true,
		},
		{
			name:    "unknown provider fails",
			mutate:  func(c *config.Config) { c.Embedding.Provider = "word2vec" },
			wantErr: domain.ErrInvalidConfiguration,
		},
		{
			name: "missing model fails",
			mutate: func(c *config.Config) {
				c.Embedding.Provider = "openai"
				c.Embedding.Model = ""
				c.Embedding.APIKeyEnv = "ROTEIRO_TEST_EMBED_KEY_SET"
			},
			wantErr: domain.ErrInvalidConfiguration,
		},
		{
			name: "hash provider",
			mutate: func(c *config.Config) {
				c.Embedding.Provider = "hash"
				c.Embedding.Dimension = 16
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Embedding.Enabled = true
			tc.mutate(cfg)

			embedder, err := newEmbedder(context.Background(), cfg, analyzer.NewTokenizer(nil))
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (embedder == nil) != tc.wantNil {
				t.Errorf("embedder = %v, want nil: %v", embedder, tc.wantNil)
			}
		})
	}
}
