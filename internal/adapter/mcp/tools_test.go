package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roteiro/internal/domain"
)

func TestServer_handleRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("returns ranked context", func(t *testing.T) {
		retriever := &mockRetriever{
			result: domain.RetrievalResult{
				Query:         "o que é a PQT-U?",
				FoundRelevant: true,
				Context:       "A PQT-U é dispensada mensalmente.",
				Mode:          domain.ModeHybrid,
				CorpusVersion: "v1",
				Chunks: []domain.ScoredChunk{
					{
						Chunk:    domain.Chunk{ID: "c1", DocID: "doc-1", Start: 0, End: 33},
						Score:    6.2,
						Lexical:  10.4,
						Semantic: 0.4,
						Relevant: true,
					},
				},
			},
		}

		server, err := NewServer(&Ports{Retriever: retriever})
		require.NoError(t, err)

		input := RetrieveInput{Query: "  o que é a PQT-U?  ", Persona: "professor"}
		_, output, err := server.handleRetrieve(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, "o que é a PQT-U?", retriever.got.Text)
		assert.Equal(t, "professor", retriever.got.Persona)
		assert.True(t, output.FoundRelevant)
		assert.Equal(t, "A PQT-U é dispensada mensalmente.", output.Context)
		assert.Equal(t, domain.ModeHybrid, output.Mode)
		assert.Equal(t, "v1", output.CorpusVersion)
		require.Len(t, output.Chunks, 1)
		assert.Equal(t, "c1", output.Chunks[0].ID)
		assert.Equal(t, 6.2, output.Chunks[0].Score)
		assert.True(t, output.Chunks[0].Relevant)
	})

	t.Run("reports fallback results", func(t *testing.T) {
		retriever := &mockRetriever{
			result: domain.RetrievalResult{
				Context:  "primeiro trecho",
				Mode:     domain.ModeLexical,
				Degraded: true,
				Chunks:   []domain.ScoredChunk{{Chunk: domain.Chunk{ID: "c0"}}},
			},
		}

		server, err := NewServer(&Ports{Retriever: retriever})
		require.NoError(t, err)

		_, output, err := server.handleRetrieve(ctx, nil, RetrieveInput{Query: "hanseniase"})
		require.NoError(t, err)
		assert.False(t, output.FoundRelevant)
		assert.True(t, output.Degraded)
		assert.Len(t, output.Chunks, 1)
	})

	t.Run("returns error on retrieval failure", func(t *testing.T) {
		server, err := NewServer(&Ports{Retriever: &mockRetriever{err: errors.New("retrieval failed")}})
		require.NoError(t, err)

		_, _, err = server.handleRetrieve(ctx, nil, RetrieveInput{Query: "dose"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "retrieval failed")
	})
}
