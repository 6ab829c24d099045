package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_handleStatsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("reports corpus counts", func(t *testing.T) {
		store, err := seededStore()
		require.NoError(t, err)
		server, err := NewServer(&Ports{Retriever: &mockRetriever{}, Store: store})
		require.NoError(t, err)

		result, err := server.handleStatsResource(ctx, newReadRequest("roteiro://stats"))
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)

		var stats statsOutput
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &stats))
		assert.Equal(t, 1, stats.Documents)
		assert.Equal(t, 1, stats.Chunks)
		assert.Equal(t, 0, stats.Dimension)
	})

	t.Run("no store yields zero stats", func(t *testing.T) {
		server, err := NewServer(&Ports{Retriever: &mockRetriever{}})
		require.NoError(t, err)

		result, err := server.handleStatsResource(ctx, newReadRequest("roteiro://stats"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"documents":0,"chunks":0,"avg_chunk_len":0,"dimension":0}`, result.Contents[0].Text)
	})
}

func TestServer_handleDocumentResource(t *testing.T) {
	ctx := context.Background()
	store, err := seededStore()
	require.NoError(t, err)
	server, err := NewServer(&Ports{Retriever: &mockRetriever{}, Store: store})
	require.NoError(t, err)

	t.Run("returns document text", func(t *testing.T) {
		result, err := server.handleDocumentResource(ctx, newReadRequest("roteiro://documents/doc-1"))
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "A PQT-U é dispensada mensalmente.", result.Contents[0].Text)
		assert.Equal(t, "text/plain", result.Contents[0].MIMEType)
	})

	t.Run("unknown document", func(t *testing.T) {
		_, err := server.handleDocumentResource(ctx, newReadRequest("roteiro://documents/missing"))
		assert.Error(t, err)
	})

	t.Run("malformed URI", func(t *testing.T) {
		_, err := server.handleDocumentResource(ctx, newReadRequest("file://documents/doc-1"))
		assert.Error(t, err)
	})
}
