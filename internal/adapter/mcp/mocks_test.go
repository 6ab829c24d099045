package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"roteiro/internal/adapter/memstore"
	"roteiro/internal/domain"
	"roteiro/internal/port"
)

type mockRetriever struct {
	result domain.RetrievalResult
	err    error
	got    domain.Query
}

func (m *mockRetriever) Retrieve(_ context.Context, q domain.Query) (domain.RetrievalResult, error) {
	m.got = q
	if m.err != nil {
		return domain.RetrievalResult{}, m.err
	}
	return m.result, nil
}

func newReadRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func seededStore() (*memstore.MemoryStore, error) {
	store := memstore.NewMemoryStore()
	err := store.ReplaceCorpus(port.CorpusSnapshot{
		Version: "v1",
		Docs: []domain.Document{
			{ID: "doc-1", Source: "tese.md", Text: "A PQT-U é dispensada mensalmente."},
		},
		Chunks: []domain.Chunk{
			{ID: "c1", DocID: "doc-1", Start: 0, End: 33, Text: "A PQT-U é dispensada mensalmente."},
		},
	})
	return store, err
}
