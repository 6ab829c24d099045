package port

import "roteiro/internal/domain"

// CorpusStore persists a whole corpus: documents, chunks and embeddings.
// ReplaceCorpus swaps the stored corpus in a single step; readers never see
// a mix of old and new data.
type CorpusStore interface {
	ReplaceCorpus(snapshot CorpusSnapshot) error

	LoadCorpus() (*domain.Corpus, error)

	GetDoc(id string) (domain.Document, error)

	ListDocs() ([]domain.Document, error)

	GetChunksByDoc(docID string) ([]domain.Chunk, error)

	GetStats() (domain.Stats, error)

	Close() error
}

// CorpusSnapshot is everything needed to rebuild a corpus. Embeddings is
// either empty or holds one vector per chunk, in chunk order.
type CorpusSnapshot struct {
	Version    string
	Model      string
	Docs       []domain.Document
	Chunks     []domain.Chunk
	Embeddings [][]float32
}
