package memstore

import (
	"fmt"
	"sort"
	"sync"

	"roteiro/internal/domain"
	"roteiro/internal/port"
)

// MemoryStore keeps a corpus in process memory. It backs ephemeral runs that
// index the knowledge base on the fly instead of reading a corpus file.
type MemoryStore struct {
	mu        sync.RWMutex
	corpus    *domain.Corpus
	docs      map[string]domain.Document
	docChunks map[string][]domain.Chunk
}

var _ port.CorpusStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:      make(map[string]domain.Document),
		docChunks: make(map[string][]domain.Chunk),
	}
}

func (s *MemoryStore) ReplaceCorpus(snapshot port.CorpusSnapshot) error {
	corpus, err := domain.NewCorpus(snapshot.Version, snapshot.Docs, snapshot.Chunks, snapshot.Embeddings, snapshot.Model)
	if err != nil {
		return err
	}

	docs := make(map[string]domain.Document, len(snapshot.Docs))
	for _, doc := range snapshot.Docs {
		docs[doc.ID] = doc
	}
	docChunks := make(map[string][]domain.Chunk)
	for _, chunk := range snapshot.Chunks {
		docChunks[chunk.DocID] = append(docChunks[chunk.DocID], chunk)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.corpus = corpus
	s.docs = docs
	s.docChunks = docChunks
	return nil
}

func (s *MemoryStore) LoadCorpus() (*domain.Corpus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.corpus == nil {
		return nil, fmt.Errorf("%w: no corpus has been indexed", domain.ErrNotFound)
	}
	return s.corpus, nil
}

func (s *MemoryStore) GetDoc(id string) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return domain.Document{}, fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
	}
	return doc, nil
}

// ListDocs returns documents sorted by ID, matching the bbolt store.
func (s *MemoryStore) ListDocs() ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]domain.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

func (s *MemoryStore) GetChunksByDoc(docID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Chunk(nil), s.docChunks[docID]...), nil
}

func (s *MemoryStore) GetStats() (domain.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.corpus == nil {
		return domain.Stats{}, nil
	}
	return s.corpus.Stats(), nil
}

func (s *MemoryStore) Close() error {
	return nil
}
