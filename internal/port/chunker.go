package port

import "roteiro/internal/domain"

// Chunker splits a document into ordered, contiguous chunks.
type Chunker interface {
	Chunk(doc domain.Document) ([]domain.Chunk, error)
}
