package port

import (
	"context"

	"roteiro/internal/domain"
)

// Retriever answers a query with ranked context from the current corpus.
type Retriever interface {
	Retrieve(ctx context.Context, query domain.Query) (domain.RetrievalResult, error)
}
