package domain

import "errors"

// Retrieval errors. Configuration errors are fatal; the rest are recovered
// by the retrieval service and surface only as data on RetrievalResult.
var (
	// ErrInvalidConfiguration indicates a non-positive chunk size, an overlap
	// not smaller than the chunk size, negative weights or similar.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrDimensionMismatch indicates embeddings of differing length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured, failed, or timed out.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrEmptyCorpus indicates there are no chunks to rank.
	ErrEmptyCorpus = errors.New("empty corpus")

	// ErrNotFound indicates a requested entity does not exist in the store.
	ErrNotFound = errors.New("not found")
)
