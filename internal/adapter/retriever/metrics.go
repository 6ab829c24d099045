package retriever

import "roteiro/internal/domain"

// ChunkMatcher reports whether a retrieved chunk answers a labelled question.
type ChunkMatcher func(domain.Chunk) bool

// PrecisionAtK is the fraction of retrieved chunks that match.
func PrecisionAtK(retrieved []domain.ScoredChunk, match ChunkMatcher) float64 {
	if len(retrieved) == 0 {
		return 0
	}
	hits := 0
	for _, sc := range retrieved {
		if match(sc.Chunk) {
			hits++
		}
	}
	return float64(hits) / float64(len(retrieved))
}

// ReciprocalRank is 1/rank of the first matching chunk, 0 when none match.
func ReciprocalRank(retrieved []domain.ScoredChunk, match ChunkMatcher) float64 {
	for i, sc := range retrieved {
		if match(sc.Chunk) {
			return 1.0 / float64(i+1)
		}
	}
	return 0
}
