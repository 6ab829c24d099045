package retriever

import (
	"fmt"
	"math"

	"roteiro/internal/domain"
)

// Cosine returns the cosine similarity of a and b, in [-1, 1]. A zero vector
// has similarity 0 with everything.
func Cosine(a, b []float32) (float64, error) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", domain.ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// ScoreMatrix returns the cosine similarity between query and every row of
// m. Rows are expected to be L2-normalized already, as a Corpus stores them,
// so each score is a single inner product over a contiguous slice.
func ScoreMatrix(query []float32, m domain.Matrix) ([]float64, error) {
	if len(query) == 0 || len(query) != m.Dim {
		return nil, fmt.Errorf("%w: query has dimension %d, corpus %d", domain.ErrDimensionMismatch, len(query), m.Dim)
	}

	q := make([]float32, len(query))
	copy(q, query)
	domain.NormalizeL2(q)

	scores := make([]float64, m.Rows)
	dim := m.Dim
	for r := 0; r < m.Rows; r++ {
		row := m.Data[r*dim : (r+1)*dim]
		var dot float64
		for i, x := range row {
			dot += float64(x) * float64(q[i])
		}
		scores[r] = clampUnit(dot)
	}
	return scores, nil
}

// clampUnit absorbs float32 rounding so normalized scores stay in [-1, 1].
func clampUnit(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}
