package retriever

import (
	"fmt"
	"sort"

	"roteiro/internal/domain"
)

// Weights sets how semantic and lexical scores are blended.
type Weights struct {
	Semantic float64
	Lexical  float64
}

// DefaultWeights favours semantic similarity.
var DefaultWeights = Weights{Semantic: 0.6, Lexical: 0.4}

// Validate rejects negative weights and an all-zero blend.
func (w Weights) Validate() error {
	if w.Semantic < 0 || w.Lexical < 0 {
		return fmt.Errorf("%w: weights must not be negative (semantic=%v, lexical=%v)",
			domain.ErrInvalidConfiguration, w.Semantic, w.Lexical)
	}
	if w.Semantic == 0 && w.Lexical == 0 {
		return fmt.Errorf("%w: semantic and lexical weights are both zero", domain.ErrInvalidConfiguration)
	}
	return nil
}

// Ranker blends per-chunk scores, orders chunks and applies the relevance
// gate. It holds no per-query state and is safe for concurrent use.
type Ranker struct {
	weights Weights
	mmr     *MMRReranker
}

// RankerOption configures a Ranker.
type RankerOption func(*Ranker)

// WithMMR diversifies the top-K selection with Maximal Marginal Relevance.
// A lambda <= 0 leaves plain score order.
func WithMMR(lambda, dedupJaccard float64) RankerOption {
	return func(r *Ranker) {
		if lambda > 0 {
			r.mmr = NewMMRReranker(lambda, dedupJaccard)
		}
	}
}

func NewRanker(weights Weights, opts ...RankerOption) (*Ranker, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	r := &Ranker{weights: weights}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Weights returns the blend in use.
func (r *Ranker) Weights() Weights {
	return r.weights
}

// Rank scores chunks and returns the selection in descending score order.
//
// With semantic == nil the final score is the lexical score unchanged.
// Otherwise it is w_sem*semantic + w_lex*lexical. Equal scores keep corpus
// order, whatever order chunks were passed in. Of the best topK chunks, those scoring strictly above threshold are
// returned with found=true. When none clears the threshold the single best
// chunk is returned with found=false. An empty chunk list yields nil, false.
func (r *Ranker) Rank(chunks []domain.Chunk, lexical, semantic []float64, topK int, threshold float64) ([]domain.ScoredChunk, bool, error) {
	if topK <= 0 {
		return nil, false, fmt.Errorf("%w: top_k must be positive, got %d", domain.ErrInvalidConfiguration, topK)
	}
	if len(lexical) != len(chunks) {
		return nil, false, fmt.Errorf("%w: %d lexical scores for %d chunks", domain.ErrDimensionMismatch, len(lexical), len(chunks))
	}
	if semantic != nil && len(semantic) != len(chunks) {
		return nil, false, fmt.Errorf("%w: %d semantic scores for %d chunks", domain.ErrDimensionMismatch, len(semantic), len(chunks))
	}
	if len(chunks) == 0 {
		return nil, false, nil
	}

	scored := make([]domain.ScoredChunk, len(chunks))
	for i, chunk := range chunks {
		sc := domain.ScoredChunk{Chunk: chunk, Lexical: lexical[i]}
		if semantic != nil {
			sc.Semantic = semantic[i]
			sc.Score = r.weights.Semantic*semantic[i] + r.weights.Lexical*lexical[i]
		} else {
			sc.Score = lexical[i]
		}
		scored[i] = sc
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return ranksBefore(scored[i], scored[j])
	})

	var top []domain.ScoredChunk
	if r.mmr != nil {
		top = r.mmr.Rerank(scored, topK)
	} else {
		top = scored[:min(topK, len(scored))]
	}

	relevant := make([]domain.ScoredChunk, 0, len(top))
	for _, sc := range top {
		if sc.Score > threshold {
			sc.Relevant = true
			relevant = append(relevant, sc)
		}
	}
	if len(relevant) > 0 {
		return relevant, true, nil
	}

	return []domain.ScoredChunk{scored[0]}, false, nil
}

// ranksBefore orders by descending score, then by corpus position and chunk
// index. Chunks that tie on all three keep their input order.
func ranksBefore(a, b domain.ScoredChunk) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Chunk.Position != b.Chunk.Position {
		return a.Chunk.Position < b.Chunk.Position
	}
	return a.Chunk.Index < b.Chunk.Index
}
