package retriever

import (
	"roteiro/internal/domain"
)

// MMRReranker picks results by Maximal Marginal Relevance so that heavily
// overlapping windows of the same passage do not crowd out other passages:
//
//	MMR(c) = λ * relevance(c) - (1-λ) * max_similarity(c, selected)
//
// Similarity is the Jaccard index of the chunks' token sets.
type MMRReranker struct {
	lambda       float64
	dedupJaccard float64
}

// NewMMRReranker creates a reranker. Candidates whose similarity to an
// already selected chunk exceeds dedupJaccard are skipped; a value <= 0 or
// >= 1 disables that cut.
func NewMMRReranker(lambda, dedupJaccard float64) *MMRReranker {
	if dedupJaccard <= 0 || dedupJaccard >= 1 {
		dedupJaccard = 1
	}
	return &MMRReranker{
		lambda:       lambda,
		dedupJaccard: dedupJaccard,
	}
}

// Rerank selects up to k candidates. Candidates must already be ordered by
// descending score; ties in MMR value keep that order.
func (r *MMRReranker) Rerank(candidates []domain.ScoredChunk, k int) []domain.ScoredChunk {
	if len(candidates) == 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	// Scale by the largest magnitude; hybrid scores may be negative or
	// exceed 1 through domain bonuses.
	scale := 0.0
	for _, c := range candidates {
		scale = max(scale, c.Score, -c.Score)
	}
	if scale == 0 {
		scale = 1
	}
	relevance := func(c domain.ScoredChunk) float64 {
		return c.Score / scale
	}

	sets := make([]map[string]struct{}, len(candidates))
	for i, c := range candidates {
		sets[i] = tokenSet(c.Chunk.Tokens)
	}

	selected := make([]int, 0, k)
	used := make([]bool, len(candidates))

	for len(selected) < k {
		bestIdx := -1
		bestMMR := 0.0

		for i, c := range candidates {
			if used[i] {
				continue
			}

			maxSim := 0.0
			for _, j := range selected {
				maxSim = max(maxSim, jaccard(sets[i], sets[j]))
			}
			if maxSim > r.dedupJaccard {
				continue
			}

			mmr := r.lambda*relevance(c) - (1-r.lambda)*maxSim
			if bestIdx == -1 || mmr > bestMMR {
				bestMMR = mmr
				bestIdx = i
			}
		}

		if bestIdx == -1 {
			break
		}
		used[bestIdx] = true
		selected = append(selected, bestIdx)
	}

	out := make([]domain.ScoredChunk, len(selected))
	for i, idx := range selected {
		out[i] = candidates[idx]
	}
	return out
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// jaccard is |A∩B| / |A∪B|. Two empty sets count as unrelated.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	return float64(intersection) / float64(len(a)+len(b)-intersection)
}

// JaccardSimilarity compares two token lists as sets.
func JaccardSimilarity(a, b []string) float64 {
	return jaccard(tokenSet(a), tokenSet(b))
}
