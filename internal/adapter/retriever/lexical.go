package retriever

import (
	"fmt"
	"sort"
	"strings"

	"roteiro/internal/adapter/analyzer"
	"roteiro/internal/domain"
)

// DomainTerm is a curated subject keyword. When the term occurs in both the
// query and a chunk, Weight is added to the chunk's lexical score.
type DomainTerm struct {
	Term   string
	Weight float64
}

// LexicalScorer scores chunks by the fraction of query tokens they contain,
// plus a bonus for every domain term shared with the query.
//
// Scores lie in [0, 1 + sum of domain term weights].
type LexicalScorer struct {
	tokenizer *analyzer.Tokenizer
	terms     []DomainTerm
	expander  *QueryExpander
}

// LexicalOption configures a LexicalScorer.
type LexicalOption func(*LexicalScorer)

// WithSynonyms scores every chunk against the query and each of its synonym
// variants, keeping the best score.
func WithSynonyms(expander *QueryExpander) LexicalOption {
	return func(s *LexicalScorer) {
		s.expander = expander
	}
}

// NewLexicalScorer creates a scorer. Terms are matched case-insensitively as
// plain substrings. A negative weight is a configuration error.
func NewLexicalScorer(tokenizer *analyzer.Tokenizer, domainTerms map[string]float64, opts ...LexicalOption) (*LexicalScorer, error) {
	terms := make([]DomainTerm, 0, len(domainTerms))
	for term, weight := range domainTerms {
		if weight < 0 {
			return nil, fmt.Errorf("%w: domain term %q has negative weight %v", domain.ErrInvalidConfiguration, term, weight)
		}
		term = analyzer.Fold(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		terms = append(terms, DomainTerm{Term: term, Weight: weight})
	}

	// Summation order is fixed so that float results are reproducible.
	sort.Slice(terms, func(i, j int) bool {
		return terms[i].Term < terms[j].Term
	})

	if tokenizer == nil {
		tokenizer = analyzer.NewTokenizer(nil)
	}
	s := &LexicalScorer{tokenizer: tokenizer, terms: terms}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Terms returns the domain terms in matching order.
func (s *LexicalScorer) Terms() []DomainTerm {
	return append([]DomainTerm(nil), s.terms...)
}

// Score computes the lexical relevance of a single chunk text.
func (s *LexicalScorer) Score(query, chunk string) float64 {
	return bestScore(s.prepareAll(query), s.tokenizer.TokenSet(chunk), analyzer.Fold(chunk))
}

// ScoreChunks scores every chunk against query, in chunk order. Precomputed
// chunk tokens are used when present.
func (s *LexicalScorer) ScoreChunks(query string, chunks []domain.Chunk) []float64 {
	queries := s.prepareAll(query)
	scores := make([]float64, len(chunks))

	for i, chunk := range chunks {
		var tokens map[string]struct{}
		if chunk.Tokens != nil {
			tokens = make(map[string]struct{}, len(chunk.Tokens))
			for _, tok := range chunk.Tokens {
				tokens[tok] = struct{}{}
			}
		} else {
			tokens = s.tokenizer.TokenSet(chunk.Text)
		}
		scores[i] = bestScore(queries, tokens, analyzer.Fold(chunk.Text))
	}

	return scores
}

// prepareAll prepares the query and, with synonyms configured, its variants.
func (s *LexicalScorer) prepareAll(query string) []preparedQuery {
	variants := s.expander.Expand(query)
	prepared := make([]preparedQuery, len(variants))
	for i, v := range variants {
		prepared[i] = s.prepare(v)
	}
	return prepared
}

func bestScore(queries []preparedQuery, chunkTokens map[string]struct{}, lowerChunk string) float64 {
	best := 0.0
	for i, q := range queries {
		if score := q.score(chunkTokens, lowerChunk); i == 0 || score > best {
			best = score
		}
	}
	return best
}

type preparedQuery struct {
	tokens []string
	terms  []DomainTerm
}

// prepare tokenizes the query once and keeps only the domain terms that
// occur in it; the rest can never contribute a bonus.
func (s *LexicalScorer) prepare(query string) preparedQuery {
	lower := analyzer.Fold(query)

	var terms []DomainTerm
	for _, t := range s.terms {
		if strings.Contains(lower, t.Term) {
			terms = append(terms, t)
		}
	}

	set := s.tokenizer.TokenSet(query)
	tokens := make([]string, 0, len(set))
	for tok := range set {
		tokens = append(tokens, tok)
	}

	return preparedQuery{tokens: tokens, terms: terms}
}

func (q preparedQuery) score(chunkTokens map[string]struct{}, lowerChunk string) float64 {
	score := 0.0

	if len(q.tokens) > 0 {
		shared := 0
		for _, tok := range q.tokens {
			if _, ok := chunkTokens[tok]; ok {
				shared++
			}
		}
		score = float64(shared) / float64(len(q.tokens))
	}

	for _, t := range q.terms {
		if strings.Contains(lowerChunk, t.Term) {
			score += t.Weight
		}
	}

	return score
}
