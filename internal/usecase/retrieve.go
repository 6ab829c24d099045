package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"roteiro/internal/adapter/retriever"
	"roteiro/internal/domain"
	"roteiro/internal/port"
)

// RetrieveOptions holds the per-query knobs of the retrieval service.
type RetrieveOptions struct {
	TopK int
	// RelevanceThreshold gates relevance in hybrid and lexical mode alike.
	RelevanceThreshold float64
	MaxContextLength   int
	EmbedTimeout       time.Duration
}

func (o RetrieveOptions) validate() error {
	if o.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", domain.ErrInvalidConfiguration, o.TopK)
	}
	if o.MaxContextLength <= 0 {
		return fmt.Errorf("%w: max_context_length must be positive, got %d", domain.ErrInvalidConfiguration, o.MaxContextLength)
	}
	if o.EmbedTimeout < 0 {
		return fmt.Errorf("%w: embed_timeout must not be negative", domain.ErrInvalidConfiguration)
	}
	return nil
}

// RetrieveUseCase answers queries against the corpus published by a
// CorpusHolder. It is built once and shared; it holds no per-query state.
type RetrieveUseCase struct {
	corpus   *CorpusHolder
	lexical  *retriever.LexicalScorer
	ranker   *retriever.Ranker
	embedder port.Embedder
	opts     RetrieveOptions
	logger   zerolog.Logger
}

var _ port.Retriever = (*RetrieveUseCase)(nil)

// NewRetrieveUseCase wires the retrieval service. embedder may be nil, in
// which case every query is ranked lexically.
func NewRetrieveUseCase(
	corpus *CorpusHolder,
	lexical *retriever.LexicalScorer,
	ranker *retriever.Ranker,
	embedder port.Embedder,
	opts RetrieveOptions,
	logger zerolog.Logger,
) (*RetrieveUseCase, error) {
	if corpus == nil || lexical == nil || ranker == nil {
		return nil, fmt.Errorf("%w: corpus holder, lexical scorer and ranker are required", domain.ErrInvalidConfiguration)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &RetrieveUseCase{
		corpus:   corpus,
		lexical:  lexical,
		ranker:   ranker,
		embedder: embedder,
		opts:     opts,
		logger:   logger,
	}, nil
}

// Retrieve ranks the current corpus against the query and assembles the
// context. Embedding failures and an empty corpus are reported in the
// result, not as errors. An error is returned only if ctx is already done.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, q domain.Query) (domain.RetrievalResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.RetrievalResult{}, err
	}

	result := domain.RetrievalResult{
		Query:   q.Text,
		Persona: q.Persona,
		Mode:    domain.ModeLexical,
	}

	corpus := u.corpus.Load()
	if corpus == nil || corpus.Len() == 0 {
		u.logger.Debug().Err(domain.ErrEmptyCorpus).Str("query", q.Text).Msg("nothing to rank")
		if corpus != nil {
			result.CorpusVersion = corpus.Version()
		}
		return result, nil
	}
	result.CorpusVersion = corpus.Version()

	chunks := corpus.Chunks()
	lexical := u.lexical.ScoreChunks(q.Text, chunks)

	semantic, err := u.semanticScores(ctx, q.Text, corpus)
	switch {
	case err != nil:
		result.Degraded = true
		u.logger.Warn().Err(err).Str("query", q.Text).Msg("semantic scoring unavailable, ranking lexically")
	case semantic != nil:
		result.Mode = domain.ModeHybrid
	}

	ranked, found, err := u.ranker.Rank(chunks, lexical, semantic, u.opts.TopK, u.opts.RelevanceThreshold)
	if err != nil {
		// lengths come from the same corpus, so this is a wiring bug
		return domain.RetrievalResult{}, fmt.Errorf("rank: %w", err)
	}

	result.Chunks = ranked
	result.FoundRelevant = found
	result.Context = AssembleContext(ranked, u.opts.MaxContextLength)

	if !found {
		u.logger.Debug().Str("query", q.Text).Str("mode", result.Mode).Msg("no chunk cleared the relevance threshold")
	}
	return result, nil
}

// semanticScores returns nil, nil when the corpus or the service has no
// embeddings to offer, and an error when they should have been available.
func (u *RetrieveUseCase) semanticScores(ctx context.Context, query string, corpus *domain.Corpus) ([]float64, error) {
	if !corpus.HasEmbeddings() {
		return nil, nil
	}
	if u.embedder == nil {
		return nil, fmt.Errorf("%w: no embedder configured for model %s", domain.ErrEmbeddingUnavailable, corpus.Model())
	}
	if u.embedder.ModelName() != corpus.Model() {
		return nil, fmt.Errorf("%w: corpus embedded with %s, query embedder is %s",
			domain.ErrDimensionMismatch, corpus.Model(), u.embedder.ModelName())
	}

	if u.opts.EmbedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.opts.EmbedTimeout)
		defer cancel()
	}

	vectors, err := u.embedder.Embed(ctx, []string{query})
	if err != nil {
		if errors.Is(err, domain.ErrEmbeddingUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: expected 1 query vector, got %d", domain.ErrEmbeddingUnavailable, len(vectors))
	}

	return retriever.ScoreMatrix(vectors[0], corpus.Embeddings())
}
