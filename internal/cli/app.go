package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"roteiro/config"
	"roteiro/internal/adapter/analyzer"
	"roteiro/internal/adapter/cache"
	"roteiro/internal/adapter/chunker"
	"roteiro/internal/adapter/embedding"
	"roteiro/internal/adapter/fs"
	"roteiro/internal/adapter/memstore"
	"roteiro/internal/adapter/retriever"
	"roteiro/internal/adapter/store"
	"roteiro/internal/domain"
	"roteiro/internal/port"
	"roteiro/internal/usecase"
)

// knowledgeBaseRoot resolves knowledge_base.root against the root directory.
func knowledgeBaseRoot(cfg *config.Config, dir string) string {
	root := cfg.KnowledgeBase.Root
	if root == "" {
		return dir
	}
	if filepath.IsAbs(root) {
		return root
	}
	return filepath.Join(dir, root)
}

func newTokenizer(cfg *config.Config) *analyzer.Tokenizer {
	return analyzer.NewTokenizer(cfg.Lexical.Stopwords)
}

// newEmbedder returns nil when embeddings are disabled, or when the provider
// is unavailable (no API key, client setup failed), in which case callers
// rank lexically. Configuration errors are returned.
func newEmbedder(ctx context.Context, cfg *config.Config, tokenizer *analyzer.Tokenizer) (port.Embedder, error) {
	if !cfg.Embedding.Enabled {
		return nil, nil
	}
	embedder, err := embedding.New(ctx, embedding.Options{
		Provider:          cfg.Embedding.Provider,
		Model:             cfg.Embedding.Model,
		BaseURL:           cfg.Embedding.BaseURL,
		APIKey:            cfg.APIKey(),
		Dimension:         cfg.Embedding.Dimension,
		BatchSize:         cfg.Embedding.BatchSize,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
		Tokenizer:         tokenizer,
	})
	switch {
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		logger.Warn().Err(err).Msg("embedder unavailable, ranking lexically")
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("embedding: %w", err)
	}
	return embedder, nil
}

func newIndexer(cfg *config.Config, st port.CorpusStore, tokenizer *analyzer.Tokenizer, embedder port.Embedder) (*usecase.IndexUseCase, error) {
	chk, err := chunker.New(cfg.Chunk.Strategy, cfg.Chunk.Size, cfg.Chunk.Overlap, cfg.Chunk.MinLength, tokenizer)
	if err != nil {
		return nil, err
	}
	walker := fs.NewWalker(cfg.KnowledgeBase.Includes, cfg.KnowledgeBase.Excludes)
	opts := usecase.IndexOptions{EmbedBatchSize: cfg.Embedding.BatchSize}
	return usecase.NewIndexUseCase(st, walker, fs.Reader{}, chk, embedder, opts, logger), nil
}

// newRetriever builds the retrieval service over holder, memoized when the
// cache is enabled. The returned cache is nil when it is disabled.
func newRetriever(cfg *config.Config, holder *usecase.CorpusHolder, tokenizer *analyzer.Tokenizer, embedder port.Embedder) (port.Retriever, *cache.ResultCache, error) {
	lexical, err := retriever.NewLexicalScorer(tokenizer, cfg.DomainTerms,
		retriever.WithSynonyms(retriever.NewQueryExpander(cfg.Synonyms)))
	if err != nil {
		return nil, nil, err
	}

	var opts []retriever.RankerOption
	if cfg.Retrieve.MMRLambda > 0 {
		opts = append(opts, retriever.WithMMR(cfg.Retrieve.MMRLambda, cfg.Retrieve.DedupJaccard))
	}
	ranker, err := retriever.NewRanker(retriever.Weights{
		Semantic: cfg.Retrieve.SemanticWeight,
		Lexical:  cfg.Retrieve.LexicalWeight,
	}, opts...)
	if err != nil {
		return nil, nil, err
	}

	retrieveUC, err := usecase.NewRetrieveUseCase(holder, lexical, ranker, embedder, usecase.RetrieveOptions{
		TopK:               cfg.Retrieve.TopK,
		RelevanceThreshold: cfg.Retrieve.RelevanceThreshold,
		MaxContextLength:   cfg.Retrieve.MaxContextLength,
		EmbedTimeout:       cfg.Retrieve.EmbedTimeout,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Cache.Size <= 0 {
		return retrieveUC, nil, nil
	}
	rc := cache.NewResultCache(cfg.Cache.Size, cfg.Cache.TTL)
	holder.OnSwap(func(*domain.Corpus) { rc.Invalidate() })
	return cache.NewCachedRetriever(retrieveUC, rc), rc, nil
}

// openCorpusStore opens an existing corpus database, refusing one built
// with an incompatible configuration.
func openCorpusStore(cfg *config.Config, dir string) (*store.BoltStore, error) {
	dbPath := config.CorpusDBPath(dir)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("no corpus found. Run 'roteiro index' first")
	}

	st, err := store.NewBoltStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}

	rebuild, reason, err := st.NeedsRebuild(cfg)
	if err != nil {
		st.Close()
		return nil, err
	}
	if rebuild {
		st.Close()
		return nil, fmt.Errorf("corpus is out of date (%s). Run 'roteiro index' again", reason)
	}
	return st, nil
}

// loadCorpus opens the persisted corpus, or builds one in memory when
// ephemeral is set.
func loadCorpus(ctx context.Context, cfg *config.Config, dir string, tokenizer *analyzer.Tokenizer, embedder port.Embedder, ephemeral bool) (*domain.Corpus, port.CorpusStore, error) {
	if ephemeral {
		st := memstore.NewMemoryStore()
		indexer, err := newIndexer(cfg, st, tokenizer, embedder)
		if err != nil {
			return nil, nil, err
		}
		result, err := indexer.Index(ctx, knowledgeBaseRoot(cfg, dir), nil)
		if err != nil {
			return nil, nil, err
		}
		return result.Corpus, st, nil
	}

	st, err := openCorpusStore(cfg, dir)
	if err != nil {
		return nil, nil, err
	}
	corpus, err := st.LoadCorpus()
	if errors.Is(err, domain.ErrNotFound) {
		st.Close()
		return nil, nil, fmt.Errorf("corpus is empty. Run 'roteiro index' first")
	}
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return corpus, st, nil
}

// bindRetrieveFlags registers per-invocation overrides of retrieve settings.
func bindRetrieveFlags(flags *pflag.FlagSet) {
	flags.IntP("top-k", "k", 0, "number of chunks to rank (default from config)")
	flags.Float64("threshold", 0, "relevance threshold for ranked scores (default from config)")
	flags.Int("max-context", 0, "maximum context length in characters (default from config)")
	flags.Bool("no-cache", false, "bypass the result cache")
}

// applyRetrieveFlags copies flags the user actually set onto cfg.
func applyRetrieveFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	if flags.Changed("top-k") {
		v, _ := flags.GetInt("top-k")
		cfg.Retrieve.TopK = v
	}
	if flags.Changed("threshold") {
		v, _ := flags.GetFloat64("threshold")
		cfg.Retrieve.RelevanceThreshold = v
	}
	if flags.Changed("max-context") {
		v, _ := flags.GetInt("max-context")
		cfg.Retrieve.MaxContextLength = v
	}
	if noCache, _ := flags.GetBool("no-cache"); noCache {
		cfg.Cache.Size = 0
	}
	return cfg.Validate()
}
