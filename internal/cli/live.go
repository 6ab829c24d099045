package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roteiro/config"
	"roteiro/internal/adapter/analyzer"
	"roteiro/internal/adapter/fs"
	"roteiro/internal/adapter/store"
	"roteiro/internal/domain"
	"roteiro/internal/port"
	"roteiro/internal/usecase"
)

// liveCorpus keeps a CorpusHolder in step with the knowledge base on disk.
type liveCorpus struct {
	cfg     *config.Config
	root    string
	holder  *usecase.CorpusHolder
	store   *store.BoltStore
	indexer *usecase.IndexUseCase
}

// openLiveCorpus loads the stored corpus, indexing first when there is none,
// when it was built with a different configuration, or when forced.
func openLiveCorpus(ctx context.Context, cfg *config.Config, dir string, tokenizer *analyzer.Tokenizer, embedder port.Embedder, forceIndex bool) (*liveCorpus, error) {
	if err := config.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create .roteiro directory: %w", err)
	}
	st, err := store.NewBoltStore(config.CorpusDBPath(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus store: %w", err)
	}

	indexer, err := newIndexer(cfg, st, tokenizer, embedder)
	if err != nil {
		st.Close()
		return nil, err
	}

	l := &liveCorpus{
		cfg:     cfg,
		root:    knowledgeBaseRoot(cfg, dir),
		holder:  usecase.NewCorpusHolder(nil),
		store:   st,
		indexer: indexer,
	}

	rebuild, reason, err := st.NeedsRebuild(cfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	var corpus *domain.Corpus
	if !rebuild && !forceIndex {
		corpus, err = st.LoadCorpus()
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			st.Close()
			return nil, err
		}
	}

	if corpus != nil {
		l.holder.Swap(corpus)
		return l, nil
	}

	if rebuild {
		logger.Info().Str("reason", reason).Msg("rebuilding corpus")
		if err := st.Clear(); err != nil {
			st.Close()
			return nil, err
		}
	}
	if err := l.reindex(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return l, nil
}

// reindex rebuilds the corpus and publishes it. Queries already running keep
// the corpus they started with.
func (l *liveCorpus) reindex(ctx context.Context) error {
	start := time.Now()
	result, err := l.indexer.Index(ctx, l.root, nil)
	if err != nil {
		return err
	}
	if err := l.store.Migrate(l.cfg); err != nil {
		return fmt.Errorf("failed to update schema info: %w", err)
	}

	l.holder.Swap(result.Corpus)
	logger.Info().
		Str("version", result.Version).
		Int("chunks", result.ChunksCreated).
		Dur("took", time.Since(start)).
		Msg("corpus published")
	for _, e := range result.Errors {
		logger.Warn().Msg(e)
	}
	return nil
}

// watch re-indexes on every settled change until ctx is done. A failed
// rebuild is logged and the previous corpus stays in service.
func (l *liveCorpus) watch(ctx context.Context) error {
	walker := fs.NewWalker(l.cfg.KnowledgeBase.Includes, l.cfg.KnowledgeBase.Excludes)
	watcher := fs.NewWatcher(walker, 0, logger)

	logger.Info().Str("root", l.root).Msg("watching knowledge base")
	return watcher.Watch(ctx, l.root, func() {
		if err := l.reindex(ctx); err != nil {
			logger.Error().Err(err).Msg("rebuild failed, keeping previous corpus")
		}
	})
}

func (l *liveCorpus) Close() error {
	return l.store.Close()
}
