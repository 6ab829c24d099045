package usecase

import (
	"slices"
	"sync"
	"sync/atomic"

	"roteiro/internal/domain"
)

// CorpusHolder publishes the current corpus to concurrent readers. A corpus
// is never modified after it is stored; rebuilds replace it with Swap, so a
// query that already loaded the old corpus finishes against it unchanged.
type CorpusHolder struct {
	current    atomic.Pointer[domain.Corpus]
	generation atomic.Uint64

	mu    sync.Mutex
	hooks []func(*domain.Corpus)
}

func NewCorpusHolder(corpus *domain.Corpus) *CorpusHolder {
	h := &CorpusHolder{}
	if corpus != nil {
		h.current.Store(corpus)
	}
	return h
}

// Load returns the current corpus, nil if none has been stored.
func (h *CorpusHolder) Load() *domain.Corpus {
	return h.current.Load()
}

// Swap installs corpus, bumps the generation and runs the OnSwap hooks.
// It returns the corpus it replaced.
func (h *CorpusHolder) Swap(corpus *domain.Corpus) *domain.Corpus {
	old := h.current.Swap(corpus)
	h.generation.Add(1)

	h.mu.Lock()
	hooks := slices.Clone(h.hooks)
	h.mu.Unlock()

	for _, fn := range hooks {
		fn(corpus)
	}
	return old
}

// Generation counts the swaps performed so far.
func (h *CorpusHolder) Generation() uint64 {
	return h.generation.Load()
}

// OnSwap registers fn to run after every Swap, e.g. to drop cached results.
func (h *CorpusHolder) OnSwap(fn func(*domain.Corpus)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, fn)
}
