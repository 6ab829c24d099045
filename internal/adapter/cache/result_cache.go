package cache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
	"sync"
	"time"

	"roteiro/internal/domain"
	"roteiro/internal/port"
)

// ResultCache is a bounded LRU of retrieval results with a TTL. Entries are
// tagged with the corpus generation current when they were stored and are
// ignored once Invalidate has moved the generation on.
type ResultCache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List // front = most recently used
	maxSize    int
	ttl        time.Duration
	generation uint64
	now        func() time.Time

	hits   uint64
	misses uint64
}

type cacheEntry struct {
	key        string
	result     domain.RetrievalResult
	storedAt   time.Time
	generation uint64
}

func NewResultCache(maxSize int, ttl time.Duration) *ResultCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ResultCache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

func cacheKey(q domain.Query) string {
	data := strings.TrimSpace(q.Persona) + "\x00" + strings.TrimSpace(q.Text)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16])
}

func (c *ResultCache) Get(q domain.Query) (domain.RetrievalResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(q)
	elem, ok := c.entries[key]
	if !ok {
		c.misses++
		return domain.RetrievalResult{}, false
	}

	entry := elem.Value.(*cacheEntry)
	if entry.generation != c.generation || c.now().Sub(entry.storedAt) > c.ttl {
		c.removeElement(elem)
		c.misses++
		return domain.RetrievalResult{}, false
	}

	c.order.MoveToFront(elem)
	c.hits++
	return cloneResult(entry.result), true
}

// Put stores result under the current generation.
func (c *ResultCache) Put(q domain.Query, result domain.RetrievalResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(q, result)
}

// PutAt stores result only if the cache is still at generation, the value
// Generation returned before the result was computed. It reports whether the
// entry was stored.
func (c *ResultCache) PutAt(q domain.Query, result domain.RetrievalResult, generation uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		return false
	}
	c.put(q, result)
	return true
}

// Generation returns the number of invalidations so far.
func (c *ResultCache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

func (c *ResultCache) put(q domain.Query, result domain.RetrievalResult) {
	key := cacheKey(q)
	entry := &cacheEntry{
		key:        key,
		result:     cloneResult(result),
		storedAt:   c.now(),
		generation: c.generation,
	}

	if elem, ok := c.entries[key]; ok {
		elem.Value = entry
		c.order.MoveToFront(elem)
		return
	}

	for c.order.Len() >= c.maxSize {
		c.removeElement(c.order.Back())
	}
	c.entries[key] = c.order.PushFront(entry)
}

// Invalidate drops every entry. Call it whenever the corpus is replaced.
func (c *ResultCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.generation++
}

func (c *ResultCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats reports hit and miss counts since creation.
func (c *ResultCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// cloneResult detaches the chunk slice so callers and the cache never share it.
func cloneResult(result domain.RetrievalResult) domain.RetrievalResult {
	result.Chunks = slices.Clone(result.Chunks)
	return result
}

func (c *ResultCache) removeElement(elem *list.Element) {
	entry := c.order.Remove(elem).(*cacheEntry)
	delete(c.entries, entry.key)
}

// CachedRetriever memoizes a Retriever. Errors are never cached.
type CachedRetriever struct {
	retriever port.Retriever
	cache     *ResultCache
}

var _ port.Retriever = (*CachedRetriever)(nil)

func NewCachedRetriever(retriever port.Retriever, cache *ResultCache) *CachedRetriever {
	return &CachedRetriever{
		retriever: retriever,
		cache:     cache,
	}
}

func (r *CachedRetriever) Retrieve(ctx context.Context, q domain.Query) (domain.RetrievalResult, error) {
	if result, hit := r.cache.Get(q); hit {
		return result, nil
	}

	generation := r.cache.Generation()
	result, err := r.retriever.Retrieve(ctx, q)
	if err != nil {
		return domain.RetrievalResult{}, err
	}

	// A degraded answer reflects a transient embedding failure; retry it
	// next time instead of pinning it for the TTL. A result computed while
	// the corpus was swapped may come from the old corpus and is dropped.
	if !result.Degraded {
		r.cache.PutAt(q, result, generation)
	}
	return result, nil
}
