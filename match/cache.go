package match

import (
	"sync"

	"github.com/communitywatch/communitywatch/core"
)

// cacheEntry pairs a vector with a fingerprint of the text it was
// computed from.
type cacheEntry struct {
	fingerprint core.ID
	vector      []float32
}

// EmbeddingCache caches embeddings per issue so unchanged text is never
// re-embedded. Entries are invalidated by comparing a content hash of the
// source text; an edited description misses the cache and is recomputed.
// Safe for concurrent use.
type EmbeddingCache struct {
	mu      sync.RWMutex
	entries map[core.ID]cacheEntry
}

// NewEmbeddingCache creates an empty embedding cache.
func NewEmbeddingCache() *EmbeddingCache {
	return &EmbeddingCache{
		entries: make(map[core.ID]cacheEntry),
	}
}

// Get returns the cached vector for an issue if the text it was computed
// from is unchanged.
func (c *EmbeddingCache) Get(id core.ID, text string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	if entry.fingerprint != core.IDFromContent(text) {
		return nil, false
	}
	return entry.vector, true
}

// Put stores a vector for an issue, fingerprinted by the source text.
func (c *EmbeddingCache) Put(id core.ID, text string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[id] = cacheEntry{
		fingerprint: core.IDFromContent(text),
		vector:      vector,
	}
}

// Invalidate removes the cached vector for an issue.
func (c *EmbeddingCache) Invalidate(id core.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, id)
}

// Len returns the number of cached entries.
func (c *EmbeddingCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
