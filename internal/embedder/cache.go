package embedder

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// DefaultCacheSize is the number of vectors retained by NewCache(0)
	DefaultCacheSize = 1000

	// CacheKeyLength is the number of leading characters of a text used as its key
	CacheKeyLength = 200
)

// Cache memoizes embeddings for repeated text fragments. Entries are evicted
// oldest-inserted first: lookups never refresh an entry and re-inserting an
// existing key keeps its original position. Safe for concurrent use.
type Cache struct {
	cache *lru.Cache[string, []float32]
}

// NewCache creates a cache holding at most maxLen vectors
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = DefaultCacheSize
	}
	cache, err := lru.New[string, []float32](maxLen)
	if err != nil {
		cache, _ = lru.New[string, []float32](DefaultCacheSize)
	}
	return &Cache{cache: cache}
}

// CacheKey returns the key under which text is cached
func CacheKey(text string) string {
	n := 0
	for i := range text {
		if n == CacheKeyLength {
			return text[:i]
		}
		n++
	}
	return text
}

// Get returns a copy of the vector cached for text
func (c *Cache) Get(text string) ([]float32, bool) {
	// Peek does not touch recency, which keeps eviction in insertion order
	vec, ok := c.cache.Peek(CacheKey(text))
	if !ok {
		return nil, false
	}
	return copyVector(vec), true
}

// Set stores vec for text unless the key is already present
func (c *Cache) Set(text string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	c.cache.ContainsOrAdd(CacheKey(text), copyVector(vec))
}

// Len returns the current number of cached vectors
func (c *Cache) Len() int {
	return c.cache.Len()
}

// Clear empties the cache
func (c *Cache) Clear() {
	c.cache.Purge()
}
