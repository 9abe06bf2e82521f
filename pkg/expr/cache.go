package expr

import (
	"sync"
	"sync/atomic"
)

// Cache memoizes compiled expressions by source text. Failed compiles are
// never stored, so a fixed expression is re-parsed on its next use.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]*Expression
	order      []string
	maxEntries int

	hits   atomic.Int64
	misses atomic.Int64
}

// CacheStats is a point-in-time view of cache usage
type CacheStats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// NewCache creates a cache. maxEntries <= 0 means unbounded; otherwise the
// oldest entry is evicted first.
func NewCache(maxEntries int) *Cache {
	return &Cache{
		entries:    make(map[string]*Expression),
		maxEntries: maxEntries,
	}
}

// Compile returns the cached expression for text, parsing it on a miss
func (c *Cache) Compile(text string) (*Expression, error) {
	e, _, err := c.Lookup(text)
	return e, err
}

// Lookup is Compile that also reports whether the result came from the cache
func (c *Cache) Lookup(text string) (*Expression, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[text]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return e, true, nil
	}

	c.misses.Add(1)
	e, err := Parse(text)
	if err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[text]; ok {
		return existing, false, nil
	}
	if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[text] = e
	c.order = append(c.order, text)
	return e, false, nil
}

// Len returns the number of cached expressions
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns hit, miss and size counters
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.Len(),
	}
}

// Reset drops all entries and zeroes the counters
func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = make(map[string]*Expression)
	c.order = nil
	c.mu.Unlock()
	c.hits.Store(0)
	c.misses.Store(0)
}

var defaultCache = NewCache(0)

// DefaultCache returns the process-wide cache used by Compile
func DefaultCache() *Cache {
	return defaultCache
}

// Compile compiles text through the process-wide cache
func Compile(text string) (*Expression, error) {
	return defaultCache.Compile(text)
}
