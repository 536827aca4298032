package linker

import "sync"

type cacheKey struct {
	name    string
	version uint64
}

type cached struct {
	index      int
	confidence float64
	kind       Kind
}

// Cache memoizes link outcomes keyed by (feature name, snapshot version).
// It is safe to share between linkers built over different snapshots.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey]cached
	order   []cacheKey
	maxSize int
	hits    uint64
	misses  uint64
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithMaxEntries bounds the cache. Non-positive sizes mean unbounded.
func WithMaxEntries(n int) CacheOption {
	return func(c *Cache) {
		c.maxSize = n
	}
}

// NewCache creates an empty cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		entries: make(map[cacheKey]cached),
		maxSize: 4096,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) get(k cacheKey) (cached, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[k]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return v, ok
}

func (c *Cache) put(k cacheKey, v cached) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[k]; ok {
		c.entries[k] = v
		return
	}
	if c.maxSize > 0 && len(c.order) >= c.maxSize {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[k] = v
	c.order = append(c.order, k)
}

// Retain drops every entry whose snapshot version is not listed.
func (c *Cache) Retain(versions ...uint64) {
	keep := make(map[uint64]struct{}, len(versions))
	for _, v := range versions {
		keep[v] = struct{}{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	order := c.order[:0]
	for _, k := range c.order {
		if _, ok := keep[k.version]; ok {
			order = append(order, k)
			continue
		}
		delete(c.entries, k)
	}
	c.order = order
}

// Purge empties the cache.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]cached)
	c.order = nil
}

// Len returns the number of cached outcomes.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns hit and miss counters.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
