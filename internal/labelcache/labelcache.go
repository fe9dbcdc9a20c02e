// Package labelcache provides small bounded caches for label/ID resolution.
// Import keeps a label->ID cache so repeated labels skip a round trip to
// storage; decode keeps the reverse mapping. Entries never expire, they are
// only evicted under size pressure.
package labelcache

import (
	"sync"
	"time"

	"log/slog"
)

// Default sizes. Label caches are hit once per triple column during import,
// so they are sized generously; existence probes and decode lookups touch
// far fewer distinct IDs.
const (
	DefaultImportSize = 100_000
	DefaultLookupSize = 10_000
)

type entry[V any] struct {
	value       V
	addedAt     time.Time
	accessCount int
}

// Cache is a mutex-guarded bounded map. When full, the entry with the
// lowest access count (oldest wins ties) is evicted.
type Cache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]*entry[V]
	maxSize int
	hits    int64
	misses  int64
}

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Size    int
	MaxSize int
	Hits    int64
	Misses  int64
	HitRate float64
}

// New returns a cache holding at most maxSize entries. maxSize < 1 panics;
// a cache that can hold nothing is a configuration error, not a mode.
func New[K comparable, V any](maxSize int) *Cache[K, V] {
	if maxSize < 1 {
		panic("labelcache: maxSize must be positive")
	}
	return &Cache[K, V]{
		entries: make(map[K]*entry[V]),
		maxSize: maxSize,
	}
}

// Get returns the cached value for k, if present.
func (c *Cache[K, V]) Get(k K) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[k]
	c.mu.RUnlock()

	if !ok {
		c.mu.Lock()
		c.misses++
		c.mu.Unlock()
		var zero V
		return zero, false
	}

	c.mu.Lock()
	e.accessCount++
	c.hits++
	v := e.value
	c.mu.Unlock()
	return v, true
}

// Put stores v under k, evicting one entry first if the cache is full.
func (c *Cache[K, V]) Put(k K, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[k]; !ok && len(c.entries) >= c.maxSize {
		c.evictLeastUsed()
	}
	c.entries[k] = &entry[V]{
		value:       v,
		addedAt:     time.Now(),
		accessCount: 1,
	}
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot returns current statistics.
func (c *Cache[K, V]) Snapshot() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{
		Size:    len(c.entries),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// evictLeastUsed removes the entry with the lowest access count, breaking
// ties toward the oldest. Caller holds the write lock.
func (c *Cache[K, V]) evictLeastUsed() {
	var (
		victim      K
		found       bool
		lowestCount int
		oldest      time.Time
	)
	for k, e := range c.entries {
		if !found ||
			e.accessCount < lowestCount ||
			(e.accessCount == lowestCount && e.addedAt.Before(oldest)) {
			victim = k
			found = true
			lowestCount = e.accessCount
			oldest = e.addedAt
		}
	}
	if found {
		delete(c.entries, victim)
		slog.Debug("labelcache evicted entry", slog.Int("access_count", lowestCount))
	}
}
