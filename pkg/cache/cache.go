// Package cache provides a generic, thread-safe LRU cache used by the
// import pipeline to hold recently produced import results keyed by
// fingerprint. Statistics are always tracked; hit/miss counts feed the
// pipeline's metrics.
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// Statistics tracks cache effectiveness with atomic counters.
type Statistics struct {
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// Hits returns the number of cache hits.
func (s *Statistics) Hits() int64 { return s.hits.Load() }

// Misses returns the number of cache misses.
func (s *Statistics) Misses() int64 { return s.misses.Load() }

// Evictions returns the number of evicted entries.
func (s *Statistics) Evictions() int64 { return s.evictions.Load() }

// EvictCallback is invoked when an entry is evicted to make room.
type EvictCallback[V any] func(key string, value V)

type lruEntry[V any] struct {
	key   string
	value V
}

// LRU is a thread-safe least-recently-used cache. It evicts the least
// recently used entry when the maximum size is exceeded.
type LRU[V any] struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	order   *list.List
	stats   Statistics
	evictFn EvictCallback[V]
}

// NewLRU creates an LRU cache holding at most maxSize entries.
// A maxSize <= 0 defaults to 128.
func NewLRU[V any](maxSize int) *LRU[V] {
	if maxSize <= 0 {
		maxSize = 128
	}
	return &LRU[V]{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

// OnEvict installs a callback invoked for each evicted entry.
// Must be called before the cache is shared between goroutines.
func (c *LRU[V]) OnEvict(fn EvictCallback[V]) {
	c.evictFn = fn
}

// Get retrieves a value by key and marks it as recently used.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, exists := c.items[key]
	if !exists {
		var zero V
		c.stats.misses.Add(1)
		return zero, false
	}

	c.order.MoveToFront(element)
	c.stats.hits.Add(1)
	return element.Value.(*lruEntry[V]).value, true
}

// Set stores a value, evicting the least recently used entry if the cache
// is full. Returns true if a new entry was created, false if an existing
// entry was updated.
func (c *LRU[V]) Set(key string, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if element, exists := c.items[key]; exists {
		c.order.MoveToFront(element)
		element.Value.(*lruEntry[V]).value = value
		return false
	}

	element := c.order.PushFront(&lruEntry[V]{key: key, value: value})
	c.items[key] = element

	if c.order.Len() > c.maxSize {
		c.evictOldest()
	}
	return true
}

// Delete removes an entry by key. Returns true if the key existed.
func (c *LRU[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, exists := c.items[key]
	if !exists {
		return false
	}
	c.order.Remove(element)
	delete(c.items, key)
	return true
}

// Clear removes all entries without invoking the evict callback.
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
}

// Len returns the current number of entries.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns the cache's statistics counters.
func (c *LRU[V]) Stats() *Statistics {
	return &c.stats
}

// evictOldest removes the least recently used entry. Caller holds c.mu.
func (c *LRU[V]) evictOldest() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	entry := oldest.Value.(*lruEntry[V])
	c.order.Remove(oldest)
	delete(c.items, entry.key)
	c.stats.evictions.Add(1)

	if c.evictFn != nil {
		c.evictFn(entry.key, entry.value)
	}
}
