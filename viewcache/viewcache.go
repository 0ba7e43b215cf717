// Package viewcache bounds the number of instantiated per-path view
// objects. Views are stateless between calls, so eviction under the LRU
// policy is always safe — nothing is flushed or finalized when an entry
// drops out.
package viewcache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity matches the default LRU view cache bound.
const DefaultCapacity = 40_000

// Cache is a thread-safe, fixed-capacity, least-recently-used cache keyed
// by the router's matched path prefix.
type Cache[V any] struct {
	inner *lru.Cache[string, V]
}

// New creates a Cache bounded at capacity entries. A non-positive capacity
// falls back to DefaultCapacity.
func New[V any](capacity int) *Cache[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	inner, err := lru.New[string, V](capacity)
	if err != nil {
		// only possible error is a non-positive size, which we've
		// already normalized above.
		panic(err)
	}
	return &Cache[V]{inner: inner}
}

// Get returns the cached view for key, if any.
func (c *Cache[V]) Get(key string) (V, bool) {
	return c.inner.Get(key)
}

// Add inserts or updates the cached view for key, evicting the
// least-recently-used entry if the cache is at capacity.
func (c *Cache[V]) Add(key string, view V) {
	c.inner.Add(key, view)
}

// Len returns the number of views currently cached.
func (c *Cache[V]) Len() int {
	return c.inner.Len()
}

// Purge evicts every cached view, used at unmount.
func (c *Cache[V]) Purge() {
	c.inner.Purge()
}
