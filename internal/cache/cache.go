// Package cache provides a bounded TTL cache.
//
// Entries expire after a fixed TTL and the cache holds at most a fixed
// number of entries, evicting the oldest when full. A hit refreshes
// the entry's TTL.
package cache

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// DefaultCapacity bounds the number of cached entries.
const DefaultCapacity = 64

// DefaultTTL is how long an entry stays valid without being read.
const DefaultTTL = 30 * time.Minute

// Cache is a bounded TTL cache keyed by string.
type Cache[V any] struct {
	inner *ttlcache.Cache[string, V]
}

// New creates a cache with the given bounds and starts its expiration
// loop. Callers must Stop it when done.
func New[V any](capacity uint64, ttl time.Duration) *Cache[V] {
	inner := ttlcache.New(
		ttlcache.WithTTL[string, V](ttl),
		ttlcache.WithCapacity[string, V](capacity),
	)
	go inner.Start()

	return &Cache[V]{inner: inner}
}

// Get returns the cached value and whether it was present. A hit
// refreshes the entry's TTL.
func (c *Cache[V]) Get(key string) (V, bool) {
	item := c.inner.Get(key)
	if item == nil {
		var zero V
		return zero, false
	}
	return item.Value(), true
}

// Put stores a value under key with the cache's default TTL.
func (c *Cache[V]) Put(key string, value V) {
	c.inner.Set(key, value, ttlcache.DefaultTTL)
}

// Delete removes an entry.
func (c *Cache[V]) Delete(key string) {
	c.inner.Delete(key)
}

// Len returns the number of live entries.
func (c *Cache[V]) Len() int {
	return c.inner.Len()
}

// Stop halts the expiration loop.
func (c *Cache[V]) Stop() {
	c.inner.Stop()
}
