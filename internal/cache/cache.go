package cache

import (
	"sync"
	"time"
)

// Entry wraps a cached value with its absolute expiry.
type Entry[T any] struct {
	Value     T
	ExpiresAt time.Time
}

// Expired reports whether the entry is stale at now.
func (e Entry[T]) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Cache is an in-process TTL cache. Expired entries are evicted lazily on
// the next read; there is no background sweeper and no capacity bound.
type Cache[T any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[T]
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates an empty cache.
func New[T any](opts ...Option) *Cache[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[T]{
		entries: make(map[string]Entry[T]),
		now:     o.now,
	}
}

// Get returns the value for key if present and not expired. An expired
// entry is removed and reported as a miss.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	var zero T
	if !ok {
		return zero, false
	}

	if entry.Expired(c.now()) {
		c.mu.Lock()
		// another writer may have refreshed the key in between
		if cur, ok := c.entries[key]; ok && cur.Expired(c.now()) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return zero, false
	}

	return entry.Value, true
}

// Set stores value under key until now+ttl. Last write wins.
func (c *Cache[T]) Set(key string, value T, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = Entry[T]{Value: value, ExpiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Delete removes key.
func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear drops every entry.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]Entry[T])
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
