// Package cache provides a small in-process TTL cache. Entries expire
// lazily on read; there is no background sweeper.
package cache

import (
	"slices"
	"sync"
	"time"
)

type entry[T any] struct {
	value  T
	expiry time.Time
}

// Cache is a concurrency-safe map with per-entry expiry. When a clone func
// is set, values are copied on both Set and Get so callers can never mutate
// what is stored.
type Cache[T any] struct {
	mu      sync.RWMutex
	entries map[string]entry[T]
	clone   func(T) T
	now     func() time.Time
}

// New creates an empty cache. clone may be nil for immutable values.
func New[T any](clone func(T) T) *Cache[T] {
	return &Cache[T]{
		entries: make(map[string]entry[T]),
		clone:   clone,
		now:     time.Now,
	}
}

// NewStrings creates a cache of string slices that clones on read and write.
func NewStrings() *Cache[[]string] {
	return New(func(v []string) []string { return slices.Clone(v) })
}

// WithClock replaces the time source. Intended for tests.
func (c *Cache[T]) WithClock(now func() time.Time) *Cache[T] {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
	return c
}

// Get returns the value for key if present and not expired.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	now := c.now()
	c.mu.RUnlock()

	var zero T
	if !ok {
		return zero, false
	}
	if now.After(e.expiry) {
		c.mu.Lock()
		// Another writer may have refreshed the key in between.
		if cur, ok := c.entries[key]; ok && now.After(cur.expiry) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return zero, false
	}
	return c.cloneValue(e.value), true
}

// Set stores value under key for ttl, replacing any previous entry.
func (c *Cache[T]) Set(key string, value T, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = entry[T]{value: c.cloneValue(value), expiry: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Delete removes key.
func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of stored entries, including expired ones not yet
// evicted by a read.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear removes every entry.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry[T])
	c.mu.Unlock()
}

func (c *Cache[T]) cloneValue(value T) T {
	if c.clone == nil {
		return value
	}
	return c.clone(value)
}
