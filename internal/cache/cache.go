// Package cache provides a small TTL cache used to absorb repeated
// SharePoint requests within a short window, keeping the client under
// the service's throttling thresholds.
package cache

import (
	"sync"
	"time"
)

// Cache is an in-memory cache whose entries expire after a fixed TTL.
// Expired entries are overwritten in place on the next Set; there is no
// background eviction.
type Cache struct {
	entries map[string]entry
	ttl     time.Duration
	mu      sync.RWMutex
}

type entry struct {
	value  any
	stored time.Time
}

// New creates a cache with the specified TTL.
func New(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
	}
}

// Get retrieves a value, reporting false for missing or expired keys.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, exists := c.entries[key]
	if !exists || time.Since(e.stored) > c.ttl {
		return nil, false
	}
	return e.value, true
}

// Set stores a value, resetting its expiry.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{value: value, stored: time.Now()}
}

// Invalidate removes a key immediately.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}
