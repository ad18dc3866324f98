// Package cache holds recently fetched page bodies so repeat static
// fetches of the same URL skip the network.
package cache

import (
	"sync"
	"time"
)

// entry holds a cached body with its creation timestamp.
type entry struct {
	body      []byte
	createdAt time.Time
}

// Cache is a simple in-memory cache for fetched page bodies, keyed by URL.
// It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
}

// defaultMaxEntries caps a Cache built with a non-positive size.
const defaultMaxEntries = 1000

// New creates a new Cache with the given maximum number of entries;
// a non-positive maxEntries falls back to defaultMaxEntries.
// A background goroutine runs every 5 minutes to evict entries older
// than 1 hour.
func New(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
	}

	go c.cleanupLoop()
	return c
}

// Get retrieves a cached body if it exists and is younger than maxAge.
// If maxAge <= 0, no cache lookup is performed. Returns the body and
// whether it was a cache hit.
func (c *Cache) Get(url string, maxAge time.Duration) ([]byte, bool) {
	if maxAge <= 0 {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.store[url]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Since(e.createdAt) > maxAge {
		return nil, false
	}
	return e.body, true
}

// Set stores a body in the cache. If the cache is at capacity,
// a random entry is evicted to make room.
func (c *Cache) Set(url string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Evict one random entry if at capacity (map iteration is random in Go).
	if len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}

	c.store[url] = &entry{
		body:      body,
		createdAt: time.Now(),
	}
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// cleanupLoop evicts entries older than 1 hour every 5 minutes.
func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-1 * time.Hour)
		c.mu.Lock()
		for k, e := range c.store {
			if e.createdAt.Before(cutoff) {
				delete(c.store, k)
			}
		}
		c.mu.Unlock()
	}
}
