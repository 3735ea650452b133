// Package cache implements the process-wide TTL cache used by
// metadata, mint-authority, liveness, price, and rug-report lookups.
//
// Grounded on internal/api/ratelimit.go's mutex-guarded map plus a
// ticker-driven janitor goroutine (cleanupLoop there, sweep here).
package cache

import (
	"sync"
	"time"
)

const sweepInterval = 60 * time.Second

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is a concurrent key -> (value, expiry) store. Presence is
// determined by key existence, not value truthiness: set(k, false) and
// set(k, 0) are both retrievable as distinct-from-miss.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
	stop    chan struct{}
}

// New creates a cache with the given default TTL and starts its
// background sweeper. Call Close to stop the sweeper (test reset hook).
func New(ttl time.Duration) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// Get returns the cached value for key and true if present and not yet
// expired. An exact match of now == expiresAt still counts as present;
// strictly past that instant counts as a miss and evicts the entry.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores value under key, overwriting any existing entry and
// resetting its expiry to now + the cache's configured TTL.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// SetWithTTL stores value under key with an explicit TTL override.
func (c *Cache) SetWithTTL(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Delete evicts key unconditionally.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len reports the current entry count, including not-yet-swept expired
// entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the background sweeper. Safe to call once.
func (c *Cache) Close() {
	close(c.stop)
}

func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache) sweep() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}
