// Package cache keeps detected selector sets per domain so repeat visits
// skip inference.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/anna-farino/RiskAi-sub010/models"
)

// entry holds a cached selector set with its creation timestamp.
type entry struct {
	set       models.SelectorSet
	createdAt time.Time
}

// Cache is an in-memory SelectorSet cache keyed by domain. It is safe for
// concurrent use and satisfies structure.SelectorCache.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration
	now        func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a Cache holding at most maxEntries sets for ttl each.
// A background goroutine evicts expired entries until Close.
func New(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
		stop:       make(chan struct{}),
	}

	go c.cleanupLoop()
	return c
}

func key(domain string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "www.")
}

// Get returns the selector set stored for domain if it has not expired.
func (c *Cache) Get(_ context.Context, domain string) (*models.SelectorSet, bool) {
	c.mu.RLock()
	e, ok := c.store[key(domain)]
	c.mu.RUnlock()

	if !ok || c.now().Sub(e.createdAt) > c.ttl {
		return nil, false
	}
	set := e.set
	return &set, true
}

// Set stores set for domain. At capacity the oldest entry is evicted.
func (c *Cache) Set(_ context.Context, domain string, set models.SelectorSet) {
	k := key(domain)
	if k == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[k]; !exists && len(c.store) >= c.maxEntries {
		var oldest string
		var oldestAt time.Time
		for dk, e := range c.store {
			if oldest == "" || e.createdAt.Before(oldestAt) {
				oldest, oldestAt = dk, e.createdAt
			}
		}
		delete(c.store, oldest)
	}

	c.store[k] = &entry{set: set, createdAt: c.now()}
}

// Delete forgets domain, e.g. after its selectors stopped matching.
func (c *Cache) Delete(_ context.Context, domain string) {
	c.mu.Lock()
	delete(c.store, key(domain))
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Close stops the cleanup goroutine.
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache) evictExpired() {
	cutoff := c.now().Add(-c.ttl)
	c.mu.Lock()
	for k, e := range c.store {
		if e.createdAt.Before(cutoff) {
			delete(c.store, k)
		}
	}
	c.mu.Unlock()
}

// cleanupLoop evicts expired entries every 5 minutes.
func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}
