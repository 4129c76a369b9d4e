package engine

import (
	"sync"
	"time"
)

// DomainMemory remembers domains that needed browser automation so later
// targets on the same host skip the lightweight fetch. Entries expire after
// the configured TTL and are cleaned up periodically.
type DomainMemory struct {
	store sync.Map // domain (string) -> expiry (time.Time)
	ttl   time.Duration
	done  chan struct{}
	once  sync.Once
}

// NewDomainMemory creates a DomainMemory with the given TTL and starts
// a background goroutine that prunes expired entries every hour.
func NewDomainMemory(ttl time.Duration) *DomainMemory {
	dm := &DomainMemory{
		ttl:  ttl,
		done: make(chan struct{}),
	}
	go dm.cleanupLoop()
	return dm
}

// Protected reports whether the domain was recently escalated.
func (dm *DomainMemory) Protected(domain string) bool {
	val, ok := dm.store.Load(domain)
	if !ok {
		return false
	}
	if time.Now().After(val.(time.Time)) {
		dm.store.Delete(domain)
		return false
	}
	return true
}

// Remember records that the domain required automation.
func (dm *DomainMemory) Remember(domain string) {
	dm.store.Store(domain, time.Now().Add(dm.ttl))
}

// Stop terminates the background cleanup goroutine.
func (dm *DomainMemory) Stop() {
	dm.once.Do(func() { close(dm.done) })
}

func (dm *DomainMemory) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-dm.done:
			return
		case <-ticker.C:
			now := time.Now()
			dm.store.Range(func(key, value any) bool {
				if now.After(value.(time.Time)) {
					dm.store.Delete(key)
				}
				return true
			})
		}
	}
}
