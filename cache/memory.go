package cache

import (
	"context"
	"sync"
	"time"
)

// entry holds cached URLs with their creation timestamp.
type entry struct {
	urls      []string
	createdAt time.Time
}

// Memory is an in-process cache. It is safe for concurrent use.
type Memory struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration
	now        func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemory creates a Memory cache holding at most maxEntries results for
// ttl each. A background goroutine evicts expired entries every 5 minutes
// until Close.
func NewMemory(maxEntries int, ttl time.Duration) *Memory {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	c := &Memory{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Get returns the cached URLs for key if present and younger than the TTL.
func (c *Memory) Get(_ context.Context, key string) ([]string, bool) {
	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()
	if !ok || c.expired(e) {
		return nil, false
	}
	return append([]string(nil), e.urls...), true
}

// Set stores urls under key. At capacity one arbitrary entry is evicted
// to make room.
func (c *Memory) Set(_ context.Context, key string, urls []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Map iteration order is random, so this evicts a random entry.
	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}
	c.store[key] = &entry{
		urls:      append([]string(nil), urls...),
		createdAt: c.now(),
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (c *Memory) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

func (c *Memory) expired(e *entry) bool {
	return c.ttl > 0 && c.now().Sub(e.createdAt) > c.ttl
}

func (c *Memory) cleanupLoop() {
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

func (c *Memory) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.store {
		if c.expired(e) {
			delete(c.store, k)
		}
	}
}
