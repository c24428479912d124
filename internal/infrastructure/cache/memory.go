package cache

import (
	"context"
	"sync"
	"time"

	"github.com/shopsense/backend/internal/domain"
)

// MemoryCache is a thread-safe in-memory CacheEntry store with TTL support
type MemoryCache struct {
	data  map[string]domain.CacheEntry
	mutex sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// NewMemoryCache creates a new in-memory cache whose entries are valid for ttl
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	cache := &MemoryCache{
		data: make(map[string]domain.CacheEntry),
		ttl:  ttl,
		now:  time.Now,
		stop: make(chan struct{}),
	}

	// Start cleanup goroutine to remove expired entries every 10 minutes
	go cache.cleanupExpired(10 * time.Minute)

	return cache
}

// SetClock replaces the time source used for freshness checks
func (c *MemoryCache) SetClock(now func() time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.now = now
}

// Get retrieves a fresh entry from the cache
func (c *MemoryCache) Get(ctx context.Context, key string) (*domain.CacheEntry, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.data[key]
	if !exists {
		return nil, domain.ErrCacheMiss
	}

	if !entry.IsFresh(c.now(), c.ttl) {
		return nil, domain.ErrCacheMiss
	}

	return copyEntry(entry), nil
}

// Put upserts an entry keyed by its query
func (c *MemoryCache) Put(ctx context.Context, entry *domain.CacheEntry) error {
	if entry == nil || entry.Query == "" {
		return domain.ErrInvalidRequest
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[entry.Query] = *copyEntry(*entry)
	return nil
}

// Size returns the current number of stored entries, fresh or not
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Close stops the cleanup goroutine
func (c *MemoryCache) Close() error {
	c.once.Do(func() { close(c.stop) })
	return nil
}

// cleanupExpired removes expired entries from the cache periodically
func (c *MemoryCache) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *MemoryCache) removeExpired() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	for key, entry := range c.data {
		if !entry.IsFresh(now, c.ttl) {
			delete(c.data, key)
		}
	}
}

// copyEntry detaches the stored results from the caller's buffer
func copyEntry(entry domain.CacheEntry) *domain.CacheEntry {
	results := make([]byte, len(entry.Results))
	copy(results, entry.Results)
	entry.Results = results
	return &entry
}
