package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopsense/backend/internal/domain"
)

// redisKeyPrefix namespaces search entries in a shared Redis
const redisKeyPrefix = "shopsense:search:"

// RedisCache stores CacheEntry values in Redis. Entries are written with the
// TTL as their expiry and re-checked against CreatedAt on read.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisCache wraps an existing Redis client
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
		now:    time.Now,
	}
}

// OpenRedisCache connects using a redis:// URL and verifies the connection
func OpenRedisCache(ctx context.Context, redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: redis ping failed: %v", domain.ErrCacheUnavailable, err)
	}

	return NewRedisCache(client, ttl), nil
}

// SetClock replaces the time source used for freshness checks
func (c *RedisCache) SetClock(now func() time.Time) {
	c.now = now
}

func redisKey(query string) string {
	return redisKeyPrefix + query
}

// Get retrieves a fresh entry from Redis
func (c *RedisCache) Get(ctx context.Context, key string) (*domain.CacheEntry, error) {
	data, err := c.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("%w: redis get: %v", domain.ErrCacheUnavailable, err)
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("%w: undecodable entry for %q: %v", domain.ErrCacheMiss, key, err)
	}

	if !entry.IsFresh(c.now(), c.ttl) {
		return nil, domain.ErrCacheMiss
	}

	return &entry, nil
}

// Put upserts the entry; SET replaces any previous value atomically
func (c *RedisCache) Put(ctx context.Context, entry *domain.CacheEntry) error {
	if entry == nil || entry.Query == "" {
		return domain.ErrInvalidRequest
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	if err := c.client.Set(ctx, redisKey(entry.Query), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %v", domain.ErrCacheUnavailable, err)
	}
	return nil
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
