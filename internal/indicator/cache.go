package indicator

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"AgriPolicy/internal/config"
)

// Cache stores fetched series under a TTL. An expired entry is never
// served.
type Cache interface {
	Get(ctx context.Context, key string) (*Series, bool)
	Set(ctx context.Context, key string, series *Series, ttl time.Duration)
}

// MemoryCache is the in-process cache backend.
type MemoryCache struct {
	mutex   sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	series    *Series
	expiresAt time.Time
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

// Get returns the cached series if present and not expired.
func (c *MemoryCache) Get(ctx context.Context, key string) (*Series, bool) {
	c.mutex.RLock()
	entry, ok := c.entries[key]
	c.mutex.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		c.mutex.Lock()
		// Re-check under the write lock: a concurrent Set may have
		// refreshed the entry.
		if cur, ok := c.entries[key]; ok && time.Now().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mutex.Unlock()
		return nil, false
	}
	return entry.series, true
}

// Set stores the series under the key with a fresh expiry.
func (c *MemoryCache) Set(ctx context.Context, key string, series *Series, ttl time.Duration) {
	c.mutex.Lock()
	c.entries[key] = memoryEntry{series: series, expiresAt: time.Now().Add(ttl)}
	c.mutex.Unlock()
}

// RedisCache is the shared cache backend for multi-replica deployments.
// Expiry is delegated to Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(cfg config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &RedisCache{client: client}, nil
}

// Get returns the cached series if Redis still holds the key.
func (c *RedisCache) Get(ctx context.Context, key string) (*Series, bool) {
	raw, err := c.client.Get(ctx, "indicator:"+key).Bytes()
	if err != nil {
		return nil, false
	}
	var s Series
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false
	}
	return &s, true
}

// Set stores the series; a marshalling or network failure only costs a
// future cache miss.
func (c *RedisCache) Set(ctx context.Context, key string, series *Series, ttl time.Duration) {
	raw, err := json.Marshal(series)
	if err != nil {
		return
	}
	c.client.Set(ctx, "indicator:"+key, raw, ttl)
}

// compile-time checks to ensure both backends implement the Cache interface
var (
	_ Cache = (*MemoryCache)(nil)
	_ Cache = (*RedisCache)(nil)
)
