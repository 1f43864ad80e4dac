package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// CachedResponse is the fast-cache envelope for a served export: the
// artifact body plus the headers it was first served with, replayed
// verbatim on a hit.
type CachedResponse struct {
	Content string            `json:"content"`
	Headers map[string]string `json:"headers"`
}

// ResponseCache is the fast edge-style cache in front of the blob store.
// A miss is never an error; the caller just rebuilds the response.
type ResponseCache interface {
	Get(ctx context.Context, key string) (*CachedResponse, bool)
	Set(ctx context.Context, key string, resp *CachedResponse)
}

// RedisResponseCache stores envelopes in Redis, shared across instances.
type RedisResponseCache struct {
	redis *RedisService
	ttl   time.Duration // 0 = no expiry
}

// NewRedisResponseCache creates a Redis-backed response cache.
func NewRedisResponseCache(redisService *RedisService, ttl time.Duration) *RedisResponseCache {
	return &RedisResponseCache{redis: redisService, ttl: ttl}
}

func (c *RedisResponseCache) Get(ctx context.Context, key string) (*CachedResponse, bool) {
	raw, err := c.redis.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("⚠️  [EXPORT-CACHE] Redis read failed for %s: %v", key, err)
		}
		return nil, false
	}

	var resp CachedResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		log.Printf("⚠️  [EXPORT-CACHE] Corrupt cache entry for %s: %v", key, err)
		return nil, false
	}
	return &resp, true
}

func (c *RedisResponseCache) Set(ctx context.Context, key string, resp *CachedResponse) {
	payload, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, payload, c.ttl); err != nil {
		// Cache population failure is not a request failure.
		log.Printf("⚠️  [EXPORT-CACHE] Redis write failed for %s: %v", key, err)
	}
}

// MemoryResponseCache is the in-process fallback used when Redis is not
// configured.
type MemoryResponseCache struct {
	cache *cache.Cache
}

// NewMemoryResponseCache creates an in-process response cache.
func NewMemoryResponseCache(ttl time.Duration) *MemoryResponseCache {
	if ttl == 0 {
		ttl = cache.NoExpiration
	}
	return &MemoryResponseCache{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

func (c *MemoryResponseCache) Get(ctx context.Context, key string) (*CachedResponse, bool) {
	value, found := c.cache.Get(key)
	if !found {
		return nil, false
	}
	resp, ok := value.(*CachedResponse)
	if !ok {
		return nil, false
	}
	return resp, true
}

func (c *MemoryResponseCache) Set(ctx context.Context, key string, resp *CachedResponse) {
	c.cache.Set(key, resp, cache.DefaultExpiration)
}
