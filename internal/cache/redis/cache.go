// Package redis provides a Redis-backed cache shared across server instances.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/luminosmc/luminos-community/internal/cache"
)

// Cache implements cache.Cache on Redis strings.
type Cache struct {
	client *redis.Client
	prefix string
}

// NewCache wraps client. Keys are namespaced with prefix.
func NewCache(client *redis.Client, prefix string) *Cache {
	return &Cache{client: client, prefix: prefix}
}

// Get retrieves a value by key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, cache.ErrCacheMiss
		}
		return nil, fmt.Errorf("%w: %v", cache.ErrCacheUnavailable, err)
	}
	return value, nil
}

// Set stores a value with an optional TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", cache.ErrCacheUnavailable, err)
	}
	return nil
}

// Delete removes a value by key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("%w: %v", cache.ErrCacheUnavailable, err)
	}
	return nil
}

// Exists checks if a key exists.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, c.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", cache.ErrCacheUnavailable, err)
	}
	return n > 0, nil
}

// TTL returns the remaining TTL for a key.
// Returns -1 if the key doesn't exist, -2 if no TTL is set.
func (c *Cache) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := c.client.TTL(ctx, c.prefix+key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", cache.ErrCacheUnavailable, err)
	}

	// Redis reports -2 for a missing key and -1 for no expiry; the cache contract is the reverse.
	switch ttl {
	case -2:
		return -1, nil
	case -1:
		return -2, nil
	}
	return ttl, nil
}

// Ensure Cache implements cache.Cache.
var _ cache.Cache = (*Cache)(nil)
