// Package cache defines the key/value cache used for short-lived state such as login sessions.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss indicates the key was not found in cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable indicates the cache is unavailable.
	ErrCacheUnavailable = errors.New("cache unavailable")
)

// Cache defines the interface for caching operations.
// Implemented in memory for single-node deployments and on Redis for shared ones.
type Cache interface {
	// Get retrieves a value by key.
	// Returns ErrCacheMiss if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with an optional TTL.
	// If ttl is 0, the value doesn't expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value by key.
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists.
	Exists(ctx context.Context, key string) (bool, error)

	// TTL returns the remaining TTL for a key.
	// Returns -1 if the key doesn't exist, -2 if no TTL is set.
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// =============================================================================
// Common Cache Keys
// =============================================================================

// Keys provides cache key generation for common scenarios.
var Keys = cacheKeys{}

type cacheKeys struct{}

// Session returns the cache key of a login session record.
func (cacheKeys) Session(sessionID string) string {
	return "session:" + sessionID
}
