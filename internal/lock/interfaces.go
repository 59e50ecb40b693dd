// Package lock serializes one-off jobs such as first-run seeding and snapshot
// restores. A single server uses in-process leases; instances sharing one
// store coordinate through Redis.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrNotAcquired indicates the lock is held by someone else.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker hands out expiring leases on string keys.
type Locker interface {
	// Acquire attempts to acquire a lock.
	// Returns true if the lock was acquired, false if it's held by another process.
	// The lock will automatically expire after the specified TTL.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// AcquireWithRetry attempts to acquire a lock with retries.
	// Will retry up to maxRetries times with retryDelay between attempts.
	AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error)

	// Release releases a lock.
	// Returns true if the lock was released, false if it wasn't held.
	Release(ctx context.Context, key string) (bool, error)

	// Extend extends the TTL of a held lock.
	// Returns true if the lock was extended, false if it's not held.
	Extend(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsHeld checks if the lock is currently held.
	IsHeld(ctx context.Context, key string) (bool, error)
}

// WithLock runs fn while holding key. Returns ErrNotAcquired without running fn
// when the lock is busy after the retries.
func WithLock(ctx context.Context, locker Locker, key string, ttl time.Duration, retries int, retryDelay time.Duration, fn func(ctx context.Context) error) error {
	acquired, err := locker.AcquireWithRetry(ctx, key, ttl, retries, retryDelay)
	if err != nil {
		return err
	}
	if !acquired {
		return ErrNotAcquired
	}
	defer func() {
		// Release with a fresh context so cancellation of ctx doesn't leak the lock.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _ = locker.Release(releaseCtx, key)
	}()

	return fn(ctx)
}

// =============================================================================
// Common Lock Keys
// =============================================================================

// Keys provides lock key generation for common scenarios.
var Keys = lockKeys{}

type lockKeys struct{}

// Seed returns the lock key guarding first-run bootstrap.
func (lockKeys) Seed() string {
	return "lock:seed"
}

// Restore returns the lock key guarding snapshot imports.
func (lockKeys) Restore() string {
	return "lock:backup:restore"
}

// acquireWithRetry is the retry loop shared by the lockers.
func acquireWithRetry(ctx context.Context, l Locker, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error) {
	for i := 0; i <= maxRetries; i++ {
		acquired, err := l.Acquire(ctx, key, ttl)
		if err != nil {
			return false, err
		}
		if acquired {
			return true, nil
		}

		// Don't sleep on the last attempt.
		if i < maxRetries {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	return false, nil
}
