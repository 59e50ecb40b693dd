package lock

import (
	"context"
	"time"
)

// NoOpLocker grants every lease immediately and never reports one as held.
// Backup and seeding fall back to it when the caller supplies no locker.
type NoOpLocker struct{}

// NewNoOpLocker returns a NoOpLocker.
func NewNoOpLocker() NoOpLocker {
	return NoOpLocker{}
}

func (NoOpLocker) Acquire(ctx context.Context, _ string, _ time.Duration) (bool, error) {
	return ctx.Err() == nil, ctx.Err()
}

func (n NoOpLocker) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, _ int, _ time.Duration) (bool, error) {
	return n.Acquire(ctx, key, ttl)
}

func (NoOpLocker) Release(ctx context.Context, _ string) (bool, error) {
	return ctx.Err() == nil, ctx.Err()
}

func (NoOpLocker) Extend(ctx context.Context, _ string, _ time.Duration) (bool, error) {
	return ctx.Err() == nil, ctx.Err()
}

func (NoOpLocker) IsHeld(ctx context.Context, _ string) (bool, error) {
	return false, ctx.Err()
}

var _ Locker = NoOpLocker{}
