package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker keeps leases in process memory. It serializes work inside a
// single server process only; instances sharing a store need RedisLocker.
// Expired leases are reclaimed when the key is next touched.
type MemoryLocker struct {
	mu     sync.Mutex
	leases map[string]time.Time
	now    func() time.Time
}

// NewMemoryLocker creates an empty locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		leases: make(map[string]time.Time),
		now:    time.Now,
	}
}

// live reports whether key holds an unexpired lease, dropping a stale one.
// The caller holds m.mu.
func (m *MemoryLocker) live(key string) bool {
	until, ok := m.leases[key]
	if !ok {
		return false
	}
	if !m.now().Before(until) {
		delete(m.leases, key)
		return false
	}
	return true
}

// Acquire takes the lease on key for ttl unless it is already held.
func (m *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.live(key) {
		return false, nil
	}
	m.leases[key] = m.now().Add(ttl)
	return true, nil
}

// AcquireWithRetry retries Acquire until it succeeds or the retries run out.
func (m *MemoryLocker) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error) {
	return acquireWithRetry(ctx, m, key, ttl, maxRetries, retryDelay)
}

// Release drops the lease. It reports false when no live lease existed.
func (m *MemoryLocker) Release(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	held := m.live(key)
	delete(m.leases, key)
	return held, nil
}

// Extend pushes the expiry of a live lease to now+ttl.
func (m *MemoryLocker) Extend(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.live(key) {
		return false, nil
	}
	m.leases[key] = m.now().Add(ttl)
	return true, nil
}

// IsHeld reports whether key holds a live lease.
func (m *MemoryLocker) IsHeld(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live(key), nil
}

var _ Locker = (*MemoryLocker)(nil)
