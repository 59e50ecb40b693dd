// Package memory keeps cache entries in process memory. Sessions stored here
// are lost on restart and are not shared between server instances.
package memory

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/luminosmc/luminos-community/internal/cache"
)

// Cache implements cache.Cache with a mutex-guarded map. Expired entries are
// dropped lazily on read and by a background sweeper.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// entry is a stored value. A zero deadline never expires.
type entry struct {
	value    []byte
	deadline time.Time
}

func (e entry) expiredAt(t time.Time) bool {
	return !e.deadline.IsZero() && !t.Before(e.deadline)
}

// NewCache creates a cache that sweeps expired entries every sweepEvery.
// A non-positive sweepEvery disables the sweeper.
func NewCache(sweepEvery time.Duration) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	if sweepEvery > 0 {
		go c.sweepLoop(sweepEvery)
	}
	return c
}

func (c *Cache) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Sweep removes every expired entry and returns how many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if e.expiredAt(now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired ones included until swept.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stop terminates the sweeper. It is safe to call more than once.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

// lookup returns the live entry for key, evicting it when expired.
// The caller holds c.mu.
func (c *Cache) lookup(key string) (entry, bool) {
	e, ok := c.entries[key]
	if !ok {
		return entry{}, false
	}
	if e.expiredAt(c.now()) {
		delete(c.entries, key)
		return entry{}, false
	}
	return e, true
}

// Get returns a copy of the value stored under key.
func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup(key)
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return bytes.Clone(e.value), nil
}

// Set stores a copy of value. A non-positive ttl stores it without expiry.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: bytes.Clone(value)}
	if ttl > 0 {
		e.deadline = c.now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

// Delete removes key. Missing keys are not an error.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Exists reports whether key holds a live entry.
func (c *Cache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.lookup(key)
	return ok, nil
}

// TTL returns the remaining lifetime of key: -1 when absent, -2 without expiry.
func (c *Cache) TTL(_ context.Context, key string) (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup(key)
	switch {
	case !ok:
		return -1, nil
	case e.deadline.IsZero():
		return -2, nil
	default:
		return e.deadline.Sub(c.now()), nil
	}
}

var _ cache.Cache = (*Cache)(nil)
