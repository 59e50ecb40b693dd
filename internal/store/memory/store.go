// Package memory provides an in-process record store.
// This is suitable for development and tests; nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/luminosmc/luminos-community/internal/store"
)

// Store implements store.RecordStore using nested maps.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
	closed      bool
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		collections: make(map[string]map[string][]byte),
	}
}

// Get retrieves a value by collection and id.
func (s *Store) Get(ctx context.Context, collection, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.collections[collection][id]
	if !ok {
		return nil, store.ErrNotFound
	}

	// Return a copy to prevent mutation.
	return cloneBytes(value), nil
}

// Put stores a value, replacing any previous one.
func (s *Store) Put(ctx context.Context, collection, id string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, ok := s.collections[collection]
	if !ok {
		records = make(map[string][]byte)
		s.collections[collection] = records
	}
	records[id] = cloneBytes(value)
	return nil
}

// Delete removes a record.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.collections[collection]
	if _, ok := records[id]; !ok {
		return store.ErrNotFound
	}
	delete(records, id)
	if len(records) == 0 {
		delete(s.collections, collection)
	}
	return nil
}

// List returns all records of a collection ordered by id.
func (s *Store) List(ctx context.Context, collection string) ([]store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.collections[collection]
	out := make([]store.Record, 0, len(records))
	for id, value := range records {
		out = append(out, store.Record{ID: id, Value: cloneBytes(value)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Count returns the number of records in a collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.collections[collection]), nil
}

// Collections returns the sorted names of non-empty collections.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Ping always succeeds while the store is open.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return store.ErrClosed
	}
	return ctx.Err()
}

// Close marks the store closed. Data is kept so tests can inspect it.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Ensure Store implements store.RecordStore.
var _ store.RecordStore = (*Store)(nil)
