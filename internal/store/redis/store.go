package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/luminosmc/luminos-community/internal/store"
)

// Store implements store.RecordStore with one hash per collection and a set
// tracking which collections exist.
type Store struct {
	client *redis.Client
	prefix string
}

// NewStore wraps a client. Keys are namespaced with prefix.
// The client is not closed by Close; the caller owns it.
func NewStore(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) hashKey(collection string) string {
	return s.prefix + "records:" + collection
}

func (s *Store) indexKey() string {
	return s.prefix + "collections"
}

// Get retrieves a value by collection and id.
func (s *Store) Get(ctx context.Context, collection, id string) ([]byte, error) {
	value, err := s.client.HGet(ctx, s.hashKey(collection), id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return value, nil
}

// Put creates or replaces a record.
func (s *Store) Put(ctx context.Context, collection, id string, value []byte) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.hashKey(collection), id, value)
		pipe.SAdd(ctx, s.indexKey(), collection)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to put record: %w", err)
	}
	return nil
}

// Delete removes a record. The collection leaves the index once empty.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	removed, err := s.client.HDel(ctx, s.hashKey(collection), id).Result()
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	if removed == 0 {
		return store.ErrNotFound
	}

	remaining, err := s.client.HLen(ctx, s.hashKey(collection)).Result()
	if err != nil {
		return fmt.Errorf("failed to count records: %w", err)
	}
	if remaining == 0 {
		if err := s.client.SRem(ctx, s.indexKey(), collection).Err(); err != nil {
			return fmt.Errorf("failed to update collection index: %w", err)
		}
	}
	return nil
}

// List returns all records of a collection ordered by id.
func (s *Store) List(ctx context.Context, collection string) ([]store.Record, error) {
	all, err := s.client.HGetAll(ctx, s.hashKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	records := make([]store.Record, 0, len(all))
	for id, value := range all {
		records = append(records, store.Record{ID: id, Value: []byte(value)})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

// Count returns the number of records in a collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	n, err := s.client.HLen(ctx, s.hashKey(collection)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return int(n), nil
}

// Collections returns the sorted names of non-empty collections.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close is a no-op; the shared client is closed by its owner.
func (s *Store) Close() error {
	return nil
}

// Ensure Store implements store.RecordStore.
var _ store.RecordStore = (*Store)(nil)
