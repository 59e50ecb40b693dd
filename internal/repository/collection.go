package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/luminosmc/luminos-community/internal/store"
)

// Collection is a typed view over one record store collection.
type Collection[T any] struct {
	store store.RecordStore
	name  string
}

// NewCollection binds a collection name to a store.
func NewCollection[T any](s store.RecordStore, name string) *Collection[T] {
	return &Collection[T]{store: s, name: name}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string {
	return c.name
}

// Get decodes the document stored under id. Returns ErrNotFound if absent.
func (c *Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	raw, err := c.store.Get(ctx, c.name, id)
	if err != nil {
		return nil, err
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %v", ErrCorruptRecord, c.name, id, err)
	}
	return &v, nil
}

// Put encodes v and stores it under id.
func (c *Collection[T]) Put(ctx context.Context, id string, v *T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", c.name, id, err)
	}
	return c.store.Put(ctx, c.name, id, raw)
}

// Delete removes the document stored under id.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	return c.store.Delete(ctx, c.name, id)
}

// List decodes every document of the collection, ordered by id.
func (c *Collection[T]) List(ctx context.Context) ([]*T, error) {
	records, err := c.store.List(ctx, c.name)
	if err != nil {
		return nil, err
	}

	out := make([]*T, 0, len(records))
	for _, r := range records {
		var v T
		if err := json.Unmarshal(r.Value, &v); err != nil {
			return nil, fmt.Errorf("%w: %s/%s: %v", ErrCorruptRecord, c.name, r.ID, err)
		}
		out = append(out, &v)
	}
	return out, nil
}

// Count returns the number of documents in the collection.
func (c *Collection[T]) Count(ctx context.Context) (int, error) {
	return c.store.Count(ctx, c.name)
}
