// Package store defines the generic record store the community services persist through.
// A record is a JSON document addressed by (collection, id). Backends live in subpackages.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrClosed indicates the store has been closed.
	ErrClosed = errors.New("store closed")
)

// Record is a stored document with its identifier.
type Record struct {
	ID    string
	Value []byte
}

// RecordStore is the persistence contract shared by every backend.
// Implementations must be safe for concurrent use. Values are opaque JSON
// documents; a Put fully replaces the previous value.
type RecordStore interface {
	// Get returns the value stored under id, or ErrNotFound.
	Get(ctx context.Context, collection, id string) ([]byte, error)

	// Put creates or replaces the value stored under id.
	Put(ctx context.Context, collection, id string, value []byte) error

	// Delete removes the record. Returns ErrNotFound if absent.
	Delete(ctx context.Context, collection, id string) error

	// List returns every record of the collection, ordered by id.
	List(ctx context.Context, collection string) ([]Record, error)

	// Count returns the number of records in the collection.
	Count(ctx context.Context, collection string) (int, error)

	// Collections returns the names of the non-empty collections, sorted.
	Collections(ctx context.Context) ([]string, error)

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend's resources.
	Close() error
}

// Migrator is implemented by backends that keep a schema.
type Migrator interface {
	// Migrate applies pending schema migrations.
	Migrate(ctx context.Context) error

	// SchemaVersion returns the highest applied migration version.
	SchemaVersion(ctx context.Context) (int, error)
}
