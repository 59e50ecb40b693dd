package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/luminosmc/luminos-community/internal/store"
)

// Store implements store.RecordStore on a jsonb "records" table.
type Store struct {
	*DB
}

// NewStore wraps an open connection pool.
func NewStore(db *DB) *Store {
	return &Store{DB: db}
}

// Get retrieves a value by collection and id.
func (s *Store) Get(ctx context.Context, collection, id string) ([]byte, error) {
	var value []byte
	err := s.Pool.QueryRow(ctx,
		`SELECT value FROM records WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return value, nil
}

// Put creates or replaces a record.
func (s *Store) Put(ctx context.Context, collection, id string, value []byte) error {
	query := `
		INSERT INTO records (collection, id, value, updated_at)
		VALUES ($1, $2, $3::jsonb, now())
		ON CONFLICT (collection, id) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := s.Pool.Exec(ctx, query, collection, id, string(value)); err != nil {
		return fmt.Errorf("failed to put record: %w", err)
	}
	return nil
}

// Delete removes a record.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	tag, err := s.Pool.Exec(ctx,
		`DELETE FROM records WHERE collection = $1 AND id = $2`,
		collection, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// List returns all records of a collection ordered by id.
func (s *Store) List(ctx context.Context, collection string) ([]store.Record, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT id, value FROM records WHERE collection = $1 ORDER BY id`,
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Record, error) {
		var r store.Record
		err := row.Scan(&r.ID, &r.Value)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan records: %w", err)
	}
	return records, nil
}

// Count returns the number of records in a collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM records WHERE collection = $1`,
		collection,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

// Collections returns the sorted names of non-empty collections.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.Pool.Query(ctx, `SELECT DISTINCT collection FROM records ORDER BY collection`)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan collections: %w", err)
	}
	return names, nil
}

var (
	_ store.RecordStore = (*Store)(nil)
	_ store.Migrator    = (*Store)(nil)
)
