// Package storetest holds the behaviour every store.RecordStore backend must pass.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminosmc/luminos-community/internal/store"
)

// Run exercises s against the record store contract. s must start empty.
func Run(t *testing.T, s store.RecordStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("GetMissing", func(t *testing.T) {
		_, err := s.Get(ctx, "posts", "missing")
		assert.True(t, errors.Is(err, store.ErrNotFound), "expected ErrNotFound, got %v", err)
	})

	t.Run("PutGet", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "posts", "p1", []byte(`{"title":"hello"}`)))

		got, err := s.Get(ctx, "posts", "p1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"title":"hello"}`, string(got))
	})

	t.Run("PutReplaces", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "posts", "p1", []byte(`{"title":"updated"}`)))

		got, err := s.Get(ctx, "posts", "p1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"title":"updated"}`, string(got))
	})

	t.Run("CollectionsAreIsolated", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "products", "p1", []byte(`{"name":"VIP"}`)))

		post, err := s.Get(ctx, "posts", "p1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"title":"updated"}`, string(post))

		product, err := s.Get(ctx, "products", "p1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"VIP"}`, string(product))
	})

	t.Run("ListOrderedByID", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "posts", "p3", []byte(`{"n":3}`)))
		require.NoError(t, s.Put(ctx, "posts", "p2", []byte(`{"n":2}`)))

		records, err := s.List(ctx, "posts")
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "p1", records[0].ID)
		assert.Equal(t, "p2", records[1].ID)
		assert.Equal(t, "p3", records[2].ID)
		assert.JSONEq(t, `{"n":2}`, string(records[1].Value))
	})

	t.Run("ListEmptyCollection", func(t *testing.T) {
		records, err := s.List(ctx, "nothing")
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("Count", func(t *testing.T) {
		n, err := s.Count(ctx, "posts")
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		n, err = s.Count(ctx, "nothing")
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("Collections", func(t *testing.T) {
		names, err := s.Collections(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"posts", "products"}, names)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, "posts", "p2"))

		_, err := s.Get(ctx, "posts", "p2")
		assert.True(t, errors.Is(err, store.ErrNotFound))

		err = s.Delete(ctx, "posts", "p2")
		assert.True(t, errors.Is(err, store.ErrNotFound))

		n, err := s.Count(ctx, "posts")
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("ConcurrentPuts", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id := fmt.Sprintf("c%02d", i)
				assert.NoError(t, s.Put(ctx, "concurrent", id, []byte(fmt.Sprintf(`{"i":%d}`, i))))
			}(i)
		}
		wg.Wait()

		n, err := s.Count(ctx, "concurrent")
		require.NoError(t, err)
		assert.Equal(t, 20, n)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, s.Ping(ctx))
	})
}
