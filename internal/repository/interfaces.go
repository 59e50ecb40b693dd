// Package repository provides typed data access over the generic record store.
// Every entity kind lives in its own collection as a JSON document; the
// repositories here hide the encoding so services work with domain structs.
package repository

import (
	"errors"

	"github.com/luminosmc/luminos-community/internal/store"
)

// ErrNotFound indicates the requested entity was not found.
var ErrNotFound = store.ErrNotFound

// ErrCorruptRecord indicates a stored document could not be decoded.
var ErrCorruptRecord = errors.New("corrupt record")

// Collection names.
const (
	CollectionUsers    = "users"
	CollectionStaff    = "staff"
	CollectionRoles    = "roles"
	CollectionPosts    = "posts"
	CollectionProducts = "products"
)

// Collections returns every collection name the site stores.
func Collections() []string {
	return []string{CollectionUsers, CollectionStaff, CollectionRoles, CollectionPosts, CollectionProducts}
}

// =============================================================================
// Common Types
// =============================================================================

// ListOptions contains common pagination options.
type ListOptions struct {
	// Offset is the number of records to skip.
	Offset int

	// Limit is the maximum number of records to return. Zero means no limit.
	Limit int
}

// ListResult is a generic paginated list result.
type ListResult[T any] struct {
	// Items is the list of items.
	Items []*T `json:"items"`

	// Total is the total number of matching items (without pagination).
	Total int `json:"total"`

	// Offset is the current offset.
	Offset int `json:"offset"`

	// Limit is the current limit.
	Limit int `json:"limit"`
}

// Paginate slices items according to opts. Negative values are treated as zero.
func Paginate[T any](items []*T, opts ListOptions) *ListResult[T] {
	offset, limit := opts.Offset, opts.Limit
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	total := len(items)
	start := offset
	if start > total {
		start = total
	}
	end := total
	if limit > 0 && start+limit < total {
		end = start + limit
	}

	page := make([]*T, 0, end-start)
	page = append(page, items[start:end]...)

	return &ListResult[T]{
		Items:  page,
		Total:  total,
		Offset: offset,
		Limit:  limit,
	}
}
