// Package service provides the business logic of the Luminos community site:
// sessions, roles, forum posts, store products, staff and forum users.
//
// Every mutating call takes the acting principal explicitly. A nil actor is
// an anonymous caller.
package service

import (
	"errors"
	"fmt"

	"github.com/luminosmc/luminos-community/internal/domain"
	"github.com/luminosmc/luminos-community/internal/repository"
)

// ErrInternalError wraps infrastructure failures that callers cannot correct.
var ErrInternalError = errors.New("internal server error")

// notFound maps a repository miss to domain.ErrNotFound and anything else to ErrInternalError.
func notFound(err error, what, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s %q", domain.ErrNotFound, what, id)
	}
	return fmt.Errorf("%w: %v", ErrInternalError, err)
}
