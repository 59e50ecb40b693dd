package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/luminosmc/luminos-community/internal/domain"
	"github.com/luminosmc/luminos-community/internal/repository"
)

// findPrincipal scans coll for an exact username match. It returns
// repository.ErrNotFound when nobody has the name.
func findPrincipal(ctx context.Context, coll *repository.Collection[domain.Principal], username string) (*domain.Principal, error) {
	username = strings.TrimSpace(username)
	all, err := coll.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range all {
		if p.Username == username {
			return p, nil
		}
	}
	return nil, repository.ErrNotFound
}

// byCreation orders principals oldest first.
func byCreation(a, b *domain.Principal) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.Username < b.Username
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func publicView(p *domain.Principal) any {
	return p.Public()
}

func matchesUsername(p *domain.Principal, needle string) bool {
	return strings.Contains(strings.ToLower(p.Username), strings.ToLower(needle))
}

func validatePrincipal(p *domain.Principal) error {
	if err := domain.ValidateUsername(p.Username); err != nil {
		return err
	}
	if p.PasswordHash == "" {
		return domain.NewValidationError("password", "password is required")
	}
	return nil
}

// usernameFree returns ErrDuplicateUsername when someone other than exceptID
// already uses username in coll.
func usernameFree(ctx context.Context, coll *repository.Collection[domain.Principal], username, exceptID string) error {
	existing, err := findPrincipal(ctx, coll, username)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	case existing.ID == exceptID:
		return nil
	default:
		return fmt.Errorf("%w: %q", domain.ErrDuplicateUsername, username)
	}
}
