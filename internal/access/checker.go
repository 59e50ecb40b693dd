// Package access resolves a principal's permissions from its roles.
//
// Roles are looked up on every check; nothing is cached, so a role edit is
// visible to the next request. Role ids that no longer resolve are skipped.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/luminosmc/luminos-community/internal/domain"
	"github.com/luminosmc/luminos-community/internal/repository"
)

// RoleSource looks up roles by id. It returns repository.ErrNotFound for unknown ids.
type RoleSource interface {
	Get(ctx context.Context, id string) (*domain.Role, error)
}

// DenialObserver is notified when a permission check rejects a principal.
type DenialObserver interface {
	PermissionDenied(perm domain.Permission)
}

// Checker answers permission questions for principals.
type Checker struct {
	roles    RoleSource
	observer DenialObserver
	logger   zerolog.Logger
}

// NewChecker creates a checker backed by roles.
func NewChecker(roles RoleSource, logger zerolog.Logger) *Checker {
	return &Checker{
		roles:  roles,
		logger: logger.With().Str("component", "access").Logger(),
	}
}

// WithObserver sets the observer notified on denials.
func (c *Checker) WithObserver(o DenialObserver) *Checker {
	c.observer = o
	return c
}

// HasPermission reports whether any of p's roles grants perm.
// A nil principal holds no permissions.
func (c *Checker) HasPermission(ctx context.Context, p *domain.Principal, perm domain.Permission) (bool, error) {
	if p == nil {
		return false, nil
	}

	for _, id := range p.Roles {
		role, err := c.lookup(ctx, id)
		if err != nil {
			return false, err
		}
		if role != nil && role.Grants(perm) {
			return true, nil
		}
	}
	return false, nil
}

// Require returns ErrNotAuthenticated for a nil principal and
// ErrPermissionDenied when p lacks perm.
func (c *Checker) Require(ctx context.Context, p *domain.Principal, perm domain.Permission) error {
	if p == nil {
		return domain.ErrNotAuthenticated
	}

	ok, err := c.HasPermission(ctx, p, perm)
	if err != nil {
		return err
	}
	if !ok {
		c.logger.Debug().
			Str("principal_id", p.ID).
			Str("permission", string(perm)).
			Msg("permission denied")
		if c.observer != nil {
			c.observer.PermissionDenied(perm)
		}
		return fmt.Errorf("%w: %s required", domain.ErrPermissionDenied, perm)
	}
	return nil
}

// Effective returns the union of permissions over p's roles, sorted.
// A superuser role contributes the whole vocabulary.
func (c *Checker) Effective(ctx context.Context, p *domain.Principal) ([]domain.Permission, error) {
	set := domain.NewPermissionSet()
	if p == nil {
		return set.Slice(), nil
	}

	for _, id := range p.Roles {
		role, err := c.lookup(ctx, id)
		if err != nil {
			return nil, err
		}
		if role == nil {
			continue
		}
		if role.Superuser {
			return domain.NewPermissionSet(domain.AllPermissions()...).Slice(), nil
		}
		set.Union(role.Permissions)
	}
	return set.Slice(), nil
}

// lookup returns nil without error for unknown role ids.
func (c *Checker) lookup(ctx context.Context, id string) (*domain.Role, error) {
	role, err := c.roles.Get(ctx, id)
	if err == nil {
		return role, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		c.logger.Debug().Str("role_id", id).Msg("skipping unknown role")
		return nil, nil
	}
	return nil, fmt.Errorf("failed to resolve role %q: %w", id, err)
}
