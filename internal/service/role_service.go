package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/luminosmc/luminos-community/internal/access"
	"github.com/luminosmc/luminos-community/internal/domain"
	"github.com/luminosmc/luminos-community/internal/events"
	"github.com/luminosmc/luminos-community/internal/repository"
)

// RoleService manages the role registry.
type RoleService struct {
	repos  *repository.Repositories
	roles  *gatedRepository[domain.Role]
	logger zerolog.Logger
}

// NewRoleService creates a new RoleService.
func NewRoleService(repos *repository.Repositories, checker *access.Checker, pub events.Publisher, logger zerolog.Logger) *RoleService {
	s := &RoleService{
		repos:  repos,
		logger: logger.With().Str("service", "role").Logger(),
	}

	manage := requirePermission(checker, domain.PermManageRoles)
	s.roles = newGatedRepository(gateConfig[domain.Role]{
		entity:     "role",
		collection: repos.Roles,
		policy: gatePolicy[domain.Role]{
			create: manage,
			modify: manage,
			update: notSystemRole,
			delete: allOf(notSystemRole, s.notInUse),
		},
		id:       func(r *domain.Role) string { return r.ID },
		validate: validateRole,
		verify:   s.duplicate,
		less:     roleOrder,
		created:  events.RoleCreated,
		updated:  events.RoleUpdated,
		deleted:  events.RoleDeleted,
	}, pub, s.logger)

	return s
}

// CreateRoleInput contains the data needed to create a role.
type CreateRoleInput struct {
	Name        string
	Color       string
	Permissions []string
}

// Create adds a new, non-system role. Its id is derived from the name.
func (s *RoleService) Create(ctx context.Context, actor *domain.Principal, input CreateRoleInput) (*domain.Role, error) {
	role := domain.NewRole(input.Name, strings.TrimSpace(input.Color), permissionSet(input.Permissions))
	if err := s.roles.create(ctx, actor, role); err != nil {
		return nil, err
	}
	return role, nil
}

// UpdateRoleInput contains the fields to change. Nil fields are left as they are.
type UpdateRoleInput struct {
	Name        *string
	Color       *string
	Permissions []string
}

// Update changes a non-system role. The id never changes, even when the name does.
func (s *RoleService) Update(ctx context.Context, actor *domain.Principal, id string, input UpdateRoleInput) (*domain.Role, error) {
	return s.roles.update(ctx, actor, id, func(r *domain.Role) error {
		if input.Name != nil {
			r.Name = strings.TrimSpace(*input.Name)
		}
		if input.Color != nil {
			r.Color = strings.TrimSpace(*input.Color)
		}
		if input.Permissions != nil {
			r.Permissions = permissionSet(input.Permissions)
		}
		return nil
	})
}

// Delete removes a non-system role that no staff member holds.
func (s *RoleService) Delete(ctx context.Context, actor *domain.Principal, id string) error {
	_, err := s.roles.remove(ctx, actor, id)
	return err
}

// List returns every role. Listing is public.
func (s *RoleService) List(ctx context.Context) ([]*domain.Role, error) {
	return s.roles.list(ctx, nil, "")
}

// Get returns one role.
func (s *RoleService) Get(ctx context.Context, id string) (*domain.Role, error) {
	return s.roles.get(ctx, id)
}

// Count returns the number of roles.
func (s *RoleService) Count(ctx context.Context) (int, error) {
	return s.roles.count(ctx)
}

// Exist returns a validation error naming the first id that is not a role.
func (s *RoleService) Exist(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := s.repos.Roles.Get(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.NewValidationError("roles", "unknown role %q", id)
			}
			return fmt.Errorf("%w: %v", ErrInternalError, err)
		}
	}
	return nil
}

func (s *RoleService) duplicate(ctx context.Context, r *domain.Role) error {
	_, err := s.repos.Roles.Get(ctx, r.ID)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %q", domain.ErrDuplicateRole, r.ID)
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
}

// notInUse rejects deleting a role that a staff member still holds.
func (s *RoleService) notInUse(ctx context.Context, _ *domain.Principal, r *domain.Role) error {
	staff, err := s.repos.Staff.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list staff")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	holders := 0
	for _, p := range staff {
		if p.HasRole(r.ID) {
			holders++
		}
	}
	if holders > 0 {
		return fmt.Errorf("%w: %d staff members hold %q", domain.ErrRoleInUse, holders, r.ID)
	}
	return nil
}

func notSystemRole(_ context.Context, _ *domain.Principal, r *domain.Role) error {
	if r.System {
		return fmt.Errorf("%w: %q", domain.ErrSystemRoleImmutable, r.ID)
	}
	return nil
}

// permissionSet keeps unknown names so validation can report them.
func permissionSet(names []string) domain.PermissionSet {
	set := domain.NewPermissionSet()
	for _, n := range names {
		set.Add(domain.Permission(strings.TrimSpace(n)))
	}
	return set
}

func validateRole(r *domain.Role) error {
	if err := domain.ValidateRoleName(r.Name); err != nil {
		return err
	}
	for p := range r.Permissions {
		if !p.IsKnown() {
			return domain.NewValidationError("permissions", "unknown permission %q", p)
		}
	}
	return nil
}

// roleOrder lists the Owner first, then roles by creation.
func roleOrder(a, b *domain.Role) bool {
	if a.Superuser != b.Superuser {
		return a.Superuser
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
