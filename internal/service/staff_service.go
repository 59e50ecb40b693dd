package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/luminosmc/luminos-community/internal/access"
	"github.com/luminosmc/luminos-community/internal/domain"
	"github.com/luminosmc/luminos-community/internal/events"
	"github.com/luminosmc/luminos-community/internal/pkg/crypto"
	"github.com/luminosmc/luminos-community/internal/repository"
)

// StaffService manages staff accounts.
type StaffService struct {
	repos  *repository.Repositories
	roles  *RoleService
	staff  *gatedRepository[domain.Principal]
	manage guard
	hasher *crypto.PasswordHasher
	logger zerolog.Logger
}

// NewStaffService creates a new StaffService.
func NewStaffService(repos *repository.Repositories, roles *RoleService, checker *access.Checker, hasher *crypto.PasswordHasher, pub events.Publisher, logger zerolog.Logger) *StaffService {
	s := &StaffService{
		repos:  repos,
		roles:  roles,
		manage: requirePermission(checker, domain.PermManageStaff),
		hasher: hasher,
		logger: logger.With().Str("service", "staff").Logger(),
	}

	s.staff = newGatedRepository(gateConfig[domain.Principal]{
		entity:     "staff member",
		collection: repos.Staff,
		policy: gatePolicy[domain.Principal]{
			// create is authorized by Create before the password is hashed.
			list:   s.manage,
			modify: s.manage,
			delete: notRootOwner,
		},
		id:       func(p *domain.Principal) string { return p.ID },
		validate: validatePrincipal,
		verify:   s.verifyNew,
		matches:  matchesUsername,
		less:     byCreation,
		view:     publicView,
		created:  events.StaffCreated,
		updated:  events.StaffUpdated,
		deleted:  events.StaffDeleted,
	}, pub, s.logger)

	return s
}

// CreateStaffInput contains the data needed to create a staff account.
type CreateStaffInput struct {
	Username string
	Password string
	Roles    []string
}

// Create adds a staff account. Requires manage_staff.
func (s *StaffService) Create(ctx context.Context, actor *domain.Principal, input CreateStaffInput) (*domain.Principal, error) {
	if err := s.manage(ctx, actor); err != nil {
		return nil, err
	}
	return s.create(ctx, actor, input, false)
}

// CreateRoot adds the root owner account. Used by the seeder only.
func (s *StaffService) CreateRoot(ctx context.Context, username, password string) (*domain.Principal, error) {
	return s.create(ctx, nil, CreateStaffInput{
		Username: username,
		Password: password,
		Roles:    []string{domain.OwnerRoleID},
	}, true)
}

func (s *StaffService) create(ctx context.Context, actor *domain.Principal, input CreateStaffInput, root bool) (*domain.Principal, error) {
	if err := domain.ValidatePassword(input.Password); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("%w: failed to hash password", ErrInternalError)
	}

	p := domain.NewPrincipal(domain.KindStaff, strings.TrimSpace(input.Username), hash, cleanRoles(input.Roles))
	p.ID = uuid.New().String()
	p.Root = root

	if err := s.staff.create(ctx, actor, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateStaffInput contains the fields to change. An empty Password keeps the
// current one; nil Username and Roles are left as they are.
type UpdateStaffInput struct {
	Username *string
	Password string
	Roles    []string
}

// Update edits a staff account. Requires manage_staff. The root owner keeps
// the Owner role, and only the root owner may set its own password.
func (s *StaffService) Update(ctx context.Context, actor *domain.Principal, id string, input UpdateStaffInput) (*domain.Principal, error) {
	return s.staff.update(ctx, actor, id, func(p *domain.Principal) error {
		if p.Root && input.Password != "" && actor.ID != p.ID {
			return fmt.Errorf("%w: only the root owner can change its password", domain.ErrRootOwnerProtected)
		}

		if input.Username != nil {
			username := strings.TrimSpace(*input.Username)
			if err := domain.ValidateUsername(username); err != nil {
				return err
			}
			if err := usernameFree(ctx, s.repos.Staff, username, p.ID); err != nil {
				return err
			}
			p.Username = username
		}

		if input.Password != "" {
			if err := domain.ValidatePassword(input.Password); err != nil {
				return err
			}
			hash, err := s.hasher.Hash(input.Password)
			if err != nil {
				return fmt.Errorf("%w: failed to hash password", ErrInternalError)
			}
			p.PasswordHash = hash
		}

		if input.Roles != nil {
			roles := cleanRoles(input.Roles)
			if err := s.roles.Exist(ctx, roles); err != nil {
				return err
			}
			if p.Root && !contains(roles, domain.OwnerRoleID) {
				return fmt.Errorf("%w: the owner role cannot be removed", domain.ErrRootOwnerProtected)
			}
			p.Roles = roles
		}

		p.UpdatedAt = time.Now().UTC()
		return nil
	})
}

// Delete removes a staff account. Requires manage_staff. The root owner is protected.
func (s *StaffService) Delete(ctx context.Context, actor *domain.Principal, id string) error {
	_, err := s.staff.remove(ctx, actor, id)
	return err
}

// List returns the staff accounts whose username contains query. Requires manage_staff.
func (s *StaffService) List(ctx context.Context, actor *domain.Principal, query string) ([]*domain.Principal, error) {
	return s.staff.list(ctx, actor, strings.TrimSpace(query))
}

// Get returns one staff account. Requires manage_staff.
func (s *StaffService) Get(ctx context.Context, actor *domain.Principal, id string) (*domain.Principal, error) {
	if err := s.manage(ctx, actor); err != nil {
		return nil, err
	}
	return s.staff.get(ctx, id)
}

// HasRoot reports whether a root owner account exists.
func (s *StaffService) HasRoot(ctx context.Context) (bool, error) {
	all, err := s.staff.all(ctx)
	if err != nil {
		return false, err
	}
	for _, p := range all {
		if p.Root {
			return true, nil
		}
	}
	return false, nil
}

// Count returns the number of staff accounts.
func (s *StaffService) Count(ctx context.Context) (int, error) {
	return s.staff.count(ctx)
}

func (s *StaffService) verifyNew(ctx context.Context, p *domain.Principal) error {
	if err := s.roles.Exist(ctx, p.Roles); err != nil {
		return err
	}
	return usernameFree(ctx, s.repos.Staff, p.Username, p.ID)
}

func notRootOwner(_ context.Context, _ *domain.Principal, p *domain.Principal) error {
	if p.Root {
		return domain.ErrRootOwnerProtected
	}
	return nil
}

// cleanRoles trims role ids and drops blanks and repeats, keeping order.
func cleanRoles(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" && !contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
