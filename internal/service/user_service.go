package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/luminosmc/luminos-community/internal/access"
	"github.com/luminosmc/luminos-community/internal/domain"
	"github.com/luminosmc/luminos-community/internal/events"
	"github.com/luminosmc/luminos-community/internal/pkg/crypto"
	"github.com/luminosmc/luminos-community/internal/repository"
)

// UserService manages forum accounts.
type UserService struct {
	users  *gatedRepository[domain.Principal]
	hasher *crypto.PasswordHasher
	logger zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(repos *repository.Repositories, checker *access.Checker, hasher *crypto.PasswordHasher, pub events.Publisher, logger zerolog.Logger) *UserService {
	s := &UserService{
		hasher: hasher,
		logger: logger.With().Str("service", "user").Logger(),
	}

	manage := requirePermission(checker, domain.PermManageUsers)
	s.users = newGatedRepository(gateConfig[domain.Principal]{
		entity:     "user",
		collection: repos.Users,
		policy: gatePolicy[domain.Principal]{
			list:   manage,
			modify: manage,
		},
		id:       func(p *domain.Principal) string { return p.ID },
		validate: validatePrincipal,
		verify: func(ctx context.Context, p *domain.Principal) error {
			return usernameFree(ctx, repos.Users, p.Username, p.ID)
		},
		matches: matchesUsername,
		less:    byCreation,
		view:    publicView,
		created: events.UserRegistered,
		deleted: events.UserDeleted,
	}, pub, s.logger)

	return s
}

// RegisterInput contains the data needed to open a forum account.
type RegisterInput struct {
	Username string
	Password string
}

// Register creates a forum account. Registration is public.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.Principal, error) {
	username := strings.TrimSpace(input.Username)
	if err := domain.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("%w: failed to hash password", ErrInternalError)
	}

	p := domain.NewPrincipal(domain.KindUser, username, hash, nil)
	p.ID = uuid.New().String()
	if err := s.users.create(ctx, nil, p); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns the forum accounts whose username contains query. Requires manage_users.
func (s *UserService) List(ctx context.Context, actor *domain.Principal, query string) ([]*domain.Principal, error) {
	return s.users.list(ctx, actor, strings.TrimSpace(query))
}

// Delete removes a forum account. Requires manage_users. Posts by the user are kept.
func (s *UserService) Delete(ctx context.Context, actor *domain.Principal, id string) error {
	_, err := s.users.remove(ctx, actor, id)
	return err
}

// Count returns the number of forum accounts.
func (s *UserService) Count(ctx context.Context) (int, error) {
	return s.users.count(ctx)
}
