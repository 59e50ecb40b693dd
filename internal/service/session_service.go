package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/luminosmc/luminos-community/internal/access"
	"github.com/luminosmc/luminos-community/internal/auth"
	"github.com/luminosmc/luminos-community/internal/cache"
	"github.com/luminosmc/luminos-community/internal/domain"
	"github.com/luminosmc/luminos-community/internal/pkg/crypto"
	"github.com/luminosmc/luminos-community/internal/repository"
)

// LoginObserver is notified of every login attempt.
type LoginObserver interface {
	LoginAttempt(kind domain.PrincipalKind, success bool)
}

// passwordHasher is satisfied by *crypto.PasswordHasher.
type passwordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// decoyPassword is hashed once so logins for unknown usernames pay the same
// bcrypt cost as a wrong password.
const decoyPassword = "luminos-decoy-password"

// SessionService handles login, logout and session restoration.
type SessionService struct {
	repos    *repository.Repositories
	sessions cache.Cache
	tokens   *auth.TokenIssuer
	checker  *access.Checker
	hasher   passwordHasher
	ttl      time.Duration
	observer LoginObserver
	logger   zerolog.Logger

	decoyOnce sync.Once
	decoyHash string
}

// SessionServiceConfig contains the collaborators of a SessionService.
type SessionServiceConfig struct {
	Repositories *repository.Repositories
	Sessions     cache.Cache
	Tokens       *auth.TokenIssuer
	Checker      *access.Checker
	Hasher       *crypto.PasswordHasher

	// TTL is the session lifetime. Zero means domain.DefaultSessionTTL.
	TTL time.Duration

	// Observer is optional.
	Observer LoginObserver
}

// NewSessionService creates a new SessionService.
func NewSessionService(cfg SessionServiceConfig, logger zerolog.Logger) *SessionService {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = domain.DefaultSessionTTL
	}
	s := &SessionService{
		repos:    cfg.Repositories,
		sessions: cfg.Sessions,
		tokens:   cfg.Tokens,
		checker:  cfg.Checker,
		hasher:   cfg.Hasher,
		ttl:      ttl,
		observer: cfg.Observer,
		logger:   logger.With().Str("service", "session").Logger(),
	}
	if cfg.Hasher != nil {
		s.decoy()
	}
	return s
}

// decoy returns a bcrypt hash at the hasher's cost that no login matches.
func (s *SessionService) decoy() string {
	s.decoyOnce.Do(func() {
		hash, err := s.hasher.Hash(decoyPassword)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to prepare decoy password hash")
			return
		}
		s.decoyHash = hash
	})
	return s.decoyHash
}

// LoginInput contains the credentials of a login attempt.
type LoginInput struct {
	Kind     domain.PrincipalKind
	Username string
	Password string
}

// LoginOutput contains the result of a successful login.
type LoginOutput struct {
	Token     string
	Session   *domain.Session
	Principal *domain.Principal
}

// Login verifies credentials against the collection of the requested kind
// and opens a session. Unknown usernames and wrong passwords both yield
// domain.ErrInvalidCredentials after a bcrypt comparison.
func (s *SessionService) Login(ctx context.Context, input LoginInput) (*LoginOutput, error) {
	if !input.Kind.Valid() {
		return nil, domain.NewValidationError("kind", "unknown principal kind %q", input.Kind)
	}

	principal, err := findPrincipal(ctx, s.repos.Principals(input.Kind), input.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = s.hasher.Compare(s.decoy(), input.Password)
			s.logger.Debug().Str("username", input.Username).Str("kind", string(input.Kind)).Msg("unknown username during login")
			s.observe(input.Kind, false)
			return nil, domain.ErrInvalidCredentials
		}
		s.logger.Error().Err(err).Str("username", input.Username).Msg("failed to look up principal")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if err := s.hasher.Compare(principal.PasswordHash, input.Password); err != nil {
		s.logger.Debug().Str("username", input.Username).Msg("invalid password during login")
		s.observe(input.Kind, false)
		return nil, domain.ErrInvalidCredentials
	}

	session := domain.NewSession(uuid.New().String(), principal, s.ttl)
	raw, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if err := s.sessions.Set(ctx, cache.Keys.Session(session.ID), raw, s.ttl); err != nil {
		s.logger.Error().Err(err).Str("principal_id", principal.ID).Msg("failed to store session")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	token, err := s.tokens.Issue(session.ID, principal.ID, principal.Kind, session.ExpiresAt)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to issue session token")
		_ = s.sessions.Delete(ctx, cache.Keys.Session(session.ID))
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.observe(input.Kind, true)
	s.logger.Info().
		Str("principal_id", principal.ID).
		Str("username", principal.Username).
		Str("kind", string(principal.Kind)).
		Msg("login succeeded")

	return &LoginOutput{Token: token, Session: session, Principal: principal}, nil
}

// Restore resolves a token to its principal. The principal is re-read from
// the store so role and password changes apply to open sessions.
func (s *SessionService) Restore(ctx context.Context, token string) (*domain.Principal, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNotAuthenticated, err)
	}

	session, err := s.loadSession(ctx, claims.SessionID())
	if err != nil {
		return nil, err
	}
	if session.PrincipalID != claims.PrincipalID() || session.Kind != claims.Kind {
		s.logger.Warn().Str("session_id", session.ID).Msg("token does not match session record")
		return nil, domain.ErrNotAuthenticated
	}
	if session.Expired(time.Now()) {
		return nil, domain.ErrSessionExpired
	}

	principal, err := s.repos.Principals(session.Kind).Get(ctx, session.PrincipalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: principal no longer exists", domain.ErrNotAuthenticated)
		}
		s.logger.Error().Err(err).Str("principal_id", session.PrincipalID).Msg("failed to load session principal")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return principal, nil
}

// Logout revokes the session of token. Logging out an expired or already
// revoked session succeeds.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		if errors.Is(err, domain.ErrSessionExpired) {
			return nil
		}
		return fmt.Errorf("%w: %v", domain.ErrNotAuthenticated, err)
	}

	if err := s.sessions.Delete(ctx, cache.Keys.Session(claims.SessionID())); err != nil {
		s.logger.Error().Err(err).Str("session_id", claims.SessionID()).Msg("failed to revoke session")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Str("principal_id", claims.PrincipalID()).Msg("logout")
	return nil
}

// ChangePasswordInput contains the data needed to change a password.
type ChangePasswordInput struct {
	OldPassword string
	NewPassword string
}

// ChangePassword replaces the actor's password after verifying the old one.
func (s *SessionService) ChangePassword(ctx context.Context, actor *domain.Principal, input ChangePasswordInput) error {
	if actor == nil {
		return domain.ErrNotAuthenticated
	}

	coll := s.repos.Principals(actor.Kind)
	current, err := coll.Get(ctx, actor.ID)
	if err != nil {
		return notFound(err, "principal", actor.ID)
	}

	if err := s.hasher.Compare(current.PasswordHash, input.OldPassword); err != nil {
		return fmt.Errorf("%w: current password is wrong", domain.ErrInvalidCredentials)
	}
	if err := domain.ValidatePassword(input.NewPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(input.NewPassword)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return fmt.Errorf("%w: failed to hash password", ErrInternalError)
	}

	current.PasswordHash = hash
	current.UpdatedAt = time.Now().UTC()
	if err := coll.Put(ctx, current.ID, current); err != nil {
		s.logger.Error().Err(err).Str("principal_id", current.ID).Msg("failed to store password")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Str("principal_id", current.ID).Msg("password changed")
	return nil
}

// MeOutput describes the current principal.
type MeOutput struct {
	Principal   *domain.Principal
	Permissions []domain.Permission
}

// Me returns the actor with its effective permissions.
func (s *SessionService) Me(ctx context.Context, actor *domain.Principal) (*MeOutput, error) {
	if actor == nil {
		return nil, domain.ErrNotAuthenticated
	}

	perms, err := s.checker.Effective(ctx, actor)
	if err != nil {
		s.logger.Error().Err(err).Str("principal_id", actor.ID).Msg("failed to resolve permissions")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return &MeOutput{Principal: actor, Permissions: perms}, nil
}

// TTL returns the session lifetime.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

func (s *SessionService) loadSession(ctx context.Context, id string) (*domain.Session, error) {
	raw, err := s.sessions.Get(ctx, cache.Keys.Session(id))
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, fmt.Errorf("%w: session revoked or expired", domain.ErrNotAuthenticated)
		}
		s.logger.Error().Err(err).Str("session_id", id).Msg("failed to load session")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		s.logger.Warn().Err(err).Str("session_id", id).Msg("discarding corrupt session record")
		_ = s.sessions.Delete(ctx, cache.Keys.Session(id))
		return nil, domain.ErrNotAuthenticated
	}
	return &session, nil
}

func (s *SessionService) observe(kind domain.PrincipalKind, success bool) {
	if s.observer != nil {
		s.observer.LoginAttempt(kind, success)
	}
}

// Ensure SessionService can back the auth middleware.
var _ auth.Authenticator = (*SessionService)(nil)
