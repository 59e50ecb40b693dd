package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/luminosmc/luminos-community/internal/config"
	"github.com/luminosmc/luminos-community/internal/domain"
	"github.com/luminosmc/luminos-community/internal/lock"
	"github.com/luminosmc/luminos-community/internal/pkg/crypto"
	"github.com/luminosmc/luminos-community/internal/repository"
)

// Seed lock timing. The lock TTL bounds how long a crashed seeder blocks others.
const (
	seedLockTTL        = time.Minute
	seedLockRetries    = 20
	seedLockRetryDelay = 500 * time.Millisecond
)

// Seeder bootstraps an empty store: default roles, the root owner and,
// optionally, sample products and posts. Running it again is harmless.
type Seeder struct {
	repos  *repository.Repositories
	staff  *StaffService
	locker lock.Locker
	cfg    config.BootstrapConfig
	logger zerolog.Logger
}

// NewSeeder creates a new Seeder. A nil locker runs without coordination.
func NewSeeder(repos *repository.Repositories, staff *StaffService, locker lock.Locker, cfg config.BootstrapConfig, logger zerolog.Logger) *Seeder {
	if locker == nil {
		locker = lock.NewNoOpLocker()
	}
	return &Seeder{
		repos:  repos,
		staff:  staff,
		locker: locker,
		cfg:    cfg,
		logger: logger.With().Str("service", "seed").Logger(),
	}
}

// SeedResult reports what a seeding run wrote.
type SeedResult struct {
	Roles    int
	Products int
	Posts    int

	// Owner is the root owner created by this run, or nil.
	Owner *domain.Principal

	// GeneratedPassword is set when the owner password was generated.
	GeneratedPassword string
}

// Seed fills whatever is missing. It holds the seed lock so concurrent
// instances do not seed twice.
func (s *Seeder) Seed(ctx context.Context) (*SeedResult, error) {
	res := &SeedResult{}
	err := lock.WithLock(ctx, s.locker, lock.Keys.Seed(), seedLockTTL, seedLockRetries, seedLockRetryDelay, func(ctx context.Context) error {
		if err := s.seedRoles(ctx, res); err != nil {
			return err
		}
		if err := s.seedOwner(ctx, res); err != nil {
			return err
		}
		if !s.cfg.SampleContent {
			return nil
		}
		if err := s.seedProducts(ctx, res); err != nil {
			return err
		}
		return s.seedPosts(ctx, res)
	})
	if err != nil {
		return nil, fmt.Errorf("seeding failed: %w", err)
	}

	s.logger.Info().
		Int("roles", res.Roles).
		Int("products", res.Products).
		Int("posts", res.Posts).
		Bool("owner_created", res.Owner != nil).
		Msg("seeding complete")
	return res, nil
}

func (s *Seeder) seedRoles(ctx context.Context, res *SeedResult) error {
	n, err := s.repos.Roles.Count(ctx)
	if err != nil || n > 0 {
		return err
	}
	for _, r := range domain.DefaultRoles() {
		if err := s.repos.Roles.Put(ctx, r.ID, r); err != nil {
			return fmt.Errorf("failed to seed role %q: %w", r.ID, err)
		}
		res.Roles++
	}
	return nil
}

func (s *Seeder) seedOwner(ctx context.Context, res *SeedResult) error {
	exists, err := s.staff.HasRoot(ctx)
	if err != nil || exists {
		return err
	}

	password := s.cfg.OwnerPassword
	if password == "" {
		password, err = crypto.GeneratePassword()
		if err != nil {
			return fmt.Errorf("failed to generate owner password: %w", err)
		}
		res.GeneratedPassword = password
	}

	owner, err := s.staff.CreateRoot(ctx, s.cfg.OwnerUsername, password)
	if err != nil {
		return fmt.Errorf("failed to create root owner %q: %w", s.cfg.OwnerUsername, err)
	}
	res.Owner = owner

	s.logger.Info().Str("username", owner.Username).Str("id", owner.ID).Msg("root owner created")
	return nil
}

func (s *Seeder) seedProducts(ctx context.Context, res *SeedResult) error {
	n, err := s.repos.Products.Count(ctx)
	if err != nil || n > 0 {
		return err
	}
	for _, p := range domain.DefaultProducts() {
		p.ID = uuid.New().String()
		if err := s.repos.Products.Put(ctx, p.ID, p); err != nil {
			return fmt.Errorf("failed to seed product %q: %w", p.Name, err)
		}
		res.Products++
	}
	return nil
}

func (s *Seeder) seedPosts(ctx context.Context, res *SeedResult) error {
	n, err := s.repos.Posts.Count(ctx)
	if err != nil || n > 0 {
		return err
	}
	for _, p := range domain.DefaultPosts() {
		p.ID = uuid.New().String()
		if err := s.repos.Posts.Put(ctx, p.ID, p); err != nil {
			return fmt.Errorf("failed to seed post %q: %w", p.Title, err)
		}
		res.Posts++
	}
	return nil
}
