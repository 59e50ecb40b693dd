// Package app assembles the record store, session cache, locks and services
// from configuration. The server and the admin CLI share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/luminosmc/luminos-community/internal/access"
	"github.com/luminosmc/luminos-community/internal/auth"
	"github.com/luminosmc/luminos-community/internal/backup"
	"github.com/luminosmc/luminos-community/internal/cache"
	memcache "github.com/luminosmc/luminos-community/internal/cache/memory"
	rediscache "github.com/luminosmc/luminos-community/internal/cache/redis"
	"github.com/luminosmc/luminos-community/internal/config"
	"github.com/luminosmc/luminos-community/internal/events"
	"github.com/luminosmc/luminos-community/internal/lock"
	"github.com/luminosmc/luminos-community/internal/pkg/crypto"
	"github.com/luminosmc/luminos-community/internal/repository"
	"github.com/luminosmc/luminos-community/internal/service"
	"github.com/luminosmc/luminos-community/internal/store"
	redisstore "github.com/luminosmc/luminos-community/internal/store/redis"
)

// Options customizes New.
type Options struct {
	// Publisher receives change events. Nil discards them.
	Publisher events.Publisher

	// LoginObserver and DenialObserver are optional instrumentation hooks.
	LoginObserver  service.LoginObserver
	DenialObserver access.DenialObserver

	// AutoMigrate applies pending schema migrations when the store opens.
	AutoMigrate bool
}

// App holds every long-lived component.
type App struct {
	Config       *config.Config
	Store        store.RecordStore
	Redis        *goredis.Client
	Repositories *repository.Repositories
	Sessions     cache.Cache
	Locker       lock.Locker
	Checker      *access.Checker

	Roles    *service.RoleService
	Posts    *service.PostService
	Products *service.ProductService
	Staff    *service.StaffService
	Users    *service.UserService
	Stats    *service.StatsService
	Session  *service.SessionService
	Seeder   *service.Seeder

	closers []func() error
	logger  zerolog.Logger
}

// New connects to the configured backends and builds the services.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*App, error) {
	a := &App{
		Config: cfg,
		logger: logger.With().Str("component", "app").Logger(),
	}

	if err := a.connect(ctx, opts); err != nil {
		_ = a.Close()
		return nil, err
	}

	tokens, err := auth.NewTokenIssuer(cfg.Session.Secret, cfg.Session.Issuer)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	pub := opts.Publisher
	if pub == nil {
		pub = events.NopPublisher{}
	}

	a.Repositories = repository.NewRepositories(a.Store)
	a.Checker = access.NewChecker(a.Repositories.Roles, logger)
	if opts.DenialObserver != nil {
		a.Checker.WithObserver(opts.DenialObserver)
	}
	hasher := crypto.NewPasswordHasher(0)

	a.Roles = service.NewRoleService(a.Repositories, a.Checker, pub, logger)
	a.Posts = service.NewPostService(a.Repositories, a.Checker, pub, logger)
	a.Products = service.NewProductService(a.Repositories, a.Checker, pub, logger)
	a.Staff = service.NewStaffService(a.Repositories, a.Roles, a.Checker, hasher, pub, logger)
	a.Users = service.NewUserService(a.Repositories, a.Checker, hasher, pub, logger)
	a.Stats = service.NewStatsService(a.Checker, a.Posts, a.Users, a.Staff, a.Products, a.Roles, logger)
	a.Session = service.NewSessionService(service.SessionServiceConfig{
		Repositories: a.Repositories,
		Sessions:     a.Sessions,
		Tokens:       tokens,
		Checker:      a.Checker,
		Hasher:       hasher,
		TTL:          cfg.Session.TTL,
		Observer:     opts.LoginObserver,
	}, logger)
	a.Seeder = service.NewSeeder(a.Repositories, a.Staff, a.Locker, cfg.Bootstrap, logger)

	return a, nil
}

// connect opens Redis when needed, then the record store, the session cache and the locker.
func (a *App) connect(ctx context.Context, opts Options) error {
	cfg := a.Config

	if cfg.UsesRedis() {
		client, err := redisstore.NewClient(ctx, cfg.Redis, a.logger)
		if err != nil {
			return err
		}
		a.Redis = client
		a.closers = append(a.closers, client.Close)
	}

	factoryOpts := []repository.FactoryOption{}
	if a.Redis != nil {
		factoryOpts = append(factoryOpts, repository.WithRedis(a.Redis, cfg.Redis.KeyPrefix))
	}
	if opts.AutoMigrate {
		factoryOpts = append(factoryOpts, repository.WithAutoMigrate())
	}

	s, err := repository.NewFactory(cfg.Store, a.logger, factoryOpts...).Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	a.Store = s
	a.closers = append(a.closers, s.Close)

	if cfg.Redis.Enabled && a.Redis != nil {
		a.Sessions = rediscache.NewCache(a.Redis, cfg.Redis.KeyPrefix)
		a.Locker = lock.NewRedisLocker(a.Redis, cfg.Redis.KeyPrefix)
		a.logger.Info().Msg("sessions and locks backed by Redis")
		return nil
	}

	mc := memcache.NewCache(time.Minute)
	a.Sessions = mc
	a.Locker = lock.NewMemoryLocker()
	a.closers = append(a.closers, func() error { mc.Stop(); return nil })
	return nil
}

// Backup builds the snapshot service for the configured destination.
func (a *App) Backup(ctx context.Context) (*backup.Service, error) {
	var dest backup.Destination
	switch a.Config.Backup.Destination {
	case "s3":
		client, err := backup.NewS3Client(ctx, a.Config.Backup.S3)
		if err != nil {
			return nil, err
		}
		dest = backup.NewS3Destination(client, a.Config.Backup.S3.Bucket, a.Config.Backup.S3.Prefix)
	default:
		fd, err := backup.NewFileDestination(a.Config.Backup.Dir)
		if err != nil {
			return nil, err
		}
		dest = fd
	}
	return backup.NewService(a.Store, dest, a.Locker, a.logger), nil
}

// Health checks the store and, when used, Redis.
func (a *App) Health(ctx context.Context) error {
	if err := a.Store.Ping(ctx); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if a.Redis != nil {
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
