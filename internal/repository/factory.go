package repository

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/luminosmc/luminos-community/internal/config"
	"github.com/luminosmc/luminos-community/internal/domain"
	"github.com/luminosmc/luminos-community/internal/store"
	"github.com/luminosmc/luminos-community/internal/store/memory"
	"github.com/luminosmc/luminos-community/internal/store/postgres"
	redisstore "github.com/luminosmc/luminos-community/internal/store/redis"
	"github.com/luminosmc/luminos-community/internal/store/sqlite"
)

// Repositories holds all repository instances.
type Repositories struct {
	Users    *Collection[domain.Principal]
	Staff    *Collection[domain.Principal]
	Roles    *Collection[domain.Role]
	Posts    *Collection[domain.Post]
	Products *Collection[domain.Product]
}

// NewRepositories binds every collection to s.
func NewRepositories(s store.RecordStore) *Repositories {
	return &Repositories{
		Users:    NewCollection[domain.Principal](s, CollectionUsers),
		Staff:    NewCollection[domain.Principal](s, CollectionStaff),
		Roles:    NewCollection[domain.Role](s, CollectionRoles),
		Posts:    NewCollection[domain.Post](s, CollectionPosts),
		Products: NewCollection[domain.Product](s, CollectionProducts),
	}
}

// Principals returns the collection holding principals of kind.
func (r *Repositories) Principals(kind domain.PrincipalKind) *Collection[domain.Principal] {
	if kind == domain.KindStaff {
		return r.Staff
	}
	return r.Users
}

// Factory opens the record store selected by configuration.
type Factory struct {
	cfg         config.StoreConfig
	redis       *goredis.Client
	redisPrefix string
	autoMigrate bool
	logger      zerolog.Logger
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithRedis supplies the shared Redis client used by the redis driver.
func WithRedis(client *goredis.Client, prefix string) FactoryOption {
	return func(f *Factory) {
		f.redis = client
		f.redisPrefix = prefix
	}
}

// WithAutoMigrate applies pending schema migrations when the store opens.
func WithAutoMigrate() FactoryOption {
	return func(f *Factory) {
		f.autoMigrate = true
	}
}

// NewFactory creates a new repository factory.
func NewFactory(cfg config.StoreConfig, logger zerolog.Logger, opts ...FactoryOption) *Factory {
	f := &Factory{
		cfg:    cfg,
		logger: logger.With().Str("component", "store").Str("driver", cfg.Driver).Logger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Driver returns the configured store driver.
func (f *Factory) Driver() string {
	return f.cfg.Driver
}

// Open connects to the configured backend.
func (f *Factory) Open(ctx context.Context) (store.RecordStore, error) {
	var (
		s   store.RecordStore
		err error
	)

	switch f.cfg.Driver {
	case config.DriverMemory:
		f.logger.Warn().Msg("using in-memory store, data will not survive a restart")
		s = memory.New()

	case config.DriverSQLite:
		var db *sqlite.DB
		db, err = sqlite.NewDB(ctx, sqlite.ConfigFrom(f.cfg.SQLite), f.logger)
		if err == nil {
			s = sqlite.NewStore(db)
		}

	case config.DriverPostgres:
		var db *postgres.DB
		db, err = postgres.NewDB(ctx, f.cfg.Postgres, f.logger)
		if err == nil {
			s = postgres.NewStore(db)
		}

	case config.DriverRedis:
		if f.redis == nil {
			return nil, fmt.Errorf("redis driver selected but no redis client configured")
		}
		s = redisstore.NewStore(f.redis, f.redisPrefix)

	default:
		return nil, fmt.Errorf("unsupported store driver %q", f.cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if f.autoMigrate {
		if m, ok := s.(store.Migrator); ok {
			if err := m.Migrate(ctx); err != nil {
				_ = s.Close()
				return nil, fmt.Errorf("failed to migrate store: %w", err)
			}
		}
	}

	return s, nil
}
