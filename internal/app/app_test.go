package app

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memcache "github.com/luminosmc/luminos-community/internal/cache/memory"
	rediscache "github.com/luminosmc/luminos-community/internal/cache/redis"
	"github.com/luminosmc/luminos-community/internal/config"
	"github.com/luminosmc/luminos-community/internal/domain"
	"github.com/luminosmc/luminos-community/internal/service"
)

func testConfig(t *testing.T, driver string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Store: config.StoreConfig{
			Driver: driver,
			SQLite: config.SQLiteConfig{Path: filepath.Join(dir, "luminos.db")},
		},
		Session: config.SessionConfig{
			Secret: "0123456789abcdef0123456789abcdef",
			TTL:    time.Hour,
			Issuer: "luminos-test",
		},
		Bootstrap: config.BootstrapConfig{
			OwnerUsername: "TheOwner",
			OwnerPassword: "ownerpass",
			SampleContent: true,
		},
		Backup: config.BackupConfig{Destination: "file", Dir: filepath.Join(dir, "backups")},
	}
}

func TestApp_MemoryLifecycle(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t, config.DriverMemory), zerolog.Nop(), Options{})
	require.NoError(t, err)
	defer a.Close()

	_, ok := a.Sessions.(*memcache.Cache)
	assert.True(t, ok, "memory session cache without redis")
	require.NoError(t, a.Health(ctx))

	res, err := a.Seeder.Seed(ctx)
	require.NoError(t, err)
	require.NotNil(t, res.Owner)

	out, err := a.Session.Login(ctx, service.LoginInput{Kind: domain.KindStaff, Username: "TheOwner", Password: "ownerpass"})
	require.NoError(t, err)

	stats, err := a.Stats.Stats(ctx, out.Principal)
	require.NoError(t, err)
	assert.Equal(t, len(domain.DefaultProducts()), stats.Products)

	svc, err := a.Backup(ctx)
	require.NoError(t, err)
	name, err := svc.Backup(ctx)
	require.NoError(t, err)
	names, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{name}, names)
}

func TestApp_SQLiteMigrates(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.DriverSQLite)

	a, err := New(ctx, cfg, zerolog.Nop(), Options{AutoMigrate: true})
	require.NoError(t, err)
	_, err = a.Seeder.Seed(ctx)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	// Reopening sees the seeded data.
	a, err = New(ctx, cfg, zerolog.Nop(), Options{AutoMigrate: true})
	require.NoError(t, err)
	defer a.Close()

	has, err := a.Staff.HasRoot(ctx)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestApp_RedisSessions(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	cfg := testConfig(t, config.DriverRedis)
	cfg.Redis = config.RedisConfig{
		Host:      mr.Host(),
		Port:      atoiPort(t, mr.Port()),
		Enabled:   true,
		PoolSize:  2,
		KeyPrefix: "luminos:",
	}

	a, err := New(ctx, cfg, zerolog.Nop(), Options{})
	require.NoError(t, err)
	defer a.Close()

	_, ok := a.Sessions.(*rediscache.Cache)
	assert.True(t, ok, "redis session cache when redis is enabled")
	require.NoError(t, a.Health(ctx))

	_, err = a.Seeder.Seed(ctx)
	require.NoError(t, err)
	_, err = a.Session.Login(ctx, service.LoginInput{Kind: domain.KindStaff, Username: "TheOwner", Password: "ownerpass"})
	require.NoError(t, err)
}

func TestApp_BadSecret(t *testing.T) {
	cfg := testConfig(t, config.DriverMemory)
	cfg.Session.Secret = "short"
	_, err := New(context.Background(), cfg, zerolog.Nop(), Options{})
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	prev := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(prev)

	NewLogger(config.LoggingConfig{Level: "warn", Format: "json"})
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	NewLogger(config.LoggingConfig{Level: "bogus"})
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func atoiPort(t *testing.T, s string) int {
	t.Helper()
	n, err := strconv.Atoi(s)
	require.NoError(t, err)
	return n
}
