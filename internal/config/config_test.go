package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func validConfig() *Config {
	return &Config{
		Server:    ServerConfig{Port: 8080},
		Store:     StoreConfig{Driver: DriverMemory},
		Session:   SessionConfig{Secret: testSecret, TTL: time.Hour},
		Bootstrap: BootstrapConfig{OwnerUsername: "owner"},
		Logging:   LoggingConfig{Level: "info"},
		Backup:    BackupConfig{Destination: "file", Dir: "/tmp/backups"},
	}
}

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("LUMINOS_SESSION_SECRET", testSecret)
	t.Setenv("LUMINOS_STORE_DRIVER", "memory")
	t.Setenv("LUMINOS_SERVER_PORT", "9999")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, 7*24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "session", cfg.Session.CookieName)
	assert.Equal(t, "owner", cfg.Bootstrap.OwnerUsername)
	assert.True(t, cfg.Bootstrap.SampleContent)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  port: 8181
store:
  driver: memory
session:
  secret: "` + testSecret + `"
  ttl: 2h
bootstrap:
  owner_username: root
  sample_content: false
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "root", cfg.Bootstrap.OwnerUsername)
	assert.False(t, cfg.Bootstrap.SampleContent)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "mongo" }, wantErr: true},
		{name: "sqlite without path", mutate: func(c *Config) { c.Store.Driver = DriverSQLite }, wantErr: true},
		{name: "postgres without host", mutate: func(c *Config) { c.Store.Driver = DriverPostgres }, wantErr: true},
		{name: "redis driver", mutate: func(c *Config) { c.Store.Driver = DriverRedis; c.Redis.Host = "localhost" }},
		{name: "short secret", mutate: func(c *Config) { c.Session.Secret = "short" }, wantErr: true},
		{name: "zero ttl", mutate: func(c *Config) { c.Session.TTL = 0 }, wantErr: true},
		{name: "missing owner", mutate: func(c *Config) { c.Bootstrap.OwnerUsername = "" }, wantErr: true},
		{name: "rate limit without window", mutate: func(c *Config) {
			c.RateLimit = RateLimitConfig{Enabled: true, LoginRequests: 5}
		}, wantErr: true},
		{name: "s3 without bucket", mutate: func(c *Config) { c.Backup.Destination = "s3" }, wantErr: true},
		{name: "cors origin", mutate: func(c *Config) { c.Server.CORSOrigins = []string{"http://localhost:3000"} }},
		{name: "cors wildcard", mutate: func(c *Config) { c.Server.CORSOrigins = []string{"*"} }, wantErr: true},
		{name: "cors without scheme", mutate: func(c *Config) { c.Server.CORSOrigins = []string{"localhost:3000"} }, wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUsesRedis(t *testing.T) {
	cfg := validConfig()
	assert.False(t, cfg.UsesRedis())

	cfg.Store.Driver = DriverRedis
	assert.True(t, cfg.UsesRedis())

	cfg.Store.Driver = DriverMemory
	cfg.Redis.Enabled = true
	assert.True(t, cfg.UsesRedis())
}
