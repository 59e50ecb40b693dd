// Package config provides configuration management for the Luminos community server.
// Configuration can be loaded from YAML files and environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config represents the complete application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Session   SessionConfig   `mapstructure:"session"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Backup    BackupConfig    `mapstructure:"backup"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`

	// AllowedHosts restricts the Host header when non-empty.
	AllowedHosts []string `mapstructure:"allowed_hosts"`

	// CORSOrigins lists browser origins allowed to call the API,
	// e.g. "http://localhost:3000". Empty disables CORS.
	CORSOrigins []string `mapstructure:"cors_origins"`

	// Development relaxes security headers for local work.
	Development bool `mapstructure:"development"`
}

// Address returns host:port.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StoreConfig selects and configures the record store backend.
type StoreConfig struct {
	// Driver is one of "memory", "sqlite", "postgres" or "redis".
	Driver string `mapstructure:"driver"`

	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// SQLiteConfig holds embedded database settings.
type SQLiteConfig struct {
	Path            string `mapstructure:"path"`             // Path to SQLite database file
	JournalMode     string `mapstructure:"journal_mode"`     // WAL, DELETE, TRUNCATE, etc.
	BusyTimeout     int    `mapstructure:"busy_timeout"`     // Milliseconds to wait for locks
	CacheSize       int    `mapstructure:"cache_size"`       // Page cache size (negative = KB)
	SynchronousMode string `mapstructure:"synchronous_mode"` // NORMAL, FULL, OFF
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN returns the PostgreSQL connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis connection settings.
// Redis backs the session cache and the seed lock when enabled,
// and the record store when store.driver is "redis".
type RedisConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Enabled     bool          `mapstructure:"enabled"`
	KeyPrefix   string        `mapstructure:"key_prefix"`
}

// Addr returns the Redis address in host:port format.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SessionConfig holds login session settings.
type SessionConfig struct {
	// Secret signs session tokens (HS256). Must be at least 32 bytes.
	Secret string `mapstructure:"secret"`

	// TTL is the lifetime of a session.
	TTL time.Duration `mapstructure:"ttl"`

	// Issuer is written into the token "iss" claim.
	Issuer string `mapstructure:"issuer"`

	// CookieName is the cookie read when no bearer token is sent.
	CookieName string `mapstructure:"cookie_name"`

	// CookieSecure sets the Secure attribute on the session cookie.
	CookieSecure bool `mapstructure:"cookie_secure"`
}

// BootstrapConfig controls first-run seeding.
type BootstrapConfig struct {
	// OwnerUsername is the root owner staff account.
	OwnerUsername string `mapstructure:"owner_username"`

	// OwnerPassword is the root owner password. A random one is generated and
	// logged once when empty.
	OwnerPassword string `mapstructure:"owner_password"`

	// SampleContent seeds the default products and forum posts.
	SampleContent bool `mapstructure:"sample_content"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled determines if metrics collection is active.
	Enabled bool `mapstructure:"enabled"`

	// Path is the URL path for the metrics endpoint.
	Path string `mapstructure:"path"`
}

// RateLimitConfig holds rate limiting settings for the credential endpoints.
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// LoginRequests is the number of login/register attempts allowed per IP in Window.
	LoginRequests int `mapstructure:"login_requests"`

	// Window is the rate limit window.
	Window time.Duration `mapstructure:"window"`
}

// BackupConfig holds snapshot destination settings.
type BackupConfig struct {
	// Destination is "file" or "s3".
	Destination string `mapstructure:"destination"`

	// Dir is the local directory used by the file destination.
	Dir string `mapstructure:"dir"`

	S3 S3Config `mapstructure:"s3"`
}

// S3Config holds S3 destination settings.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// Load reads configuration from the specified file and environment variables.
// Environment variables take precedence over file values.
// Environment variables are prefixed with LUMINOS_ and use _ as separator.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("LUMINOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/luminos")
	}

	// Config file is optional; defaults and env vars are enough.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.max_body_size", 1024*1024) // 1MB
	v.SetDefault("server.allowed_hosts", []string{})
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.development", false)

	// Store defaults
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.sqlite.path", "./data/luminos.db")
	v.SetDefault("store.sqlite.journal_mode", "WAL")
	v.SetDefault("store.sqlite.busy_timeout", 5000)
	v.SetDefault("store.sqlite.cache_size", -2000)
	v.SetDefault("store.sqlite.synchronous_mode", "NORMAL")
	v.SetDefault("store.postgres.host", "localhost")
	v.SetDefault("store.postgres.port", 5432)
	v.SetDefault("store.postgres.user", "luminos")
	v.SetDefault("store.postgres.password", "")
	v.SetDefault("store.postgres.database", "luminos")
	v.SetDefault("store.postgres.ssl_mode", "prefer")
	v.SetDefault("store.postgres.max_open_conns", 10)
	v.SetDefault("store.postgres.max_idle_conns", 2)
	v.SetDefault("store.postgres.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("store.postgres.conn_max_idle_time", 5*time.Minute)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.key_prefix", "luminos:")

	// Session defaults
	v.SetDefault("session.secret", "")
	v.SetDefault("session.ttl", 7*24*time.Hour)
	v.SetDefault("session.issuer", "luminos-community")
	v.SetDefault("session.cookie_name", "session")
	v.SetDefault("session.cookie_secure", true)

	// Bootstrap defaults
	v.SetDefault("bootstrap.owner_username", "owner")
	v.SetDefault("bootstrap.owner_password", "")
	v.SetDefault("bootstrap.sample_content", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Rate limiting defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.login_requests", 10)
	v.SetDefault("rate_limit.window", time.Minute)

	// Backup defaults
	v.SetDefault("backup.destination", "file")
	v.SetDefault("backup.dir", "./data/backups")
	v.SetDefault("backup.s3.region", "us-east-1")
	v.SetDefault("backup.s3.prefix", "luminos/")
	v.SetDefault("backup.s3.use_path_style", false)
}

// Validate checks the configuration for required values and valid ranges.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	for _, origin := range c.Server.CORSOrigins {
		if origin == "*" {
			return fmt.Errorf("server.cors_origins cannot contain \"*\" because credentials are allowed")
		}
		if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("server.cors_origins entry %q must start with http:// or https://", origin)
		}
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Store.SQLite.Path == "" {
			return fmt.Errorf("store.sqlite.path is required for sqlite driver")
		}
	case DriverPostgres:
		if c.Store.Postgres.Host == "" {
			return fmt.Errorf("store.postgres.host is required for postgres driver")
		}
		if c.Store.Postgres.User == "" {
			return fmt.Errorf("store.postgres.user is required for postgres driver")
		}
		if c.Store.Postgres.Database == "" {
			return fmt.Errorf("store.postgres.database is required for postgres driver")
		}
	case DriverRedis:
		if c.Redis.Host == "" {
			return fmt.Errorf("redis.host is required for redis driver")
		}
	default:
		return fmt.Errorf("store.driver must be one of: memory, sqlite, postgres, redis")
	}

	if len(c.Session.Secret) < 32 {
		return fmt.Errorf("session.secret must be at least 32 characters")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}

	if c.Bootstrap.OwnerUsername == "" {
		return fmt.Errorf("bootstrap.owner_username is required")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.LoginRequests < 1 {
			return fmt.Errorf("rate_limit.login_requests must be at least 1")
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate_limit.window must be positive")
		}
	}

	switch c.Backup.Destination {
	case "file":
		if c.Backup.Dir == "" {
			return fmt.Errorf("backup.dir is required for file destination")
		}
	case "s3":
		if c.Backup.S3.Bucket == "" {
			return fmt.Errorf("backup.s3.bucket is required for s3 destination")
		}
	default:
		return fmt.Errorf("backup.destination must be 'file' or 's3'")
	}

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: trace, debug, info, warn, error, fatal, panic")
	}

	return nil
}

// UsesRedis reports whether any component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.Redis.Enabled || c.Store.Driver == DriverRedis
}

// MustLoad loads configuration or panics on error.
// Useful for main function initialization.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
