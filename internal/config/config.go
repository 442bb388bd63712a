// Package config provides centralized configuration management for the matrix service.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	CORS     CORSConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Import   ImportConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// Database drivers understood by the store bootstrap.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Driver selects the store backend: postgres, sqlite or memory (default: postgres)
	Driver string `env:"DATABASE_DRIVER" default:"postgres"`

	// URL is the PostgreSQL connection string (required for the postgres driver)
	URL string `env:"DATABASE_URL" envAlt:"ENV_DATABASE_URL,DB_URL"`

	// SQLitePath is the database file for the sqlite driver (default: attrmatrix.db)
	SQLitePath string `env:"SQLITE_PATH" default:"attrmatrix.db"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30s)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30s"`

	// ConnectTimeout bounds establishing a new connection (default: 5s)
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" default:"5s"`

	// StatementTimeout is the ceiling for any single statement (default: 1500ms)
	StatementTimeout time.Duration `env:"DB_STATEMENT_TIMEOUT" default:"1500ms"`
}

// AuthConfig holds the single-admin login settings.
type AuthConfig struct {
	// JWTSecret signs issued tokens (required to serve HTTP)
	JWTSecret string `env:"JWT_SECRET"`

	// AdminPasswordHash is the bcrypt hash of the admin password (required to serve HTTP)
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`

	// AdminUsername is the identity put into issued tokens (default: admin)
	AdminUsername string `env:"ADMIN_USERNAME" default:"admin"`

	// TokenTTL is how long an issued token stays valid (default: 24h)
	TokenTTL time.Duration `env:"AUTH_TOKEN_TTL" default:"24h"`
}

// CORSConfig holds cross-origin settings for the browser client.
type CORSConfig struct {
	// Origins is a comma-separated list of allowed origins
	Origins []string `env:"CORS_ORIGIN" envAlt:"CORS_ORIGINS"`

	// DevOrigin is always allowed alongside Origins (default: http://localhost:5173)
	DevOrigin string `env:"CORS_DEV_ORIGIN" default:"http://localhost:5173"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 300)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"300"`

	// LoginPerMinute is requests per minute for the login endpoint (default: 10)
	LoginPerMinute int `env:"RATE_LIMIT_LOGIN" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// ImportConfig holds bulk import settings.
type ImportConfig struct {
	// MaxBodySize is the maximum accepted import document in bytes (default: 10MB)
	MaxBodySize int64 `env:"IMPORT_MAX_BODY_SIZE" default:"10485760"`

	// MaxConcurrent is the maximum number of imports running at once (default: 1)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"1"`

	// MaxWaitTime is how long an import waits for a slot (default: 10s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"10s"`

	// Timeout is the maximum duration of a single import (default: 2m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"2m"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	// Enabled mounts the metrics handler (default: true)
	Enabled bool `env:"METRICS_ENABLED" default:"true"`

	// Path is where metrics are served (default: /metrics)
	Path string `env:"METRICS_PATH" default:"/metrics"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// AllowedOrigins returns the configured origins plus the dev origin, without duplicates.
func (c *CORSConfig) AllowedOrigins() []string {
	seen := make(map[string]bool, len(c.Origins)+1)
	out := make([]string, 0, len(c.Origins)+1)
	for _, o := range append(append([]string{}, c.Origins...), c.DevOrigin) {
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		out = append(out, o)
	}
	return out
}
