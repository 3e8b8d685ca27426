package config

import (
	"errors"
	"fmt"
	"time"
)

// Default values for optional configuration fields.
const (
	DefaultMaxSize        = 5
	DefaultMinIdle        = 1
	DefaultConnectTimeout = 5 * time.Second
	DefaultIdleTimeout    = 5 * time.Minute
	DefaultMaxLifetime    = 30 * time.Minute
	DefaultPostgresDriver = "postgres"
	DefaultSSLMode        = "disable"
	DefaultTTL            = 30 * time.Minute
	DefaultSweepInterval  = 60 * time.Second
	DefaultPolicy         = "reuse"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultLogMaxSizeMB   = 10
	DefaultHTTPAddr       = "127.0.0.1:8080"
	DefaultRESTAddr       = "127.0.0.1:8081"
)

func (c *Config) applyDefaults() {
	// Pool defaults
	if c.Pool.MaxSize == 0 {
		c.Pool.MaxSize = DefaultMaxSize
	}
	if c.Pool.MinIdle == nil {
		minIdle := DefaultMinIdle
		c.Pool.MinIdle = &minIdle
	}
	if c.Pool.ConnectTimeout == 0 {
		c.Pool.ConnectTimeout = Duration(DefaultConnectTimeout)
	}
	if c.Pool.IdleTimeout == 0 {
		c.Pool.IdleTimeout = Duration(DefaultIdleTimeout)
	}
	if c.Pool.MaxLifetime == 0 {
		c.Pool.MaxLifetime = Duration(DefaultMaxLifetime)
	}
	if c.Pool.PostgresDriver == "" {
		c.Pool.PostgresDriver = DefaultPostgresDriver
	}
	if c.Pool.SSLMode == "" {
		c.Pool.SSLMode = DefaultSSLMode
	}

	// Session defaults
	if c.Session.TTL == 0 {
		c.Session.TTL = Duration(DefaultTTL)
	}
	if c.Session.SweepInterval == 0 {
		c.Session.SweepInterval = Duration(DefaultSweepInterval)
	}
	if c.Session.Policy == "" {
		c.Session.Policy = DefaultPolicy
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.Logging.OutputFile == "" {
		c.Logging.Console = true
	}

	// Server defaults
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = DefaultHTTPAddr
	}
	if c.Server.RESTAddr == "" {
		c.Server.RESTAddr = DefaultRESTAddr
	}
}

// Validate checks that values are in range and references resolve.
func (c *Config) Validate() error {
	if c.Pool.MaxSize < 1 {
		return errors.New("pool.max_size must be >= 1")
	}
	if minIdle := c.Pool.minIdle(); minIdle < 0 {
		return errors.New("pool.min_idle must be >= 0")
	} else if minIdle > c.Pool.MaxSize {
		return fmt.Errorf("pool.min_idle (%d) cannot exceed pool.max_size (%d)", minIdle, c.Pool.MaxSize)
	}
	if c.Pool.ConnectTimeout < 0 || c.Pool.IdleTimeout < 0 || c.Pool.MaxLifetime < 0 {
		return errors.New("pool timeouts must not be negative")
	}
	if c.Pool.PostgresDriver != "postgres" && c.Pool.PostgresDriver != "pgx" {
		return fmt.Errorf("pool.postgres_driver must be 'postgres' or 'pgx', got %q", c.Pool.PostgresDriver)
	}

	if c.Session.TTL <= 0 {
		return errors.New("session.ttl must be positive")
	}
	if c.Session.SweepInterval <= 0 {
		return errors.New("session.sweep_interval must be positive")
	}
	switch c.Session.Policy {
	case "reuse", "single-use":
	default:
		return fmt.Errorf("session.policy must be 'reuse' or 'single-use', got %q", c.Session.Policy)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", c.Logging.Format)
	}

	if c.DefaultConnection != "" {
		if _, ok := c.Connections[c.DefaultConnection]; !ok {
			return fmt.Errorf("default_connection %q is not a configured connection", c.DefaultConnection)
		}
	}

	return nil
}
