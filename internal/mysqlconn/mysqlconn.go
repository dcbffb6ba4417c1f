// Package mysqlconn builds per-call MySQL connections from environment-derived
// configuration and a call-scoped endpoint. Connections are never cached or
// reused across calls.
package mysqlconn

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
)

const (
	maxRetries   = 3
	retryBackoff = 1 * time.Second
)

// Purpose distinguishes what a connection is opened for. Single-call
// connections strip pool-only settings; a pooled mode would keep them.
type Purpose int

const (
	PurposeSingleCall Purpose = iota
	PurposePooled
)

// Config holds the database parameters sourced from the environment.
// User, Password, and Database are required; the rest have defaults.
type Config struct {
	User           string
	Password       string
	Database       string
	Charset        string
	Collation      string
	SQLMode        string
	ConnectTimeout time.Duration
	PoolSize       int
}

// Validate reports missing required fields. A Config must never be used
// with any of them absent.
func (c Config) Validate() error {
	var missing []string
	if c.User == "" {
		missing = append(missing, "user")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}
	if c.Database == "" {
		missing = append(missing, "database")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required database configuration: %v", missing)
	}
	return nil
}

// MarshalZerologObject logs the config with the password masked.
func (c Config) MarshalZerologObject(e *zerolog.Event) {
	e.Str("user", c.User).
		Str("password", "***").
		Str("database", c.Database).
		Str("charset", c.Charset).
		Str("collation", c.Collation).
		Str("sql_mode", c.SQLMode)
}

// Factory opens database connections against per-call endpoints.
type Factory struct {
	config Config
	logger zerolog.Logger

	// Overridable for tests.
	attempts int
	backoff  time.Duration
}

// NewFactory creates a Factory. Panics if required config is missing;
// config validation belongs to startup, before any call is served.
func NewFactory(config Config, logger zerolog.Logger) *Factory {
	if err := config.Validate(); err != nil {
		panic("mysqlconn: " + err.Error())
	}
	return &Factory{
		config:   config,
		logger:   logger,
		attempts: maxRetries,
		backoff:  retryBackoff,
	}
}

// Open connects to the database at the given endpoint, retrying transient
// failures up to the fixed bound with a fixed backoff between attempts.
// After exhausting retries the last underlying error is returned. The
// caller owns the returned handle and must close it before the call ends.
func (f *Factory) Open(ctx context.Context, host string, port int, purpose Purpose) (*sql.DB, error) {
	dsn := f.dsn(host, port)

	var lastErr error
	for attempt := 1; attempt <= f.attempts; attempt++ {
		f.logger.Info().
			Str("host", host).
			Int("port", port).
			Int("attempt", attempt).
			Msg("connecting to MySQL")

		db, err := sql.Open("mysql", dsn)
		if err != nil {
			// DSN-level error, not transient; retrying cannot help.
			return nil, fmt.Errorf("invalid MySQL DSN: %w", err)
		}
		f.applyPurpose(db, purpose)

		if err := db.PingContext(ctx); err != nil {
			db.Close()
			lastErr = err
			f.logger.Warn().Err(err).Int("attempt", attempt).Msg("database connection attempt failed")
			if attempt < f.attempts {
				select {
				case <-time.After(f.backoff):
				case <-ctx.Done():
					return nil, fmt.Errorf("cancelled while retrying connection: %w", ctx.Err())
				}
			}
			continue
		}

		f.logger.Info().Msg("database connection established")
		return db, nil
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", f.attempts, lastErr)
}

// dsn builds the driver DSN for the endpoint. Legacy authentication
// negotiation (mysql_native_password) is forced for compatibility with
// older server configurations.
func (f *Factory) dsn(host string, port int) string {
	cfg := mysql.NewConfig()
	cfg.User = f.config.User
	cfg.Passwd = f.config.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", host, port)
	cfg.DBName = f.config.Database
	cfg.Collation = f.config.Collation
	cfg.Timeout = f.config.ConnectTimeout
	cfg.ParseTime = true
	cfg.AllowNativePasswords = true
	cfg.Params = map[string]string{
		"charset":    f.config.Charset,
		"autocommit": "true",
	}
	if f.config.SQLMode != "" {
		cfg.Params["sql_mode"] = fmt.Sprintf("'%s'", f.config.SQLMode)
	}
	return cfg.FormatDSN()
}

// applyPurpose strips pool-only settings for single-call connections.
func (f *Factory) applyPurpose(db *sql.DB, purpose Purpose) {
	switch purpose {
	case PurposeSingleCall:
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(0)
	case PurposePooled:
		db.SetMaxOpenConns(f.config.PoolSize)
		db.SetMaxIdleConns(f.config.PoolSize)
	}
}
