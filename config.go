package mymcp

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the process-wide configuration, read once at startup. It is the
// only state shared across calls; everything else is scoped to a single call.
type Config struct {
	Database DatabaseConfig
	Tunnel   TunnelConfig
}

// ServerConfig embeds Config and adds server-only settings for CLI mode.
type ServerConfig struct {
	Config
	Server  ServerSettings
	Logging LoggingConfig
}

// DatabaseConfig holds the database parameters sourced from the environment.
// User, Password, and Database are required.
type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Database       string
	Charset        string
	Collation      string
	SQLMode        string
	ConnectTimeout time.Duration
	PoolSize       int
}

// TunnelConfig holds SSH forwarding settings. When Enabled is false the
// database host/port is used directly and the rest is ignored.
type TunnelConfig struct {
	Enabled    bool
	SSHHost    string
	SSHPort    int
	SSHUser    string
	KeyPath    string
	RemoteHost string
	RemotePort int
	LocalPort  int
}

// ServerSettings holds transport settings for CLI mode.
type ServerSettings struct {
	Transport string // "stdio" or "http"
	Port      int    // HTTP transport only
}

// LoggingConfig holds logging settings for CLI mode.
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
	File   string // append to this file; empty means stderr
}

// ConfigFromEnv builds the core Config from environment variables.
// Returns an error when a required database credential is missing; this is
// a fatal configuration error and must abort startup before serving.
func ConfigFromEnv() (Config, error) {
	db := DatabaseConfig{
		Host:           envOr("MYSQL_HOST", "localhost"),
		Port:           envIntOr("MYSQL_PORT", 3306),
		User:           os.Getenv("MYSQL_USER"),
		Password:       os.Getenv("MYSQL_PASSWORD"),
		Database:       os.Getenv("MYSQL_DATABASE"),
		Charset:        envOr("MYSQL_CHARSET", "utf8mb4"),
		Collation:      envOr("MYSQL_COLLATION", "utf8mb4_unicode_ci"),
		SQLMode:        envOr("MYSQL_SQL_MODE", "TRADITIONAL"),
		ConnectTimeout: 10 * time.Second,
		PoolSize:       5,
	}

	var missing []string
	if db.User == "" {
		missing = append(missing, "MYSQL_USER")
	}
	if db.Password == "" {
		missing = append(missing, "MYSQL_PASSWORD")
	}
	if db.Database == "" {
		missing = append(missing, "MYSQL_DATABASE")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required database configuration: %v are required", missing)
	}

	tun := TunnelConfig{
		Enabled:    envOr("MYSQL_SSH_ENABLE", "false") == "true",
		SSHHost:    os.Getenv("MYSQL_SSH_HOST"),
		SSHPort:    envIntOr("MYSQL_SSH_PORT", 22),
		SSHUser:    os.Getenv("MYSQL_SSH_USER"),
		KeyPath:    os.Getenv("MYSQL_SSH_KEY_PATH"),
		RemoteHost: os.Getenv("MYSQL_SSH_REMOTE_HOST"),
		RemotePort: envIntOr("MYSQL_SSH_REMOTE_PORT", 3306),
		LocalPort:  envIntOr("MYSQL_LOCAL_PORT", 0),
	}

	return Config{Database: db, Tunnel: tun}, nil
}

// ServerConfigFromEnv builds the full CLI-mode configuration.
func ServerConfigFromEnv() (ServerConfig, error) {
	core, err := ConfigFromEnv()
	if err != nil {
		return ServerConfig{}, err
	}
	return ServerConfig{
		Config: core,
		Server: ServerSettings{
			Transport: envOr("MYSQLMCP_TRANSPORT", "stdio"),
			Port:      envIntOr("MYSQLMCP_PORT", 8321),
		},
		Logging: LoggingConfig{
			Level:  envOr("MYSQLMCP_LOG_LEVEL", "info"),
			Format: envOr("MYSQLMCP_LOG_FORMAT", "json"),
			File:   os.Getenv("MYSQLMCP_LOG_FILE"),
		},
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
