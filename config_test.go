package mymcp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MYSQL_USER", "app")
	t.Setenv("MYSQL_PASSWORD", "secret")
	t.Setenv("MYSQL_DATABASE", "appdb")
}

func TestConfigFromEnv_Defaults(t *testing.T) {
	setRequiredEnv(t)

	config, err := ConfigFromEnv()
	require.NoError(t, err)

	require.Equal(t, "localhost", config.Database.Host)
	require.Equal(t, 3306, config.Database.Port)
	require.Equal(t, "utf8mb4", config.Database.Charset)
	require.Equal(t, "utf8mb4_unicode_ci", config.Database.Collation)
	require.Equal(t, "TRADITIONAL", config.Database.SQLMode)
	require.Equal(t, 10*time.Second, config.Database.ConnectTimeout)
	require.Equal(t, 5, config.Database.PoolSize)
	require.False(t, config.Tunnel.Enabled)
}

func TestConfigFromEnv_MissingRequiredIsFatal(t *testing.T) {
	t.Setenv("MYSQL_USER", "app")
	t.Setenv("MYSQL_PASSWORD", "")
	t.Setenv("MYSQL_DATABASE", "")

	_, err := ConfigFromEnv()
	require.Error(t, err)
	require.Contains(t, err.Error(), "MYSQL_PASSWORD")
	require.Contains(t, err.Error(), "MYSQL_DATABASE")
	require.NotContains(t, err.Error(), "MYSQL_USER")
}

func TestConfigFromEnv_TunnelSettings(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MYSQL_SSH_ENABLE", "true")
	t.Setenv("MYSQL_SSH_HOST", "bastion.example.com")
	t.Setenv("MYSQL_SSH_USER", "deploy")
	t.Setenv("MYSQL_SSH_KEY_PATH", "/keys/id_ed25519")
	t.Setenv("MYSQL_SSH_REMOTE_HOST", "db.internal")
	t.Setenv("MYSQL_LOCAL_PORT", "3331")

	config, err := ConfigFromEnv()
	require.NoError(t, err)

	require.True(t, config.Tunnel.Enabled)
	require.Equal(t, "bastion.example.com", config.Tunnel.SSHHost)
	require.Equal(t, 22, config.Tunnel.SSHPort)
	require.Equal(t, "deploy", config.Tunnel.SSHUser)
	require.Equal(t, "/keys/id_ed25519", config.Tunnel.KeyPath)
	require.Equal(t, "db.internal", config.Tunnel.RemoteHost)
	require.Equal(t, 3306, config.Tunnel.RemotePort)
	require.Equal(t, 3331, config.Tunnel.LocalPort)
}

func TestConfigFromEnv_InvalidIntFallsBack(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MYSQL_PORT", "not-a-number")

	config, err := ConfigFromEnv()
	require.NoError(t, err)
	require.Equal(t, 3306, config.Database.Port)
}

func TestServerConfigFromEnv_Defaults(t *testing.T) {
	setRequiredEnv(t)

	config, err := ServerConfigFromEnv()
	require.NoError(t, err)

	require.Equal(t, "stdio", config.Server.Transport)
	require.Equal(t, "info", config.Logging.Level)
	require.Equal(t, "json", config.Logging.Format)
}
