package mymcp

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/rickchristie/mysql-mcp/internal/mysqlconn"
	"github.com/rickchristie/mysql-mcp/internal/tunnel"
)

// Tool names exposed through the MCP catalog.
const (
	ToolExecuteSQL      = "execute_sql"
	ToolGetSchemaInfo   = "get_schema_info"
	ToolGetTableSample  = "get_table_sample"
	ToolGetReferenceDoc = "get_reference_doc"
)

// endpointProvider hands out per-call endpoint leases.
// *tunnel.Manager is the production implementation.
type endpointProvider interface {
	Acquire(ctx context.Context) (tunnel.Lease, error)
}

// connector opens database connections against a call's endpoint.
// *mysqlconn.Factory is the production implementation.
type connector interface {
	Open(ctx context.Context, host string, port int, purpose mysqlconn.Purpose) (*sql.DB, error)
}

// MysqlMcp is the core engine behind the four MCP tools. Every call is
// self-contained: it acquires a fresh endpoint lease, opens its own
// connection, and releases both before the result is returned. The engine
// itself holds no cross-call state beyond configuration.
type MysqlMcp struct {
	config    Config
	endpoints endpointProvider
	connector connector
	logger    zerolog.Logger
}

// New creates a MysqlMcp instance. Panics when required database
// configuration is missing; that is a startup error, not a runtime one.
func New(config Config, logger zerolog.Logger) *MysqlMcp {
	factory := mysqlconn.NewFactory(mysqlconn.Config{
		User:           config.Database.User,
		Password:       config.Database.Password,
		Database:       config.Database.Database,
		Charset:        config.Database.Charset,
		Collation:      config.Database.Collation,
		SQLMode:        config.Database.SQLMode,
		ConnectTimeout: config.Database.ConnectTimeout,
		PoolSize:       config.Database.PoolSize,
	}, logger)

	tunnels := tunnel.NewManager(tunnel.Config{
		Enabled:    config.Tunnel.Enabled,
		DirectHost: config.Database.Host,
		DirectPort: config.Database.Port,
		SSHHost:    config.Tunnel.SSHHost,
		SSHPort:    config.Tunnel.SSHPort,
		SSHUser:    config.Tunnel.SSHUser,
		KeyPath:    config.Tunnel.KeyPath,
		RemoteHost: config.Tunnel.RemoteHost,
		RemotePort: config.Tunnel.RemotePort,
		LocalPort:  config.Tunnel.LocalPort,
	}, logger)

	return &MysqlMcp{
		config:    config,
		endpoints: tunnels,
		connector: factory,
		logger:    logger,
	}
}

// CallTool dispatches one named tool call. It acquires an endpoint lease for
// the duration of the call and releases it on every exit path. All failures
// (tunnel errors, connection errors, SQL errors, even handler panics) are
// converted to a textual result; a tool call never surfaces as a protocol
// failure.
func (m *MysqlMcp) CallTool(ctx context.Context, name string, args map[string]any) (result string) {
	m.logger.Info().Str("tool", name).Msg("dispatching tool call")

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().Interface("panic", r).Str("tool", name).Msg("tool handler panicked")
			result = "An unexpected error occurred while executing the tool."
		}
	}()

	lease, err := m.endpoints.Acquire(ctx)
	if err != nil {
		m.logger.Error().Err(err).Str("tool", name).Msg("failed to acquire endpoint")
		return "An error occurred while opening tunnels."
	}
	defer lease.Release()

	endpoint := lease.Endpoint()
	switch name {
	case ToolExecuteSQL:
		return m.executeSQL(ctx, endpoint, args)
	case ToolGetSchemaInfo:
		return m.schemaInfo(ctx, endpoint, args)
	case ToolGetTableSample:
		return m.tableSample(ctx, endpoint, args)
	case ToolGetReferenceDoc:
		return m.referenceDoc()
	default:
		m.logger.Error().Str("tool", name).Msg("unknown tool")
		return "Unknown tool: " + name
	}
}

// closeQuietly closes a connection handle. Cleanup failures are logged,
// never surfaced: they must not replace the result already produced.
func (m *MysqlMcp) closeQuietly(db *sql.DB) {
	if err := db.Close(); err != nil {
		m.logger.Error().Err(err).Msg("error closing database connection")
	}
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}
