package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	mymcp "github.com/rickchristie/mysql-mcp"
)

func runServe() error {
	// .env is optional; real environment variables win.
	godotenv.Load()

	config, err := mymcp.ServerConfigFromEnv()
	if err != nil {
		// Startup must abort before any call can be served when required
		// configuration is missing.
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(config.Logging)

	logger.Info().
		Str("host", config.Database.Host).
		Int("port", config.Database.Port).
		Str("user", config.Database.User).
		Str("password", "***").
		Str("database", config.Database.Database).
		Bool("ssh_tunnel", config.Tunnel.Enabled).
		Msg("starting gomymcp server")

	m := mymcp.New(config.Config, logger)

	hooks := &server.Hooks{}
	hooks.AddAfterInitialize(func(ctx context.Context, id any, req *mcp.InitializeRequest, result *mcp.InitializeResult) {
		logger.Info().
			Str("client_name", req.Params.ClientInfo.Name).
			Str("client_version", req.Params.ClientInfo.Version).
			Msg("AI agent connected (MCP initialize)")
	})

	mcpServer := server.NewMCPServer("gomymcp", version,
		server.WithToolCapabilities(true),
		server.WithHooks(hooks),
	)

	mymcp.RegisterMCPTools(mcpServer, m)

	switch config.Server.Transport {
	case "http":
		return serveHTTP(mcpServer, config.Server.Port, logger)
	case "stdio", "":
		logger.Info().Msg("serving MCP over stdio")
		return server.ServeStdio(mcpServer)
	default:
		return fmt.Errorf("unknown transport %q (want stdio or http)", config.Server.Transport)
	}
}

func serveHTTP(mcpServer *server.MCPServer, port int, logger zerolog.Logger) error {
	addr := fmt.Sprintf(":%d", port)
	mux := http.NewServeMux()

	// Process liveness only, not database connectivity.
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	httpSrv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	streamableServer := server.NewStreamableHTTPServer(mcpServer,
		server.WithEndpointPath("/mcp"),
		server.WithStateLess(true),
		server.WithStreamableHTTPServer(httpSrv),
	)

	// Start() does not register the MCP handler when a custom *http.Server
	// is provided.
	mux.Handle("/mcp", streamableServer)

	logger.Info().Int("port", port).Msg("serving MCP over HTTP")
	return streamableServer.Start(addr)
}

func setupLogger(config mymcp.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(config.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	var output io.Writer = os.Stderr
	if config.File != "" {
		output = &lumberjack.Logger{
			Filename:   config.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
	}

	if config.Format == "text" {
		output = zerolog.ConsoleWriter{Out: output}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}
