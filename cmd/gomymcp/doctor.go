package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	mymcp "github.com/rickchristie/mysql-mcp"
	"github.com/rickchristie/mysql-mcp/internal/mysqlconn"
	"github.com/rickchristie/mysql-mcp/internal/tunnel"
)

func runDoctor() error {
	fs := flag.NewFlagSet("doctor", flag.ExitOnError)
	connect := fs.Bool("connect", false, "Attempt a live database connection (through the tunnel when enabled)")
	fs.Parse(os.Args[2:])

	godotenv.Load()

	// Convenience for interactive use: prompt for the password rather than
	// failing the required-configuration check outright.
	if os.Getenv("MYSQL_PASSWORD") == "" && isTTY(os.Stdin.Fd()) {
		os.Setenv("MYSQL_PASSWORD", promptPassword("MySQL password: "))
	}

	useColor := isTTY(os.Stderr.Fd())
	return doctor(os.Stderr, useColor, *connect)
}

func promptPassword(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr) // newline after password input
	if err != nil {
		return ""
	}
	return string(password)
}

func doctor(w io.Writer, useColor bool, connect bool) error {
	printBanner(w, useColor)
	fmt.Fprintf(w, "gomymcp %s\n\n", version)

	config, ok := doctorValidateConfig(w, useColor)
	if !ok {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Fix the issues above and run 'gomymcp doctor' again.")
		return nil
	}

	if connect {
		fmt.Fprintln(w)
		doctorConnect(w, useColor, config)
	}
	return nil
}

// doctorValidateConfig checks the environment-sourced configuration,
// printing one line per check. Returns the config and true when all
// checks passed.
func doctorValidateConfig(w io.Writer, useColor bool) (mymcp.Config, bool) {
	allPassed := true

	// Check 1: required database credentials
	config, err := mymcp.ConfigFromEnv()
	if err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Required database configuration: %v", err))
		return mymcp.Config{}, false
	}
	printCheck(w, useColor, true, "MYSQL_USER, MYSQL_PASSWORD, and MYSQL_DATABASE are set")

	// Check 2: tunnel settings coherent when enabled
	if config.Tunnel.Enabled {
		tunnelOK := true
		if config.Tunnel.SSHHost == "" || config.Tunnel.SSHUser == "" {
			printCheck(w, useColor, false, "MYSQL_SSH_HOST and MYSQL_SSH_USER are set (required when MYSQL_SSH_ENABLE=true)")
			tunnelOK = false
		}
		if config.Tunnel.RemoteHost == "" {
			printCheck(w, useColor, false, "MYSQL_SSH_REMOTE_HOST is set (required when MYSQL_SSH_ENABLE=true)")
			tunnelOK = false
		}
		if config.Tunnel.KeyPath == "" {
			printCheck(w, useColor, false, "MYSQL_SSH_KEY_PATH is set (required when MYSQL_SSH_ENABLE=true)")
			tunnelOK = false
		} else if _, err := os.Stat(config.Tunnel.KeyPath); err != nil {
			printCheck(w, useColor, false, "SSH key file exists")
			tunnelOK = false
		}
		if tunnelOK {
			printCheck(w, useColor, true, "SSH tunnel configuration is coherent")
		}
		allPassed = allPassed && tunnelOK
	} else {
		printCheck(w, useColor, true, "SSH tunneling disabled, direct connection")
	}

	// Check 3: reference documentation readable
	if _, err := os.ReadFile("MCP_USECASES.md"); err != nil {
		printCheck(w, useColor, false, "Reference documentation readable (MCP_USECASES.md); get_reference_doc will return a fallback")
	} else {
		printCheck(w, useColor, true, "Reference documentation readable (MCP_USECASES.md)")
	}

	return config, allPassed
}

// doctorConnect performs a live connectivity probe: acquire an endpoint
// (starting the tunnel when enabled), open a connection, and tear both
// down again.
func doctorConnect(w io.Writer, useColor bool, config mymcp.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := zerolog.New(io.Discard)

	manager := tunnel.NewManager(tunnel.Config{
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

	lease, err := manager.Acquire(ctx)
	if err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Tunnel endpoint acquired: %v", err))
		return
	}
	defer lease.Release()
	endpoint := lease.Endpoint()
	printCheck(w, useColor, true, fmt.Sprintf("Endpoint acquired (%s)", endpoint.Addr()))

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

	db, err := factory.Open(ctx, endpoint.Host, endpoint.Port, mysqlconn.PurposeSingleCall)
	if err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Database connection: %v", err))
		return
	}
	db.Close()
	printCheck(w, useColor, true, "Connected!")
}

// printCheck prints a single ✓/✗ check line.
func printCheck(w io.Writer, useColor bool, ok bool, msg string) {
	if useColor {
		if ok {
			fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", msg)
		} else {
			fmt.Fprintf(w, "\033[31m✗\033[0m %s\n", msg)
		}
		return
	}
	if ok {
		fmt.Fprintf(w, "✓ %s\n", msg)
	} else {
		fmt.Fprintf(w, "✗ %s\n", msg)
	}
}
