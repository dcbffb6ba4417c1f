// Package tunnel manages the optional SSH forwarding hop a call's database
// connection goes through. Each call acquires a fresh lease and releases it
// before returning; no tunnel process outlives the call that started it.
package tunnel

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBasePort = 3330
	maxPortAttempts = 100

	// The forwarding process gives no readiness signal; a fixed settle
	// interval after start is the only "tunnel is up" heuristic available.
	defaultSettleInterval = 1 * time.Second

	terminateWait = 5 * time.Second
)

// Config describes where connections should go, and through what.
// When Enabled is false the direct host/port is the effective endpoint.
type Config struct {
	Enabled    bool
	DirectHost string
	DirectPort int

	SSHHost    string
	SSHPort    int
	SSHUser    string
	KeyPath    string
	RemoteHost string
	RemotePort int
	LocalPort  int // 0 means probe for a free port starting at defaultBasePort
}

// Endpoint is the resolved address a connection should be opened against.
// Valid only for the duration of one call.
type Endpoint struct {
	Host string
	Port int
}

func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, fmt.Sprintf("%d", e.Port))
}

// Lease is an acquired endpoint paired with whatever resources back it.
// Release must be called exactly once per acquire, on every exit path.
// Calling Release more than once is safe; later calls are no-ops.
type Lease interface {
	Endpoint() Endpoint
	Release()
}

// Manager hands out per-call endpoint leases.
type Manager struct {
	config Config
	logger zerolog.Logger

	// Overridable for tests.
	sshPath string
	settle  time.Duration
}

// NewManager creates a Manager. The Manager itself holds no per-call state;
// all call-scoped resources live on the Lease.
func NewManager(config Config, logger zerolog.Logger) *Manager {
	return &Manager{
		config:  config,
		logger:  logger,
		sshPath: "ssh",
		settle:  defaultSettleInterval,
	}
}

// Acquire resolves the endpoint for one call. With tunneling disabled it
// returns the direct database address immediately. With tunneling enabled
// it starts an ssh port-forward subprocess and waits a settle interval
// before declaring it ready. Callers must Release the lease unconditionally.
func (m *Manager) Acquire(ctx context.Context) (Lease, error) {
	if !m.config.Enabled {
		m.logger.Info().
			Str("host", m.config.DirectHost).
			Int("port", m.config.DirectPort).
			Msg("tunneling disabled, connecting directly")
		return &directLease{endpoint: Endpoint{Host: m.config.DirectHost, Port: m.config.DirectPort}}, nil
	}

	localPort := m.config.LocalPort
	if localPort <= 0 {
		port, err := findFreePort(defaultBasePort, maxPortAttempts)
		if err != nil {
			return nil, err
		}
		localPort = port
	}

	// The key path is a secret location; only its last component is logged.
	m.logger.Info().
		Str("ssh_host", m.config.SSHHost).
		Int("ssh_port", m.config.SSHPort).
		Str("ssh_user", m.config.SSHUser).
		Str("key", filepath.Base(m.config.KeyPath)).
		Str("remote_host", m.config.RemoteHost).
		Int("remote_port", m.config.RemotePort).
		Int("local_port", localPort).
		Msg("starting SSH tunnel")

	args := []string{
		"-i", m.config.KeyPath,
		"-N",
		"-L", fmt.Sprintf("%d:%s:%d", localPort, m.config.RemoteHost, m.config.RemotePort),
		fmt.Sprintf("%s@%s", m.config.SSHUser, m.config.SSHHost),
		"-p", fmt.Sprintf("%d", m.config.SSHPort),
	}

	cmd := exec.Command(m.sshPath, args...)
	output := &outputSink{}
	cmd.Stdout = output
	cmd.Stderr = output

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start SSH tunnel process: %w", err)
	}

	// Settle wait. If the caller's context dies while waiting, tear the
	// process down here since Release will never be reached.
	select {
	case <-time.After(m.settle):
	case <-ctx.Done():
		terminate(cmd, m.logger)
		return nil, fmt.Errorf("cancelled while waiting for SSH tunnel: %w", ctx.Err())
	}

	if out := output.take(); out != "" {
		m.logger.Info().Str("output", out).Msg("SSH tunnel process output")
	}
	m.logger.Info().
		Int("local_port", localPort).
		Str("remote", fmt.Sprintf("%s:%d", m.config.RemoteHost, m.config.RemotePort)).
		Msg("SSH tunnel established")

	return &sshLease{
		endpoint: Endpoint{Host: "127.0.0.1", Port: localPort},
		cmd:      cmd,
		output:   output,
		logger:   m.logger,
	}, nil
}

// outputSink collects the forwarding process's combined output. The copy
// goroutine started by exec.Cmd writes for as long as the process lives,
// so every access goes through the lock.
type outputSink struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *outputSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

// take drains everything collected since the previous take.
func (s *outputSink) take() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.buf.String()
	s.buf.Reset()
	return out
}

// findFreePort probes sequential ports starting at base by binding a test
// socket until one succeeds.
func findFreePort(base, attempts int) (int, error) {
	for port := base; port < base+attempts; port++ {
		l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			continue
		}
		l.Close()
		return port, nil
	}
	return 0, fmt.Errorf("could not find a free port after %d attempts", attempts)
}

// directLease is the no-tunnel case: the endpoint is the database itself
// and Release has nothing to do.
type directLease struct {
	endpoint Endpoint
}

func (l *directLease) Endpoint() Endpoint { return l.endpoint }
func (l *directLease) Release()           {}

// sshLease owns a running forwarding subprocess.
type sshLease struct {
	endpoint Endpoint
	cmd      *exec.Cmd
	output   *outputSink
	logger   zerolog.Logger
	once     sync.Once
}

func (l *sshLease) Endpoint() Endpoint { return l.endpoint }

// Release terminates the forwarding process and waits a bounded time for
// exit. Termination failures are logged, never returned, so connection
// cleanup always proceeds. Output the process emitted after the settle
// snapshot (late auth failures, disconnect notices) is logged here.
func (l *sshLease) Release() {
	l.once.Do(func() {
		l.logger.Info().Msg("terminating SSH tunnel process")
		terminate(l.cmd, l.logger)
		if out := l.output.take(); out != "" {
			l.logger.Info().Str("output", out).Msg("SSH tunnel process output")
		}
	})
}

func terminate(cmd *exec.Cmd, logger zerolog.Logger) {
	if cmd.Process == nil {
		return
	}
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		logger.Error().Err(err).Msg("failed to signal SSH tunnel process")
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-done:
		logger.Info().Msg("SSH tunnel process terminated")
	case <-time.After(terminateWait):
		logger.Error().Msg("SSH tunnel process did not exit in time, killing")
		if err := cmd.Process.Kill(); err != nil {
			logger.Error().Err(err).Msg("failed to kill SSH tunnel process")
		}
		<-done
	}
}
