// SPDX-License-Identifier: MPL-2.0

package sshserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"

	"github.com/invowk/vshell/internal/app"
	"github.com/invowk/vshell/pkg/types"
)

const (
	DefaultHost            = "127.0.0.1"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultStartupTimeout  = 5 * time.Second
)

// ErrInvalidConfig is wrapped by InvalidConfigError.
var ErrInvalidConfig = errors.New("invalid SSH server config")

type (
	// Config holds the server settings. Zero durations take the defaults.
	Config struct {
		Host string
		// Port 0 lets the system choose.
		Port types.ListenPort
		// HostKeyPath is the ed25519 host key, generated when missing.
		HostKeyPath     string
		ShutdownTimeout time.Duration
		StartupTimeout  time.Duration
	}

	// InvalidConfigError collects field errors from Config.Validate.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Server serves one Machine over SSH. A Server is single-use: once
	// stopped or failed, create a new one.
	Server struct {
		cfg     Config
		machine *app.Machine
		logger  *log.Logger
		life    *lifecycle

		srvMu    sync.Mutex
		srv      *ssh.Server
		listener net.Listener
		addr     string
	}
)

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid SSH server config: %v", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Validate checks the host, port and host key path.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Host) == "" {
		errs = append(errs, errors.New("host must be non-empty"))
	}
	if err := c.Port.Validate(); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.HostKeyPath) == "" {
		errs = append(errs, errors.New("host key path must be non-empty"))
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// New creates a server for m. It does not listen until Start.
func New(cfg Config, m *app.Machine, logger *log.Logger) *Server {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.StartupTimeout == 0 {
		cfg.StartupTimeout = DefaultStartupTimeout
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Server{cfg: cfg, machine: m, logger: logger, life: newLifecycle()}
}

// Start listens and blocks until the server accepts connections, fails,
// ctx is done or the startup timeout passes. Use Err to watch for runtime
// failures afterwards.
func (s *Server) Start(ctx context.Context) error {
	if err := s.cfg.Validate(); err != nil {
		s.life.fail(err)
		return err
	}
	if err := s.life.starting(ctx); err != nil {
		return err
	}

	startupCtx, cancel := context.WithTimeout(ctx, s.cfg.StartupTimeout)
	defer cancel()

	addr := s.cfg.Port.Addr(s.cfg.Host)
	var lc net.ListenConfig
	listener, err := lc.Listen(startupCtx, "tcp", addr)
	if err != nil {
		s.life.fail(fmt.Errorf("listen on %s: %w", addr, err))
		return s.life.err()
	}

	srv, err := wish.NewServer(
		wish.WithAddress(addr),
		wish.WithHostKeyPath(s.cfg.HostKeyPath),
		wish.WithPasswordAuth(s.passwordHandler),
		wish.WithMiddleware(s.sessionMiddleware()),
	)
	if err != nil {
		_ = listener.Close()
		s.life.fail(fmt.Errorf("create SSH server: %w", err))
		return s.life.err()
	}

	s.srvMu.Lock()
	s.srv, s.listener, s.addr = srv, listener, listener.Addr().String()
	s.srvMu.Unlock()

	s.life.wg.Add(1)
	go s.serve()

	select {
	case <-s.life.startedCh:
		s.logger.Info("SSH server started", "address", s.addr)
		return nil
	case err := <-s.life.errCh:
		s.life.fail(err)
		return err
	case <-startupCtx.Done():
		s.life.fail(fmt.Errorf("startup timeout: %w", startupCtx.Err()))
		return s.life.err()
	}
}

func (s *Server) serve() {
	defer s.life.wg.Done()
	s.life.running()

	s.srvMu.Lock()
	srv, listener := s.srv, s.listener
	s.srvMu.Unlock()

	err := srv.Serve(listener)
	if err != nil && !errors.Is(err, ssh.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
		s.life.send(fmt.Errorf("serve: %w", err))
	}
}

// Stop shuts the server down, waiting up to the shutdown timeout for open
// sessions. Calling it again is a no-op.
func (s *Server) Stop() error {
	if !s.life.stopping() {
		s.life.wg.Wait()
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.srvMu.Lock()
	err := s.srv.Shutdown(ctx)
	if errors.Is(err, net.ErrClosed) || errors.Is(err, ssh.ErrServerClosed) {
		err = nil
	}
	_ = s.listener.Close()
	s.srvMu.Unlock()

	s.life.wg.Wait()
	s.life.stopped()
	if err != nil {
		s.logger.Error("shutdown error", "err", err)
	}
	s.logger.Info("SSH server stopped")
	return err
}

// Wait blocks until the server has stopped and returns the startup error
// of a failed server.
func (s *Server) Wait() error {
	s.life.wg.Wait()
	if s.State() == StateFailed {
		return s.life.err()
	}
	return nil
}

// Err delivers runtime failures. It is closed by Stop.
func (s *Server) Err() <-chan error {
	return s.life.errCh
}

func (s *Server) State() State {
	return s.life.current()
}

func (s *Server) IsRunning() bool {
	return s.State() == StateRunning
}

// Address returns the bound host:port, or "" before a successful start.
func (s *Server) Address() string {
	select {
	case <-s.life.startedCh:
		s.srvMu.Lock()
		defer s.srvMu.Unlock()
		return s.addr
	default:
		return ""
	}
}

// Port returns the bound port, or 0 before a successful start.
func (s *Server) Port() types.ListenPort {
	addr, ok := s.listenAddr()
	if !ok {
		return 0
	}
	return types.ListenPort(addr.Port)
}

func (s *Server) listenAddr() (*net.TCPAddr, bool) {
	if s.Address() == "" {
		return nil, false
	}
	s.srvMu.Lock()
	defer s.srvMu.Unlock()
	addr, ok := s.listener.Addr().(*net.TCPAddr)
	return addr, ok
}
