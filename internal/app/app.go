// SPDX-License-Identifier: MPL-2.0

// Package app assembles a running vshell machine from configuration: the
// user registry, the persistence adapter, the filesystem, the sudoers
// engine and the interpreter with every built-in command.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/invowk/vshell/internal/clock"
	"github.com/invowk/vshell/internal/config"
	"github.com/invowk/vshell/internal/coreutils"
	"github.com/invowk/vshell/internal/identity"
	"github.com/invowk/vshell/internal/persist"
	"github.com/invowk/vshell/internal/shell"
	"github.com/invowk/vshell/internal/sudoers"
	"github.com/invowk/vshell/internal/vfs"
)

type (
	// Options configures New.
	Options struct {
		Config *config.Config
		// Adapter overrides the backend named by the configuration.
		Adapter persist.Adapter
		// DataDir is the file backend fallback directory.
		DataDir string
		Clock   clock.Clock
		Logger  *log.Logger
	}

	// Machine is a loaded vshell system. Sessions opened with Login share
	// its filesystem, users and sudoers policy.
	Machine struct {
		Config  *config.Config
		Store   *vfs.Store
		Users   *identity.Registry
		Sudoers *sudoers.Engine
		System  *shell.System
		Interp  *shell.Interpreter
		Log     *log.Logger

		closer io.Closer
	}
)

// New builds the registry, opens the snapshot backend, loads (or seeds)
// the filesystem and commits the seed on first run.
func New(ctx context.Context, opts Options) (*Machine, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}

	users, err := buildRegistry(cfg)
	if err != nil {
		return nil, fmt.Errorf("register users: %w", err)
	}

	adapter, closer := opts.Adapter, io.Closer(nopCloser{})
	if adapter == nil {
		spec := cfg.PersistSpec(opts.DataDir)
		adapter, closer, err = persist.Open(ctx, spec)
		if err != nil {
			return nil, fmt.Errorf("open %s snapshot backend: %w", spec.Backend, err)
		}
	}

	store := vfs.New(vfs.Options{
		Quota:   cfg.QuotaBytes,
		Adapter: adapter,
		Key:     cfg.Persistence.Key,
		Clock:   clk,
		Logger:  logger.WithPrefix("vfs"),
		Seed:    seed(cfg, users),
	})
	if err := store.Load(ctx); err != nil {
		return nil, errors.Join(err, closer.Close())
	}
	if err := restoreAccounts(store, users, logger); err != nil {
		return nil, errors.Join(err, closer.Close())
	}
	if err := store.Commit(ctx); err != nil {
		return nil, errors.Join(err, closer.Close())
	}

	engine := sudoers.NewEngine(store, cfg.SudoersPath, clk, logger.WithPrefix("sudoers"))
	store.OnChange(engine.Hook())

	sys := &shell.System{
		FS:            store,
		Users:         users,
		Sudoers:       engine,
		Clock:         clk,
		Log:           logger.WithPrefix("shell"),
		Hostname:      cfg.Hostname,
		PasswordTries: cfg.PasswordTries,
	}
	return &Machine{
		Config:  cfg,
		Store:   store,
		Users:   users,
		Sudoers: engine,
		System:  sys,
		Interp:  shell.NewInterpreter(sys, coreutils.NewRegistry()),
		Log:     logger,
		closer:  closer,
	}, nil
}

// Login opens a session for name in its home directory. p answers the
// session's prompts and may be nil until a front end installs one.
func (m *Machine) Login(name string, p shell.Prompter) (*shell.Session, error) {
	id, err := m.Users.Lookup(name)
	if err != nil {
		return nil, err
	}
	sess := shell.NewSession(shell.SessionOptions{
		User:     id,
		Home:     coreutils.HomeDir(name),
		Env:      map[string]string{"SHELL": "/bin/vsh", "HOSTNAME": m.Config.Hostname},
		Prompter: p,
		Logger:   m.Log.WithPrefix("jobs"),
	})
	m.Log.Info("session opened", "session", sess.ID(), "user", name)
	return sess, nil
}

// Authenticate checks a login password.
func (m *Machine) Authenticate(name, password string) error {
	return m.Users.CheckPassword(name, password)
}

// Close releases the snapshot backend.
func (m *Machine) Close() error {
	return m.closer.Close()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
