// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/invowk/vshell/internal/app"
	"github.com/invowk/vshell/internal/clock"
	"github.com/invowk/vshell/internal/config"
	"github.com/invowk/vshell/internal/persist"
)

type (
	// Stopper is an interface for types that have a Stop method returning an error.
	// This is commonly used for server types.
	Stopper interface {
		Stop() error
	}

	// MachineOption adjusts NewMachine.
	MachineOption func(*machineOptions)

	machineOptions struct {
		cfg     *config.Config
		adapter persist.Adapter
		clock   clock.Clock
	}
)

// WithConfig lets fn edit the configuration before the machine is built.
func WithConfig(fn func(*config.Config)) MachineOption {
	return func(o *machineOptions) { fn(o.cfg) }
}

// WithAdapter shares a snapshot backend between machines.
func WithAdapter(a persist.Adapter) MachineOption {
	return func(o *machineOptions) { o.adapter = a }
}

// WithClock replaces the default fake clock.
func WithClock(c clock.Clock) MachineOption {
	return func(o *machineOptions) { o.clock = c }
}

// NewMachine builds a machine from the default configuration with the
// cheapest bcrypt cost, an in-memory backend and a fake clock. It is
// closed when the test ends.
func NewMachine(t testing.TB, opts ...MachineOption) *app.Machine {
	t.Helper()
	o := machineOptions{
		cfg:     config.DefaultConfig(),
		adapter: persist.NewMemory(),
		clock:   clock.NewFake(time.Time{}),
	}
	o.cfg.BcryptCost = 4
	for _, opt := range opts {
		opt(&o)
	}
	m, err := app.New(context.Background(), app.Options{Config: o.cfg, Adapter: o.adapter, Clock: o.clock})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	t.Cleanup(func() { MustClose(t, m) })
	return m
}

// MustClose closes the given io.Closer.
// The test fails if the close fails.
func MustClose(t testing.TB, c io.Closer) {
	t.Helper()
	if err := c.Close(); err != nil {
		t.Errorf("failed to close: %v", err)
	}
}

// MustStop stops the given Stopper (typically a server).
// Unlike MustClose, this logs errors but doesn't fail the test,
// as shutdown errors during cleanup are typically non-fatal.
func MustStop(t testing.TB, s Stopper) {
	t.Helper()
	if err := s.Stop(); err != nil {
		t.Logf("warning: stop returned error: %v", err)
	}
}
