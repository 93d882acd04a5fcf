// SPDX-License-Identifier: MPL-2.0

package sshserver

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

const (
	StateCreated State = iota
	StateStarting
	StateRunning
	StateStopping
	StateStopped
	StateFailed
)

type (
	// State is a point in the server lifecycle. A server moves forward only;
	// Stopped and Failed are terminal.
	State int32

	// lifecycle holds the atomic state machine and the goroutine
	// bookkeeping shared by Start, Stop and Wait.
	lifecycle struct {
		state atomic.Int32

		mu      sync.Mutex
		lastErr error

		ctx       context.Context
		cancel    context.CancelFunc
		wg        sync.WaitGroup
		startedCh chan struct{}
		errCh     chan error
	}
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateStopped || s == StateFailed
}

func newLifecycle() *lifecycle {
	l := &lifecycle{
		startedCh: make(chan struct{}),
		errCh:     make(chan error, 1),
	}
	l.state.Store(int32(StateCreated))
	return l
}

func (l *lifecycle) current() State {
	return State(l.state.Load())
}

func (l *lifecycle) err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

// starting moves Created to Starting. A done ctx fails the server.
func (l *lifecycle) starting(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		l.fail(fmt.Errorf("context cancelled before start: %w", err))
		return l.err()
	}
	if !l.state.CompareAndSwap(int32(StateCreated), int32(StateStarting)) {
		return fmt.Errorf("cannot start server in state %s", l.current())
	}
	l.ctx, l.cancel = context.WithCancel(context.Background())
	return nil
}

func (l *lifecycle) running() {
	if l.state.CompareAndSwap(int32(StateStarting), int32(StateRunning)) {
		close(l.startedCh)
	}
}

func (l *lifecycle) fail(err error) {
	l.mu.Lock()
	l.lastErr = err
	l.mu.Unlock()
	l.state.Store(int32(StateFailed))
	if l.cancel != nil {
		l.cancel()
	}
	l.send(err)
}

// stopping reports whether the caller won the right to shut down. A server
// that never started is marked stopped directly.
func (l *lifecycle) stopping() bool {
	for {
		cur := l.current()
		switch cur {
		case StateCreated:
			if l.state.CompareAndSwap(int32(cur), int32(StateStopped)) {
				return false
			}
		case StateStarting, StateRunning:
			if l.state.CompareAndSwap(int32(cur), int32(StateStopping)) {
				if l.cancel != nil {
					l.cancel()
				}
				return true
			}
		default:
			return false
		}
	}
}

func (l *lifecycle) stopped() {
	l.state.Store(int32(StateStopped))
	close(l.errCh)
}

// send reports a runtime error without blocking.
func (l *lifecycle) send(err error) {
	select {
	case l.errCh <- err:
	default:
	}
}
