// SPDX-License-Identifier: MPL-2.0

// Package clock supplies the time source used for sudo timestamps, node
// mtimes and the sleep command. Production wiring uses Real; tests drive a
// Fake by hand.
package clock

import (
	"sync"
	"time"
)

type (
	// Clock is the time source consumed by the shell core.
	Clock interface {
		Now() time.Time
		// After delivers the clock's time once d has elapsed.
		After(d time.Duration) <-chan time.Time
	}

	// Real reads the system clock.
	Real struct{}

	// Fake only moves when Advance or Set is called.
	Fake struct {
		mu      sync.Mutex
		now     time.Time
		pending []timer
	}

	timer struct {
		due time.Time
		ch  chan time.Time
	}
)

// Now returns time.Now.
func (Real) Now() time.Time { return time.Now() }

// After returns time.After(d).
func (Real) After(d time.Duration) <-chan time.Time { return time.After(d) }

// NewFake returns a Fake starting at start, or at a fixed reference instant
// when start is zero.
func NewFake(start time.Time) *Fake {
	if start.IsZero() {
		start = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	}
	return &Fake{now: start}
}

// Now returns the fake instant.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// After registers a timer that fires once the fake time reaches now+d.
func (f *Fake) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- f.now
		return ch
	}
	f.pending = append(f.pending, timer{due: f.now.Add(d), ch: ch})
	return ch
}

// Advance moves the fake time forward and fires due timers.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
	f.fire()
}

// Set jumps to t and fires due timers.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
	f.fire()
}

// Pending reports how many timers have not fired yet.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// fire must be called with mu held.
func (f *Fake) fire() {
	kept := f.pending[:0]
	for _, t := range f.pending {
		if f.now.Before(t.due) {
			kept = append(kept, t)
			continue
		}
		t.ch <- f.now
	}
	f.pending = kept
}
