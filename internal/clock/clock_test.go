// SPDX-License-Identifier: MPL-2.0

package clock

import (
	"testing"
	"time"
)

func TestFake_AfterFiresOnAdvance(t *testing.T) {
	t.Parallel()

	f := NewFake(time.Time{})
	ch := f.After(5 * time.Second)

	f.Advance(4 * time.Second)
	select {
	case <-ch:
		t.Fatal("timer fired early")
	default:
	}
	if got := f.Pending(); got != 1 {
		t.Fatalf("Pending() = %d, want 1", got)
	}

	f.Advance(time.Second)
	select {
	case got := <-ch:
		if want := f.Now(); !got.Equal(want) {
			t.Errorf("fired at %v, want %v", got, want)
		}
	default:
		t.Fatal("timer did not fire")
	}
	if got := f.Pending(); got != 0 {
		t.Errorf("Pending() = %d, want 0", got)
	}
}

func TestFake_AfterNonPositive(t *testing.T) {
	t.Parallel()

	f := NewFake(time.Time{})
	select {
	case <-f.After(0):
	default:
		t.Fatal("After(0) should fire immediately")
	}
}

func TestFake_Set(t *testing.T) {
	t.Parallel()

	start := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)
	ch := f.After(time.Hour)
	f.Set(start.Add(2 * time.Hour))

	select {
	case <-ch:
	default:
		t.Fatal("timer did not fire after Set")
	}
}
