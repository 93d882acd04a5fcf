// SPDX-License-Identifier: MPL-2.0

package sudoers

import (
	"context"
	"testing"
	"time"

	"github.com/invowk/vshell/internal/clock"
	"github.com/invowk/vshell/internal/identity"
	"github.com/invowk/vshell/internal/vfs"
)

var (
	alice = identity.Identity{Name: "alice", PrimaryGroup: "alice"}
	bob   = identity.Identity{Name: "bob", PrimaryGroup: "bob", Groups: []string{"dev", "wheel"}}
	eve   = identity.Identity{Name: "eve", PrimaryGroup: "eve"}
)

func newEngine(t *testing.T, policy string) (*Engine, *vfs.Store, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(time.Time{})
	store := vfs.New(vfs.Options{
		Clock: clk,
		Seed:  vfs.Seed{Files: []vfs.SeedFile{{Path: DefaultPath, Content: policy, Mode: 0o440}}},
	})
	if err := store.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	e := NewEngine(store, DefaultPath, clk, nil)
	store.OnChange(e.Hook())
	return e, store, clk
}

func TestEngine_Authorize(t *testing.T) {
	t.Parallel()

	e, _, _ := newEngine(t, "alice ALL\nbob whoami\n%dev ls\n%wheel ALL\n")
	tests := []struct {
		id      identity.Identity
		command string
		want    bool
	}{
		{identity.Root(), "anything", true},
		{alice, "rm", true},
		{bob, "whoami", true},
		{bob, "ls", false},
		{eve, "ls", false},
	}
	for _, tt := range tests {
		got, err := e.Authorize(tt.id, tt.command)
		if err != nil {
			t.Fatalf("Authorize() error = %v", err)
		}
		if got != tt.want {
			t.Errorf("Authorize(%s, %s) = %v, want %v", tt.id.Name, tt.command, got, tt.want)
		}
	}
}

func TestEngine_FirstGroupRuleInFileOrderWins(t *testing.T) {
	t.Parallel()

	e, _, _ := newEngine(t, "%dev ls\n%wheel ALL\n")
	carol := identity.Identity{Name: "carol", PrimaryGroup: "carol", Groups: []string{"wheel", "dev"}}
	if ok, _ := e.Authorize(carol, "rm"); ok {
		t.Error("the dev group rule comes first and should decide")
	}
	rules, _ := e.Rules(carol)
	if len(rules) != 2 {
		t.Errorf("Rules() = %+v, want both group rules", rules)
	}
}

func TestEngine_EditInvalidatesCache(t *testing.T) {
	t.Parallel()

	e, store, _ := newEngine(t, "alice ls\n")
	if ok, _ := e.Authorize(alice, "rm"); ok {
		t.Fatal("alice should not be allowed rm yet")
	}
	if ok, _ := e.Authorize(alice, "ls"); !ok {
		t.Fatal("alice should be allowed ls")
	}
	if got := e.Parses(); got != 1 {
		t.Errorf("Parses() = %d, want cached after first parse", got)
	}

	if err := store.WriteFile(identity.Root(), DefaultPath, []byte("alice ALL\n")); err != nil {
		t.Fatal(err)
	}
	if ok, _ := e.Authorize(alice, "rm"); !ok {
		t.Error("edited policy was not picked up")
	}
	if got := e.Parses(); got != 2 {
		t.Errorf("Parses() = %d, want 2", got)
	}

	if err := store.Remove(identity.Root(), "/etc", vfs.RemoveOptions{Recursive: true}); err != nil {
		t.Fatal(err)
	}
	if ok, _ := e.Authorize(alice, "rm"); ok {
		t.Error("removing the policy file should deny everyone")
	}
}

func TestEngine_Timestamps(t *testing.T) {
	t.Parallel()

	e, _, clk := newEngine(t, "Defaults timestamp_timeout=15\nalice ALL\n")
	if ok, _ := e.IsTimestampValid(alice); ok {
		t.Fatal("no elevation yet, timestamp should be invalid")
	}
	e.RecordSuccess(alice)
	clk.Advance(14 * time.Minute)
	if ok, _ := e.IsTimestampValid(alice); !ok {
		t.Error("timestamp should cover 14 minutes")
	}
	clk.Advance(time.Minute)
	if ok, _ := e.IsTimestampValid(alice); ok {
		t.Error("timestamp should expire at the timeout")
	}

	e.RecordSuccess(alice)
	e.Clear(alice)
	if ok, _ := e.IsTimestampValid(alice); ok {
		t.Error("cleared timestamp should be invalid")
	}
}

func TestEngine_ZeroTimeoutAlwaysPrompts(t *testing.T) {
	t.Parallel()

	e, _, _ := newEngine(t, "Defaults timestamp_timeout=0\nalice ALL\n")
	e.RecordSuccess(alice)
	if ok, _ := e.IsTimestampValid(alice); ok {
		t.Error("zero timeout should never accept a timestamp")
	}
}
