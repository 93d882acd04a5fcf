// SPDX-License-Identifier: MPL-2.0

package vfs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/invowk/vshell/internal/clock"
	"github.com/invowk/vshell/internal/identity"
	"github.com/invowk/vshell/internal/persist"
)

var (
	root  = identity.Root()
	alice = identity.Identity{Name: "alice", PrimaryGroup: "alice", Groups: []string{"wheel"}}
	bob   = identity.Identity{Name: "bob", PrimaryGroup: "bob", Groups: []string{"dev"}}
	carol = identity.Identity{Name: "carol", PrimaryGroup: "carol", Groups: []string{"dev"}}
)

// flakyAdapter wraps a Memory adapter and fails saves on demand.
type flakyAdapter struct {
	*persist.Memory
	mu       sync.Mutex
	failSave bool
}

func (f *flakyAdapter) Save(ctx context.Context, key string, data []byte) error {
	f.mu.Lock()
	fail := f.failSave
	f.mu.Unlock()
	if fail {
		return errors.New("disk on fire")
	}
	return f.Memory.Save(ctx, key, data)
}

func (f *flakyAdapter) setFailSave(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failSave = v
}

// newTestStore returns a loaded, committed store with homes for alice, bob
// and carol.
func newTestStore(t *testing.T, quota int64) (*Store, *flakyAdapter, *clock.Fake) {
	t.Helper()
	adapter := &flakyAdapter{Memory: persist.NewMemory()}
	clk := clock.NewFake(time.Time{})
	s := New(Options{
		Quota:   quota,
		Adapter: adapter,
		Clock:   clk,
		Seed: Seed{
			Users: []string{"alice", "bob", "carol"},
			Files: []SeedFile{{Path: "/etc/motd", Content: "welcome\n"}},
		},
	})
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := s.Commit(context.Background()); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	return s, adapter, clk
}

func mustWrite(t *testing.T, s *Store, id identity.Identity, p, content string) {
	t.Helper()
	if err := s.WriteFile(id, p, []byte(content)); err != nil {
		t.Fatalf("WriteFile(%s, %q) error = %v", id.Name, p, err)
	}
}

func mustRead(t *testing.T, s *Store, id identity.Identity, p string) string {
	t.Helper()
	data, err := s.ReadFile(id, p)
	if err != nil {
		t.Fatalf("ReadFile(%s, %q) error = %v", id.Name, p, err)
	}
	return string(data)
}
