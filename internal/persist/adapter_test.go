// SPDX-License-Identifier: MPL-2.0

package persist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// exerciseAdapter runs the behavior every backend must share.
func exerciseAdapter(t *testing.T, a Adapter) {
	t.Helper()
	ctx := context.Background()

	if _, err := a.Load(ctx, "missing.json"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load(missing) error = %v, want ErrNotFound", err)
	}
	if err := a.Save(ctx, "vfs.json", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := a.Save(ctx, "vfs.json", []byte(`{"v":2}`)); err != nil {
		t.Fatalf("Save(overwrite) error = %v", err)
	}
	got, err := a.Load(ctx, "vfs.json")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(got) != `{"v":2}` {
		t.Errorf("Load() = %q, want %q", got, `{"v":2}`)
	}
}

func TestMemory(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	exerciseAdapter(t, m)
	if got := m.Saves(); got != 2 {
		t.Errorf("Saves() = %d, want 2", got)
	}
}

func TestMemory_LoadReturnsCopy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory()
	if err := m.Save(ctx, "k", []byte("abc")); err != nil {
		t.Fatal(err)
	}
	got, _ := m.Load(ctx, "k")
	got[0] = 'X'
	again, _ := m.Load(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored blob changed to %q", again)
	}
}

func TestMemory_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewMemory().Save(ctx, "k", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Save() error = %v, want context.Canceled", err)
	}
}

func TestFile(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "state")
	f, err := NewFile(dir)
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}
	exerciseAdapter(t, f)

	if _, err := os.Stat(filepath.Join(dir, "vfs.json")); err != nil {
		t.Errorf("snapshot file missing: %v", err)
	}
	if err := f.Save(context.Background(), "../escape", nil); err == nil {
		t.Error("Save() with a path key should fail")
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	a, closer, err := Open(ctx, Spec{Backend: BackendFile, FileDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open(file) error = %v", err)
	}
	defer closer.Close()
	if _, ok := a.(*File); !ok {
		t.Errorf("Open(file) = %T, want *File", a)
	}

	if _, _, err := Open(ctx, Spec{Backend: "floppy"}); err == nil {
		t.Error("Open(unknown) should fail")
	}
	if _, _, err := Open(ctx, Spec{Backend: BackendS3}); err == nil {
		t.Error("Open(s3) without bucket should fail")
	}
}
