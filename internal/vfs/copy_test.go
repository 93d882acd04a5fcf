// SPDX-License-Identifier: MPL-2.0

package vfs

import (
	"errors"
	"slices"
	"testing"
	"time"
)

// setupMerge builds /tmp/src/{a.txt,b.txt,sub/c.txt} and a destination
// that already holds /tmp/dst/src/a.txt.
func setupMerge(t *testing.T) *Store {
	t.Helper()
	s, _, _ := newTestStore(t, 0)
	mustWrite(t, s, alice, "/tmp/src/a.txt", "new a")
	mustWrite(t, s, alice, "/tmp/src/b.txt", "new b")
	mustWrite(t, s, alice, "/tmp/src/sub/c.txt", "new c")
	mustWrite(t, s, alice, "/tmp/dst/src/a.txt", "old a")
	return s
}

func TestCopy_CollisionReportedSiblingsCopied(t *testing.T) {
	t.Parallel()

	s := setupMerge(t)
	report, err := s.Copy(alice, "/tmp/src", "/tmp/dst", CopyOptions{Recursive: true})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("Copy() error = %v, want ErrAlreadyExists", err)
	}
	var pe *PathError
	if !errors.As(err, &pe) || pe.Path != "/tmp/dst/src/a.txt" {
		t.Errorf("collision reported for %+v, want /tmp/dst/src/a.txt", pe)
	}
	if got := mustRead(t, s, alice, "/tmp/dst/src/a.txt"); got != "old a" {
		t.Errorf("a.txt = %q, want it left alone", got)
	}
	if got := mustRead(t, s, alice, "/tmp/dst/src/b.txt"); got != "new b" {
		t.Errorf("b.txt = %q, want copied", got)
	}
	if got := mustRead(t, s, alice, "/tmp/dst/src/sub/c.txt"); got != "new c" {
		t.Errorf("sub/c.txt = %q, want copied", got)
	}
	want := []string{"/tmp/dst/src/b.txt", "/tmp/dst/src/sub", "/tmp/dst/src/sub/c.txt"}
	if !slices.Equal(report.Copied, want) {
		t.Errorf("Copied = %v, want %v", report.Copied, want)
	}
}

func TestCopy_InteractiveAsksPerConflict(t *testing.T) {
	t.Parallel()

	s := setupMerge(t)
	mustWrite(t, s, alice, "/tmp/dst/src/b.txt", "old b")

	var asked []string
	confirm := func(p string) (bool, error) {
		asked = append(asked, p)
		return p == "/tmp/dst/src/b.txt", nil
	}
	report, err := s.Copy(alice, "/tmp/src", "/tmp/dst", CopyOptions{
		Recursive: true,
		Policy:    PolicyInteractive,
		Confirm:   confirm,
	})
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if want := []string{"/tmp/dst/src/a.txt", "/tmp/dst/src/b.txt"}; !slices.Equal(asked, want) {
		t.Errorf("confirm asked for %v, want %v", asked, want)
	}
	if got := mustRead(t, s, alice, "/tmp/dst/src/a.txt"); got != "old a" {
		t.Errorf("declined a.txt = %q, want old a", got)
	}
	if got := mustRead(t, s, alice, "/tmp/dst/src/b.txt"); got != "new b" {
		t.Errorf("accepted b.txt = %q, want new b", got)
	}
	if !slices.Contains(report.Skipped, "/tmp/dst/src/a.txt") {
		t.Errorf("Skipped = %v, want a.txt", report.Skipped)
	}
}

func TestCopy_ForceAndNoClobber(t *testing.T) {
	t.Parallel()

	s := setupMerge(t)
	if _, err := s.Copy(alice, "/tmp/src", "/tmp/dst", CopyOptions{Recursive: true, Policy: PolicyNoClobber}); err != nil {
		t.Fatalf("Copy(-n) error = %v", err)
	}
	if got := mustRead(t, s, alice, "/tmp/dst/src/a.txt"); got != "old a" {
		t.Errorf("-n a.txt = %q", got)
	}
	if _, err := s.Copy(alice, "/tmp/src", "/tmp/dst", CopyOptions{Recursive: true, Policy: PolicyForce}); err != nil {
		t.Fatalf("Copy(-f) error = %v", err)
	}
	if got := mustRead(t, s, alice, "/tmp/dst/src/a.txt"); got != "new a" {
		t.Errorf("-f a.txt = %q", got)
	}
}

func TestCopy_DirectoryNeedsRecursive(t *testing.T) {
	t.Parallel()

	s := setupMerge(t)
	if _, err := s.Copy(alice, "/tmp/src", "/tmp/elsewhere", CopyOptions{}); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Copy(dir) error = %v, want ErrTypeMismatch", err)
	}
	if _, err := s.Copy(alice, "/tmp/src", "/tmp/src/sub", CopyOptions{Recursive: true}); !errors.Is(err, ErrCycle) {
		t.Errorf("Copy(into itself) error = %v, want ErrCycle", err)
	}
}

func TestCopy_StampVersusPreserve(t *testing.T) {
	t.Parallel()

	s, _, clk := newTestStore(t, 0)
	mustWrite(t, s, alice, "/tmp/orig", "data")
	if err := s.Chmod(alice, "/tmp/orig", 0o600); err != nil {
		t.Fatal(err)
	}
	origInfo, _ := s.Stat(root, "/tmp/orig")
	clk.Advance(time.Hour)

	if _, err := s.Copy(root, "/tmp/orig", "/tmp/stamped", CopyOptions{}); err != nil {
		t.Fatal(err)
	}
	stamped, _ := s.Stat(root, "/tmp/stamped")
	if stamped.Owner != "root" || stamped.Mode != DefaultFileMode || !stamped.ModTime.Equal(clk.Now()) {
		t.Errorf("stamped copy = %+v", stamped)
	}

	if _, err := s.Copy(root, "/tmp/orig", "/tmp/kept", CopyOptions{Preserve: true}); err != nil {
		t.Fatal(err)
	}
	kept, _ := s.Stat(root, "/tmp/kept")
	if kept.Owner != "alice" || kept.Mode != 0o600 || !kept.ModTime.Equal(origInfo.ModTime) {
		t.Errorf("preserved copy = %+v, want %+v attrs", kept, origInfo)
	}
}

func TestCopy_UnreadableSourceReported(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestStore(t, 0)
	mustWrite(t, s, bob, "/tmp/pub/open.txt", "o")
	mustWrite(t, s, bob, "/tmp/pub/closed.txt", "c")
	if err := s.Chmod(bob, "/tmp/pub/closed.txt", 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := s.Copy(alice, "/tmp/pub", "/home/alice/pub", CopyOptions{Recursive: true})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("Copy() error = %v, want ErrPermissionDenied", err)
	}
	if got := mustRead(t, s, alice, "/home/alice/pub/open.txt"); got != "o" {
		t.Errorf("open.txt = %q", got)
	}
	if s.Exists(alice, "/home/alice/pub/closed.txt") {
		t.Error("unreadable file was copied")
	}
}

func TestMove(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestStore(t, 0)
	mustWrite(t, s, alice, "/tmp/m/one", "1")
	if err := s.Mkdir(alice, "/tmp/target", false); err != nil {
		t.Fatal(err)
	}

	if err := s.Move(alice, "/tmp/m", "/tmp/target", MoveOptions{}); err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if got := mustRead(t, s, alice, "/tmp/target/m/one"); got != "1" {
		t.Errorf("moved content = %q", got)
	}
	if s.Exists(alice, "/tmp/m") {
		t.Error("source still exists after move")
	}
	if err := s.Move(alice, "/tmp/target", "/tmp/target/m/inner", MoveOptions{}); !errors.Is(err, ErrCycle) {
		t.Errorf("Move(into itself) error = %v, want ErrCycle", err)
	}
	if err := s.Move(alice, "/etc/motd", "/tmp/motd", MoveOptions{}); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Move(out of /etc) error = %v, want ErrPermissionDenied", err)
	}
}

func TestMove_Policies(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestStore(t, 0)
	mustWrite(t, s, alice, "/tmp/a", "a")
	mustWrite(t, s, alice, "/tmp/b", "b")

	if err := s.Move(alice, "/tmp/a", "/tmp/b", MoveOptions{Policy: PolicyNoClobber}); err != nil {
		t.Fatal(err)
	}
	if got := mustRead(t, s, alice, "/tmp/b"); got != "b" {
		t.Errorf("-n overwrote b: %q", got)
	}

	declined := func(string) (bool, error) { return false, nil }
	if err := s.Move(alice, "/tmp/a", "/tmp/b", MoveOptions{Policy: PolicyInteractive, Confirm: declined}); err != nil {
		t.Fatal(err)
	}
	if !s.Exists(alice, "/tmp/a") {
		t.Error("declined move removed source")
	}

	if err := s.Move(alice, "/tmp/a", "/tmp/b", MoveOptions{Policy: PolicyForce}); err != nil {
		t.Fatal(err)
	}
	if got := mustRead(t, s, alice, "/tmp/b"); got != "a" {
		t.Errorf("forced move result = %q, want a", got)
	}
}
