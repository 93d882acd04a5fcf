// SPDX-License-Identifier: MPL-2.0

package vfs

import (
	"errors"
	"io/fs"
	"slices"
	"testing"
)

func TestFS_ReadAndGlob(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestStore(t, 0)
	mustWrite(t, s, alice, "/tmp/a.txt", "A")
	mustWrite(t, s, alice, "/tmp/b.txt", "B")
	mustWrite(t, s, alice, "/tmp/c.log", "C")

	fsys := s.FS(alice)
	data, err := fs.ReadFile(fsys, "tmp/a.txt")
	if err != nil || string(data) != "A" {
		t.Fatalf("fs.ReadFile() = %q, %v", data, err)
	}
	matches, err := fs.Glob(fsys, "tmp/*.txt")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"tmp/a.txt", "tmp/b.txt"}; !slices.Equal(matches, want) {
		t.Errorf("fs.Glob() = %v, want %v", matches, want)
	}

	if _, err := fs.ReadDir(s.FS(bob), "home/alice"); !errors.Is(err, fs.ErrPermission) {
		t.Errorf("ReadDir(bob, alice home) error = %v, want fs.ErrPermission", err)
	}
	if _, err := fs.Stat(fsys, "tmp/zzz"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Stat(missing) error = %v, want fs.ErrNotExist", err)
	}
	if _, err := fsys.Open("/tmp"); err == nil {
		t.Error("Open() of a rooted name should fail")
	}
}

func TestWalk(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestStore(t, 0)
	mustWrite(t, s, alice, "/tmp/w/x", "")
	mustWrite(t, s, alice, "/tmp/w/skip/y", "")
	mustWrite(t, s, alice, "/tmp/w/z", "")

	var seen []string
	err := s.Walk(alice, "/tmp/w", func(inf Info, err error) error {
		if err != nil {
			return err
		}
		seen = append(seen, inf.Path)
		if inf.Name == "skip" {
			return fs.SkipDir
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	want := []string{"/tmp/w", "/tmp/w/skip", "/tmp/w/x", "/tmp/w/z"}
	if !slices.Equal(seen, want) {
		t.Errorf("Walk() visited %v, want %v", seen, want)
	}

	var denied int
	_ = s.Walk(bob, "/home", func(inf Info, err error) error {
		if errors.Is(err, ErrPermissionDenied) {
			denied++
		}
		return nil
	})
	if denied != 2 {
		t.Errorf("denied directories = %d, want 2 (alice and carol homes)", denied)
	}
}
