// SPDX-License-Identifier: MPL-2.0

package vfs

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"time"

	"github.com/invowk/vshell/internal/identity"
)

type (
	// viewFS is a read-only io/fs view of the store as seen by one identity.
	viewFS struct {
		s  *Store
		id identity.Identity
	}

	fileInfo struct{ inf Info }

	dirEntry struct{ inf Info }

	openFile struct {
		inf     Info
		r       *bytes.Reader
		entries []fs.DirEntry
	}
)

// FS returns an io/fs view of the tree that honors id's permissions. Names
// follow io/fs rules: unrooted and slash separated, "." being the root.
func (s *Store) FS(id identity.Identity) fs.FS {
	return viewFS{s: s, id: id}
}

func toVPath(op, name string) (string, error) {
	if !fs.ValidPath(name) {
		return "", &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}
	if name == "." {
		return "/", nil
	}
	return "/" + name, nil
}

// fsErr maps store errors onto the io/fs sentinels.
func fsErr(op, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		err = fs.ErrNotExist
	case errors.Is(err, ErrPermissionDenied):
		err = fs.ErrPermission
	}
	return &fs.PathError{Op: op, Path: name, Err: err}
}

func (v viewFS) Stat(name string) (fs.FileInfo, error) {
	p, err := toVPath("stat", name)
	if err != nil {
		return nil, err
	}
	inf, err := v.s.Stat(v.id, p)
	if err != nil {
		return nil, fsErr("stat", name, err)
	}
	return fileInfo{inf}, nil
}

func (v viewFS) ReadDir(name string) ([]fs.DirEntry, error) {
	p, err := toVPath("readdir", name)
	if err != nil {
		return nil, err
	}
	infos, err := v.s.ReadDir(v.id, p)
	if err != nil {
		return nil, fsErr("readdir", name, err)
	}
	out := make([]fs.DirEntry, len(infos))
	for i, inf := range infos {
		out[i] = dirEntry{inf}
	}
	return out, nil
}

func (v viewFS) Open(name string) (fs.File, error) {
	p, err := toVPath("open", name)
	if err != nil {
		return nil, err
	}
	inf, err := v.s.Stat(v.id, p)
	if err != nil {
		return nil, fsErr("open", name, err)
	}
	if inf.IsDir() {
		entries, err := v.ReadDir(name)
		if err != nil {
			return nil, err
		}
		return &openFile{inf: inf, entries: entries}, nil
	}
	data, err := v.s.ReadFile(v.id, p)
	if err != nil {
		return nil, fsErr("open", name, err)
	}
	return &openFile{inf: inf, r: bytes.NewReader(data)}, nil
}

func (f fileInfo) Name() string       { return f.inf.Name }
func (f fileInfo) Size() int64        { return f.inf.Size }
func (f fileInfo) Mode() fs.FileMode  { return f.inf.FileMode() }
func (f fileInfo) ModTime() time.Time { return f.inf.ModTime }
func (f fileInfo) IsDir() bool        { return f.inf.IsDir() }
func (f fileInfo) Sys() any           { return f.inf }

func (d dirEntry) Name() string               { return d.inf.Name }
func (d dirEntry) IsDir() bool                { return d.inf.IsDir() }
func (d dirEntry) Type() fs.FileMode          { return d.inf.FileMode().Type() }
func (d dirEntry) Info() (fs.FileInfo, error) { return fileInfo(d), nil }

func (f *openFile) Stat() (fs.FileInfo, error) { return fileInfo{f.inf}, nil }
func (f *openFile) Close() error               { return nil }

func (f *openFile) Read(b []byte) (int, error) {
	if f.r == nil {
		return 0, &fs.PathError{Op: "read", Path: f.inf.Path, Err: fs.ErrInvalid}
	}
	return f.r.Read(b)
}

// ReadDir implements fs.ReadDirFile.
func (f *openFile) ReadDir(n int) ([]fs.DirEntry, error) {
	if f.r != nil {
		return nil, &fs.PathError{Op: "readdir", Path: f.inf.Path, Err: fs.ErrInvalid}
	}
	if n <= 0 {
		out := f.entries
		f.entries = nil
		return out, nil
	}
	if len(f.entries) == 0 {
		return nil, io.EOF
	}
	n = min(n, len(f.entries))
	out := f.entries[:n]
	f.entries = f.entries[n:]
	return out, nil
}
