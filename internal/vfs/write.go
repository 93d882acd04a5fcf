// SPDX-License-Identifier: MPL-2.0

package vfs

import (
	"slices"
	"time"

	"github.com/invowk/vshell/internal/identity"
	"github.com/invowk/vshell/pkg/vpath"
)

// WriteFile creates or truncates the file at p with content.
//
// An existing file needs write permission. A missing file is created along
// with any missing ancestor directories, each owned by id with
// DefaultDirMode, provided the nearest existing ancestor grants write. The
// whole call is checked before anything changes, so a failure leaves the
// tree untouched.
func (s *Store) WriteFile(id identity.Identity, p string, content []byte) error {
	return s.put(id, "write", p, content, false)
}

// AppendFile appends content to the file at p, creating it like WriteFile
// when missing.
func (s *Store) AppendFile(id identity.Identity, p string, content []byte) error {
	return s.put(id, "append to", p, content, true)
}

// CheckWrite reports whether WriteFile or AppendFile on p would pass its
// type and permission checks, without changing anything.
func (s *Store) CheckWrite(id identity.Identity, op, p string) error {
	p = vpath.Resolve(p, vpath.Root)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, _, err := s.checkPut(id, op, p)
	return err
}

// checkPut walks to p and returns the deepest existing node and how many
// segments it consumed, failing the way put would.
func (s *Store) checkPut(id identity.Identity, op, p string) (*node, int, error) {
	if p == vpath.Root {
		return nil, 0, mismatch(op, p, KindFile, KindDir)
	}
	segs := vpath.Split(p)
	n, at, depth, err := s.walk(id, op, p, segs)
	if err != nil {
		return nil, 0, err
	}
	if depth == len(segs) {
		if n.isDir() {
			return nil, 0, mismatch(op, p, KindFile, KindDir)
		}
		if !n.can(id, Write) {
			return nil, 0, deniedAt(op, p, p)
		}
		return n, depth, nil
	}
	if !n.can(id, Write) {
		return nil, 0, deniedAt(op, p, at)
	}
	return n, depth, nil
}

func (s *Store) put(id identity.Identity, op, p string, content []byte, appendMode bool) error {
	p = vpath.Resolve(p, vpath.Root)
	return s.mutate(func() ([]string, error) {
		n, depth, err := s.checkPut(id, op, p)
		if err != nil {
			return nil, err
		}
		segs := vpath.Split(p)
		now := s.now()

		if depth == len(segs) {
			if appendMode {
				n.content = append(slices.Clip(n.content), content...)
			} else {
				n.content = slices.Clone(content)
			}
			n.mtime = now
			return []string{p}, nil
		}

		created := s.createChain(id, n, segs[depth:len(segs)-1], now)
		created.children[segs[len(segs)-1]] = newFile(id.Name, id.PrimaryGroup, DefaultFileMode, now, slices.Clone(content))
		n.mtime = now
		return []string{p}, nil
	})
}

// createChain inserts a directory per name below parent and returns the
// deepest one. Callers have already checked write on parent.
func (s *Store) createChain(id identity.Identity, parent *node, names []string, now time.Time) *node {
	cur := parent
	for _, name := range names {
		d := newDir(id.Name, id.PrimaryGroup, DefaultDirMode, now)
		cur.children[name] = d
		cur = d
	}
	return cur
}

// Mkdir creates the directory at p. With parents set, missing ancestors are
// created and an existing directory is not an error.
func (s *Store) Mkdir(id identity.Identity, p string, parents bool) error {
	const op = "create directory"
	p = vpath.Resolve(p, vpath.Root)
	return s.mutate(func() ([]string, error) {
		segs := vpath.Split(p)
		n, at, depth, err := s.walk(id, op, p, segs)
		if err != nil {
			return nil, err
		}
		if depth == len(segs) {
			if parents && n.isDir() {
				return nil, nil
			}
			return nil, pathErr(op, p, ErrAlreadyExists)
		}
		if !parents && depth < len(segs)-1 {
			return nil, pathErr(op, p, ErrNotFound)
		}
		if !n.can(id, Write) {
			return nil, deniedAt(op, p, at)
		}
		now := s.now()
		s.createChain(id, n, segs[depth:], now)
		n.mtime = now
		return []string{p}, nil
	})
}

// Touch updates the mtime of p, creating an empty file when it is missing.
// Unlike WriteFile it never creates ancestors.
func (s *Store) Touch(id identity.Identity, p string) error {
	const op = "touch"
	p = vpath.Resolve(p, vpath.Root)
	return s.mutate(func() ([]string, error) {
		segs := vpath.Split(p)
		n, at, depth, err := s.walk(id, op, p, segs)
		if err != nil {
			return nil, err
		}
		now := s.now()
		switch {
		case depth == len(segs):
			if !n.can(id, Write) && n.owner != id.Name {
				return nil, deniedAt(op, p, p)
			}
			n.mtime = now
		case depth < len(segs)-1:
			return nil, pathErr(op, p, ErrNotFound)
		default:
			if !n.can(id, Write) {
				return nil, deniedAt(op, p, at)
			}
			n.children[segs[depth]] = newFile(id.Name, id.PrimaryGroup, DefaultFileMode, now, nil)
			n.mtime = now
		}
		return []string{p}, nil
	})
}

// Chmod sets the permission bits of p. Only the owner and root may do so.
func (s *Store) Chmod(id identity.Identity, p string, mode Mode) error {
	const op = "change permissions of"
	p = vpath.Resolve(p, vpath.Root)
	return s.mutate(func() ([]string, error) {
		n, err := s.lookup(id, op, p)
		if err != nil {
			return nil, err
		}
		if !id.IsRoot() && n.owner != id.Name {
			return nil, deniedAt(op, p, p)
		}
		n.mode = mode.Perm()
		return []string{p}, nil
	})
}

// Chown changes owner and group of p; an empty value keeps the current one.
// Only root may change the owner. The owner may change the group to one it
// belongs to.
func (s *Store) Chown(id identity.Identity, p, owner, group string) error {
	const op = "change ownership of"
	p = vpath.Resolve(p, vpath.Root)
	return s.mutate(func() ([]string, error) {
		n, err := s.lookup(id, op, p)
		if err != nil {
			return nil, err
		}
		if !id.IsRoot() {
			if owner != "" && owner != n.owner {
				return nil, deniedAt(op, p, p)
			}
			if group != "" && (n.owner != id.Name || !id.InGroup(group)) {
				return nil, deniedAt(op, p, p)
			}
		}
		if owner != "" {
			n.owner = owner
		}
		if group != "" {
			n.group = group
		}
		return []string{p}, nil
	})
}
