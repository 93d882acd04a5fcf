// SPDX-License-Identifier: MPL-2.0

package vfs

import (
	"errors"

	"github.com/invowk/vshell/internal/identity"
	"github.com/invowk/vshell/pkg/vpath"
)

// RemoveOptions selects rm/rmdir behavior.
type RemoveOptions struct {
	// Recursive allows removing a directory and everything below it.
	Recursive bool
	// Force makes a missing target, or one hidden behind an untraversable
	// directory, a silent no-op.
	Force bool
	// DirOnly removes only empty directories (rmdir).
	DirOnly bool
}

// Remove unlinks p. It needs write and execute on the parent directory,
// not on p itself. A recursive removal first checks that every directory in
// the subtree can be emptied by id and only then unlinks, so a denial deep
// in the tree leaves everything in place.
func (s *Store) Remove(id identity.Identity, p string, opts RemoveOptions) error {
	const op = "remove"
	p = vpath.Resolve(p, vpath.Root)
	return s.mutate(func() ([]string, error) {
		if p == vpath.Root {
			return nil, pathErr(op, p, ErrRootTarget)
		}
		parent, parentPath, err := s.lookupParent(id, op, p)
		if err != nil {
			if opts.Force && (errors.Is(err, ErrNotFound) || errors.Is(err, ErrPermissionDenied)) {
				return nil, nil
			}
			return nil, err
		}
		name := vpath.Base(p)
		target, ok := parent.children[name]
		if !ok {
			if opts.Force {
				return nil, nil
			}
			return nil, pathErr(op, p, ErrNotFound)
		}
		if !parent.can(id, Write) {
			return nil, deniedAt(op, p, parentPath)
		}

		switch {
		case opts.DirOnly && !target.isDir():
			return nil, mismatch(op, p, KindDir, KindFile)
		case opts.DirOnly && len(target.children) > 0:
			return nil, pathErr(op, p, ErrNotEmpty)
		case target.isDir() && !opts.DirOnly && !opts.Recursive:
			return nil, mismatch(op, p, KindFile, KindDir)
		case target.isDir() && opts.Recursive:
			if err := planRemoval(id, target, p); err != nil {
				return nil, err
			}
		}

		delete(parent.children, name)
		parent.mtime = s.now()
		return []string{p}, nil
	})
}

// planRemoval checks, depth-first, that id may list and unlink the
// contents of every non-empty directory under dir.
func planRemoval(id identity.Identity, dir *node, dirPath string) error {
	if len(dir.children) == 0 {
		return nil
	}
	if !dir.can(id, Read) || !dir.can(id, Write) || !dir.can(id, Execute) {
		return deniedAt("remove", dirPath, dirPath)
	}
	for _, name := range dir.sortedNames() {
		child := dir.children[name]
		if child.isDir() {
			if err := planRemoval(id, child, vpath.Join(dirPath, name)); err != nil {
				return err
			}
		}
	}
	return nil
}
