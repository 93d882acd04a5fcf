// SPDX-License-Identifier: MPL-2.0

package vfs

import (
	"errors"
	"io/fs"

	"github.com/invowk/vshell/internal/identity"
	"github.com/invowk/vshell/pkg/vpath"
)

// WalkFunc visits one node. err is set when a directory could not be
// listed; its children are then not visited. Returning fs.SkipDir from a
// directory skips its children, any other error stops the walk.
type WalkFunc func(info Info, err error) error

type walkEntry struct {
	info Info
	err  error
}

// Walk visits p and everything below it in lexical pre-order. The entries
// are collected under the read lock and fn runs afterwards, so fn may call
// back into the store.
func (s *Store) Walk(id identity.Identity, p string, fn WalkFunc) error {
	p = vpath.Resolve(p, vpath.Root)

	s.mu.RLock()
	n, err := s.lookup(id, "access", p)
	if err != nil {
		s.mu.RUnlock()
		return err
	}
	var entries []walkEntry
	var collect func(n *node, path string)
	collect = func(n *node, path string) {
		e := walkEntry{info: n.info(path, vpath.Base(path))}
		if n.isDir() && (!n.can(id, Read) || !n.can(id, Execute)) {
			e.err = deniedAt("open directory", path, path)
			entries = append(entries, e)
			return
		}
		entries = append(entries, e)
		if n.isDir() {
			for _, name := range n.sortedNames() {
				collect(n.children[name], vpath.Join(path, name))
			}
		}
	}
	collect(n, p)
	s.mu.RUnlock()

	skip := ""
	for _, e := range entries {
		if skip != "" && vpath.HasPrefix(e.info.Path, skip) {
			continue
		}
		skip = ""
		if err := fn(e.info, e.err); err != nil {
			if errors.Is(err, fs.SkipDir) && e.info.IsDir() {
				skip = e.info.Path
				continue
			}
			return err
		}
	}
	return nil
}
