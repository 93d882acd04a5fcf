// SPDX-License-Identifier: MPL-2.0

package vfs

import (
	"errors"
	"slices"
	"time"

	"github.com/invowk/vshell/internal/identity"
	"github.com/invowk/vshell/pkg/vpath"
)

// ConflictPolicy decides what happens when a copy or move target exists.
type ConflictPolicy uint8

const (
	// PolicyFail reports ErrAlreadyExists for the colliding item.
	PolicyFail ConflictPolicy = iota
	// PolicyForce overwrites, replacing unwritable files outright.
	PolicyForce
	// PolicyInteractive asks Confirm before each overwrite.
	PolicyInteractive
	// PolicyNoClobber skips colliding items silently.
	PolicyNoClobber
)

type (
	// ConfirmFunc is asked whether to overwrite path. It is called without
	// the store lock held, so it may block on user input.
	ConfirmFunc func(path string) (bool, error)

	// CopyOptions selects cp behavior.
	CopyOptions struct {
		Recursive bool
		Policy    ConflictPolicy
		Confirm   ConfirmFunc
		// Preserve keeps mode and mtime, and for root also owner and group.
		// Without it copies are stamped with the actor, the current time and
		// the default modes.
		Preserve bool
	}

	// MoveOptions selects mv behavior.
	MoveOptions struct {
		Policy  ConflictPolicy
		Confirm ConfirmFunc
	}

	// CopyReport lists the target paths that were written and skipped.
	CopyReport struct {
		Copied  []string
		Skipped []string
	}

	copyItem struct {
		src string
		dst string
		n   *node
		err error
	}

	outcome uint8
)

const (
	outcomeCopied outcome = iota
	outcomeMerged
	outcomeSkipped
	outcomeConfirm
)

// Copy copies src to dst. When dst is an existing directory the copy lands
// inside it under the source's base name. Directories need
// opts.Recursive. Each item is copied as its own atomic step; per-item
// failures (collisions, unreadable sources) are joined into the returned
// error while the remaining items are still copied.
func (s *Store) Copy(id identity.Identity, src, dst string, opts CopyOptions) (CopyReport, error) {
	src = vpath.Resolve(src, vpath.Root)
	dst = vpath.Resolve(dst, vpath.Root)

	items, err := s.planCopy(id, src, dst, opts.Recursive)
	if err != nil {
		return CopyReport{}, err
	}

	var (
		report CopyReport
		errs   []error
		failed []string
	)
	for _, it := range items {
		if slices.ContainsFunc(failed, func(f string) bool { return vpath.HasPrefix(it.dst, f) }) {
			continue
		}
		if it.err != nil {
			errs = append(errs, it.err)
			if it.n == nil {
				continue
			}
		}

		res, err := s.copyOne(id, it, opts, false)
		if res == outcomeConfirm {
			ok := false
			if opts.Confirm != nil {
				ok, err = opts.Confirm(it.dst)
			}
			if err != nil {
				return report, errors.Join(append(errs, err)...)
			}
			res = outcomeSkipped
			if ok {
				res, err = s.copyOne(id, it, opts, true)
			}
		}

		switch {
		case err != nil:
			errs = append(errs, err)
			if it.n.isDir() {
				failed = append(failed, it.dst)
			}
		case res == outcomeCopied:
			report.Copied = append(report.Copied, it.dst)
		case res == outcomeSkipped:
			report.Skipped = append(report.Skipped, it.dst)
		}
	}
	return report, errors.Join(errs...)
}

// planCopy snapshots the source subtree under the read lock and pairs every
// item with its target path, in pre-order.
func (s *Store) planCopy(id identity.Identity, src, dst string, recursive bool) ([]copyItem, error) {
	const op = "copy"
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, err := s.lookup(id, op, src)
	if err != nil {
		return nil, err
	}
	if n.isDir() && !recursive {
		return nil, mismatch(op, src, KindFile, KindDir)
	}

	target := dst
	if d, err := s.lookup(id, op, dst); err == nil && d.isDir() {
		target = vpath.Join(dst, vpath.Base(src))
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if target == src {
		return nil, pathErr(op, target, ErrAlreadyExists)
	}
	if n.isDir() && vpath.HasPrefix(target, src) {
		return nil, pathErr(op, target, ErrCycle)
	}

	var items []copyItem
	var collect func(n *node, srcPath, dstPath string)
	collect = func(n *node, srcPath, dstPath string) {
		shallow := *n
		shallow.children = nil
		shallow.content = slices.Clone(n.content)
		it := copyItem{src: srcPath, dst: dstPath, n: &shallow}

		if !n.isDir() {
			if !n.can(id, Read) {
				it.n, it.err = nil, deniedAt(op, srcPath, srcPath)
			}
			items = append(items, it)
			return
		}
		if !n.can(id, Read) || !n.can(id, Execute) {
			it.err = deniedAt(op, srcPath, srcPath)
			items = append(items, it)
			return
		}
		items = append(items, it)
		for _, name := range n.sortedNames() {
			collect(n.children[name], vpath.Join(srcPath, name), vpath.Join(dstPath, name))
		}
	}
	collect(n, src, target)
	return items, nil
}

func (s *Store) copyOne(id identity.Identity, it copyItem, opts CopyOptions, confirmed bool) (outcome, error) {
	const op = "copy"
	var res outcome
	err := s.mutate(func() ([]string, error) {
		parent, parentPath, err := s.lookupParent(id, op, it.dst)
		if err != nil {
			return nil, err
		}
		if !parent.can(id, Write) {
			return nil, deniedAt(op, it.dst, parentPath)
		}
		name := vpath.Base(it.dst)
		existing := parent.children[name]
		now := s.now()

		switch {
		case existing == nil:
			parent.children[name] = stamp(id, it.n, opts.Preserve, now)
			parent.mtime = now
			res = outcomeCopied
			return []string{it.dst}, nil
		case it.n.isDir():
			if !existing.isDir() {
				return nil, mismatch(op, it.dst, KindDir, KindFile)
			}
			res = outcomeMerged
			return nil, nil
		case existing.isDir():
			return nil, mismatch(op, it.dst, KindFile, KindDir)
		}

		switch opts.Policy {
		case PolicyFail:
			return nil, pathErr(op, it.dst, ErrAlreadyExists)
		case PolicyNoClobber:
			res = outcomeSkipped
			return nil, nil
		case PolicyInteractive:
			if !confirmed {
				res = outcomeConfirm
				return nil, nil
			}
		}

		switch {
		case existing.can(id, Write):
			existing.content = slices.Clone(it.n.content)
			existing.mtime = now
			if opts.Preserve {
				fresh := stamp(id, it.n, true, now)
				existing.owner, existing.group = fresh.owner, fresh.group
				existing.mode, existing.mtime = fresh.mode, fresh.mtime
			}
		case opts.Policy == PolicyForce:
			parent.children[name] = stamp(id, it.n, opts.Preserve, now)
		default:
			return nil, deniedAt(op, it.dst, it.dst)
		}
		res = outcomeCopied
		return []string{it.dst}, nil
	})
	return res, err
}

// stamp builds the node a copy inserts. Directory copies start empty; their
// children arrive as separate items.
func stamp(id identity.Identity, src *node, preserve bool, now time.Time) *node {
	var n *node
	if src.isDir() {
		n = newDir(id.Name, id.PrimaryGroup, DefaultDirMode, now)
	} else {
		n = newFile(id.Name, id.PrimaryGroup, DefaultFileMode, now, slices.Clone(src.content))
	}
	if preserve {
		n.mode, n.mtime = src.mode, src.mtime
		if id.IsRoot() {
			n.owner, n.group = src.owner, src.group
		}
	}
	return n
}

// Move renames src to dst, moving it inside dst when dst is an existing
// directory. It needs write on both parent directories. Node metadata moves
// with the node.
func (s *Store) Move(id identity.Identity, src, dst string, opts MoveOptions) error {
	src = vpath.Resolve(src, vpath.Root)
	dst = vpath.Resolve(dst, vpath.Root)

	res, target, err := s.moveOnce(id, src, dst, opts.Policy, false)
	if res != outcomeConfirm {
		return err
	}
	ok := false
	if opts.Confirm != nil {
		if ok, err = opts.Confirm(target); err != nil {
			return err
		}
	}
	if !ok {
		return nil
	}
	_, _, err = s.moveOnce(id, src, dst, opts.Policy, true)
	return err
}

func (s *Store) moveOnce(id identity.Identity, src, dst string, policy ConflictPolicy, confirmed bool) (outcome, string, error) {
	const op = "move"
	var res outcome
	target := dst
	err := s.mutate(func() ([]string, error) {
		if src == vpath.Root {
			return nil, pathErr(op, src, ErrRootTarget)
		}
		srcParent, srcParentPath, err := s.lookupParent(id, op, src)
		if err != nil {
			return nil, err
		}
		srcName := vpath.Base(src)
		n, ok := srcParent.children[srcName]
		if !ok {
			return nil, pathErr(op, src, ErrNotFound)
		}
		if !srcParent.can(id, Write) {
			return nil, deniedAt(op, src, srcParentPath)
		}

		if d, err := s.lookup(id, op, dst); err == nil && d.isDir() {
			target = vpath.Join(dst, srcName)
		} else if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if target == src {
			return nil, nil
		}
		if n.isDir() && vpath.HasPrefix(target, src) {
			return nil, pathErr(op, target, ErrCycle)
		}

		dstParent, dstParentPath, err := s.lookupParent(id, op, target)
		if err != nil {
			return nil, err
		}
		if !dstParent.can(id, Write) {
			return nil, deniedAt(op, target, dstParentPath)
		}
		dstName := vpath.Base(target)
		if existing, ok := dstParent.children[dstName]; ok {
			switch {
			case existing.isDir() && !n.isDir():
				return nil, mismatch(op, target, KindFile, KindDir)
			case !existing.isDir() && n.isDir():
				return nil, mismatch(op, target, KindDir, KindFile)
			case existing.isDir() && len(existing.children) > 0:
				return nil, pathErr(op, target, ErrNotEmpty)
			}
			switch policy {
			case PolicyFail:
				return nil, pathErr(op, target, ErrAlreadyExists)
			case PolicyNoClobber:
				res = outcomeSkipped
				return nil, nil
			case PolicyInteractive:
				if !confirmed {
					res = outcomeConfirm
					return nil, nil
				}
			}
		}

		now := s.now()
		delete(srcParent.children, srcName)
		dstParent.children[dstName] = n
		srcParent.mtime, dstParent.mtime = now, now
		return []string{src, target}, nil
	})
	return res, target, err
}
