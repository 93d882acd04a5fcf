// SPDX-License-Identifier: MPL-2.0

package vfs

import (
	"context"
	"errors"

	"github.com/invowk/vshell/internal/persist"
	"github.com/invowk/vshell/pkg/vpath"
)

// Load replaces the tree with the adapter's snapshot. When the adapter has
// none, the seed is applied and the store is left dirty so the first Commit
// writes it out.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.adapter.Load(ctx, s.key)
	seeded := false
	switch {
	case errors.Is(err, persist.ErrNotFound):
		seeded = true
	case err != nil:
		return &PersistError{Op: "load", Key: s.key, Err: err}
	}

	s.mu.Lock()
	var root *node
	if seeded {
		root = s.seed.build(s.now())
		data, err = encodeTree(root)
	} else {
		root, err = decodeTree(data)
	}
	if err != nil {
		s.mu.Unlock()
		return &PersistError{Op: "load", Key: s.key, Err: err}
	}
	s.root = root
	s.durable = data
	s.dirty = seeded
	s.mu.Unlock()

	s.log.Info("filesystem loaded", "key", s.key, "seeded", seeded, "bytes", root.size())
	s.notify(vpath.Root)
	return nil
}

// Commit makes uncommitted changes durable. The quota is checked first; a
// tree over quota is not saved. On a quota or persistence failure the whole
// tree is rolled back to the last durable snapshot, discarding every change
// since, and the error is returned. A clean store commits nothing.
func (s *Store) Commit(ctx context.Context) error {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}

	commitErr := s.saveLocked(ctx)
	if commitErr != nil {
		if rbErr := s.rollbackLocked(ctx); rbErr != nil {
			commitErr = errors.Join(commitErr, rbErr)
		}
	}
	s.mu.Unlock()

	if commitErr != nil {
		s.log.Error("commit failed, rolled back", "key", s.key, "err", commitErr)
		s.notify(vpath.Root)
		return commitErr
	}
	s.log.Debug("filesystem committed", "key", s.key)
	return nil
}

func (s *Store) saveLocked(ctx context.Context) error {
	if used := s.root.size(); s.quota > 0 && used > s.quota {
		return &QuotaError{Used: used, Limit: s.quota}
	}
	data, err := encodeTree(s.root)
	if err != nil {
		return &PersistError{Op: "encode", Key: s.key, Err: err}
	}
	if err := s.adapter.Save(ctx, s.key, data); err != nil {
		return &PersistError{Op: "save", Key: s.key, Err: err}
	}
	s.durable = data
	s.dirty = false
	return nil
}

// rollbackLocked reloads the durable snapshot from the adapter, falling back
// to the copy kept from the last successful save or load.
func (s *Store) rollbackLocked(ctx context.Context) error {
	data, err := s.adapter.Load(ctx, s.key)
	if err != nil {
		data = s.durable
	}
	if data == nil {
		root := s.seed.build(s.now())
		s.root, s.dirty = root, false
		return nil
	}
	root, err := decodeTree(data)
	if err != nil && len(s.durable) > 0 {
		root, err = decodeTree(s.durable)
	}
	if err != nil {
		return &PersistError{Op: "reload", Key: s.key, Err: err}
	}
	s.root = root
	s.dirty = false
	return nil
}
