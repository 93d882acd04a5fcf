// SPDX-License-Identifier: MPL-2.0

// Package persist provides durable key/value blob stores for filesystem
// snapshots. The shell core only needs whole-blob Load and Save; each
// backend maps that onto its own storage.
package persist

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// ErrNotFound is returned by Load when no blob exists under the key.
var ErrNotFound = errors.New("snapshot not found")

type (
	// Adapter loads and saves opaque blobs by key.
	Adapter interface {
		Load(ctx context.Context, key string) ([]byte, error)
		Save(ctx context.Context, key string, data []byte) error
	}

	// Memory keeps blobs in process memory. The zero value is ready to use.
	Memory struct {
		mu    sync.Mutex
		blobs map[string][]byte
		saves int
	}
)

// NewMemory returns an empty in-memory adapter.
func NewMemory() *Memory {
	return &Memory{}
}

// Load returns a copy of the blob stored under key.
func (m *Memory) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(data), nil
}

// Save stores a copy of data under key.
func (m *Memory) Save(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.blobs == nil {
		m.blobs = make(map[string][]byte)
	}
	m.blobs[key] = slices.Clone(data)
	m.saves++
	return nil
}

// Saves reports how many successful saves have happened.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
