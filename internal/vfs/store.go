// SPDX-License-Identifier: MPL-2.0

package vfs

import (
	"errors"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/invowk/vshell/internal/clock"
	"github.com/invowk/vshell/internal/identity"
	"github.com/invowk/vshell/internal/persist"
	"github.com/invowk/vshell/pkg/vpath"
)

// DefaultSnapshotKey is the adapter key used when Options.Key is empty.
const DefaultSnapshotKey = "vfs.json"

type (
	// Options configures a Store.
	Options struct {
		// Quota caps the total size of file contents in bytes. Zero means
		// no limit.
		Quota   int64
		Adapter persist.Adapter
		Key     string
		Clock   clock.Clock
		Logger  *log.Logger
		// Seed is applied by Load when the adapter holds no snapshot.
		Seed Seed
	}

	// Store owns the tree. All methods are safe for concurrent use; each
	// mutation runs as one critical section.
	Store struct {
		mu      sync.RWMutex
		root    *node
		dirty   bool
		durable []byte

		quota   int64
		adapter persist.Adapter
		key     string
		clock   clock.Clock
		log     *log.Logger
		seed    Seed

		hookMu sync.Mutex
		hooks  []func(path string)
	}

	// ValidateOptions selects the checks Validate applies.
	ValidateOptions struct {
		// Op names the operation in error messages ("access" by default).
		Op           string
		AllowMissing bool
		ExpectedType Kind
		DisallowRoot bool
	}

	// Validation is the result of a successful Validate call.
	Validation struct {
		Path   string
		Exists bool
		Info   Info
	}
)

// New returns a store holding only an empty root directory. Call Load to
// restore the durable snapshot or apply the seed.
func New(opts Options) *Store {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Adapter == nil {
		opts.Adapter = persist.NewMemory()
	}
	if opts.Key == "" {
		opts.Key = DefaultSnapshotKey
	}
	return &Store{
		root:    newDir(identity.RootName, identity.RootName, DefaultDirMode, opts.Clock.Now()),
		quota:   opts.Quota,
		adapter: opts.Adapter,
		key:     opts.Key,
		clock:   opts.Clock,
		log:     opts.Logger,
		seed:    opts.Seed,
	}
}

// OnChange registers fn to be called with the path of every node that is
// written, created, removed, moved or has its metadata changed. A rollback
// reports "/". Hooks run after the store lock is released.
func (s *Store) OnChange(fn func(path string)) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.hooks = append(s.hooks, fn)
}

func (s *Store) notify(paths ...string) {
	s.hookMu.Lock()
	hooks := slices.Clone(s.hooks)
	s.hookMu.Unlock()
	for _, p := range paths {
		for _, fn := range hooks {
			fn(p)
		}
	}
}

// mutate runs fn under the write lock, marks the store dirty when fn
// reports changed paths, then fires change hooks.
func (s *Store) mutate(fn func() ([]string, error)) error {
	s.mu.Lock()
	changed, err := fn()
	if len(changed) > 0 {
		s.dirty = true
	}
	s.mu.Unlock()
	if len(changed) > 0 {
		s.notify(changed...)
	}
	return err
}

// Dirty reports whether there are uncommitted changes.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Usage returns the total size of all file contents.
func (s *Store) Usage() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root.size()
}

// Quota returns the configured limit in bytes, zero meaning unlimited.
func (s *Store) Quota() int64 { return s.quota }

func (s *Store) now() time.Time { return s.clock.Now() }

// walk descends from the root along p, requiring execute on every
// directory it passes through. It returns the deepest node reached, its
// path, and how many segments were consumed. A missing child stops the walk
// without error; callers decide whether that is fatal.
func (s *Store) walk(id identity.Identity, op, p string, segs []string) (*node, string, int, error) {
	cur, curPath := s.root, vpath.Root
	for i, seg := range segs {
		if !cur.isDir() {
			return nil, curPath, i, mismatch(op, p, KindDir, KindFile)
		}
		if !cur.can(id, Execute) {
			return nil, curPath, i, deniedAt(op, p, curPath)
		}
		child, ok := cur.children[seg]
		if !ok {
			return cur, curPath, i, nil
		}
		cur, curPath = child, vpath.Join(curPath, seg)
	}
	return cur, curPath, len(segs), nil
}

// lookup returns the node at p or a NotFound error.
func (s *Store) lookup(id identity.Identity, op, p string) (*node, error) {
	segs := vpath.Split(p)
	n, _, depth, err := s.walk(id, op, p, segs)
	if err != nil {
		return nil, err
	}
	if depth < len(segs) {
		return nil, pathErr(op, p, ErrNotFound)
	}
	return n, nil
}

// lookupParent returns the directory that holds, or would hold, p.
func (s *Store) lookupParent(id identity.Identity, op, p string) (*node, string, error) {
	parentPath := vpath.Dir(p)
	parent, err := s.lookup(id, op, parentPath)
	if err != nil {
		var pe *PathError
		if errors.As(err, &pe) {
			pe.Path = p
		}
		return nil, "", err
	}
	if !parent.isDir() {
		return nil, "", mismatch(op, p, KindDir, KindFile)
	}
	if !parent.can(id, Execute) {
		return nil, "", deniedAt(op, p, parentPath)
	}
	return parent, parentPath, nil
}

// Stat returns metadata for the node at p.
func (s *Store) Stat(id identity.Identity, p string) (Info, error) {
	p = vpath.Resolve(p, vpath.Root)
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, err := s.lookup(id, "access", p)
	if err != nil {
		return Info{}, err
	}
	return n.info(p, vpath.Base(p)), nil
}

// Exists reports whether p names a node visible to id.
func (s *Store) Exists(id identity.Identity, p string) bool {
	_, err := s.Stat(id, p)
	return err == nil
}

// Validate is the pre-flight gate for commands: it resolves p, applies the
// existence and type policy from opts, and returns what it found.
func (s *Store) Validate(id identity.Identity, p string, opts ValidateOptions) (Validation, error) {
	op := opts.Op
	if op == "" {
		op = "access"
	}
	p = vpath.Resolve(p, vpath.Root)
	v := Validation{Path: p}
	if opts.DisallowRoot && p == vpath.Root {
		return v, pathErr(op, p, ErrRootTarget)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n, err := s.lookup(id, op, p)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound) && opts.AllowMissing:
		if _, _, perr := s.lookupParent(id, op, p); perr != nil {
			return v, perr
		}
		return v, nil
	default:
		return v, err
	}

	v.Exists = true
	v.Info = n.info(p, vpath.Base(p))
	if opts.ExpectedType != KindAny && n.kind != opts.ExpectedType {
		return v, mismatch(op, p, opts.ExpectedType, n.kind)
	}
	return v, nil
}

// ReadFile returns a copy of the content of the file at p.
func (s *Store) ReadFile(id identity.Identity, p string) ([]byte, error) {
	p = vpath.Resolve(p, vpath.Root)
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, err := s.lookup(id, "open", p)
	if err != nil {
		return nil, err
	}
	if n.isDir() {
		return nil, mismatch("open", p, KindFile, KindDir)
	}
	if !n.can(id, Read) {
		return nil, deniedAt("open", p, p)
	}
	return slices.Clone(n.content), nil
}

// ReadDir lists the directory at p, sorted by name.
func (s *Store) ReadDir(id identity.Identity, p string) ([]Info, error) {
	p = vpath.Resolve(p, vpath.Root)
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, err := s.lookup(id, "open directory", p)
	if err != nil {
		return nil, err
	}
	if !n.isDir() {
		return nil, mismatch("open directory", p, KindDir, KindFile)
	}
	if !n.can(id, Read) {
		return nil, deniedAt("open directory", p, p)
	}
	out := make([]Info, 0, len(n.children))
	for _, name := range n.sortedNames() {
		out = append(out, n.children[name].info(vpath.Join(p, name), name))
	}
	return out, nil
}
