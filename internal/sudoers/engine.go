// SPDX-License-Identifier: MPL-2.0

package sudoers

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/invowk/vshell/internal/clock"
	"github.com/invowk/vshell/internal/identity"
	"github.com/invowk/vshell/internal/vfs"
	"github.com/invowk/vshell/pkg/vpath"
)

// DefaultPath is where the policy file lives unless configured otherwise.
const DefaultPath = "/etc/sudoers"

type (
	// FileReader is the slice of the filesystem the engine reads the policy
	// through.
	FileReader interface {
		ReadFile(id identity.Identity, p string) ([]byte, error)
	}

	// Engine caches the parsed policy and per-user authorization
	// timestamps. It is safe for concurrent use.
	Engine struct {
		fs    FileReader
		path  string
		clock clock.Clock
		log   *log.Logger

		mu     sync.Mutex
		policy *Policy
		parses int
		stamps map[string]time.Time
	}
)

// NewEngine returns an engine reading the policy at path from fs. The file
// is not read until the first question is asked.
func NewEngine(fs FileReader, path string, clk clock.Clock, logger *log.Logger) *Engine {
	if path == "" {
		path = DefaultPath
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Engine{
		fs:     fs,
		path:   vpath.Resolve(path, vpath.Root),
		clock:  clk,
		log:    logger,
		stamps: make(map[string]time.Time),
	}
}

// Path returns the canonical policy file path.
func (e *Engine) Path() string { return e.path }

// Invalidate drops the cached policy; the next question re-reads the file.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.policy != nil {
		e.log.Debug("sudoers policy invalidated", "path", e.path)
	}
	e.policy = nil
}

// Hook returns a change callback for vfs.Store.OnChange that invalidates
// the policy whenever the file, or a directory above it, changes.
func (e *Engine) Hook() func(path string) {
	return func(changed string) {
		if vpath.HasPrefix(e.path, changed) {
			e.Invalidate()
		}
	}
}

// Policy returns the cached policy, parsing the file on first use. A
// missing file yields an empty policy that denies everyone but root.
func (e *Engine) Policy() (*Policy, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.policyLocked()
}

func (e *Engine) policyLocked() (*Policy, error) {
	if e.policy != nil {
		return e.policy, nil
	}
	data, err := e.fs.ReadFile(identity.Root(), e.path)
	switch {
	case errors.Is(err, vfs.ErrNotFound):
		e.log.Warn("sudoers file missing, denying all elevation", "path", e.path)
		data = nil
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", e.path, err)
	}

	p, warnings := Parse(string(data))
	for _, w := range warnings {
		e.log.Warn("skipping sudoers line", "path", e.path, "line", w.Line, "reason", w.Reason)
	}
	e.policy = p
	e.parses++
	return p, nil
}

// Authorize reports whether id may run command as root. Root always may.
// A direct user rule wins; otherwise the first group rule, in file order,
// for a group id belongs to decides.
func (e *Engine) Authorize(id identity.Identity, command string) (bool, error) {
	if id.IsRoot() {
		return true, nil
	}
	rule, ok, err := e.Match(id)
	if err != nil || !ok {
		return false, err
	}
	return rule.Grant.Allows(command), nil
}

// Match returns the rule that governs id, if any.
func (e *Engine) Match(id identity.Identity) (Rule, bool, error) {
	p, err := e.Policy()
	if err != nil {
		return Rule{}, false, err
	}
	if r, ok := p.Users[id.Name]; ok {
		return r, true, nil
	}
	for _, r := range p.Groups {
		if id.InGroup(r.Subject) {
			return r, true, nil
		}
	}
	return Rule{}, false, nil
}

// Rules lists every rule that mentions id, for sudo -l.
func (e *Engine) Rules(id identity.Identity) ([]Rule, error) {
	p, err := e.Policy()
	if err != nil {
		return nil, err
	}
	var out []Rule
	if r, ok := p.Users[id.Name]; ok {
		out = append(out, r)
	}
	for _, r := range p.Groups {
		if id.InGroup(r.Subject) {
			out = append(out, r)
		}
	}
	return out, nil
}

// IsTimestampValid reports whether id elevated successfully within the
// policy timeout. A zero timeout always requires a fresh password.
func (e *Engine) IsTimestampValid(id identity.Identity) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, err := e.policyLocked()
	if err != nil {
		return false, err
	}
	last, ok := e.stamps[id.Name]
	if !ok || p.Timeout == 0 {
		return false, nil
	}
	return e.clock.Now().Sub(last) < p.Timeout, nil
}

// RecordSuccess stamps a successful elevation for id.
func (e *Engine) RecordSuccess(id identity.Identity) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stamps[id.Name] = e.clock.Now()
}

// Clear forgets id's timestamp (logout, sudo -k).
func (e *Engine) Clear(id identity.Identity) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.stamps, id.Name)
}

// Parses reports how many times the policy file has been parsed.
func (e *Engine) Parses() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.parses
}
