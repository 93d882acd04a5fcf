// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/invowk/vshell/internal/clock"
	"github.com/invowk/vshell/internal/identity"
	"github.com/invowk/vshell/internal/sudoers"
	"github.com/invowk/vshell/internal/vfs"
)

// DefaultPasswordTries is how many password attempts sudo and su allow.
const DefaultPasswordTries = 3

// System bundles the shared machine state every command works against.
type System struct {
	FS       *vfs.Store
	Users    *identity.Registry
	Sudoers  *sudoers.Engine
	Clock    clock.Clock
	Log      *log.Logger
	Hostname string
	// PasswordTries bounds password prompts per elevation attempt.
	PasswordTries int
}

// Tries returns PasswordTries or its default.
func (s *System) Tries() int {
	if s.PasswordTries <= 0 {
		return DefaultPasswordTries
	}
	return s.PasswordTries
}

// Logger returns Log, or a logger that discards everything when unset.
func (s *System) Logger() *log.Logger {
	if s.Log == nil {
		return log.New(io.Discard)
	}
	return s.Log
}
