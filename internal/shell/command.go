// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/invowk/vshell/internal/identity"
)

type (
	// Command is a built-in utility (ls, grep, sudo, ...).
	Command interface {
		// Name returns the command name as typed at the prompt.
		Name() string

		// Contract declares the accepted flags and argument count. Run is
		// only called with arguments that satisfy it.
		Contract() Contract

		// Run executes the command. Errors are reported by the interpreter
		// as "<name>: <error>".
		Run(ctx context.Context, inv *Invocation) error
	}

	// Invocation is everything a running command can see.
	Invocation struct {
		Sys     *System
		Session *Session
		Name    string
		// Args are the positional arguments after flag parsing.
		Args   []string
		Flags  Flags
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer

		interp *Interpreter
	}

	// Registry maps command names to implementations. It is safe for
	// concurrent use.
	Registry struct {
		mu       sync.RWMutex
		commands map[string]Command
	}
)

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds cmd. It panics on an empty or duplicate name.
func (r *Registry) Register(cmd Command) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := cmd.Name()
	if name == "" {
		panic("shell: cannot register command with empty name")
	}
	if _, exists := r.commands[name]; exists {
		panic(fmt.Sprintf("shell: command %q already registered", name))
	}
	r.commands[name] = cmd
}

// Lookup retrieves a command by name.
func (r *Registry) Lookup(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cmd, ok := r.commands[name]
	return cmd, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Identity returns the acting identity.
func (inv *Invocation) Identity() identity.Identity { return inv.Session.Identity() }

// Abs resolves p against the session's current directory.
func (inv *Invocation) Abs(p string) string { return inv.Session.Resolve(p) }

// Registry returns the command registry, for help.
func (inv *Invocation) Registry() *Registry { return inv.interp.reg }

// Prompt suspends the command until the session's prompter answers.
func (inv *Invocation) Prompt(ctx context.Context, req InputRequest) (string, error) {
	return inv.Session.Prompt(ctx, req)
}

// Confirm asks a yes/no question.
func (inv *Invocation) Confirm(ctx context.Context, message string) (bool, error) {
	answer, err := inv.Prompt(ctx, InputRequest{Kind: InputConfirm, Message: message})
	if err != nil {
		return false, err
	}
	return IsYes(answer), nil
}

// Exec runs argv as a nested command in sess with the invocation's
// streams, checking its contract first. Its error is reported under its
// own name, so the returned error is already on Stderr.
func (inv *Invocation) Exec(ctx context.Context, sess *Session, argv []string) error {
	if len(argv) == 0 {
		return Malformed(inv.Name, "missing command")
	}
	st, err := inv.interp.prepare(argv)
	if err == nil {
		err = inv.interp.runStage(ctx, sess, st, inv.Stdin, inv.Stdout, inv.Stderr)
	}
	if err != nil {
		inv.interp.report(inv.Stderr, argv[0], err)
		return &reportedError{err: err}
	}
	return nil
}

// reportedError marks an error already written to stderr.
type reportedError struct{ err error }

// Reported marks err as already written to stderr by the command, so the
// interpreter does not print it again. errors.Is and errors.As still see
// through it.
func Reported(err error) error {
	if err == nil {
		return nil
	}
	return &reportedError{err: err}
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }
