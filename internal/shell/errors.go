// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"context"
	"errors"
	"fmt"

	"github.com/invowk/vshell/pkg/types"
)

var (
	// ErrMalformedCommand is the sentinel wrapped by MalformedCommandError.
	ErrMalformedCommand = errors.New("malformed command")
	// ErrPipelineStage is the sentinel wrapped by PipelineStageError.
	ErrPipelineStage = errors.New("pipeline stage failed")
	// ErrAuthorization is the sentinel wrapped by AuthorizationError.
	ErrAuthorization = errors.New("authorization denied")
	// ErrCommandNotFound is the sentinel wrapped by CommandNotFoundError.
	ErrCommandNotFound = errors.New("command not found")
	// ErrCancelled is returned when a command stops because its context was
	// cancelled.
	ErrCancelled = errors.New("cancelled")
	// ErrNoInput is returned by prompts when there is no terminal to ask,
	// as in background jobs.
	ErrNoInput = errors.New("no terminal available for input")
)

type (
	// MalformedCommandError reports a line or stage that violates the
	// grammar or a command's contract. Nothing has run when it is returned.
	MalformedCommandError struct {
		Command string
		Reason  string
		Usage   string
	}

	// PipelineStageError wraps the error of the stage that stopped a
	// pipeline. Index is zero-based.
	PipelineStageError struct {
		Index   int
		Command string
		Err     error
	}

	// AuthorizationError reports a refused privilege escalation.
	AuthorizationError struct {
		User    string
		Command string
		Reason  string
	}

	// CommandNotFoundError names an unknown command.
	CommandNotFoundError struct {
		Name string
	}

	// ExitStatusError ends a command with a specific status and no message
	// (grep without matches, test-style commands).
	ExitStatusError struct {
		Code types.ExitCode
	}
)

func (e *MalformedCommandError) Error() string { return e.Reason }

// Unwrap returns ErrMalformedCommand for errors.Is() compatibility.
func (e *MalformedCommandError) Unwrap() error { return ErrMalformedCommand }

func (e *PipelineStageError) Error() string {
	return fmt.Sprintf("pipeline stage %d (%s): %v", e.Index+1, e.Command, e.Err)
}

// Unwrap exposes both ErrPipelineStage and the stage's error.
func (e *PipelineStageError) Unwrap() []error { return []error{ErrPipelineStage, e.Err} }

func (e *AuthorizationError) Error() string {
	return e.Reason
}

// Unwrap returns ErrAuthorization for errors.Is() compatibility.
func (e *AuthorizationError) Unwrap() error { return ErrAuthorization }

func (e *CommandNotFoundError) Error() string { return "command not found" }

// Unwrap returns ErrCommandNotFound for errors.Is() compatibility.
func (e *CommandNotFoundError) Unwrap() error { return ErrCommandNotFound }

func (e *ExitStatusError) Error() string { return "exit status " + e.Code.String() }

// Malformed builds a MalformedCommandError for command.
func Malformed(command, format string, args ...any) error {
	return &MalformedCommandError{Command: command, Reason: fmt.Sprintf(format, args...)}
}

// Cancelled converts a context error into ErrCancelled, leaving other
// errors unchanged.
func Cancelled(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return err
}

// ExitCodeOf maps an error to the status the shell reports for it.
func ExitCodeOf(err error) types.ExitCode {
	var status *ExitStatusError
	switch {
	case err == nil:
		return types.ExitSuccess
	case errors.As(err, &status):
		return status.Code
	case errors.Is(err, ErrCommandNotFound):
		return types.ExitCommandNotFound
	case errors.Is(err, ErrCancelled):
		return types.ExitInterrupted
	case errors.Is(err, ErrMalformedCommand):
		return types.ExitUsage
	case errors.Is(err, ErrAuthorization):
		return types.ExitNotPermitted
	default:
		return types.ExitFailure
	}
}

// silent reports whether err should produce no message on stderr.
func silent(err error) bool {
	var (
		status   *ExitStatusError
		reported *reportedError
	)
	return errors.As(err, &status) || errors.As(err, &reported)
}
