// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strconv"
)

// Exit statuses reported by the interpreter.
const (
	ExitSuccess         ExitCode = 0
	ExitFailure         ExitCode = 1
	ExitUsage           ExitCode = 2
	ExitNotPermitted    ExitCode = 126
	ExitCommandNotFound ExitCode = 127
	ExitInterrupted     ExitCode = 130
)

// ErrInvalidExitCode is the sentinel error wrapped by InvalidExitCodeError.
var ErrInvalidExitCode = errors.New("invalid exit code")

type (
	// ExitCode is the status a simulated command finishes with. Values follow
	// the POSIX 0-255 range and the zero value means success.
	ExitCode int

	// InvalidExitCodeError is returned when an ExitCode is outside 0-255.
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

// Error implements the error interface.
func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("invalid exit code %d (must be in range 0-255)", e.Value)
}

// Unwrap returns ErrInvalidExitCode so callers can use errors.Is for programmatic detection.
func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }

// Validate returns an error if the ExitCode is outside the valid range (0-255).
func (c ExitCode) Validate() error {
	if c < 0 || c > 255 {
		return &InvalidExitCodeError{Value: c}
	}
	return nil
}

// IsSuccess returns true if the exit code indicates successful execution.
func (c ExitCode) IsSuccess() bool { return c == 0 }

// Label returns a short human description of well-known statuses and an
// empty string for the rest.
func (c ExitCode) Label() string {
	switch c {
	case ExitSuccess:
		return "ok"
	case ExitUsage:
		return "usage error"
	case ExitNotPermitted:
		return "not permitted"
	case ExitCommandNotFound:
		return "command not found"
	case ExitInterrupted:
		return "interrupted"
	default:
		return ""
	}
}

// String returns the decimal string representation of the ExitCode.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }
