// SPDX-License-Identifier: MPL-2.0

package vfs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a path does not name a node.
	ErrNotFound = errors.New("no such file or directory")
	// ErrPermissionDenied is returned when a mode check fails.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrTypeMismatch is returned when a file was expected and a directory
	// was found, or the other way round.
	ErrTypeMismatch = errors.New("wrong node type")
	// ErrAlreadyExists is returned when a target is already present.
	ErrAlreadyExists = errors.New("file exists")
	// ErrNotEmpty is returned when removing a non-empty directory without
	// recursion.
	ErrNotEmpty = errors.New("directory not empty")
	// ErrRootTarget is returned for operations that may not touch "/".
	ErrRootTarget = errors.New("operation not permitted on /")
	// ErrCycle is returned when copying or moving a directory into itself.
	ErrCycle = errors.New("cannot place a directory inside itself")
	// ErrQuotaExceeded is the sentinel wrapped by QuotaError.
	ErrQuotaExceeded = errors.New("disk quota exceeded")
	// ErrPersistence is the sentinel wrapped by PersistError.
	ErrPersistence = errors.New("persistence failure")
	// ErrCorruptSnapshot is returned when a snapshot cannot be decoded.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
)

type (
	// PathError reports a failed operation on a path. Segment names the
	// directory at which traversal failed when that differs from Path.
	PathError struct {
		Op      string
		Path    string
		Segment string
		Err     error
	}

	// TypeError is a TypeMismatch with the kinds involved.
	TypeError struct {
		Want Kind
		Got  Kind
	}

	// QuotaError reports a commit that would exceed the quota.
	QuotaError struct {
		Used  int64
		Limit int64
	}

	// PersistError reports a failed snapshot encode, save or reload.
	// In-memory state was rolled back to the last durable snapshot.
	PersistError struct {
		Op  string
		Key string
		Err error
	}
)

// Error renders "cannot <op> '<path>': <reason>".
func (e *PathError) Error() string {
	msg := fmt.Sprintf("cannot %s '%s': %v", e.Op, e.Path, e.Err)
	if e.Segment != "" && e.Segment != e.Path {
		msg += fmt.Sprintf(" (at '%s')", e.Segment)
	}
	return msg
}

func (e *PathError) Unwrap() error { return e.Err }

func (e *TypeError) Error() string {
	if e.Got == KindDir {
		return "is a directory"
	}
	return "not a directory"
}

// Unwrap returns ErrTypeMismatch for errors.Is() compatibility.
func (e *TypeError) Unwrap() error { return ErrTypeMismatch }

func (e *QuotaError) Error() string {
	return fmt.Sprintf("disk quota exceeded: %d bytes used, limit %d; changes since the last save were discarded", e.Used, e.Limit)
}

// Unwrap returns ErrQuotaExceeded for errors.Is() compatibility.
func (e *QuotaError) Unwrap() error { return ErrQuotaExceeded }

func (e *PersistError) Error() string {
	return fmt.Sprintf("persistence failure (%s %s): %v; changes since the last save were discarded", e.Op, e.Key, e.Err)
}

// Unwrap exposes both ErrPersistence and the backend cause.
func (e *PersistError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

func pathErr(op, path string, err error) error {
	return &PathError{Op: op, Path: path, Err: err}
}

func deniedAt(op, path, segment string) error {
	return &PathError{Op: op, Path: path, Segment: segment, Err: ErrPermissionDenied}
}

func mismatch(op, path string, want, got Kind) error {
	return &PathError{Op: op, Path: path, Err: &TypeError{Want: want, Got: got}}
}
