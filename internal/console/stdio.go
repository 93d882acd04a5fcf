// SPDX-License-Identifier: MPL-2.0

package console

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// ErrNotTerminal is returned by OpenStdio when standard input is not a
// terminal.
var ErrNotTerminal = errors.New("standard input is not a terminal")

type (
	// Stdio is the process terminal in raw mode.
	Stdio struct {
		io.Reader
		io.Writer
		fd    int
		state *term.State
	}
)

// OpenStdio switches standard input to raw mode. Close restores it.
func OpenStdio() (*Stdio, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, ErrNotTerminal
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("enter raw mode: %w", err)
	}
	return &Stdio{Reader: os.Stdin, Writer: os.Stdout, fd: fd, state: state}, nil
}

// Size returns the terminal width and height.
func (s *Stdio) Size() (width, height int, err error) {
	return term.GetSize(int(os.Stdout.Fd()))
}

// Close restores the terminal mode saved by OpenStdio.
func (s *Stdio) Close() error {
	return term.Restore(s.fd, s.state)
}
