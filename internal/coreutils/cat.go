// SPDX-License-Identifier: MPL-2.0

package coreutils

import (
	"context"
	"io"

	"github.com/invowk/vshell/internal/shell"
)

// catCommand implements the cat utility.
type catCommand struct{ base }

// newCatCommand creates a new cat command.
func newCatCommand() *catCommand {
	return &catCommand{base{
		name: "cat",
		contract: shell.Contract{
			Usage:   "cat [FILE]...",
			Summary: "concatenate files to standard output",
			Args:    shell.Any(),
		},
	}}
}

// Run executes the cat command.
func (c *catCommand) Run(ctx context.Context, inv *shell.Invocation) error {
	return processFilesOrStdin(ctx, inv, inv.Args, func(r io.Reader, _ string, _, _ int) error {
		_, err := io.Copy(inv.Stdout, r)
		return err
	})
}
