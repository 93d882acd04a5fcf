// SPDX-License-Identifier: MPL-2.0

package coreutils

import (
	"context"

	"github.com/invowk/vshell/internal/shell"
	"github.com/invowk/vshell/internal/vfs"
)

// rmCommand implements the rm utility.
type rmCommand struct{ base }

// newRmCommand creates a new rm command.
func newRmCommand() *rmCommand {
	return &rmCommand{base{
		name: "rm",
		contract: shell.Contract{
			Usage:   "rm [-rf] PATH...",
			Summary: "remove files or directories",
			Flags: []shell.FlagSpec{
				{Name: "recursive", Short: "r", Description: "remove directories and their contents recursively"},
				{Name: "R", Short: "R", Description: "same as -r"},
				{Name: "force", Short: "f", Description: "ignore nonexistent files, never prompt"},
			},
			Args: shell.Any(),
		},
	}}
}

// Run executes the rm command.
func (c *rmCommand) Run(_ context.Context, inv *shell.Invocation) error {
	opts := vfs.RemoveOptions{
		Recursive: inv.Flags.Bool("recursive") || inv.Flags.Bool("R"),
		Force:     inv.Flags.Bool("force"),
	}
	if len(inv.Args) == 0 {
		if opts.Force {
			return nil
		}
		return &shell.MalformedCommandError{Command: c.name, Reason: "missing operand", Usage: c.contract.Usage}
	}
	fails := newFailures(inv)
	for _, p := range inv.Args {
		fails.add(inv.Sys.FS.Remove(inv.Identity(), inv.Abs(p), opts))
	}
	return fails.err()
}
