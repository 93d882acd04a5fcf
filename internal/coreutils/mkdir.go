// SPDX-License-Identifier: MPL-2.0

package coreutils

import (
	"context"

	"github.com/invowk/vshell/internal/shell"
	"github.com/invowk/vshell/internal/vfs"
)

// mkdirCommand implements the mkdir utility.
type mkdirCommand struct{ base }

// newMkdirCommand creates a new mkdir command.
func newMkdirCommand() *mkdirCommand {
	return &mkdirCommand{base{
		name: "mkdir",
		contract: shell.Contract{
			Usage:   "mkdir [-p] DIR...",
			Summary: "make directories",
			Flags:   []shell.FlagSpec{{Name: "parents", Short: "p", Description: "make parent directories as needed, no error if existing"}},
			Args:    shell.AtLeast(1),
		},
	}}
}

// Run executes the mkdir command.
func (c *mkdirCommand) Run(_ context.Context, inv *shell.Invocation) error {
	fails := newFailures(inv)
	for _, dir := range inv.Args {
		fails.add(inv.Sys.FS.Mkdir(inv.Identity(), inv.Abs(dir), inv.Flags.Bool("parents")))
	}
	return fails.err()
}

// rmdirCommand implements the rmdir utility.
type rmdirCommand struct{ base }

// newRmdirCommand creates a new rmdir command.
func newRmdirCommand() *rmdirCommand {
	return &rmdirCommand{base{
		name: "rmdir",
		contract: shell.Contract{
			Usage:   "rmdir DIR...",
			Summary: "remove empty directories",
			Args:    shell.AtLeast(1),
		},
	}}
}

// Run executes the rmdir command.
func (c *rmdirCommand) Run(_ context.Context, inv *shell.Invocation) error {
	fails := newFailures(inv)
	for _, dir := range inv.Args {
		fails.add(inv.Sys.FS.Remove(inv.Identity(), inv.Abs(dir), vfs.RemoveOptions{DirOnly: true}))
	}
	return fails.err()
}
