// SPDX-License-Identifier: MPL-2.0

package coreutils

import (
	"context"

	"github.com/invowk/vshell/internal/shell"
)

// touchCommand implements the touch utility.
type touchCommand struct{ base }

// newTouchCommand creates a new touch command.
func newTouchCommand() *touchCommand {
	return &touchCommand{base{
		name: "touch",
		contract: shell.Contract{
			Usage:   "touch FILE...",
			Summary: "create empty files or update their timestamps",
			Args:    shell.AtLeast(1),
		},
	}}
}

// Run executes the touch command.
func (c *touchCommand) Run(_ context.Context, inv *shell.Invocation) error {
	fails := newFailures(inv)
	for _, file := range inv.Args {
		fails.add(inv.Sys.FS.Touch(inv.Identity(), inv.Abs(file)))
	}
	return fails.err()
}
