// SPDX-License-Identifier: MPL-2.0

package coreutils

import (
	"context"
	"io"
	"strings"

	"github.com/invowk/vshell/internal/shell"
)

// echoCommand implements the echo builtin.
type echoCommand struct{ base }

// newEchoCommand creates a new echo command.
func newEchoCommand() *echoCommand {
	return &echoCommand{base{
		name: "echo",
		contract: shell.Contract{
			Usage:                 "echo [-n] [STRING]...",
			Summary:               "display a line of text",
			Flags:                 []shell.FlagSpec{{Name: "n", Short: "n", Description: "do not output the trailing newline"}},
			Args:                  shell.Any(),
			StopAtFirstPositional: true,
		},
	}}
}

// Run executes the echo command.
func (c *echoCommand) Run(_ context.Context, inv *shell.Invocation) error {
	out := strings.Join(inv.Args, " ")
	if !inv.Flags.Bool("n") {
		out += "\n"
	}
	_, err := io.WriteString(inv.Stdout, out)
	return err
}
