// SPDX-License-Identifier: MPL-2.0

package coreutils

import (
	"context"
	"fmt"
	"io"

	"github.com/invowk/vshell/internal/shell"
)

// teeCommand copies standard input to standard output and to files.
type teeCommand struct{ base }

// newTeeCommand creates a new tee command.
func newTeeCommand() *teeCommand {
	return &teeCommand{base{
		name: "tee",
		contract: shell.Contract{
			Usage:   "tee [-a] [FILE]...",
			Summary: "read from standard input and write to standard output and files",
			Flags:   []shell.FlagSpec{{Name: "append", Short: "a", Description: "append to the given files, do not overwrite"}},
			Args:    shell.Any(),
		},
	}}
}

// Run executes the tee command.
func (c *teeCommand) Run(_ context.Context, inv *shell.Invocation) error {
	data, err := io.ReadAll(inv.Stdin)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	if _, err := inv.Stdout.Write(data); err != nil {
		return err
	}
	write := inv.Sys.FS.WriteFile
	if inv.Flags.Bool("append") {
		write = inv.Sys.FS.AppendFile
	}
	fails := newFailures(inv)
	for _, file := range inv.Args {
		fails.add(write(inv.Identity(), inv.Abs(file), data))
	}
	return fails.err()
}
