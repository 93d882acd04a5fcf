// SPDX-License-Identifier: MPL-2.0

package coreutils

import (
	"context"
	"fmt"

	"github.com/gabriel-vasile/mimetype"

	"github.com/invowk/vshell/internal/shell"
)

// fileCommand implements the file utility, reporting content types.
type fileCommand struct{ base }

// newFileCommand creates a new file command.
func newFileCommand() *fileCommand {
	return &fileCommand{base{
		name: "file",
		contract: shell.Contract{
			Usage:   "file PATH...",
			Summary: "determine file type",
			Args:    shell.AtLeast(1),
		},
	}}
}

// Run executes the file command.
func (c *fileCommand) Run(_ context.Context, inv *shell.Invocation) error {
	fails := newFailures(inv)
	for _, p := range inv.Args {
		desc, err := c.describe(inv, inv.Abs(p))
		if err != nil {
			fails.add(err)
			continue
		}
		fmt.Fprintf(inv.Stdout, "%s: %s\n", p, desc)
	}
	return fails.err()
}

func (c *fileCommand) describe(inv *shell.Invocation, p string) (string, error) {
	info, err := inv.Sys.FS.Stat(inv.Identity(), p)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "directory", nil
	}
	if info.Size == 0 {
		return "empty", nil
	}
	data, err := inv.Sys.FS.ReadFile(inv.Identity(), p)
	if err != nil {
		return "", err
	}
	return mimetype.Detect(data).String(), nil
}
