// SPDX-License-Identifier: MPL-2.0

package coreutils

import (
	"context"
	"fmt"
	"strings"

	"github.com/invowk/vshell/internal/shell"
	"github.com/invowk/vshell/pkg/vpath"
)

// basenameCommand strips directory and optional suffix from a name.
type basenameCommand struct{ base }

// newBasenameCommand creates a new basename command.
func newBasenameCommand() *basenameCommand {
	return &basenameCommand{base{
		name: "basename",
		contract: shell.Contract{
			Usage:   "basename NAME [SUFFIX]",
			Summary: "strip directory and suffix from file names",
			Args:    shell.Between(1, 2),
		},
	}}
}

// Run executes the basename command.
func (c *basenameCommand) Run(_ context.Context, inv *shell.Invocation) error {
	name := inv.Args[0]
	trimmed := strings.TrimRight(name, "/")
	if trimmed == "" && name != "" {
		trimmed = vpath.Root
	}
	base := trimmed
	if trimmed != vpath.Root {
		base = trimmed[strings.LastIndex(trimmed, "/")+1:]
	}
	if len(inv.Args) == 2 && base != inv.Args[1] {
		base = strings.TrimSuffix(base, inv.Args[1])
	}
	_, err := fmt.Fprintln(inv.Stdout, base)
	return err
}

// dirnameCommand strips the last component from each name.
type dirnameCommand struct{ base }

// newDirnameCommand creates a new dirname command.
func newDirnameCommand() *dirnameCommand {
	return &dirnameCommand{base{
		name: "dirname",
		contract: shell.Contract{
			Usage:   "dirname NAME...",
			Summary: "strip the last component from file names",
			Args:    shell.AtLeast(1),
		},
	}}
}

// Run executes the dirname command.
func (c *dirnameCommand) Run(_ context.Context, inv *shell.Invocation) error {
	for _, name := range inv.Args {
		fmt.Fprintln(inv.Stdout, dirname(name))
	}
	return nil
}

// dirname works on the name as written; relative names stay relative.
func dirname(name string) string {
	trimmed := strings.TrimRight(name, "/")
	i := strings.LastIndex(trimmed, "/")
	switch {
	case name == "" || trimmed != "" && i < 0:
		return "."
	case trimmed == "":
		return vpath.Root
	}
	if dir := strings.TrimRight(trimmed[:i], "/"); dir != "" {
		return dir
	}
	return vpath.Root
}
