// SPDX-License-Identifier: MPL-2.0

package coreutils

import (
	"context"
	"fmt"

	"github.com/invowk/vshell/internal/shell"
	"github.com/invowk/vshell/internal/vfs"
	"github.com/invowk/vshell/pkg/vpath"
)

// cpCommand implements the cp utility.
type cpCommand struct{ base }

// newCpCommand creates a new cp command.
func newCpCommand() *cpCommand {
	return &cpCommand{base{
		name: "cp",
		contract: shell.Contract{
			Usage:   "cp [-rfinp] SOURCE... DEST",
			Summary: "copy files and directories",
			Flags: []shell.FlagSpec{
				{Name: "recursive", Short: "r", Description: "copy directories recursively"},
				{Name: "R", Short: "R", Description: "same as -r"},
				{Name: "force", Short: "f", Description: "overwrite existing files without asking"},
				{Name: "interactive", Short: "i", Description: "prompt before overwrite"},
				{Name: "no-clobber", Short: "n", Description: "do not overwrite an existing file"},
				{Name: "preserve", Short: "p", Description: "preserve mode, ownership and timestamps"},
			},
			Args: shell.AtLeast(2),
		},
	}}
}

// Run executes the cp command.
func (c *cpCommand) Run(ctx context.Context, inv *shell.Invocation) error {
	opts := vfs.CopyOptions{
		Recursive: inv.Flags.Bool("recursive") || inv.Flags.Bool("R"),
		Policy:    conflictPolicy(inv.Flags),
		Confirm:   overwritePrompt(ctx, inv),
		Preserve:  inv.Flags.Bool("preserve"),
	}
	sources, dest, err := splitTargets(inv)
	if err != nil {
		return err
	}

	fails := newFailures(inv)
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := inv.Sys.FS.Copy(inv.Identity(), inv.Abs(src), dest, opts)
		fails.addJoined(err)
	}
	return fails.err()
}

// mvCommand implements the mv utility.
type mvCommand struct{ base }

// newMvCommand creates a new mv command.
func newMvCommand() *mvCommand {
	return &mvCommand{base{
		name: "mv",
		contract: shell.Contract{
			Usage:   "mv [-fin] SOURCE... DEST",
			Summary: "move or rename files",
			Flags: []shell.FlagSpec{
				{Name: "force", Short: "f", Description: "overwrite existing files without asking"},
				{Name: "interactive", Short: "i", Description: "prompt before overwrite"},
				{Name: "no-clobber", Short: "n", Description: "do not overwrite an existing file"},
			},
			Args: shell.AtLeast(2),
		},
	}}
}

// Run executes the mv command.
func (c *mvCommand) Run(ctx context.Context, inv *shell.Invocation) error {
	opts := vfs.MoveOptions{
		Policy:  conflictPolicy(inv.Flags),
		Confirm: overwritePrompt(ctx, inv),
	}
	sources, dest, err := splitTargets(inv)
	if err != nil {
		return err
	}

	fails := newFailures(inv)
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		fails.add(inv.Sys.FS.Move(inv.Identity(), inv.Abs(src), dest, opts))
	}
	return fails.err()
}

// conflictPolicy maps -n, -i and -f to a policy; -n wins over -i, which
// wins over -f.
func conflictPolicy(flags shell.Flags) vfs.ConflictPolicy {
	switch {
	case flags.Bool("no-clobber"):
		return vfs.PolicyNoClobber
	case flags.Bool("interactive"):
		return vfs.PolicyInteractive
	case flags.Bool("force"):
		return vfs.PolicyForce
	default:
		return vfs.PolicyFail
	}
}

func overwritePrompt(ctx context.Context, inv *shell.Invocation) vfs.ConfirmFunc {
	return func(p string) (bool, error) {
		return inv.Confirm(ctx, fmt.Sprintf("%s: overwrite '%s'? ", inv.Name, p))
	}
}

// splitTargets separates the sources from the destination. With more
// than one source the destination must be an existing directory.
func splitTargets(inv *shell.Invocation) ([]string, string, error) {
	sources := inv.Args[:len(inv.Args)-1]
	dest := inv.Abs(inv.Args[len(inv.Args)-1])
	if len(sources) > 1 {
		_, err := inv.Sys.FS.Validate(inv.Identity(), dest, vfs.ValidateOptions{Op: "access", ExpectedType: vfs.KindDir})
		if err != nil {
			return nil, "", fmt.Errorf("target '%s': %w", vpath.Base(dest), err)
		}
	}
	return sources, dest, nil
}
