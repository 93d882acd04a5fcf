// SPDX-License-Identifier: MPL-2.0

package coreutils

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/invowk/vshell/internal/shell"
	"github.com/invowk/vshell/internal/vfs"
)

// chmodCommand implements the chmod utility.
type chmodCommand struct{ base }

// newChmodCommand creates a new chmod command.
func newChmodCommand() *chmodCommand {
	return &chmodCommand{base{
		name: "chmod",
		contract: shell.Contract{
			Usage:   "chmod [-R] MODE PATH...",
			Summary: "change file mode bits",
			Flags:   []shell.FlagSpec{{Name: "recursive", Short: "R", Description: "change files and directories recursively"}},
			Args:    shell.AtLeast(2),
		},
	}}
}

// Run executes the chmod command.
func (c *chmodCommand) Run(_ context.Context, inv *shell.Invocation) error {
	expr := inv.Args[0]
	if _, err := vfs.ApplyChmod(expr, 0, false); err != nil {
		return shell.Malformed(c.name, "%v", err)
	}

	fails := newFailures(inv)
	for _, p := range inv.Args[1:] {
		targets, err := collectTargets(inv, inv.Abs(p), inv.Flags.Bool("recursive"))
		fails.addJoined(err)
		for _, info := range targets {
			mode, err := vfs.ApplyChmod(expr, info.Mode, info.IsDir())
			if err == nil {
				err = inv.Sys.FS.Chmod(inv.Identity(), info.Path, mode)
			}
			fails.add(err)
		}
	}
	return fails.err()
}

// chownCommand implements the chown utility.
type chownCommand struct{ base }

// newChownCommand creates a new chown command.
func newChownCommand() *chownCommand {
	return &chownCommand{base{
		name: "chown",
		contract: shell.Contract{
			Usage:   "chown [-R] OWNER[:GROUP] PATH...",
			Summary: "change file owner and group",
			Flags:   []shell.FlagSpec{{Name: "recursive", Short: "R", Description: "operate on files and directories recursively"}},
			Args:    shell.AtLeast(2),
		},
	}}
}

// Run executes the chown command.
func (c *chownCommand) Run(_ context.Context, inv *shell.Invocation) error {
	owner, group, _ := strings.Cut(inv.Args[0], ":")
	if owner == "" && group == "" {
		return shell.Malformed(c.name, "invalid spec: '%s'", inv.Args[0])
	}
	if owner != "" {
		if _, err := inv.Sys.Users.Lookup(owner); err != nil {
			return fmt.Errorf("invalid user: '%s'", owner)
		}
	}
	if group != "" && !inv.Sys.Users.GroupExists(group) {
		return fmt.Errorf("invalid group: '%s'", group)
	}

	fails := newFailures(inv)
	for _, p := range inv.Args[1:] {
		targets, err := collectTargets(inv, inv.Abs(p), inv.Flags.Bool("recursive"))
		fails.addJoined(err)
		for _, info := range targets {
			fails.add(inv.Sys.FS.Chown(inv.Identity(), info.Path, owner, group))
		}
	}
	return fails.err()
}

// collectTargets returns p, or with recursive p and everything below it,
// deepest first so a directory loses access only after its children are
// done. Unlistable directories are still returned, joined with their
// errors.
func collectTargets(inv *shell.Invocation, p string, recursive bool) ([]vfs.Info, error) {
	if !recursive {
		info, err := inv.Sys.FS.Stat(inv.Identity(), p)
		if err != nil {
			return nil, err
		}
		return []vfs.Info{info}, nil
	}
	var out []vfs.Info
	var errs []error
	err := inv.Sys.FS.Walk(inv.Identity(), p, func(info vfs.Info, err error) error {
		if err != nil {
			errs = append(errs, err)
		}
		out = append(out, info)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(out)
	return out, errors.Join(errs...)
}
