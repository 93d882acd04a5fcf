// SPDX-License-Identifier: MPL-2.0

package coreutils

import (
	"context"
	"fmt"

	"github.com/invowk/vshell/internal/shell"
	"github.com/invowk/vshell/internal/vfs"
)

// cdCommand implements the cd builtin.
type cdCommand struct{ base }

// newCdCommand creates a new cd command.
func newCdCommand() *cdCommand {
	return &cdCommand{base{
		name: "cd",
		contract: shell.Contract{
			Usage:   "cd [DIR | -]",
			Summary: "change the current directory",
			Args:    shell.AtMost(1),
		},
	}}
}

// Run executes the cd command.
func (c *cdCommand) Run(_ context.Context, inv *shell.Invocation) error {
	target := inv.Session.Home()
	if len(inv.Args) == 1 {
		target = inv.Args[0]
	}
	printNew := false
	if target == "-" {
		prev, ok := inv.Session.Getenv("OLDPWD")
		if !ok {
			return fmt.Errorf("OLDPWD not set")
		}
		target, printNew = prev, true
	}

	p := inv.Abs(target)
	v, err := inv.Sys.FS.Validate(inv.Identity(), p, vfs.ValidateOptions{Op: "cd into", ExpectedType: vfs.KindDir})
	if err != nil {
		return err
	}
	if !vfs.Can(v.Info, inv.Identity(), vfs.Execute) {
		return &vfs.PathError{Op: "cd into", Path: p, Err: vfs.ErrPermissionDenied}
	}
	inv.Session.Setenv("OLDPWD", inv.Session.Cwd())
	inv.Session.SetCwd(p)
	if printNew {
		fmt.Fprintln(inv.Stdout, p)
	}
	return nil
}

// pwdCommand implements the pwd builtin.
type pwdCommand struct{ base }

// newPwdCommand creates a new pwd command.
func newPwdCommand() *pwdCommand {
	return &pwdCommand{base{
		name:     "pwd",
		contract: shell.Contract{Usage: "pwd", Summary: "print the current directory", Args: shell.Exactly(0)},
	}}
}

// Run executes the pwd command.
func (c *pwdCommand) Run(_ context.Context, inv *shell.Invocation) error {
	_, err := fmt.Fprintln(inv.Stdout, inv.Session.Cwd())
	return err
}
