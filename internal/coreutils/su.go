// SPDX-License-Identifier: MPL-2.0

package coreutils

import (
	"context"
	"strconv"

	"github.com/invowk/vshell/internal/identity"
	"github.com/invowk/vshell/internal/shell"
	"github.com/invowk/vshell/pkg/types"
)

// suCommand opens a shell frame as another user.
type suCommand struct{ base }

// newSuCommand creates a new su command.
func newSuCommand() *suCommand {
	return &suCommand{base{
		name: "su",
		contract: shell.Contract{
			Usage:   "su [-] [-l] [USER]",
			Summary: "switch user",
			Flags: []shell.FlagSpec{
				{Name: "login", Short: "l", Description: "start a login shell in the user's home"},
			},
			Args:                  shell.AtMost(2),
			StopAtFirstPositional: true,
		},
	}}
}

// Run executes the su command. Root switches without a password.
func (c *suCommand) Run(ctx context.Context, inv *shell.Invocation) error {
	args := inv.Args
	login := inv.Flags.Bool("login")
	if len(args) > 0 && args[0] == "-" {
		login, args = true, args[1:]
	}
	if len(args) > 1 {
		return &shell.MalformedCommandError{Command: c.name, Reason: "too many arguments", Usage: c.contract.Usage}
	}
	name := identity.RootName
	if len(args) == 1 {
		name = args[0]
	}
	target, err := inv.Sys.Users.Lookup(name)
	if err != nil {
		return &shell.AuthorizationError{User: inv.Identity().Name, Command: c.name, Reason: "user " + name + " does not exist"}
	}

	actor := inv.Identity()
	if !actor.IsRoot() {
		password, err := inv.Prompt(ctx, shell.InputRequest{Kind: shell.InputPassword, Message: "Password: "})
		if err != nil {
			return err
		}
		if err := inv.Sys.Users.CheckPassword(name, password); err != nil {
			inv.Sys.Logger().Warn("su authentication failed", "user", actor.Name, "target", name)
			return &shell.AuthorizationError{User: actor.Name, Command: c.name, Reason: "Authentication failure"}
		}
	}
	inv.Sys.Logger().Info("su", "user", actor.Name, "target", name, "login", login, "session", inv.Session.ID())
	inv.Session.Push(target, HomeDir(name), login)
	return nil
}

// exitCommand closes the current shell frame.
type exitCommand struct {
	base
	logout bool
}

// newExitCommand creates the exit command.
func newExitCommand() *exitCommand {
	return &exitCommand{base: base{
		name:     "exit",
		contract: shell.Contract{Usage: "exit [N]", Summary: "leave the current shell", Args: shell.AtMost(1)},
	}}
}

// newLogoutCommand creates logout, which also forgets sudo credentials.
func newLogoutCommand() *exitCommand {
	return &exitCommand{
		base: base{
			name:     "logout",
			contract: shell.Contract{Usage: "logout", Summary: "leave the current shell and drop sudo credentials", Args: shell.Exactly(0)},
		},
		logout: true,
	}
}

// Run executes exit or logout.
func (c *exitCommand) Run(_ context.Context, inv *shell.Invocation) error {
	code := inv.Session.Status()
	if len(inv.Args) == 1 {
		n, err := strconv.Atoi(inv.Args[0])
		if err != nil {
			return shell.Malformed(c.name, "%s: numeric argument required", inv.Args[0])
		}
		code = types.ExitCode(n & 0xff)
	}
	id := inv.Identity()
	if !inv.Session.Pop() || c.logout {
		inv.Sys.Sudoers.Clear(id)
	}
	if code != types.ExitSuccess {
		return &shell.ExitStatusError{Code: code}
	}
	return nil
}
