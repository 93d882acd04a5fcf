// SPDX-License-Identifier: MPL-2.0

package coreutils

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/invowk/vshell/internal/identity"
	"github.com/invowk/vshell/internal/shell"
)

// sudoCommand runs one command as root when the sudoers policy allows it.
type sudoCommand struct{ base }

// newSudoCommand creates a new sudo command.
func newSudoCommand() *sudoCommand {
	return &sudoCommand{base{
		name: "sudo",
		contract: shell.Contract{
			Usage:   "sudo [-k] [-l] COMMAND [ARG]...",
			Summary: "execute a command as root",
			Flags: []shell.FlagSpec{
				{Name: "reset-timestamp", Short: "k", Description: "invalidate the cached credentials"},
				{Name: "list", Short: "l", Description: "list the commands the user may run"},
			},
			Args:                  shell.Any(),
			StopAtFirstPositional: true,
		},
	}}
}

// Run executes the sudo command.
func (c *sudoCommand) Run(ctx context.Context, inv *shell.Invocation) error {
	id := inv.Identity()
	engine := inv.Sys.Sudoers

	if inv.Flags.Bool("reset-timestamp") {
		engine.Clear(id)
		if len(inv.Args) == 0 {
			return nil
		}
	}
	if inv.Flags.Bool("list") {
		return c.list(inv, id)
	}
	if len(inv.Args) == 0 {
		return &shell.MalformedCommandError{Command: c.name, Reason: "missing command", Usage: c.contract.Usage}
	}

	command := inv.Args[0]
	if !id.IsRoot() {
		if err := c.authenticate(ctx, inv, id, command); err != nil {
			return err
		}
	}
	inv.Sys.Logger().Info("sudo", "user", id.Name, "command", strings.Join(inv.Args, " "), "session", inv.Session.ID())
	return inv.Exec(ctx, inv.Session.As(identity.Root()), inv.Args)
}

// authenticate applies the policy and, unless the grant is NOPASSWD or
// the timestamp is still valid, runs the password challenge.
func (c *sudoCommand) authenticate(ctx context.Context, inv *shell.Invocation, id identity.Identity, command string) error {
	engine := inv.Sys.Sudoers
	rule, ok, err := engine.Match(id)
	if err != nil {
		return err
	}
	if !ok || !rule.Grant.Allows(command) {
		inv.Sys.Logger().Warn("sudo refused", "user", id.Name, "command", command)
		reason := fmt.Sprintf("%s is not in the sudoers file", id.Name)
		if ok {
			reason = fmt.Sprintf("user %s is not allowed to execute '%s' as root on %s", id.Name, strings.Join(inv.Args, " "), inv.Sys.Hostname)
		}
		return &shell.AuthorizationError{User: id.Name, Command: command, Reason: reason}
	}
	if rule.Grant.NoPassword {
		return nil
	}
	valid, err := engine.IsTimestampValid(id)
	if err != nil || valid {
		return err
	}

	tries := inv.Sys.Tries()
	for attempt := 1; attempt <= tries; attempt++ {
		password, err := inv.Prompt(ctx, shell.InputRequest{
			Kind:    shell.InputPassword,
			Message: fmt.Sprintf("[sudo] password for %s: ", id.Name),
		})
		if err != nil {
			return err
		}
		err = inv.Sys.Users.CheckPassword(id.Name, password)
		if err == nil {
			engine.RecordSuccess(id)
			return nil
		}
		if !errors.Is(err, identity.ErrBadPassword) {
			return err
		}
		if attempt < tries {
			fmt.Fprintln(inv.Stderr, "Sorry, try again.")
		}
	}
	inv.Sys.Logger().Warn("sudo authentication failed", "user", id.Name, "attempts", tries)
	return &shell.AuthorizationError{User: id.Name, Command: command, Reason: fmt.Sprintf("%d incorrect password attempts", tries)}
}

func (c *sudoCommand) list(inv *shell.Invocation, id identity.Identity) error {
	if id.IsRoot() {
		_, err := fmt.Fprintf(inv.Stdout, "User %s may run the following commands on %s:\n    (root) ALL\n", id.Name, inv.Sys.Hostname)
		return err
	}
	rules, err := inv.Sys.Sudoers.Rules(id)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		return &shell.AuthorizationError{User: id.Name, Command: c.name, Reason: fmt.Sprintf("user %s may not run sudo on %s", id.Name, inv.Sys.Hostname)}
	}
	fmt.Fprintf(inv.Stdout, "User %s may run the following commands on %s:\n", id.Name, inv.Sys.Hostname)
	for _, r := range rules {
		fmt.Fprintf(inv.Stdout, "    (root) %s\n", r.Grant)
	}
	return nil
}
