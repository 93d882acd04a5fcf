// SPDX-License-Identifier: MPL-2.0

package coreutils

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/invowk/vshell/internal/identity"
	"github.com/invowk/vshell/internal/shell"
	"github.com/invowk/vshell/internal/vfs"
)

// Account files useradd keeps in sync with the registry.
const (
	PasswdPath = "/etc/passwd"
	GroupPath  = "/etc/group"
)

// whoamiCommand prints the acting user.
type whoamiCommand struct{ base }

// newWhoamiCommand creates a new whoami command.
func newWhoamiCommand() *whoamiCommand {
	return &whoamiCommand{base{
		name:     "whoami",
		contract: shell.Contract{Usage: "whoami", Summary: "print effective user name", Args: shell.Exactly(0)},
	}}
}

// Run executes the whoami command.
func (c *whoamiCommand) Run(_ context.Context, inv *shell.Invocation) error {
	_, err := fmt.Fprintln(inv.Stdout, inv.Identity().Name)
	return err
}

// idCommand prints user and group names.
type idCommand struct{ base }

// newIDCommand creates a new id command.
func newIDCommand() *idCommand {
	return &idCommand{base{
		name:     "id",
		contract: shell.Contract{Usage: "id [USER]", Summary: "print user and group identity", Args: shell.AtMost(1)},
	}}
}

// Run executes the id command.
func (c *idCommand) Run(_ context.Context, inv *shell.Invocation) error {
	id, err := targetIdentity(inv)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(inv.Stdout, "uid=%s gid=%s groups=%s\n", id.Name, id.PrimaryGroup, strings.Join(id.AllGroups(), ","))
	return err
}

// groupsCommand prints group memberships.
type groupsCommand struct{ base }

// newGroupsCommand creates a new groups command.
func newGroupsCommand() *groupsCommand {
	return &groupsCommand{base{
		name:     "groups",
		contract: shell.Contract{Usage: "groups [USER]", Summary: "print the groups a user is in", Args: shell.AtMost(1)},
	}}
}

// Run executes the groups command.
func (c *groupsCommand) Run(_ context.Context, inv *shell.Invocation) error {
	id, err := targetIdentity(inv)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(inv.Stdout, strings.Join(id.AllGroups(), " "))
	return err
}

// targetIdentity is the named user, or the acting identity without one.
func targetIdentity(inv *shell.Invocation) (identity.Identity, error) {
	if len(inv.Args) == 0 {
		return inv.Identity(), nil
	}
	id, err := inv.Sys.Users.Lookup(inv.Args[0])
	if err != nil {
		return identity.Identity{}, fmt.Errorf("'%s': no such user", inv.Args[0])
	}
	return id, nil
}

// useraddCommand registers a user and creates its home directory.
type useraddCommand struct{ base }

// newUseraddCommand creates a new useradd command.
func newUseraddCommand() *useraddCommand {
	return &useraddCommand{base{
		name: "useradd",
		contract: shell.Contract{
			Usage:   "useradd [-G GROUP[,GROUP...]] NAME",
			Summary: "create a new user",
			Flags: []shell.FlagSpec{
				{Name: "groups", Short: "G", TakesValue: true, Description: "supplementary groups of the new account"},
			},
			Args: shell.Exactly(1),
		},
	}}
}

// Run executes the useradd command. Only root may add users.
func (c *useraddCommand) Run(_ context.Context, inv *shell.Invocation) error {
	name := inv.Args[0]
	if !inv.Identity().IsRoot() {
		return fmt.Errorf("cannot add user '%s': %w", name, vfs.ErrPermissionDenied)
	}
	var groups []string
	if g := inv.Flags.String("groups", ""); g != "" {
		groups = strings.Split(g, ",")
	}
	if _, err := inv.Sys.Users.AddUser(identity.UserSpec{Name: name, Groups: groups}); err != nil {
		if errors.Is(err, identity.ErrUserExists) {
			return fmt.Errorf("user '%s' already exists", name)
		}
		return err
	}

	root := identity.Root()
	home := HomeDir(name)
	err := errors.Join(
		inv.Sys.FS.Mkdir(root, home, true),
		inv.Sys.FS.Chown(root, home, name, name),
		inv.Sys.FS.Chmod(root, home, 0o700),
	)
	if err != nil {
		return err
	}
	return syncAccountFiles(inv)
}

// passwdCommand changes a password. Root may change anyone's without
// knowing the old one.
type passwdCommand struct{ base }

// newPasswdCommand creates a new passwd command.
func newPasswdCommand() *passwdCommand {
	return &passwdCommand{base{
		name:     "passwd",
		contract: shell.Contract{Usage: "passwd [USER]", Summary: "change user password", Args: shell.AtMost(1)},
	}}
}

// Run executes the passwd command.
func (c *passwdCommand) Run(ctx context.Context, inv *shell.Invocation) error {
	actor := inv.Identity()
	target := actor.Name
	if len(inv.Args) == 1 {
		target = inv.Args[0]
	}
	if _, err := inv.Sys.Users.Lookup(target); err != nil {
		return fmt.Errorf("user '%s' does not exist", target)
	}
	if !actor.IsRoot() && target != actor.Name {
		return &shell.AuthorizationError{User: actor.Name, Command: c.name, Reason: "you may not modify password information for " + target}
	}

	if !actor.IsRoot() {
		current, err := inv.Prompt(ctx, shell.InputRequest{Kind: shell.InputPassword, Message: "Current password: "})
		if err != nil {
			return err
		}
		if err := inv.Sys.Users.CheckPassword(target, current); err != nil {
			return &shell.AuthorizationError{User: actor.Name, Command: c.name, Reason: "authentication token manipulation error"}
		}
	}
	first, err := inv.Prompt(ctx, shell.InputRequest{Kind: shell.InputPassword, Message: "New password: "})
	if err != nil {
		return err
	}
	second, err := inv.Prompt(ctx, shell.InputRequest{Kind: shell.InputPassword, Message: "Retype new password: "})
	if err != nil {
		return err
	}
	switch {
	case first != second:
		return errors.New("passwords do not match")
	case first == "":
		return errors.New("no password has been supplied")
	}
	if err := inv.Sys.Users.SetPassword(target, first); err != nil {
		return err
	}
	_, err = fmt.Fprintln(inv.Stdout, "passwd: password updated successfully")
	return err
}

// syncAccountFiles rewrites /etc/passwd and /etc/group from the registry.
func syncAccountFiles(inv *shell.Invocation) error {
	root := identity.Root()
	return errors.Join(
		inv.Sys.FS.WriteFile(root, PasswdPath, []byte(inv.Sys.Users.PasswdFile())),
		inv.Sys.FS.WriteFile(root, GroupPath, []byte(inv.Sys.Users.GroupFile())),
	)
}

// HomeDir returns the home directory of a user: /root for root,
// /home/<name> for everyone else.
func HomeDir(name string) string {
	if name == identity.RootName {
		return "/root"
	}
	return "/home/" + name
}
