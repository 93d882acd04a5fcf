// SPDX-License-Identifier: MPL-2.0

package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/invowk/vshell/internal/config"
	"github.com/invowk/vshell/internal/coreutils"
	"github.com/invowk/vshell/internal/identity"
	"github.com/invowk/vshell/internal/vfs"
)

const motd = "Welcome to vshell. Type 'help' to list the commands.\n"

// buildRegistry registers the configured groups and users. A "root" entry
// only sets root's password and supplementary groups.
func buildRegistry(cfg *config.Config) (*identity.Registry, error) {
	reg := identity.NewRegistry(cfg.BcryptCost)
	for _, g := range cfg.Groups {
		if err := reg.AddGroup(g); err != nil {
			return nil, err
		}
	}
	for _, u := range cfg.Users {
		if u.Name != identity.RootName {
			if _, err := reg.AddUser(identity.UserSpec{Name: u.Name, Password: u.Password, Groups: u.Groups}); err != nil {
				return nil, err
			}
			continue
		}
		if u.Password != "" {
			if err := reg.SetPassword(identity.RootName, u.Password); err != nil {
				return nil, err
			}
		}
		for _, g := range u.Groups {
			if err := reg.AddToGroup(identity.RootName, g); err != nil {
				return nil, err
			}
		}
	}
	return reg, nil
}

// DefaultSudoers is the policy written on first run: the default user may
// run anything, as may members of wheel.
func DefaultSudoers(defaultUser string) string {
	var b strings.Builder
	b.WriteString("# <user|%group> [NOPASSWD:] ALL | command[, command...]\n")
	b.WriteString("Defaults timestamp_timeout=15\n")
	if defaultUser != "" && defaultUser != identity.RootName {
		fmt.Fprintf(&b, "%s ALL\n", defaultUser)
	}
	b.WriteString("%wheel ALL\n")
	return b.String()
}

// seed is the tree a fresh backend starts with.
func seed(cfg *config.Config, reg *identity.Registry) vfs.Seed {
	var homes []string
	for _, name := range reg.Users() {
		if name != identity.RootName {
			homes = append(homes, name)
		}
	}
	return vfs.Seed{
		Users: homes,
		Files: []vfs.SeedFile{
			{Path: "/etc/hostname", Content: cfg.Hostname + "\n"},
			{Path: "/etc/motd", Content: motd},
			{Path: coreutils.PasswdPath, Content: reg.PasswdFile()},
			{Path: coreutils.GroupPath, Content: reg.GroupFile()},
			{Path: cfg.SudoersPath, Content: DefaultSudoers(cfg.DefaultUser), Mode: 0o440},
		},
	}
}

// restoreAccounts registers users and memberships that a loaded snapshot
// records in /etc/passwd and /etc/group but the configuration does not
// declare, typically accounts made with useradd. They come back without a
// password. The account files are then rewritten so they list configured
// users too.
func restoreAccounts(store *vfs.Store, reg *identity.Registry, logger *log.Logger) error {
	root := identity.Root()
	passwd, err := store.ReadFile(root, coreutils.PasswdPath)
	if err != nil && !errors.Is(err, vfs.ErrNotFound) {
		return fmt.Errorf("read account files: %w", err)
	}
	for _, line := range strings.Split(string(passwd), "\n") {
		name, _, ok := strings.Cut(line, ":")
		if !ok || name == "" {
			continue
		}
		if _, err := reg.Lookup(name); err == nil {
			continue
		}
		if _, err := reg.AddUser(identity.UserSpec{Name: name}); err != nil {
			logger.Warn("skipping account from /etc/passwd", "user", name, "err", err)
			continue
		}
		logger.Info("restored account without password", "user", name)
	}

	group, err := store.ReadFile(root, coreutils.GroupPath)
	if err != nil && !errors.Is(err, vfs.ErrNotFound) {
		return fmt.Errorf("read account files: %w", err)
	}
	for _, line := range strings.Split(string(group), "\n") {
		fields := strings.Split(line, ":")
		if len(fields) != 4 || fields[0] == "" {
			continue
		}
		for _, member := range strings.Split(fields[3], ",") {
			if member == "" {
				continue
			}
			if err := reg.AddToGroup(member, fields[0]); err != nil {
				logger.Warn("skipping group membership", "group", fields[0], "user", member, "err", err)
			}
		}
	}

	return syncAccountFiles(store, reg)
}

// syncAccountFiles rewrites the account files when they differ from the
// registry. A missing /etc directory is left alone.
func syncAccountFiles(store *vfs.Store, reg *identity.Registry) error {
	root := identity.Root()
	if !store.Exists(root, "/etc") {
		return nil
	}
	var errs []error
	for p, want := range map[string]string{
		coreutils.PasswdPath: reg.PasswdFile(),
		coreutils.GroupPath:  reg.GroupFile(),
	} {
		if got, err := store.ReadFile(root, p); err == nil && string(got) == want {
			continue
		}
		errs = append(errs, store.WriteFile(root, p, []byte(want)))
	}
	return errors.Join(errs...)
}
