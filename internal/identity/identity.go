// SPDX-License-Identifier: MPL-2.0

// Package identity is the user and group registry of the simulated system.
// It hands out read-only Identity values to the filesystem and the sudoers
// engine and owns the password hashes the privilege commands check against.
package identity

import "slices"

// RootName is the name of the superuser and of its primary group.
const RootName = "root"

// Identity is an acting user as seen by permission checks. Values are
// copies; mutating one never changes the registry.
type Identity struct {
	Name         string
	PrimaryGroup string
	Groups       []string
}

// Root returns the superuser identity.
func Root() Identity {
	return Identity{Name: RootName, PrimaryGroup: RootName}
}

// IsRoot reports whether id is the superuser.
func (id Identity) IsRoot() bool { return id.Name == RootName }

// InGroup reports whether id belongs to group, counting the primary group.
func (id Identity) InGroup(group string) bool {
	return group != "" && (id.PrimaryGroup == group || slices.Contains(id.Groups, group))
}

// AllGroups returns the primary group followed by the supplementary ones.
func (id Identity) AllGroups() []string {
	out := make([]string, 0, len(id.Groups)+1)
	out = append(out, id.PrimaryGroup)
	for _, g := range id.Groups {
		if g != id.PrimaryGroup && !slices.Contains(out, g) {
			out = append(out, g)
		}
	}
	return out
}
