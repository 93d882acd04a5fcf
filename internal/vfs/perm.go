// SPDX-License-Identifier: MPL-2.0

package vfs

import "github.com/invowk/vshell/internal/identity"

// Can reports whether id holds capability c on the node described by info.
// Root always passes. Otherwise exactly one triplet applies: owner if the
// names match, else group if id belongs to the node's group, else other.
func Can(info Info, id identity.Identity, c Capability) bool {
	return allowed(info.Owner, info.Group, info.Mode, id, c)
}

func (n *node) can(id identity.Identity, c Capability) bool {
	return allowed(n.owner, n.group, n.mode, id, c)
}

func allowed(owner, group string, mode Mode, id identity.Identity, c Capability) bool {
	if id.IsRoot() {
		return true
	}
	var shift uint
	switch {
	case owner == id.Name:
		shift = 6
	case id.InGroup(group):
		shift = 3
	}
	return (mode>>shift)&Mode(c) != 0
}
