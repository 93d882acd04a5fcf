// SPDX-License-Identifier: MPL-2.0

// Package vfs implements the in-memory filesystem tree of the simulated
// system: nodes with owner, group and mode, the permission evaluator that
// guards every traversal, the mutating operations shell commands build on,
// and quota-checked snapshot commits through a persist.Adapter.
//
// Every exported operation takes the acting identity and a path. Paths are
// canonicalized with vpath.Resolve against the root, so callers resolve
// relative paths against their working directory first. Values returned to
// callers are copies; the tree itself is only reachable through a Store.
package vfs
