// SPDX-License-Identifier: MPL-2.0

// Package vpath canonicalizes slash-separated paths inside the virtual
// filesystem. It never consults the tree itself: every function here is pure
// string algebra, so a resolved path says nothing about whether a node exists.
package vpath

import "strings"

// Root is the absolute path of the filesystem root.
const Root = "/"

// Resolve turns target into a canonical absolute path relative to base.
// An absolute target ignores base. Empty and "." segments are dropped and
// ".." pops the previous segment, stopping at the root. An empty base is
// treated as the root.
func Resolve(target, base string) string {
	var stack []string
	if !IsAbs(target) {
		stack = pushSegments(stack, base)
	}
	stack = pushSegments(stack, target)
	if len(stack) == 0 {
		return Root
	}
	return Root + strings.Join(stack, "/")
}

func pushSegments(stack []string, p string) []string {
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, seg)
		}
	}
	return stack
}

// IsAbs reports whether p starts at the root.
func IsAbs(p string) bool {
	return strings.HasPrefix(p, Root)
}

// IsRoot reports whether p canonicalizes to the root.
func IsRoot(p string) bool {
	return Resolve(p, Root) == Root
}

// Split returns the segments of the canonical form of p. The root has no
// segments.
func Split(p string) []string {
	clean := Resolve(p, Root)
	if clean == Root {
		return nil
	}
	return strings.Split(clean[1:], "/")
}

// Join appends elem to base and canonicalizes the result.
func Join(base string, elem ...string) string {
	out := Resolve(base, Root)
	for _, e := range elem {
		out = Resolve(e, out)
	}
	return out
}

// Dir returns the canonical parent of p. The parent of the root is the root.
func Dir(p string) string {
	return Resolve("..", Resolve(p, Root))
}

// Base returns the last segment of p, or "/" for the root.
func Base(p string) string {
	segs := Split(p)
	if len(segs) == 0 {
		return Root
	}
	return segs[len(segs)-1]
}

// HasPrefix reports whether ancestor is p or one of its ancestors, comparing
// whole segments so that "/home/al" is not a prefix of "/home/alice".
func HasPrefix(p, ancestor string) bool {
	p, ancestor = Resolve(p, Root), Resolve(ancestor, Root)
	if ancestor == Root || p == ancestor {
		return true
	}
	return strings.HasPrefix(p, ancestor+"/")
}
