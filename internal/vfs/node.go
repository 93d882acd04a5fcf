// SPDX-License-Identifier: MPL-2.0

package vfs

import (
	"io/fs"
	"maps"
	"slices"
	"time"
)

// Kind discriminates file and directory nodes. The zero value matches
// either kind where a Kind is used as a filter.
type Kind uint8

const (
	KindAny Kind = iota
	KindFile
	KindDir
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "directory"
	default:
		return "any"
	}
}

type (
	// node is a tree entry. Only directories carry children and only files
	// carry content. There are no parent links; parents are found by walking
	// from the root.
	node struct {
		kind     Kind
		owner    string
		group    string
		mode     Mode
		mtime    time.Time
		content  []byte
		children map[string]*node
	}

	// Info is a read-only copy of a node's metadata.
	Info struct {
		Path     string
		Name     string
		Kind     Kind
		Owner    string
		Group    string
		Mode     Mode
		ModTime  time.Time
		Size     int64
		Children int
	}
)

// IsDir reports whether the node is a directory.
func (i Info) IsDir() bool { return i.Kind == KindDir }

// LongMode renders the type character and permission string, "drwxr-xr-x".
func (i Info) LongMode() string {
	if i.IsDir() {
		return "d" + i.Mode.String()
	}
	return "-" + i.Mode.String()
}

// FileMode converts the metadata to an io/fs mode.
func (i Info) FileMode() fs.FileMode {
	m := fs.FileMode(i.Mode.Perm())
	if i.IsDir() {
		m |= fs.ModeDir
	}
	return m
}

func newDir(owner, group string, mode Mode, now time.Time) *node {
	return &node{kind: KindDir, owner: owner, group: group, mode: mode, mtime: now, children: make(map[string]*node)}
}

func newFile(owner, group string, mode Mode, now time.Time, content []byte) *node {
	return &node{kind: KindFile, owner: owner, group: group, mode: mode, mtime: now, content: content}
}

func (n *node) isDir() bool { return n.kind == KindDir }

func (n *node) info(path, name string) Info {
	inf := Info{
		Path:    path,
		Name:    name,
		Kind:    n.kind,
		Owner:   n.owner,
		Group:   n.group,
		Mode:    n.mode,
		ModTime: n.mtime,
	}
	if n.isDir() {
		inf.Children = len(n.children)
	} else {
		inf.Size = int64(len(n.content))
	}
	return inf
}

// size sums the content length of every file under n.
func (n *node) size() int64 {
	if !n.isDir() {
		return int64(len(n.content))
	}
	var total int64
	for _, c := range n.children {
		total += c.size()
	}
	return total
}

// clone deep-copies n and its subtree.
func (n *node) clone() *node {
	c := *n
	c.content = slices.Clone(n.content)
	if n.children != nil {
		c.children = make(map[string]*node, len(n.children))
		for name, child := range n.children {
			c.children[name] = child.clone()
		}
	}
	return &c
}

// sortedNames returns the child names of a directory in lexical order.
func (n *node) sortedNames() []string {
	return slices.Sorted(maps.Keys(n.children))
}
