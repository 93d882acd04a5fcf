// SPDX-License-Identifier: MPL-2.0

package vfs

import (
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

const (
	recordFile = "file"
	recordDir  = "dir"
)

// record is the serialized form of a node. File content is base64 through
// the []byte encoding; mode is an octal string.
type record struct {
	Type     string             `json:"type"`
	Owner    string             `json:"owner"`
	Group    string             `json:"group"`
	Mode     string             `json:"mode"`
	Mtime    time.Time          `json:"mtime"`
	Content  []byte             `json:"content,omitempty"`
	Children map[string]*record `json:"children,omitempty"`
}

// snapshotAPI sorts map keys so equal trees encode to equal bytes.
var snapshotAPI = sonic.ConfigStd

func toRecord(n *node) *record {
	r := &record{
		Owner: n.owner,
		Group: n.group,
		Mode:  n.mode.Octal(),
		Mtime: n.mtime.UTC(),
	}
	if !n.isDir() {
		r.Type = recordFile
		r.Content = n.content
		return r
	}
	r.Type = recordDir
	r.Children = make(map[string]*record, len(n.children))
	for name, c := range n.children {
		r.Children[name] = toRecord(c)
	}
	return r
}

func fromRecord(r *record, path string) (*node, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: empty record at %s", ErrCorruptSnapshot, path)
	}
	mode, err := ParseMode(r.Mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptSnapshot, path, err)
	}
	if r.Owner == "" || r.Group == "" {
		return nil, fmt.Errorf("%w: %s: missing owner or group", ErrCorruptSnapshot, path)
	}
	switch r.Type {
	case recordFile:
		if len(r.Children) > 0 {
			return nil, fmt.Errorf("%w: %s: file with children", ErrCorruptSnapshot, path)
		}
		return newFile(r.Owner, r.Group, mode, r.Mtime, r.Content), nil
	case recordDir:
		n := newDir(r.Owner, r.Group, mode, r.Mtime)
		for name, c := range r.Children {
			if name == "" || name == "." || name == ".." || strings.Contains(name, "/") {
				return nil, fmt.Errorf("%w: %s: invalid child name %q", ErrCorruptSnapshot, path, name)
			}
			child, err := fromRecord(c, strings.TrimSuffix(path, "/")+"/"+name)
			if err != nil {
				return nil, err
			}
			n.children[name] = child
		}
		return n, nil
	default:
		return nil, fmt.Errorf("%w: %s: unknown type %q", ErrCorruptSnapshot, path, r.Type)
	}
}

func encodeTree(root *node) ([]byte, error) {
	data, err := snapshotAPI.Marshal(toRecord(root))
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

func decodeTree(data []byte) (*node, error) {
	var r record
	if err := snapshotAPI.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	root, err := fromRecord(&r, "/")
	if err != nil {
		return nil, err
	}
	if !root.isDir() {
		return nil, fmt.Errorf("%w: root is not a directory", ErrCorruptSnapshot)
	}
	return root, nil
}

// Export returns the current tree, committed or not, as indented JSON.
func (s *Store) Export() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := snapshotAPI.MarshalIndent(toRecord(s.root), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}
