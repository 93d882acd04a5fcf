// SPDX-License-Identifier: MPL-2.0

package vfs

import (
	"time"

	"github.com/invowk/vshell/internal/identity"
	"github.com/invowk/vshell/pkg/vpath"
)

type (
	// Seed describes the tree a fresh store starts with: the standard
	// directories, a home per user and any extra files.
	Seed struct {
		// Users get /home/<name> owned by them with mode 0700.
		Users []string
		Files []SeedFile
	}

	// SeedFile is a file placed by the seed. Missing parents are created
	// owned by root. Zero Owner and Mode mean root and DefaultFileMode.
	SeedFile struct {
		Path    string
		Content string
		Owner   string
		Group   string
		Mode    Mode
	}
)

var standardDirs = []struct {
	path string
	mode Mode
}{
	{"/bin", 0o755},
	{"/etc", 0o755},
	{"/home", 0o755},
	{"/root", 0o700},
	{"/tmp", 0o777},
	{"/var", 0o755},
	{"/var/log", 0o755},
}

func (sd Seed) build(now time.Time) *node {
	const root = identity.RootName
	top := newDir(root, root, DefaultDirMode, now)

	dir := func(p string) *node {
		cur := top
		for _, seg := range vpath.Split(p) {
			next, ok := cur.children[seg]
			if !ok {
				next = newDir(root, root, DefaultDirMode, now)
				cur.children[seg] = next
			}
			cur = next
		}
		return cur
	}

	for _, d := range standardDirs {
		dir(d.path).mode = d.mode
	}
	for _, u := range sd.Users {
		if u == root {
			continue
		}
		home := dir("/home/" + u)
		home.owner, home.group, home.mode = u, u, 0o700
	}
	for _, f := range sd.Files {
		p := vpath.Resolve(f.Path, vpath.Root)
		if p == vpath.Root {
			continue
		}
		owner, group, mode := f.Owner, f.Group, f.Mode
		if owner == "" {
			owner = root
		}
		if group == "" {
			group = owner
		}
		if mode == 0 {
			mode = DefaultFileMode
		}
		dir(vpath.Dir(p)).children[vpath.Base(p)] = newFile(owner, group, mode, now, []byte(f.Content))
	}
	return top
}
