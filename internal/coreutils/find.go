// SPDX-License-Identifier: MPL-2.0

package coreutils

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/invowk/vshell/internal/shell"
	"github.com/invowk/vshell/internal/vfs"
	"github.com/invowk/vshell/pkg/vpath"
)

// findCommand implements a subset of find: -name, -type and -maxdepth.
type findCommand struct{ base }

// newFindCommand creates a new find command.
func newFindCommand() *findCommand {
	return &findCommand{base{
		name: "find",
		contract: shell.Contract{
			Usage:   "find [PATH]... [-name PATTERN] [-type f|d] [-maxdepth N]",
			Summary: "search for files in a directory hierarchy",
			Flags: []shell.FlagSpec{
				{Name: "name", TakesValue: true, Description: "base name matches shell pattern"},
				{Name: "type", TakesValue: true, Description: "file is of type f (file) or d (directory)"},
				{Name: "maxdepth", TakesValue: true, Description: "descend at most N levels below the starting points"},
			},
			Args:           shell.Any(),
			SingleDashLong: true,
		},
	}}
}

// Run executes the find command.
func (c *findCommand) Run(ctx context.Context, inv *shell.Invocation) error {
	pattern := inv.Flags.String("name", "")
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return shell.Malformed(c.name, "invalid pattern '%s'", pattern)
	}
	var kind vfs.Kind
	switch t := inv.Flags.String("type", ""); t {
	case "":
	case "f":
		kind = vfs.KindFile
	case "d":
		kind = vfs.KindDir
	default:
		return shell.Malformed(c.name, "unknown argument to -type: %s", t)
	}
	maxDepth, err := inv.Flags.Int("maxdepth", -1)
	if err != nil {
		return shell.Malformed(c.name, "%v", err)
	}

	operands := inv.Args
	if len(operands) == 0 {
		operands = []string{"."}
	}
	fails := newFailures(inv)
	for _, op := range operands {
		root := inv.Abs(op)
		err := inv.Sys.FS.Walk(inv.Identity(), root, func(info vfs.Info, werr error) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			depth := len(vpath.Split(info.Path)) - len(vpath.Split(root))
			if c.matches(info, pattern, kind) {
				fmt.Fprintln(inv.Stdout, displayPath(op, root, info.Path))
			}
			fails.add(werr)
			if info.IsDir() && maxDepth >= 0 && depth >= maxDepth {
				return fs.SkipDir
			}
			return nil
		})
		if ctx.Err() != nil {
			return err
		}
		fails.add(err)
	}
	return fails.err()
}

func (c *findCommand) matches(info vfs.Info, pattern string, kind vfs.Kind) bool {
	if kind != vfs.KindAny && info.Kind != kind {
		return false
	}
	if pattern == "" {
		return true
	}
	name := info.Name
	if info.Path == vpath.Root {
		name = vpath.Root
	}
	ok, _ := doublestar.Match(pattern, name)
	return ok
}

// displayPath renders p the way the user named its starting point: the
// operand followed by the part of p below root.
func displayPath(op, root, p string) string {
	rest := strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
	if rest == "" {
		return op
	}
	if strings.HasSuffix(op, "/") {
		return op + rest
	}
	return op + "/" + rest
}
