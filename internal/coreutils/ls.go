// SPDX-License-Identifier: MPL-2.0

package coreutils

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/invowk/vshell/internal/shell"
	"github.com/invowk/vshell/internal/vfs"
)

// lsCommand implements the ls utility.
type lsCommand struct{ base }

// newLsCommand creates a new ls command.
func newLsCommand() *lsCommand {
	return &lsCommand{base{
		name: "ls",
		contract: shell.Contract{
			Usage:   "ls [-lad] [PATH]...",
			Summary: "list directory contents",
			Flags: []shell.FlagSpec{
				{Name: "long", Short: "l", Description: "use a long listing format"},
				{Name: "all", Short: "a", Description: "do not ignore entries starting with ."},
				{Name: "directory", Short: "d", Description: "list directories themselves, not their contents"},
			},
			Args: shell.Any(),
		},
	}}
}

// Run executes the ls command.
func (c *lsCommand) Run(_ context.Context, inv *shell.Invocation) error {
	long := inv.Flags.Bool("long")
	all := inv.Flags.Bool("all")
	dirOnly := inv.Flags.Bool("directory")

	operands := inv.Args
	if len(operands) == 0 {
		operands = []string{"."}
	}

	fails := newFailures(inv)
	var files []vfs.Info
	var fileNames []string
	var dirs []vfs.Info
	for _, op := range operands {
		info, err := inv.Sys.FS.Stat(inv.Identity(), inv.Abs(op))
		if err != nil {
			fails.add(err)
			continue
		}
		if info.IsDir() && !dirOnly {
			dirs = append(dirs, info)
			continue
		}
		files = append(files, info)
		fileNames = append(fileNames, op)
	}

	for i, info := range files {
		c.printEntry(inv.Stdout, info, fileNames[i], long)
	}
	for i, dir := range dirs {
		entries, err := inv.Sys.FS.ReadDir(inv.Identity(), dir.Path)
		if err != nil {
			fails.add(err)
			continue
		}
		if len(operands) > 1 {
			if i > 0 || len(files) > 0 {
				fmt.Fprintln(inv.Stdout)
			}
			fmt.Fprintf(inv.Stdout, "%s:\n", operandFor(operands, dir, inv))
		}
		if long {
			fmt.Fprintf(inv.Stdout, "total %d\n", len(entries))
		}
		for _, e := range entries {
			if !all && strings.HasPrefix(e.Name, ".") {
				continue
			}
			c.printEntry(inv.Stdout, e, e.Name, long)
		}
	}
	return fails.err()
}

func (c *lsCommand) printEntry(w io.Writer, info vfs.Info, name string, long bool) {
	if !long {
		fmt.Fprintln(w, name)
		return
	}
	size := info.Size
	if info.IsDir() {
		size = int64(info.Children)
	}
	fmt.Fprintf(w, "%s %-8s %-8s %8d %s %s\n",
		info.LongMode(), info.Owner, info.Group, size, info.ModTime.Format("Jan _2 15:04"), name)
}

// operandFor returns the operand that named dir, for section headers.
func operandFor(operands []string, dir vfs.Info, inv *shell.Invocation) string {
	for _, op := range operands {
		if inv.Abs(op) == dir.Path {
			return op
		}
	}
	return dir.Path
}
