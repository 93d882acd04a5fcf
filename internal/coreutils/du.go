// SPDX-License-Identifier: MPL-2.0

package coreutils

import (
	"context"
	"fmt"

	"github.com/invowk/vshell/internal/shell"
	"github.com/invowk/vshell/internal/vfs"
	"github.com/invowk/vshell/pkg/vpath"
)

// duCommand implements du. Sizes are content bytes, not blocks.
type duCommand struct{ base }

// newDuCommand creates a new du command.
func newDuCommand() *duCommand {
	return &duCommand{base{
		name: "du",
		contract: shell.Contract{
			Usage:   "du [-s] [PATH]...",
			Summary: "estimate file space usage",
			Flags:   []shell.FlagSpec{{Name: "summarize", Short: "s", Description: "display only a total for each argument"}},
			Args:    shell.Any(),
		},
	}}
}

// Run executes the du command.
func (c *duCommand) Run(_ context.Context, inv *shell.Invocation) error {
	operands := inv.Args
	if len(operands) == 0 {
		operands = []string{"."}
	}
	fails := newFailures(inv)
	for _, op := range operands {
		root := inv.Abs(op)
		var tree []vfs.Info
		totals := make(map[string]int64)
		err := inv.Sys.FS.Walk(inv.Identity(), root, func(info vfs.Info, werr error) error {
			fails.add(werr)
			tree = append(tree, info)
			if !info.IsDir() {
				for p := info.Path; ; p = vpath.Dir(p) {
					totals[p] += info.Size
					if p == root || p == vpath.Root {
						break
					}
				}
			}
			return nil
		})
		if err != nil {
			fails.add(err)
			continue
		}
		if inv.Flags.Bool("summarize") || !tree[0].IsDir() {
			fmt.Fprintf(inv.Stdout, "%d\t%s\n", totals[root], op)
			continue
		}
		c.printPostOrder(inv, op, root, tree, totals)
	}
	return fails.err()
}

// printPostOrder prints every directory after its subdirectories, walking
// the pre-order listing with a stack of open directories.
func (c *duCommand) printPostOrder(inv *shell.Invocation, op, root string, tree []vfs.Info, totals map[string]int64) {
	var open []string
	closeUntil := func(p string) {
		for len(open) > 0 {
			top := open[len(open)-1]
			if p != "" && vpath.HasPrefix(p, top) {
				return
			}
			open = open[:len(open)-1]
			fmt.Fprintf(inv.Stdout, "%d\t%s\n", totals[top], displayPath(op, root, top))
		}
	}
	for _, info := range tree {
		if !info.IsDir() {
			continue
		}
		closeUntil(info.Path)
		open = append(open, info.Path)
	}
	closeUntil("")
}
