// SPDX-License-Identifier: MPL-2.0

package coreutils

import (
	"context"
	"fmt"
	"io"

	"github.com/invowk/vshell/internal/shell"
	"github.com/invowk/vshell/internal/vfs"
)

// statCommand implements the stat utility.
type statCommand struct{ base }

// newStatCommand creates a new stat command.
func newStatCommand() *statCommand {
	return &statCommand{base{
		name: "stat",
		contract: shell.Contract{
			Usage:   "stat PATH...",
			Summary: "display file status",
			Args:    shell.AtLeast(1),
		},
	}}
}

// Run executes the stat command.
func (c *statCommand) Run(_ context.Context, inv *shell.Invocation) error {
	fails := newFailures(inv)
	for _, p := range inv.Args {
		info, err := inv.Sys.FS.Stat(inv.Identity(), inv.Abs(p))
		if err != nil {
			fails.add(err)
			continue
		}
		printStat(inv.Stdout, p, info)
	}
	return fails.err()
}

func printStat(w io.Writer, name string, info vfs.Info) {
	kind := "regular file"
	size := info.Size
	if info.IsDir() {
		kind = "directory"
		size = int64(info.Children)
	}
	if !info.IsDir() && info.Size == 0 {
		kind = "regular empty file"
	}
	fmt.Fprintf(w, "  File: %s\n", name)
	fmt.Fprintf(w, "  Size: %-10d Type: %s\n", size, kind)
	fmt.Fprintf(w, "Access: (%s/%s)  Owner: %s  Group: %s\n", info.Mode.Octal(), info.LongMode(), info.Owner, info.Group)
	fmt.Fprintf(w, "Modify: %s\n", info.ModTime.Format("2006-01-02 15:04:05.000000000 -0700"))
}
