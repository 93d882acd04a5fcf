// SPDX-License-Identifier: MPL-2.0

package coreutils

import (
	"context"
	"fmt"
	"strconv"

	"github.com/invowk/vshell/internal/shell"
)

// dfCommand reports the store's usage against its quota.
type dfCommand struct{ base }

// newDfCommand creates a new df command.
func newDfCommand() *dfCommand {
	return &dfCommand{base{
		name: "df",
		contract: shell.Contract{
			Usage:   "df",
			Summary: "report file system space usage",
			Args:    shell.Exactly(0),
		},
	}}
}

// Run executes the df command.
func (c *dfCommand) Run(_ context.Context, inv *shell.Invocation) error {
	used := inv.Sys.FS.Usage()
	quota := inv.Sys.FS.Quota()
	size, avail, pct := "-", "-", "-"
	if quota > 0 {
		size = strconv.FormatInt(quota, 10)
		avail = strconv.FormatInt(max(quota-used, 0), 10)
		pct = strconv.FormatInt(used*100/quota, 10) + "%"
	}
	fmt.Fprintf(inv.Stdout, "%-10s %12s %12s %12s %5s %s\n", "Filesystem", "Bytes", "Used", "Available", "Use%", "Mounted on")
	fmt.Fprintf(inv.Stdout, "%-10s %12s %12d %12s %5s %s\n", "vfs", size, used, avail, pct, "/")
	return nil
}
