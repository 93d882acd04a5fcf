// SPDX-License-Identifier: MPL-2.0

package coreutils

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/invowk/vshell/internal/shell"
)

// seqCommand implements the seq utility with integer arguments.
type seqCommand struct{ base }

// newSeqCommand creates a new seq command.
func newSeqCommand() *seqCommand {
	return &seqCommand{base{
		name: "seq",
		contract: shell.Contract{
			Usage:   "seq [-s SEP] [FIRST [INCREMENT]] LAST",
			Summary: "print a sequence of numbers",
			Flags:   []shell.FlagSpec{{Name: "separator", Short: "s", TakesValue: true, Description: "use SEP to separate numbers"}},
			Args:    shell.Between(1, 3),
		},
	}}
}

// Run executes the seq command.
func (c *seqCommand) Run(ctx context.Context, inv *shell.Invocation) error {
	nums := make([]int, len(inv.Args))
	for i, a := range inv.Args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return shell.Malformed(c.name, "invalid argument: '%s'", a)
		}
		nums[i] = n
	}
	first, step, last := 1, 1, nums[len(nums)-1]
	switch len(nums) {
	case 2:
		first = nums[0]
	case 3:
		first, step = nums[0], nums[1]
	}
	if step == 0 {
		return shell.Malformed(c.name, "invalid zero increment value: '%s'", inv.Args[1])
	}

	var parts []string
	for n := first; step > 0 && n <= last || step < 0 && n >= last; n += step {
		if err := ctx.Err(); err != nil {
			return err
		}
		parts = append(parts, strconv.Itoa(n))
	}
	if len(parts) == 0 {
		return nil
	}
	_, err := fmt.Fprintln(inv.Stdout, strings.Join(parts, inv.Flags.String("separator", "\n")))
	return err
}
