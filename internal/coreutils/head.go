// SPDX-License-Identifier: MPL-2.0

package coreutils

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/invowk/vshell/internal/shell"
)

const defaultLineCount = 10

// headCommand implements the head utility.
type headCommand struct{ base }

// newHeadCommand creates a new head command.
func newHeadCommand() *headCommand {
	return &headCommand{base{
		name: "head",
		contract: shell.Contract{
			Usage:       "head [-n N] [FILE]...",
			Summary:     "output the first part of files",
			Flags:       []shell.FlagSpec{{Name: "lines", Short: "n", TakesValue: true, Description: "print the first N lines"}},
			Args:        shell.Any(),
			NumericFlag: "lines",
		},
	}}
}

// Run executes the head command.
func (c *headCommand) Run(ctx context.Context, inv *shell.Invocation) error {
	n, err := inv.Flags.Int("lines", defaultLineCount)
	if err != nil || n < 0 {
		return shell.Malformed(c.name, "invalid number of lines: '%s'", inv.Flags.String("lines", ""))
	}
	return processFilesOrStdin(ctx, inv, inv.Args, func(r io.Reader, filename string, index, total int) error {
		printHeader(inv.Stdout, filename, index, total)
		lines, err := readLines(r)
		if err != nil {
			return err
		}
		return writeLines(inv.Stdout, lines[:min(n, len(lines))])
	})
}

// tailCommand implements the tail utility. "-n +N" starts at line N.
type tailCommand struct{ base }

// newTailCommand creates a new tail command.
func newTailCommand() *tailCommand {
	return &tailCommand{base{
		name: "tail",
		contract: shell.Contract{
			Usage:       "tail [-n [+]N] [FILE]...",
			Summary:     "output the last part of files",
			Flags:       []shell.FlagSpec{{Name: "lines", Short: "n", TakesValue: true, Description: "print the last N lines, or from line N with +N"}},
			Args:        shell.Any(),
			NumericFlag: "lines",
		},
	}}
}

// Run executes the tail command.
func (c *tailCommand) Run(ctx context.Context, inv *shell.Invocation) error {
	spec := inv.Flags.String("lines", strconv.Itoa(defaultLineCount))
	fromStart := strings.HasPrefix(spec, "+")
	n, err := strconv.Atoi(strings.TrimPrefix(spec, "+"))
	if err != nil || n < 0 {
		return shell.Malformed(c.name, "invalid number of lines: '%s'", spec)
	}
	return processFilesOrStdin(ctx, inv, inv.Args, func(r io.Reader, filename string, index, total int) error {
		printHeader(inv.Stdout, filename, index, total)
		lines, err := readLines(r)
		if err != nil {
			return err
		}
		if fromStart {
			return writeLines(inv.Stdout, lines[min(max(n-1, 0), len(lines)):])
		}
		return writeLines(inv.Stdout, lines[max(len(lines)-n, 0):])
	})
}

// printHeader prints the "==> name <==" separator used with several files.
func printHeader(w io.Writer, filename string, index, total int) {
	if total <= 1 {
		return
	}
	if index > 0 {
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "==> %s <==\n", filename)
}
