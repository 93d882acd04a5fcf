// SPDX-License-Identifier: MPL-2.0

package coreutils

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/invowk/vshell/internal/shell"
)

// sortCommand implements the sort utility.
type sortCommand struct{ base }

// newSortCommand creates a new sort command.
func newSortCommand() *sortCommand {
	return &sortCommand{base{
		name: "sort",
		contract: shell.Contract{
			Usage:   "sort [-runfb] [FILE]...",
			Summary: "sort lines of text",
			Flags: []shell.FlagSpec{
				{Name: "reverse", Short: "r", Description: "reverse the result of comparisons"},
				{Name: "unique", Short: "u", Description: "output only the first of equal lines"},
				{Name: "numeric-sort", Short: "n", Description: "compare according to numerical value"},
				{Name: "ignore-case", Short: "f", Description: "fold lower case to upper case"},
				{Name: "ignore-leading-blanks", Short: "b", Description: "ignore leading blanks"},
			},
			Args: shell.Any(),
		},
	}}
}

// Run executes the sort command. Input from every operand is merged
// before sorting.
func (c *sortCommand) Run(ctx context.Context, inv *shell.Invocation) error {
	var lines []string
	err := processFilesOrStdin(ctx, inv, inv.Args, func(r io.Reader, _ string, _, _ int) error {
		got, err := readLines(r)
		lines = append(lines, got...)
		return err
	})
	if err != nil && lines == nil {
		return err
	}

	key := func(s string) string {
		if inv.Flags.Bool("ignore-leading-blanks") {
			s = strings.TrimLeft(s, " \t")
		}
		if inv.Flags.Bool("ignore-case") {
			s = strings.ToUpper(s)
		}
		return s
	}
	compare := func(a, b string) int { return strings.Compare(key(a), key(b)) }
	if inv.Flags.Bool("numeric-sort") {
		compare = func(a, b string) int {
			if r := cmp.Compare(leadingNumber(a), leadingNumber(b)); r != 0 {
				return r
			}
			return strings.Compare(a, b)
		}
	}
	order := compare
	if inv.Flags.Bool("reverse") {
		order = func(a, b string) int { return compare(b, a) }
	}
	slices.SortStableFunc(lines, order)
	if inv.Flags.Bool("unique") {
		lines = slices.CompactFunc(lines, func(a, b string) bool { return compare(a, b) == 0 })
	}
	if werr := writeLines(inv.Stdout, lines); werr != nil {
		return fmt.Errorf("writing output: %w", werr)
	}
	return err
}

// leadingNumber parses the numeric prefix of s the way sort -n does; lines
// without one sort as zero.
func leadingNumber(s string) float64 {
	s = strings.TrimLeft(s, " \t")
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.' || end == 0 && s[end] == '-') {
		end++
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return v
}

// uniqCommand implements the uniq utility.
type uniqCommand struct{ base }

// newUniqCommand creates a new uniq command.
func newUniqCommand() *uniqCommand {
	return &uniqCommand{base{
		name: "uniq",
		contract: shell.Contract{
			Usage:   "uniq [-cdui] [FILE]",
			Summary: "report or omit repeated adjacent lines",
			Flags: []shell.FlagSpec{
				{Name: "count", Short: "c", Description: "prefix lines by the number of occurrences"},
				{Name: "repeated", Short: "d", Description: "only print duplicate lines, one for each group"},
				{Name: "unique", Short: "u", Description: "only print unique lines"},
				{Name: "ignore-case", Short: "i", Description: "ignore differences in case when comparing"},
			},
			Args: shell.AtMost(1),
		},
	}}
}

// Run executes the uniq command.
func (c *uniqCommand) Run(ctx context.Context, inv *shell.Invocation) error {
	equal := func(a, b string) bool { return a == b }
	if inv.Flags.Bool("ignore-case") {
		equal = strings.EqualFold
	}
	return processFilesOrStdin(ctx, inv, inv.Args, func(r io.Reader, _ string, _, _ int) error {
		lines, err := readLines(r)
		if err != nil {
			return err
		}
		for i := 0; i < len(lines); {
			j := i + 1
			for j < len(lines) && equal(lines[i], lines[j]) {
				j++
			}
			n := j - i
			switch {
			case inv.Flags.Bool("repeated") && n == 1:
			case inv.Flags.Bool("unique") && n > 1:
			case inv.Flags.Bool("count"):
				fmt.Fprintf(inv.Stdout, "%7d %s\n", n, lines[i])
			default:
				fmt.Fprintln(inv.Stdout, lines[i])
			}
			i = j
		}
		return nil
	})
}
