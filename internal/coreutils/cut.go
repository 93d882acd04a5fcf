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

type (
	// cutCommand implements the cut utility.
	cutCommand struct{ base }

	// span is an inclusive 1-based range; end < 0 runs to the end of line.
	span struct {
		start int
		end   int
	}
)

// newCutCommand creates a new cut command.
func newCutCommand() *cutCommand {
	return &cutCommand{base{
		name: "cut",
		contract: shell.Contract{
			Usage:   "cut -f LIST [-d DELIM] [-s] | -c LIST [FILE]...",
			Summary: "remove sections from each line",
			Flags: []shell.FlagSpec{
				{Name: "fields", Short: "f", TakesValue: true, Description: "select only these fields"},
				{Name: "characters", Short: "c", TakesValue: true, Description: "select only these characters"},
				{Name: "delimiter", Short: "d", TakesValue: true, Description: "use DELIM instead of TAB for field delimiter"},
				{Name: "only-delimited", Short: "s", Description: "do not print lines not containing delimiters"},
			},
			Args: shell.Any(),
		},
	}}
}

// Run executes the cut command.
func (c *cutCommand) Run(ctx context.Context, inv *shell.Invocation) error {
	fields := inv.Flags.String("fields", "")
	chars := inv.Flags.String("characters", "")
	switch {
	case fields == "" && chars == "":
		return shell.Malformed(c.name, "you must specify a list of characters or fields")
	case fields != "" && chars != "":
		return shell.Malformed(c.name, "only one type of list may be specified")
	}
	delim := inv.Flags.String("delimiter", "\t")
	if len([]rune(delim)) != 1 {
		return shell.Malformed(c.name, "the delimiter must be a single character")
	}
	spans, err := parseSpans(fields + chars)
	if err != nil {
		return shell.Malformed(c.name, "%v", err)
	}

	return processFilesOrStdin(ctx, inv, inv.Args, func(r io.Reader, _ string, _, _ int) error {
		lines, err := readLines(r)
		if err != nil {
			return err
		}
		for _, line := range lines {
			if chars != "" {
				fmt.Fprintln(inv.Stdout, string(pick([]rune(line), spans)))
				continue
			}
			parts := strings.Split(line, delim)
			if len(parts) == 1 {
				if !inv.Flags.Bool("only-delimited") {
					fmt.Fprintln(inv.Stdout, line)
				}
				continue
			}
			fmt.Fprintln(inv.Stdout, strings.Join(pick(parts, spans), delim))
		}
		return nil
	})
}

// parseSpans parses a list like "1,3-5,7-".
func parseSpans(spec string) ([]span, error) {
	var spans []span
	for part := range strings.SplitSeq(spec, ",") {
		before, after, isRange := strings.Cut(part, "-")
		if !isRange {
			n, err := strconv.Atoi(part)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("invalid field value '%s'", part)
			}
			spans = append(spans, span{start: n, end: n})
			continue
		}
		s := span{start: 1, end: -1}
		var err error
		if before != "" {
			if s.start, err = strconv.Atoi(before); err != nil || s.start < 1 {
				return nil, fmt.Errorf("invalid range '%s'", part)
			}
		}
		if after != "" {
			if s.end, err = strconv.Atoi(after); err != nil || s.end < s.start {
				return nil, fmt.Errorf("invalid range '%s'", part)
			}
		}
		if before == "" && after == "" {
			return nil, fmt.Errorf("invalid range '%s'", part)
		}
		spans = append(spans, s)
	}
	return spans, nil
}

// pick returns the items selected by spans, each at most once, in input
// order.
func pick[T any](items []T, spans []span) []T {
	var out []T
	for i, item := range items {
		pos := i + 1
		for _, s := range spans {
			if pos >= s.start && (s.end < 0 || pos <= s.end) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}
