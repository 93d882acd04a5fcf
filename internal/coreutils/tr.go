// SPDX-License-Identifier: MPL-2.0

package coreutils

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/invowk/vshell/internal/shell"
)

// trCommand implements the tr utility.
type trCommand struct{ base }

// newTrCommand creates a new tr command.
func newTrCommand() *trCommand {
	return &trCommand{base{
		name: "tr",
		contract: shell.Contract{
			Usage:   "tr [-ds] SET1 [SET2]",
			Summary: "translate, squeeze or delete characters",
			Flags: []shell.FlagSpec{
				{Name: "delete", Short: "d", Description: "delete characters in SET1"},
				{Name: "squeeze-repeats", Short: "s", Description: "replace each run of a repeated character with one"},
			},
			Args: shell.Between(1, 2),
		},
	}}
}

// Run executes the tr command over standard input.
func (c *trCommand) Run(_ context.Context, inv *shell.Invocation) error {
	del := inv.Flags.Bool("delete")
	squeeze := inv.Flags.Bool("squeeze-repeats")
	from := []rune(expandSet(inv.Args[0]))
	var to []rune
	if len(inv.Args) > 1 {
		to = []rune(expandSet(inv.Args[1]))
	}
	if !del && !squeeze && len(to) == 0 {
		return shell.Malformed(c.name, "missing operand after '%s'", inv.Args[0])
	}

	data, err := io.ReadAll(inv.Stdin)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	// Characters that collapse under -s: SET2 when translating or deleting,
	// SET1 otherwise.
	squeezeSet := from
	if len(to) > 0 {
		squeezeSet = to
	}

	var out strings.Builder
	var last rune
	wrote := false
	for _, r := range string(data) {
		idx := indexRune(from, r)
		switch {
		case del && idx >= 0:
			continue
		case !del && idx >= 0 && len(to) > 0:
			r = to[min(idx, len(to)-1)]
		}
		if squeeze && wrote && r == last && indexRune(squeezeSet, r) >= 0 {
			continue
		}
		out.WriteRune(r)
		last, wrote = r, true
	}
	_, err = io.WriteString(inv.Stdout, out.String())
	return err
}

func indexRune(set []rune, r rune) int {
	for i, s := range set {
		if s == r {
			return i
		}
	}
	return -1
}

// expandSet expands ranges (a-z) and the escapes \n, \t and \\.
func expandSet(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		switch {
		case runes[i] == '\\' && i+1 < len(runes):
			i++
			switch runes[i] {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			default:
				b.WriteRune(runes[i])
			}
		case i+2 < len(runes) && runes[i+1] == '-' && runes[i] <= runes[i+2]:
			for r := runes[i]; r <= runes[i+2]; r++ {
				b.WriteRune(r)
			}
			i += 2
		default:
			b.WriteRune(runes[i])
		}
	}
	return b.String()
}
