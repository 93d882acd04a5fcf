// SPDX-License-Identifier: MPL-2.0

package coreutils

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/invowk/vshell/internal/shell"
)

type (
	// wcCommand implements the wc utility.
	wcCommand struct{ base }

	wcCounts struct {
		lines int64
		words int64
		bytes int64
		chars int64
	}

	wcColumns struct {
		lines, words, bytes, chars bool
	}
)

// newWcCommand creates a new wc command.
func newWcCommand() *wcCommand {
	return &wcCommand{base{
		name: "wc",
		contract: shell.Contract{
			Usage:   "wc [-lwcm] [FILE]...",
			Summary: "print line, word and byte counts",
			Flags: []shell.FlagSpec{
				{Name: "lines", Short: "l", Description: "print the newline counts"},
				{Name: "words", Short: "w", Description: "print the word counts"},
				{Name: "bytes", Short: "c", Description: "print the byte counts"},
				{Name: "chars", Short: "m", Description: "print the character counts"},
			},
			Args: shell.Any(),
		},
	}}
}

// Run executes the wc command.
func (c *wcCommand) Run(ctx context.Context, inv *shell.Invocation) error {
	cols := wcColumns{
		lines: inv.Flags.Bool("lines"),
		words: inv.Flags.Bool("words"),
		bytes: inv.Flags.Bool("bytes"),
		chars: inv.Flags.Bool("chars"),
	}
	if cols == (wcColumns{}) {
		cols = wcColumns{lines: true, words: true, bytes: true}
	}

	var total wcCounts
	err := processFilesOrStdin(ctx, inv, inv.Args, func(r io.Reader, filename string, _, _ int) error {
		data, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		counts := count(data)
		total.lines += counts.lines
		total.words += counts.words
		total.bytes += counts.bytes
		total.chars += counts.chars
		name := filename
		if len(inv.Args) == 0 {
			name = ""
		}
		c.printCounts(inv.Stdout, counts, name, cols)
		return nil
	})
	if len(inv.Args) > 1 {
		c.printCounts(inv.Stdout, total, "total", cols)
	}
	return err
}

func count(data []byte) wcCounts {
	counts := wcCounts{bytes: int64(len(data)), chars: int64(utf8.RuneCount(data))}
	inWord := false
	for _, r := range string(data) {
		if r == '\n' {
			counts.lines++
		}
		if unicode.IsSpace(r) {
			inWord = false
		} else if !inWord {
			inWord = true
			counts.words++
		}
	}
	return counts
}

// printCounts prints the selected columns; -c wins over -m.
func (c *wcCommand) printCounts(out io.Writer, counts wcCounts, name string, cols wcColumns) {
	var parts []string
	if cols.lines {
		parts = append(parts, fmt.Sprintf("%7d", counts.lines))
	}
	if cols.words {
		parts = append(parts, fmt.Sprintf("%7d", counts.words))
	}
	if cols.bytes {
		parts = append(parts, fmt.Sprintf("%7d", counts.bytes))
	}
	if cols.chars && !cols.bytes {
		parts = append(parts, fmt.Sprintf("%7d", counts.chars))
	}
	if name != "" {
		parts = append(parts, name)
	}
	fmt.Fprintln(out, strings.Join(parts, " "))
}
