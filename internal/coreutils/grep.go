// SPDX-License-Identifier: MPL-2.0

package coreutils

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"

	"github.com/invowk/vshell/internal/shell"
	"github.com/invowk/vshell/pkg/types"
)

type (
	// grepCommand implements the grep utility.
	grepCommand struct{ base }

	grepOptions struct {
		invert       bool
		lineNumbers  bool
		countOnly    bool
		filesOnly    bool
		showFilename bool
	}
)

// newGrepCommand creates a new grep command.
func newGrepCommand() *grepCommand {
	return &grepCommand{base{
		name: "grep",
		contract: shell.Contract{
			Usage:   "grep [-ivnclhH] PATTERN [FILE]...",
			Summary: "print lines that match a regular expression",
			Flags: []shell.FlagSpec{
				{Name: "ignore-case", Short: "i", Description: "ignore case distinctions"},
				{Name: "invert-match", Short: "v", Description: "select non-matching lines"},
				{Name: "line-number", Short: "n", Description: "prefix each line with its line number"},
				{Name: "count", Short: "c", Description: "print only a count of matching lines"},
				{Name: "files-with-matches", Short: "l", Description: "print only names of files with matches"},
				{Name: "no-filename", Short: "h", Description: "suppress the file name prefix"},
				{Name: "with-filename", Short: "H", Description: "print the file name for each match"},
			},
			Args: shell.AtLeast(1),
		},
	}}
}

// Run executes the grep command. It ends with status 1 when nothing
// matched.
func (c *grepCommand) Run(ctx context.Context, inv *shell.Invocation) error {
	pattern := inv.Args[0]
	files := inv.Args[1:]
	if inv.Flags.Bool("ignore-case") {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return shell.Malformed(c.name, "invalid pattern: %v", err)
	}

	opts := grepOptions{
		invert:       inv.Flags.Bool("invert-match"),
		lineNumbers:  inv.Flags.Bool("line-number"),
		countOnly:    inv.Flags.Bool("count"),
		filesOnly:    inv.Flags.Bool("files-with-matches"),
		showFilename: (len(files) > 1 || inv.Flags.Bool("with-filename")) && !inv.Flags.Bool("no-filename"),
	}

	matchFound := false
	err = processFilesOrStdin(ctx, inv, files, func(r io.Reader, filename string, _, _ int) error {
		displayName := filename
		if filename == "-" {
			displayName = "(standard input)"
		}
		count, err := c.grepReader(inv.Stdout, r, re, displayName, opts)
		if err != nil {
			return err
		}
		if count > 0 {
			matchFound = true
		}
		switch {
		case opts.filesOnly:
			if count > 0 {
				fmt.Fprintln(inv.Stdout, displayName)
			}
		case opts.countOnly && opts.showFilename:
			fmt.Fprintf(inv.Stdout, "%s:%d\n", displayName, count)
		case opts.countOnly:
			fmt.Fprintln(inv.Stdout, count)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !matchFound {
		return &shell.ExitStatusError{Code: types.ExitFailure}
	}
	return nil
}

// grepReader writes the selected lines of in and returns how many lines
// were selected.
func (c *grepCommand) grepReader(out io.Writer, in io.Reader, re *regexp.Regexp, filename string, opts grepOptions) (int, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	matchCount, lineNum := 0, 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if re.MatchString(line) == opts.invert {
			continue
		}
		matchCount++
		if opts.countOnly || opts.filesOnly {
			continue
		}
		var prefix string
		if opts.showFilename {
			prefix = filename + ":"
		}
		if opts.lineNumbers {
			prefix += fmt.Sprintf("%d:", lineNum)
		}
		fmt.Fprintln(out, prefix+line)
	}
	if err := scanner.Err(); err != nil {
		return matchCount, fmt.Errorf("reading input: %w", err)
	}
	return matchCount, nil
}
