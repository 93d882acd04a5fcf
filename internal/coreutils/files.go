// SPDX-License-Identifier: MPL-2.0

package coreutils

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/invowk/vshell/internal/shell"
)

// fileProcessor handles one input. name is the operand as given, or "-"
// for standard input; index and total are 0 for standard input.
type fileProcessor func(r io.Reader, name string, index, total int) error

// processFilesOrStdin runs fn over each operand, or over standard input
// when there are none. "-" names standard input. An unreadable operand is
// reported and skipped; the collected failures are returned at the end.
func processFilesOrStdin(ctx context.Context, inv *shell.Invocation, operands []string, fn fileProcessor) error {
	if len(operands) == 0 {
		return fn(inv.Stdin, "-", 0, 0)
	}
	fails := newFailures(inv)
	total := len(operands)
	for i, name := range operands {
		if err := ctx.Err(); err != nil {
			return err
		}
		if name == "-" {
			if err := fn(inv.Stdin, name, i, total); err != nil {
				return err
			}
			continue
		}
		data, err := inv.Sys.FS.ReadFile(inv.Identity(), inv.Abs(name))
		if err != nil {
			fails.add(err)
			continue
		}
		if err := fn(bytes.NewReader(data), name, i, total); err != nil {
			return err
		}
	}
	return fails.err()
}

// readLines reads all lines from r without their terminators.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return lines, nil
}

// writeLines writes each line followed by a newline.
func writeLines(w io.Writer, lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}
