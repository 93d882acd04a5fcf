// SPDX-License-Identifier: MPL-2.0

package coreutils

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/invowk/vshell/internal/shell"
	"github.com/invowk/vshell/internal/textedit"
)

// sedCommand implements the substitute command of sed.
type sedCommand struct{ base }

// newSedCommand creates a new sed command.
func newSedCommand() *sedCommand {
	return &sedCommand{base{
		name: "sed",
		contract: shell.Contract{
			Usage:   "sed [-iE] [-e SCRIPT]... [SCRIPT] [FILE]...",
			Summary: "stream editor for s/REGEX/REPLACEMENT/[g] substitutions",
			Flags: []shell.FlagSpec{
				{Name: "in-place", Short: "i", Description: "edit files in place"},
				{Name: "expression", Short: "e", TakesValue: true, Description: "add the script to the commands to be executed"},
				{Name: "regexp-extended", Short: "E", Description: "use extended regular expressions"},
			},
			Args: shell.Any(),
		},
	}}
}

// Run executes the sed command.
func (c *sedCommand) Run(ctx context.Context, inv *shell.Invocation) error {
	scripts := inv.Flags.Strings("expression")
	files := inv.Args
	if len(scripts) == 0 {
		if len(files) == 0 {
			return &shell.MalformedCommandError{Command: c.name, Reason: "missing script", Usage: c.contract.Usage}
		}
		scripts, files = files[:1], files[1:]
	}
	ops := make([]textedit.ReplaceAll, 0, len(scripts))
	for _, s := range scripts {
		op, err := parseSubstitution(s, inv.Flags.Bool("regexp-extended"))
		if err != nil {
			return shell.Malformed(c.name, "-e expression '%s': %v", s, err)
		}
		ops = append(ops, op)
	}

	inPlace := inv.Flags.Bool("in-place")
	if inPlace && len(files) == 0 {
		return shell.Malformed(c.name, "no input files")
	}
	return processFilesOrStdin(ctx, inv, files, func(r io.Reader, name string, _, _ int) error {
		data, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		buf := textedit.NewBuffer(string(data))
		for _, op := range ops {
			if err := buf.Do(op); err != nil {
				return err
			}
		}
		if inPlace && name != "-" {
			return inv.Sys.FS.WriteFile(inv.Identity(), inv.Abs(name), []byte(buf.String()))
		}
		_, err = io.WriteString(inv.Stdout, buf.String())
		return err
	})
}

// parseSubstitution reads "s<d>REGEX<d>REPLACEMENT<d>[g]" where <d> is any
// delimiter character. ^ and $ anchor at line boundaries.
func parseSubstitution(script string, extended bool) (textedit.ReplaceAll, error) {
	if len(script) < 2 || script[0] != 's' {
		return textedit.ReplaceAll{}, fmt.Errorf("unknown command: '%s'", script[:min(len(script), 1)])
	}
	delim := script[1]
	parts, rest, err := splitDelimited(script[2:], delim, 2)
	if err != nil {
		return textedit.ReplaceAll{}, err
	}
	op := textedit.ReplaceAll{Pattern: parts[0], FirstPerLine: true}
	if !extended {
		op.Pattern = fromBasic(parts[0])
	}
	for _, f := range rest {
		switch f {
		case 'g':
			op.FirstPerLine = false
		case 'I':
			op.Pattern = "(?i)" + op.Pattern
		default:
			return textedit.ReplaceAll{}, fmt.Errorf("unknown option to 's'")
		}
	}
	op.Pattern = "(?m)" + op.Pattern
	op.Replacement = replacementTemplate(parts[1])
	return op, nil
}

// splitDelimited cuts n fields terminated by delim, honoring backslash
// escapes of the delimiter, and returns what follows them.
func splitDelimited(s string, delim byte, n int) ([]string, string, error) {
	var fields []string
	var cur strings.Builder
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && i+1 < len(s) && s[i+1] == delim:
			cur.WriteByte(delim)
			i++
		case s[i] == '\\' && i+1 < len(s):
			cur.WriteString(s[i : i+2])
			i++
		case s[i] == delim:
			fields = append(fields, cur.String())
			cur.Reset()
			if len(fields) == n {
				return fields, s[i+1:], nil
			}
		default:
			cur.WriteByte(s[i])
		}
	}
	return nil, "", fmt.Errorf("unterminated `s' command")
}

// fromBasic rewrites a POSIX basic regular expression into Go syntax:
// \( \) \{ \} \+ \? \| become operators and their bare forms literals.
func fromBasic(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]
		switch {
		case ch == '\\' && i+1 < len(pattern) && strings.IndexByte("(){}+?|", pattern[i+1]) >= 0:
			b.WriteByte(pattern[i+1])
			i++
		case ch == '\\' && i+1 < len(pattern):
			b.WriteString(pattern[i : i+2])
			i++
		case strings.IndexByte("(){}+?|", ch) >= 0:
			b.WriteByte('\\')
			b.WriteByte(ch)
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// replacementTemplate converts sed's & and \N references to the ${N} form
// regexp.Expand understands.
func replacementTemplate(repl string) string {
	var b strings.Builder
	for i := 0; i < len(repl); i++ {
		ch := repl[i]
		switch {
		case ch == '&':
			b.WriteString("${0}")
		case ch == '$':
			b.WriteString("$$")
		case ch == '\\' && i+1 < len(repl):
			i++
			switch next := repl[i]; {
			case next >= '0' && next <= '9':
				fmt.Fprintf(&b, "${%c}", next)
			case next == 'n':
				b.WriteByte('\n')
			case next == 't':
				b.WriteByte('\t')
			case next == '$':
				b.WriteString("$$")
			default:
				b.WriteByte(next)
			}
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}
