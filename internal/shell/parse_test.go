// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"errors"
	"strings"
	"testing"
)

func TestParseLine_Accepts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line       string
		statements int
		stages     []int
		background []bool
	}{
		{"ls", 1, []int{1}, []bool{false}},
		{"ls /home | grep alice > /tmp/out.txt", 1, []int{2}, []bool{false}},
		{"a | b | c", 1, []int{3}, []bool{false}},
		{"a; b & c", 3, []int{1, 1, 1}, []bool{false, true, false}},
		{"a\nb", 2, []int{1, 1}, []bool{false, false}},
		{"sort < in.txt | uniq >> out.txt", 1, []int{2}, []bool{false}},
		{"say 'a | b' \"c ; d\"", 1, []int{1}, []bool{false}},
		{"", 0, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			t.Parallel()

			stmts, err := parseLine(tt.line)
			if err != nil {
				t.Fatalf("parseLine(%q) error = %v", tt.line, err)
			}
			if len(stmts) != tt.statements {
				t.Fatalf("got %d statements, want %d", len(stmts), tt.statements)
			}
			for i, st := range stmts {
				if len(st.stages) != tt.stages[i] {
					t.Errorf("statement %d has %d stages, want %d", i, len(st.stages), tt.stages[i])
				}
				if st.background != tt.background[i] {
					t.Errorf("statement %d background = %v, want %v", i, st.background, tt.background[i])
				}
			}
		})
	}
}

func TestParseLine_Redirections(t *testing.T) {
	t.Parallel()

	stmts, err := parseLine("pass < in | upper >> out")
	if err != nil {
		t.Fatalf("parseLine() error = %v", err)
	}
	st := stmts[0]
	if st.input == nil || st.output == nil {
		t.Fatal("redirections not recorded")
	}
	if !st.appendOut {
		t.Error("appendOut = false, want true for >>")
	}

	stmts, err = parseLine("say hi > out")
	if err != nil {
		t.Fatalf("parseLine() error = %v", err)
	}
	if stmts[0].appendOut {
		t.Error("appendOut = true, want false for >")
	}
}

func TestParseLine_StatementText(t *testing.T) {
	t.Parallel()

	stmts, err := parseLine("say one;  nap  &  say two")
	if err != nil {
		t.Fatalf("parseLine() error = %v", err)
	}
	want := []string{"say one", "nap", "say two"}
	for i, st := range stmts {
		if st.text != want[i] {
			t.Errorf("statement %d text = %q, want %q", i, st.text, want[i])
		}
	}
}

func TestParseLine_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		want string
	}{
		{"a && b", "'&&' not supported"},
		{"a || b", "'||' not supported"},
		{"! a", "'!' not supported"},
		{"(a)", "compound commands not supported"},
		{"{ a; }", "compound commands not supported"},
		{"if a; then b; fi", "compound commands not supported"},
		{"X=1", "variable assignment"},
		{"X=1 a", "variable assignment"},
		{"say $(whoami)", "command substitution not supported"},
		{"say `whoami`", "command substitution not supported"},
		{"say $((1+2))", "arithmetic expansion not supported"},
		{"a 2> err", "file descriptor redirections not supported"},
		{"a > out | b", "only allowed on the last command"},
		{"a | b < in", "only allowed on the first command"},
		{"a > x > y", "more than one output redirection"},
		{"a 'unterminated", "syntax error"},
		{"a |", "syntax error"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			t.Parallel()

			_, err := parseLine(tt.line)
			if !errors.Is(err, ErrMalformedCommand) {
				t.Fatalf("parseLine(%q) error = %v, want ErrMalformedCommand", tt.line, err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestHasMeta(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"*.txt":   true,
		"a?c":     true,
		"[ab]":    true,
		`\*.txt`:  false,
		"plain":   false,
		"a\\?b*c": true,
	}
	for in, want := range tests {
		if got := hasMeta(in); got != want {
			t.Errorf("hasMeta(%q) = %v, want %v", in, got, want)
		}
	}
}
