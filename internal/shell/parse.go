// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"

	"github.com/invowk/vshell/pkg/vpath"
)

const shellName = "vshell"

type (
	// statement is one ";"-separated pipeline, checked for supported
	// structure but not yet expanded.
	statement struct {
		text       string
		background bool
		stages     []*syntax.CallExpr
		input      *syntax.Word
		output     *syntax.Word
		appendOut  bool
	}

	// stage is an expanded, contract-checked pipeline element.
	stage struct {
		name  string
		cmd   Command
		flags Flags
		args  []string
	}
)

func unsupported(what string) error {
	return &MalformedCommandError{Command: shellName, Reason: what + " not supported"}
}

func syntaxErr(format string, args ...any) error {
	return &MalformedCommandError{Command: shellName, Reason: "syntax error: " + fmt.Sprintf(format, args...)}
}

// parseLine splits line into statements and rejects every construct the
// interpreter does not run, before anything executes.
func parseLine(line string) ([]*statement, error) {
	f, err := syntax.NewParser(syntax.Variant(syntax.LangPOSIX)).Parse(strings.NewReader(line), "")
	if err != nil {
		return nil, syntaxErr("%v", err)
	}
	out := make([]*statement, 0, len(f.Stmts))
	for _, st := range f.Stmts {
		s, err := newStatement(line, st)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func newStatement(line string, st *syntax.Stmt) (*statement, error) {
	if st.Coprocess {
		return nil, unsupported("coprocesses")
	}
	s := &statement{text: stmtText(line, st), background: st.Background}
	var redirs [][]*syntax.Redirect
	if err := s.collect(st, &redirs); err != nil {
		return nil, err
	}
	last := len(s.stages) - 1
	for i, rs := range redirs {
		for _, r := range rs {
			if r.N != nil {
				return nil, unsupported("file descriptor redirections")
			}
			if err := checkWord(r.Word); err != nil {
				return nil, err
			}
			switch r.Op {
			case syntax.RdrIn:
				if i != 0 {
					return nil, syntaxErr("input redirection is only allowed on the first command")
				}
				if s.input != nil {
					return nil, syntaxErr("more than one input redirection")
				}
				s.input = r.Word
			case syntax.RdrOut, syntax.AppOut:
				if i != last {
					return nil, syntaxErr("output redirection is only allowed on the last command")
				}
				if s.output != nil {
					return nil, syntaxErr("more than one output redirection")
				}
				s.output = r.Word
				s.appendOut = r.Op == syntax.AppOut
			default:
				return nil, unsupported(fmt.Sprintf("redirection '%s'", r.Op))
			}
		}
	}
	return s, nil
}

func (s *statement) collect(st *syntax.Stmt, redirs *[][]*syntax.Redirect) error {
	if st.Negated {
		return unsupported("'!'")
	}
	switch cmd := st.Cmd.(type) {
	case *syntax.CallExpr:
		if len(cmd.Assigns) > 0 {
			return unsupported("variable assignment (use export)")
		}
		for _, w := range cmd.Args {
			if err := checkWord(w); err != nil {
				return err
			}
		}
		s.stages = append(s.stages, cmd)
		*redirs = append(*redirs, st.Redirs)
	case *syntax.BinaryCmd:
		if cmd.Op != syntax.Pipe {
			return unsupported(fmt.Sprintf("'%s'", cmd.Op))
		}
		if len(st.Redirs) > 0 {
			return syntaxErr("redirection of a whole pipeline")
		}
		if err := s.collect(cmd.X, redirs); err != nil {
			return err
		}
		return s.collect(cmd.Y, redirs)
	case nil:
		return syntaxErr("missing command")
	default:
		return unsupported("compound commands")
	}
	return nil
}

// checkWord rejects expansions that would need a real process.
func checkWord(w *syntax.Word) error {
	var bad string
	syntax.Walk(w, func(n syntax.Node) bool {
		switch n.(type) {
		case *syntax.CmdSubst:
			bad = "command substitution"
		case *syntax.ProcSubst:
			bad = "process substitution"
		case *syntax.ArithmExp:
			bad = "arithmetic expansion"
		case *syntax.ExtGlob:
			bad = "extended globs"
		}
		return bad == ""
	})
	if bad != "" {
		return unsupported(bad)
	}
	return nil
}

func stmtText(line string, st *syntax.Stmt) string {
	start, end := int(st.Pos().Offset()), int(st.End().Offset())
	end = min(end, len(line))
	if start >= end {
		return ""
	}
	return strings.TrimRight(strings.TrimSpace(line[start:end]), " \t;&")
}

// expander expands words for one statement in one session.
type expander struct {
	cfg  *expand.Config
	fsys fs.FS
	cwd  string
}

func newExpander(sys *System, sess *Session) *expander {
	return &expander{
		cfg:  &expand.Config{Env: expand.ListEnviron(sess.expansionEnv()...)},
		fsys: sys.FS.FS(sess.Identity()),
		cwd:  sess.Cwd(),
	}
}

// fields expands words into arguments. Parameters and "~" expand without
// field splitting; an unquoted glob expands to its sorted matches, or
// stays literal when nothing matches.
func (e *expander) fields(words []*syntax.Word) ([]string, error) {
	var out []string
	for _, w := range words {
		pattern, isGlob, err := e.pattern(w)
		if err != nil {
			return nil, err
		}
		if isGlob {
			if matches := e.glob(pattern); len(matches) > 0 {
				out = append(out, matches...)
				continue
			}
		}
		s, err := e.literal(w)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// literal expands a single word with quote removal: backslash escapes in
// unquoted text are dropped and quoted parts expand as usual.
func (e *expander) literal(w *syntax.Word) (string, error) {
	var b strings.Builder
	for i, part := range w.Parts {
		lit, ok := part.(*syntax.Lit)
		if !ok {
			s, err := e.part(part)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
			continue
		}
		v := lit.Value
		if i == 0 {
			home, rest, err := e.tilde(v)
			if err != nil {
				return "", err
			}
			b.WriteString(home)
			v = rest
		}
		b.WriteString(unescape(v))
	}
	return b.String(), nil
}

func (e *expander) part(part syntax.WordPart) (string, error) {
	s, err := expand.Literal(e.cfg, &syntax.Word{Parts: []syntax.WordPart{part}})
	if err != nil {
		return "", syntaxErr("%v", err)
	}
	return s, nil
}

// tilde splits a leading "~" or "~user" off v and expands it. Without one,
// home is empty and rest is v.
func (e *expander) tilde(v string) (home, rest string, err error) {
	if !strings.HasPrefix(v, "~") {
		return "", v, nil
	}
	head := v
	if k := strings.IndexByte(v, '/'); k >= 0 {
		head, rest = v[:k], v[k:]
	}
	home, err = e.part(&syntax.Lit{Value: head})
	return home, rest, err
}

// pattern builds a doublestar pattern from w, keeping unquoted literal
// text raw and escaping everything that came from quotes or expansion.
func (e *expander) pattern(w *syntax.Word) (string, bool, error) {
	var b strings.Builder
	isGlob := false
	for i, part := range w.Parts {
		lit, ok := part.(*syntax.Lit)
		if !ok {
			s, err := e.part(part)
			if err != nil {
				return "", false, err
			}
			b.WriteString(escapeMeta(s))
			continue
		}
		v := lit.Value
		if i == 0 {
			home, rest, err := e.tilde(v)
			if err != nil {
				return "", false, err
			}
			b.WriteString(escapeMeta(home))
			v = rest
		}
		if hasMeta(v) {
			isGlob = true
		}
		b.WriteString(v)
	}
	return b.String(), isGlob, nil
}

func (e *expander) glob(pattern string) []string {
	rel := strings.TrimPrefix(vpath.Resolve(pattern, e.cwd), "/")
	if rel == "" {
		return nil
	}
	matches, err := doublestar.Glob(e.fsys, rel)
	if err != nil {
		return nil
	}
	psegs := strings.Split(rel, "/")
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if hiddenMismatch(psegs, strings.Split(m, "/")) {
			continue
		}
		full := "/" + m
		switch {
		case vpath.IsAbs(pattern):
			out = append(out, full)
		case e.cwd == vpath.Root:
			out = append(out, m)
		case vpath.HasPrefix(full, e.cwd) && full != e.cwd:
			out = append(out, strings.TrimPrefix(full, e.cwd+"/"))
		default:
			out = append(out, full)
		}
	}
	slices.Sort(out)
	return out
}

// hiddenMismatch reports whether a match reaches a dot file through a
// pattern segment that does not itself start with a dot.
func hiddenMismatch(pattern, match []string) bool {
	for k, seg := range match {
		if k >= len(pattern) || pattern[k] == "**" {
			return false
		}
		if strings.HasPrefix(seg, ".") && !strings.HasPrefix(pattern[k], ".") {
			return true
		}
	}
	return false
}

func hasMeta(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '*', '?', '[':
			return true
		}
	}
	return false
}

// unescape removes backslash escapes from unquoted text. An escaped
// newline is a line continuation and disappears.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			if s[i] == '\n' {
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func escapeMeta(s string) string {
	if !strings.ContainsAny(s, `*?[]{}\`) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`*?[]{}\`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
