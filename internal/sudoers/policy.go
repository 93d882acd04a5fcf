// SPDX-License-Identifier: MPL-2.0

// Package sudoers parses the sudo policy file and answers who may run what
// as root, and whether a recent successful elevation still covers a user.
package sudoers

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/invowk/vshell/pkg/vpath"
)

// DefaultTimeout applies when the policy sets no timestamp_timeout.
const DefaultTimeout = 15 * time.Minute

// ErrPolicyParse is the sentinel wrapped by Warning.
var ErrPolicyParse = errors.New("sudoers parse warning")

// hostRunas matches the optional "HOST=(RUNAS)" prefix of a classic
// sudoers grant, e.g. "ALL=(ALL:ALL) ".
var hostRunas = regexp.MustCompile(`^[A-Za-z0-9_.-]+\s*=\s*(\([^)]*\)\s*)?`)

type (
	// Grant is either every command or an allow-list of command names.
	// NoPassword grants skip the password challenge.
	Grant struct {
		All        bool
		Commands   []string
		NoPassword bool
	}

	// Rule binds a user or group to a grant. Line is the 1-based source
	// line it came from.
	Rule struct {
		Subject string
		Group   bool
		Grant   Grant
		Line    int
	}

	// Policy is a parsed sudoers document. Group rules keep file order.
	Policy struct {
		Users   map[string]Rule
		Groups  []Rule
		Timeout time.Duration
	}

	// Warning is a skipped policy line. Warnings never abort parsing.
	Warning struct {
		Line   int
		Text   string
		Reason string
	}
)

func (w Warning) Error() string {
	return fmt.Sprintf("sudoers line %d: %s: %q", w.Line, w.Reason, w.Text)
}

// Unwrap returns ErrPolicyParse for errors.Is() compatibility.
func (w Warning) Unwrap() error { return ErrPolicyParse }

// Allows reports whether the grant covers command, compared by base name.
func (g Grant) Allows(command string) bool {
	return g.All || slices.Contains(g.Commands, vpath.Base(command))
}

func (g Grant) String() string {
	list := "ALL"
	if !g.All {
		list = strings.Join(g.Commands, ", ")
	}
	if g.NoPassword {
		return "NOPASSWD: " + list
	}
	return list
}

// Parse reads a sudoers document. Blank lines and comments are ignored;
// malformed lines are skipped and reported as warnings.
func Parse(content string) (*Policy, []Warning) {
	p := &Policy{Users: make(map[string]Rule), Timeout: DefaultTimeout}
	var warnings []Warning

	for i, raw := range strings.Split(content, "\n") {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		warn := func(reason string) {
			warnings = append(warnings, Warning{Line: lineNo, Text: line, Reason: reason})
		}

		cut := strings.IndexFunc(line, unicode.IsSpace)
		if cut < 0 {
			warn("missing grant")
			continue
		}
		subject, rest := line[:cut], strings.TrimSpace(line[cut:])

		if subject == "Defaults" {
			if reason := p.applyDefault(rest); reason != "" {
				warn(reason)
			}
			continue
		}

		grant, reason := parseGrant(rest)
		if reason != "" {
			warn(reason)
			continue
		}

		if name, isGroup := strings.CutPrefix(subject, "%"); isGroup {
			if !validSubject(name) {
				warn("invalid group name")
				continue
			}
			p.Groups = append(p.Groups, Rule{Subject: name, Group: true, Grant: grant, Line: lineNo})
			continue
		}
		if !validSubject(subject) {
			warn("invalid user name")
			continue
		}
		p.Users[subject] = Rule{Subject: subject, Grant: grant, Line: lineNo}
	}
	return p, warnings
}

func (p *Policy) applyDefault(setting string) string {
	key, value, ok := strings.Cut(setting, "=")
	if !ok {
		return "malformed Defaults directive"
	}
	if strings.TrimSpace(key) != "timestamp_timeout" {
		return fmt.Sprintf("unsupported Defaults key %q", strings.TrimSpace(key))
	}
	minutes, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || minutes < 0 || math.IsInf(minutes, 0) || math.IsNaN(minutes) {
		return "timestamp_timeout must be a non-negative number of minutes"
	}
	p.Timeout = time.Duration(minutes * float64(time.Minute))
	return ""
}

func parseGrant(s string) (Grant, string) {
	s = hostRunas.ReplaceAllString(s, "")
	var g Grant
	if rest, ok := strings.CutPrefix(s, "NOPASSWD:"); ok {
		s, g.NoPassword = strings.TrimSpace(rest), true
	}
	if s == "" {
		return Grant{}, "missing grant"
	}
	for item := range strings.SplitSeq(s, ",") {
		item = strings.TrimSpace(item)
		switch {
		case item == "":
		case item == "ALL":
			g.All = true
		case strings.ContainsAny(item, " \t"):
			return Grant{}, fmt.Sprintf("invalid command %q", item)
		default:
			name := vpath.Base(item)
			if !slices.Contains(g.Commands, name) {
				g.Commands = append(g.Commands, name)
			}
		}
	}
	if g.All {
		g.Commands = nil
	}
	if !g.All && len(g.Commands) == 0 {
		return Grant{}, "empty command list"
	}
	return g, ""
}

func validSubject(name string) bool {
	return name != "" && !strings.ContainsAny(name, "%:/,=")
}
