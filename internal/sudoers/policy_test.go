// SPDX-License-Identifier: MPL-2.0

package sudoers

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	t.Parallel()

	content := `# sample policy
Defaults timestamp_timeout=5

root ALL
alice ALL
bob ls, /bin/cat,  grep
%wheel ALL
%dev   cp,mv
carol ALL=(ALL:ALL) NOPASSWD: whoami
`
	p, warnings := Parse(content)
	if len(warnings) != 0 {
		t.Fatalf("Parse() warnings = %v, want none", warnings)
	}
	if p.Timeout != 5*time.Minute {
		t.Errorf("Timeout = %v, want 5m", p.Timeout)
	}
	if !p.Users["alice"].Grant.All {
		t.Error("alice should have ALL")
	}
	if got, want := p.Users["bob"].Grant.Commands, []string{"ls", "cat", "grep"}; !slices.Equal(got, want) {
		t.Errorf("bob commands = %v, want %v", got, want)
	}
	if len(p.Groups) != 2 || p.Groups[0].Subject != "wheel" || p.Groups[1].Subject != "dev" {
		t.Errorf("Groups = %+v, want wheel then dev", p.Groups)
	}
	if p.Groups[1].Line != 8 {
		t.Errorf("dev rule line = %d, want 8", p.Groups[1].Line)
	}
	carol := p.Users["carol"].Grant
	if !carol.NoPassword || !carol.Allows("whoami") || carol.Allows("rm") {
		t.Errorf("carol grant = %+v", carol)
	}
}

func TestParse_MixedWhitespaceAfterSubject(t *testing.T) {
	t.Parallel()

	p, warnings := Parse("alice\t ALL\n%dev \t\tcp\nDefaults\ttimestamp_timeout=3\n")
	if len(warnings) != 0 {
		t.Fatalf("Parse() warnings = %v, want none", warnings)
	}
	if rule, ok := p.Users["alice"]; !ok || !rule.Grant.All {
		t.Errorf("Users[alice] = %+v, %v; want ALL", rule, ok)
	}
	if len(p.Groups) != 1 || p.Groups[0].Subject != "dev" || !p.Groups[0].Grant.Allows("cp") {
		t.Errorf("Groups = %+v, want dev allowed cp", p.Groups)
	}
	if p.Timeout != 3*time.Minute {
		t.Errorf("Timeout = %v, want 3m", p.Timeout)
	}
}

func TestParse_MalformedLinesAreSkipped(t *testing.T) {
	t.Parallel()

	content := "alice\nDefaults timestamp_timeout=soon\nDefaults requiretty=yes\n%  ALL\nbob ,,\ngood ALL\nDefaults timestamp_timeout=-1\n"
	p, warnings := Parse(content)

	var lines []int
	for _, w := range warnings {
		lines = append(lines, w.Line)
		if !errors.Is(w, ErrPolicyParse) {
			t.Errorf("warning %v should wrap ErrPolicyParse", w)
		}
	}
	if want := []int{1, 2, 3, 4, 5, 7}; !slices.Equal(lines, want) {
		t.Errorf("warning lines = %v, want %v", lines, want)
	}
	if _, ok := p.Users["good"]; !ok {
		t.Error("valid line after malformed ones was dropped")
	}
	if p.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want default after bad directive", p.Timeout)
	}
}

func TestParse_LaterUserLineWins(t *testing.T) {
	t.Parallel()

	p, _ := Parse("alice ls\nalice cat\n")
	if g := p.Users["alice"].Grant; g.Allows("ls") || !g.Allows("cat") {
		t.Errorf("alice grant = %+v, want only the later line", g)
	}
}

func TestParse_ZeroTimeout(t *testing.T) {
	t.Parallel()

	p, warnings := Parse("Defaults timestamp_timeout=0\n")
	if len(warnings) != 0 || p.Timeout != 0 {
		t.Errorf("Parse() = %v, %v; want zero timeout", p.Timeout, warnings)
	}
	p, _ = Parse("Defaults timestamp_timeout=0.5\n")
	if p.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", p.Timeout)
	}
}

func TestGrant_AllowsComparesBaseNames(t *testing.T) {
	t.Parallel()

	g := Grant{Commands: []string{"rm"}}
	if !g.Allows("/bin/rm") || !g.Allows("rm") || g.Allows("rmdir") {
		t.Error("Allows() should compare by base name")
	}
	if got := (Grant{All: true, NoPassword: true}).String(); got != "NOPASSWD: ALL" {
		t.Errorf("String() = %q", got)
	}
}
