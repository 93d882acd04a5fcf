// SPDX-License-Identifier: MPL-2.0

package vfs

import (
	"testing"

	"github.com/invowk/vshell/internal/identity"
)

func TestModeString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mode Mode
		want string
	}{
		{0o755, "rwxr-xr-x"},
		{0o640, "rw-r-----"},
		{0o000, "---------"},
		{0o777, "rwxrwxrwx"},
	}
	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.want {
			t.Errorf("Mode(%o).String() = %q, want %q", tt.mode, got, tt.want)
		}
	}
	if got := Mode(0o640).Octal(); got != "0640" {
		t.Errorf("Octal() = %q, want 0640", got)
	}
}

func TestApplyChmod(t *testing.T) {
	t.Parallel()

	tests := []struct {
		expr    string
		current Mode
		isDir   bool
		want    Mode
		wantErr bool
	}{
		{expr: "700", current: 0o644, want: 0o700},
		{expr: "0640", current: 0o777, want: 0o640},
		{expr: "u+x", current: 0o644, want: 0o744},
		{expr: "go-w", current: 0o666, want: 0o644},
		{expr: "a=r", current: 0o777, want: 0o444},
		{expr: "+x", current: 0o600, want: 0o711},
		{expr: "u=rwx,g=rx,o=", current: 0, want: 0o750},
		{expr: "a+X", current: 0o644, isDir: true, want: 0o755},
		{expr: "a+X", current: 0o644, want: 0o644},
		{expr: "o+rw-w", current: 0o700, want: 0o704},
		{expr: "888", wantErr: true},
		{expr: "u", wantErr: true},
		{expr: "u*x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			t.Parallel()

			got, err := ApplyChmod(tt.expr, tt.current, tt.isDir)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyChmod(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ApplyChmod(%q, %o) = %o, want %o", tt.expr, tt.current, got, tt.want)
			}
		})
	}
}

func TestCan(t *testing.T) {
	t.Parallel()

	dir := Info{Kind: KindDir, Owner: "alice", Group: "dev", Mode: 0o750}
	tests := []struct {
		name string
		who  string
		cap  Capability
		want bool
	}{
		{"owner write", "alice", Write, true},
		{"group read", "bob", Read, true},
		{"group write", "bob", Write, false},
		{"other read", "eve", Read, false},
		{"root bypasses", "root", Write, true},
	}
	ids := map[string]identity.Identity{
		"alice": alice,
		"bob":   bob,
		"eve":   eveIdentity(),
		"root":  root,
	}
	for _, tt := range tests {
		if got := Can(dir, ids[tt.who], tt.cap); got != tt.want {
			t.Errorf("%s: Can() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

// Owner rank is exclusive: an owner without the owner bit is denied even
// when group or other would allow it.
func TestCan_OwnerRankIsExclusive(t *testing.T) {
	t.Parallel()

	inf := Info{Owner: "alice", Group: "alice", Mode: 0o077}
	if Can(inf, alice, Read) {
		t.Error("Can() = true, want owner triplet to decide")
	}
}

func TestCan_OtherBitsDecideForStrangers(t *testing.T) {
	t.Parallel()

	stranger := eveIdentity()
	for m := Mode(0); m <= 0o777; m++ {
		inf := Info{Kind: KindDir, Owner: "alice", Group: "alice", Mode: m}
		want := m&0o002 != 0
		if got := Can(inf, stranger, Write); got != want {
			t.Fatalf("Can(mode %o) = %v, want %v", m, got, want)
		}
	}
}

func eveIdentity() identity.Identity {
	return identity.Identity{Name: "eve", PrimaryGroup: "eve"}
}
