// SPDX-License-Identifier: MPL-2.0

package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/invowk/vshell/internal/clock"
	"github.com/invowk/vshell/internal/config"
	"github.com/invowk/vshell/internal/coreutils"
	"github.com/invowk/vshell/internal/identity"
	"github.com/invowk/vshell/internal/persist"
	"github.com/invowk/vshell/internal/shell"
	"github.com/invowk/vshell/pkg/types"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.BcryptCost = 4
	return cfg
}

func newMachine(t *testing.T, cfg *config.Config, adapter persist.Adapter) *Machine {
	t.Helper()
	m, err := New(context.Background(), Options{
		Config:  cfg,
		Adapter: adapter,
		Clock:   clock.NewFake(time.Time{}),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func login(t *testing.T, m *Machine, name string, answers ...string) *shell.Session {
	t.Helper()
	sess, err := m.Login(name, shell.NewAnswers(answers...))
	if err != nil {
		t.Fatalf("Login(%q) error = %v", name, err)
	}
	return sess
}

func run(m *Machine, sess *shell.Session, line string) *shell.Result {
	return m.Interp.Execute(context.Background(), sess, line)
}

func TestNew_SeedsAndCommitsFreshTree(t *testing.T) {
	t.Parallel()

	adapter := persist.NewMemory()
	m := newMachine(t, testConfig(), adapter)

	if got := adapter.Saves(); got != 1 {
		t.Errorf("Saves() = %d, want 1 after the first run", got)
	}
	if m.Store.Dirty() {
		t.Error("Dirty() = true after New")
	}

	root := identity.Root()
	passwd, err := m.Store.ReadFile(root, coreutils.PasswdPath)
	if err != nil {
		t.Fatalf("ReadFile(passwd) error = %v", err)
	}
	for _, name := range []string{"root", "alice", "bob", "carol"} {
		if !strings.Contains(string(passwd), name+":x:") {
			t.Errorf("/etc/passwd lacks %s:\n%s", name, passwd)
		}
	}

	info, err := m.Store.Stat(root, m.Config.SudoersPath)
	if err != nil {
		t.Fatalf("Stat(sudoers) error = %v", err)
	}
	if info.Mode.Perm() != 0o440 || info.Owner != identity.RootName {
		t.Errorf("sudoers = %s owned by %s, want 0440 root", info.Mode.Octal(), info.Owner)
	}

	home, err := m.Store.Stat(root, "/home/bob")
	if err != nil {
		t.Fatalf("Stat(/home/bob) error = %v", err)
	}
	if home.Owner != "bob" || !home.IsDir() {
		t.Errorf("/home/bob = %+v, want a directory owned by bob", home)
	}
}

func TestNew_ReloadsSavedTreeWithoutSaving(t *testing.T) {
	t.Parallel()

	adapter := persist.NewMemory()
	first := newMachine(t, testConfig(), adapter)
	sess := login(t, first, "alice")
	if res := run(first, sess, "echo persisted > notes.txt"); res.ExitCode != types.ExitSuccess {
		t.Fatalf("write exit = %d, stderr = %q", res.ExitCode, res.ErrOutput)
	}
	saved := adapter.Saves()

	second := newMachine(t, testConfig(), adapter)
	if got := adapter.Saves(); got != saved {
		t.Errorf("Saves() = %d after reload, want %d", got, saved)
	}
	res := run(second, login(t, second, "alice"), "cat notes.txt")
	if res.Output != "persisted\n" {
		t.Errorf("cat after reload = %q, want %q", res.Output, "persisted\n")
	}
}

func TestNew_RestoresAccountsFromSnapshot(t *testing.T) {
	t.Parallel()

	adapter := persist.NewMemory()
	first := newMachine(t, testConfig(), adapter)
	res := run(first, login(t, first, identity.RootName), "useradd -G wheel dave")
	if res.ExitCode != types.ExitSuccess {
		t.Fatalf("useradd exit = %d, stderr = %q", res.ExitCode, res.ErrOutput)
	}

	second := newMachine(t, testConfig(), adapter)
	id, err := second.Users.Lookup("dave")
	if err != nil {
		t.Fatalf("Lookup(dave) after reload error = %v", err)
	}
	if !id.InGroup("wheel") {
		t.Errorf("dave groups = %v, want wheel", id.AllGroups())
	}
	if err := second.Authenticate("dave", ""); !errors.Is(err, identity.ErrBadPassword) {
		t.Errorf("Authenticate(dave) = %v, want ErrBadPassword", err)
	}
}

func TestNew_InvalidUserInConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Users = append(cfg.Users, config.UserConfig{Name: "bad name"})
	_, err := New(context.Background(), Options{Config: cfg, Adapter: persist.NewMemory()})
	if !errors.Is(err, identity.ErrInvalidName) {
		t.Errorf("New() error = %v, want ErrInvalidName", err)
	}
}

func TestMachine_Authenticate(t *testing.T) {
	t.Parallel()

	m := newMachine(t, testConfig(), persist.NewMemory())

	tests := []struct {
		user, password string
		wantErr        error
	}{
		{"alice", "alice", nil},
		{"alice", "wrong", identity.ErrBadPassword},
		{"nobody", "x", identity.ErrUnknownUser},
		{identity.RootName, "", identity.ErrBadPassword},
	}
	for _, tt := range tests {
		t.Run(tt.user+"/"+tt.password, func(t *testing.T) {
			t.Parallel()
			err := m.Authenticate(tt.user, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Authenticate(%q) = %v, want %v", tt.user, err, tt.wantErr)
			}
		})
	}
}

func TestMachine_LoginAndSudo(t *testing.T) {
	t.Parallel()

	m := newMachine(t, testConfig(), persist.NewMemory())
	sess := login(t, m, "alice", "alice")

	if sess.Cwd() != "/home/alice" {
		t.Errorf("Cwd() = %q, want /home/alice", sess.Cwd())
	}
	if res := run(m, sess, "whoami"); res.Output != "alice\n" {
		t.Errorf("whoami = %q, want alice", res.Output)
	}
	res := run(m, sess, "sudo whoami")
	if res.ExitCode != types.ExitSuccess || !strings.HasSuffix(res.Output, "root\n") {
		t.Errorf("sudo whoami = %q (exit %d, stderr %q), want root", res.Output, res.ExitCode, res.ErrOutput)
	}

	if _, err := m.Login("nobody", nil); !errors.Is(err, identity.ErrUnknownUser) {
		t.Errorf("Login(nobody) = %v, want ErrUnknownUser", err)
	}
}

func TestDefaultSudoers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		user    string
		want    string
		notWant string
	}{
		{"alice", "alice ALL\n", ""},
		{identity.RootName, "%wheel ALL\n", "root ALL"},
		{"", "Defaults timestamp_timeout=15\n", " ALL\n%wheel"},
	}
	for _, tt := range tests {
		got := DefaultSudoers(tt.user)
		if !strings.Contains(got, tt.want) {
			t.Errorf("DefaultSudoers(%q) = %q, want it to contain %q", tt.user, got, tt.want)
		}
		if tt.notWant != "" && strings.Contains(got, tt.notWant) {
			t.Errorf("DefaultSudoers(%q) = %q, should not contain %q", tt.user, got, tt.notWant)
		}
	}
}
