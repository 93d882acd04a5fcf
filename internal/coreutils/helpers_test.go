// SPDX-License-Identifier: MPL-2.0

package coreutils

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/invowk/vshell/internal/clock"
	"github.com/invowk/vshell/internal/identity"
	"github.com/invowk/vshell/internal/persist"
	"github.com/invowk/vshell/internal/shell"
	"github.com/invowk/vshell/internal/sudoers"
	"github.com/invowk/vshell/internal/vfs"
)

const testSudoers = `# test policy
Defaults timestamp_timeout=5
alice ALL
%wheel whoami, cat
carol NOPASSWD: whoami
`

type fixture struct {
	interp *shell.Interpreter
	sys    *shell.System
	clock  *clock.Fake
	users  map[string]identity.Identity
}

// newFixture builds a machine with alice (sudo ALL), bob (wheel: whoami and
// cat) and carol (whoami without a password). Passwords are the user name
// followed by "pw".
//
//	/home/alice/notes.txt   alice 0644  "one\ntwo\nthree\n"
//	/home/alice/secret.txt  alice 0600  "s3cret\n"
//	/etc/sudoers            root  0440
func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewFake(time.Time{})
	store := vfs.New(vfs.Options{
		Adapter: persist.NewMemory(),
		Clock:   clk,
		Seed: vfs.Seed{
			Users: []string{"alice", "bob", "carol"},
			Files: []vfs.SeedFile{
				{Path: "/etc/sudoers", Content: testSudoers, Mode: 0o440},
				{Path: "/home/alice/notes.txt", Content: "one\ntwo\nthree\n", Owner: "alice"},
				{Path: "/home/alice/secret.txt", Content: "s3cret\n", Owner: "alice", Mode: 0o600},
			},
		},
	})
	ctx := context.Background()
	if err := store.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := store.Commit(ctx); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	reg := identity.NewRegistry(bcrypt.MinCost)
	f := &fixture{clock: clk, users: map[string]identity.Identity{identity.RootName: identity.Root()}}
	for _, spec := range []identity.UserSpec{
		{Name: "alice", Password: "alicepw"},
		{Name: "bob", Password: "bobpw", Groups: []string{"wheel"}},
		{Name: "carol", Password: "carolpw"},
	} {
		id, err := reg.AddUser(spec)
		if err != nil {
			t.Fatalf("AddUser(%s) error = %v", spec.Name, err)
		}
		f.users[spec.Name] = id
	}

	engine := sudoers.NewEngine(store, "", clk, nil)
	store.OnChange(engine.Hook())
	f.sys = &shell.System{FS: store, Users: reg, Sudoers: engine, Clock: clk, Hostname: "testbox"}
	f.interp = shell.NewInterpreter(f.sys, NewRegistry())
	return f
}

// session logs name in; answers feed its prompts.
func (f *fixture) session(name string, answers ...string) (*shell.Session, *shell.Answers) {
	a := shell.NewAnswers(answers...)
	return shell.NewSession(shell.SessionOptions{User: f.users[name], Home: HomeDir(name), Prompter: a}), a
}

func (f *fixture) run(t *testing.T, sess *shell.Session, line string) *shell.Result {
	t.Helper()
	return f.interp.Execute(context.Background(), sess, line)
}

// runAs runs line in a fresh session for name and fails the test on a
// non-zero status.
func (f *fixture) runAs(t *testing.T, name, line string) string {
	t.Helper()
	sess, _ := f.session(name)
	res := f.run(t, sess, line)
	if res.ExitCode != 0 {
		t.Fatalf("%s: %q exit %d, stderr %q", name, line, res.ExitCode, res.ErrOutput)
	}
	return res.Output
}

func (f *fixture) read(t *testing.T, p string) string {
	t.Helper()
	data, err := f.sys.FS.ReadFile(identity.Root(), p)
	if err != nil {
		t.Fatalf("ReadFile(%q) error = %v", p, err)
	}
	return string(data)
}

func (f *fixture) write(t *testing.T, owner, p, content string) {
	t.Helper()
	if err := f.sys.FS.WriteFile(f.users[owner], p, []byte(content)); err != nil {
		t.Fatalf("WriteFile(%q) error = %v", p, err)
	}
	if err := f.sys.FS.Commit(context.Background()); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
}
