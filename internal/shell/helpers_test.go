// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/invowk/vshell/internal/clock"
	"github.com/invowk/vshell/internal/identity"
	"github.com/invowk/vshell/internal/persist"
	"github.com/invowk/vshell/internal/sudoers"
	"github.com/invowk/vshell/internal/vfs"
)

var errBoom = errors.New("boom")

// funcCommand is a Command built from a function.
type funcCommand struct {
	name     string
	contract Contract
	run      func(ctx context.Context, inv *Invocation) error
}

func (c *funcCommand) Name() string                                   { return c.name }
func (c *funcCommand) Contract() Contract                             { return c.contract }
func (c *funcCommand) Run(ctx context.Context, inv *Invocation) error { return c.run(ctx, inv) }

type fixture struct {
	interp *Interpreter
	sys    *System
	clock  *clock.Fake
	alice  identity.Identity
	bob    identity.Identity
	ran    []string
}

// newFixture builds a system with alice and bob and a registry of small
// test commands:
//
//	say ARGS...   prints its arguments
//	pass          copies stdin to stdout
//	upper         upper-cases stdin
//	mark NAME     records NAME as run and creates /tmp/NAME
//	one ARG       accepts exactly one argument
//	boom          fails
//	nap           blocks until cancelled or the clock passes 1m
//	ask           prompts and prints the answer
func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewFake(time.Time{})
	store := vfs.New(vfs.Options{
		Adapter: persist.NewMemory(),
		Clock:   clk,
		Seed:    vfs.Seed{Users: []string{"alice", "bob"}},
	})
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := store.Commit(context.Background()); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	users := identity.NewRegistry(bcrypt.MinCost)
	alice, err := users.AddUser(identity.UserSpec{Name: "alice", Password: "alicepw"})
	if err != nil {
		t.Fatalf("AddUser(alice) error = %v", err)
	}
	bob, err := users.AddUser(identity.UserSpec{Name: "bob", Password: "bobpw"})
	if err != nil {
		t.Fatalf("AddUser(bob) error = %v", err)
	}
	engine := sudoers.NewEngine(store, "", clk, nil)
	store.OnChange(engine.Hook())

	f := &fixture{clock: clk, alice: alice, bob: bob}
	f.sys = &System{FS: store, Users: users, Sudoers: engine, Clock: clk, Hostname: "testbox"}

	reg := NewRegistry()
	reg.Register(&funcCommand{name: "say", contract: Contract{Args: Any(), Flags: []FlagSpec{{Name: "n", Short: "n"}}}, run: func(_ context.Context, inv *Invocation) error {
		end := "\n"
		if inv.Flags.Bool("n") {
			end = ""
		}
		fmt.Fprint(inv.Stdout, strings.Join(inv.Args, " ")+end)
		return nil
	}})
	reg.Register(&funcCommand{name: "pass", contract: Contract{Args: Exactly(0)}, run: func(_ context.Context, inv *Invocation) error {
		_, err := io.Copy(inv.Stdout, inv.Stdin)
		return err
	}})
	reg.Register(&funcCommand{name: "upper", contract: Contract{Args: Exactly(0)}, run: func(_ context.Context, inv *Invocation) error {
		data, err := io.ReadAll(inv.Stdin)
		if err != nil {
			return err
		}
		_, err = io.WriteString(inv.Stdout, strings.ToUpper(string(data)))
		return err
	}})
	reg.Register(&funcCommand{name: "mark", contract: Contract{Args: Exactly(1)}, run: func(_ context.Context, inv *Invocation) error {
		f.ran = append(f.ran, inv.Args[0])
		return inv.Sys.FS.WriteFile(inv.Identity(), "/tmp/"+inv.Args[0], []byte("marked\n"))
	}})
	reg.Register(&funcCommand{name: "one", contract: Contract{Usage: "one ARG", Args: Exactly(1)}, run: func(_ context.Context, inv *Invocation) error {
		fmt.Fprintln(inv.Stdout, inv.Args[0])
		return nil
	}})
	reg.Register(&funcCommand{name: "boom", contract: Contract{Args: Any()}, run: func(_ context.Context, inv *Invocation) error {
		fmt.Fprint(inv.Stdout, "partial\n")
		return errBoom
	}})
	reg.Register(&funcCommand{name: "nap", contract: Contract{Args: Exactly(0)}, run: func(ctx context.Context, inv *Invocation) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-inv.Sys.Clock.After(time.Minute):
			fmt.Fprintln(inv.Stdout, "rested")
			return nil
		}
	}})
	reg.Register(&funcCommand{name: "ask", contract: Contract{Args: Exactly(0)}, run: func(ctx context.Context, inv *Invocation) error {
		answer, err := inv.Prompt(ctx, InputRequest{Kind: InputText, Message: "name? "})
		if err != nil {
			return err
		}
		fmt.Fprintln(inv.Stdout, answer)
		return nil
	}})
	reg.Register(&funcCommand{name: "whoami", contract: Contract{Args: Exactly(0)}, run: func(_ context.Context, inv *Invocation) error {
		fmt.Fprintln(inv.Stdout, inv.Identity().Name)
		return nil
	}})
	f.interp = NewInterpreter(f.sys, reg)
	return f
}

func (f *fixture) session(id identity.Identity, answers ...string) *Session {
	home := "/home/" + id.Name
	if id.IsRoot() {
		home = "/root"
	}
	return NewSession(SessionOptions{User: id, Home: home, Prompter: NewAnswers(answers...)})
}

func (f *fixture) run(t *testing.T, sess *Session, line string) *Result {
	t.Helper()
	return f.interp.Execute(context.Background(), sess, line)
}

func (f *fixture) read(t *testing.T, p string) string {
	t.Helper()
	data, err := f.sys.FS.ReadFile(identity.Root(), p)
	if err != nil {
		t.Fatalf("ReadFile(%q) error = %v", p, err)
	}
	return string(data)
}
