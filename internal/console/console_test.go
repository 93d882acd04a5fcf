// SPDX-License-Identifier: MPL-2.0

package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/invowk/vshell/internal/config"
	"github.com/invowk/vshell/internal/identity"
	"github.com/invowk/vshell/internal/shell"
	"github.com/invowk/vshell/internal/testutil"
)

const alicePassword = "correct-horse"

// fakeTerminal replays scripted keystrokes and records everything written.
type fakeTerminal struct {
	in  io.Reader
	out bytes.Buffer
}

func (f *fakeTerminal) Read(p []byte) (int, error)  { return f.in.Read(p) }
func (f *fakeTerminal) Write(p []byte) (int, error) { return f.out.Write(p) }

func (f *fakeTerminal) output() string {
	return strings.ReplaceAll(f.out.String(), "\r\n", "\n")
}

func newConsole(t *testing.T, user, input string) (*Console, *fakeTerminal, *shell.Session) {
	t.Helper()
	m := testutil.NewMachine(t, testutil.WithConfig(func(c *config.Config) {
		for i := range c.Users {
			if c.Users[i].Name == "alice" {
				c.Users[i].Password = alicePassword
			}
		}
	}))
	sess, err := m.Login(user, nil)
	if err != nil {
		t.Fatalf("Login(%q) error = %v", user, err)
	}
	ft := &fakeTerminal{in: strings.NewReader(input)}
	return New(ft, m.Interp, sess, Options{Hostname: m.Config.Hostname}), ft, sess
}

func TestPromptString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		id   identity.Identity
		cwd  string
		want string
	}{
		{"user", identity.Identity{Name: "alice", PrimaryGroup: "alice"}, "/home/alice", "alice@vshell:/home/alice$ "},
		{"root", identity.Root(), "/", "root@vshell:/# "},
		{"nested", identity.Identity{Name: "bob"}, "/tmp/a b", "bob@vshell:/tmp/a b$ "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := PromptString(tt.id, "vshell", tt.cwd); got != tt.want {
				t.Errorf("PromptString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConsole_RunUntilExit(t *testing.T) {
	t.Parallel()

	c, ft, sess := newConsole(t, "alice", "pwd\rexit\recho unreachable\r")
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !sess.Closed() {
		t.Error("session should be closed after exit")
	}
	out := ft.output()
	if !strings.Contains(out, "alice@vshell:/home/alice$ ") {
		t.Errorf("output lacks the prompt:\n%s", out)
	}
	if !strings.Contains(out, "/home/alice\n") {
		t.Errorf("output lacks pwd:\n%s", out)
	}
	if strings.Contains(out, "unreachable\n") {
		t.Errorf("lines after exit were executed:\n%s", out)
	}
}

func TestConsole_ErrorsAreShown(t *testing.T) {
	t.Parallel()

	c, ft, _ := newConsole(t, "alice", "nosuchcmd\r")
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out := ft.output(); !strings.Contains(out, "nosuchcmd") || !strings.Contains(out, "not found") {
		t.Errorf("output lacks the command-not-found message:\n%s", out)
	}
}

func TestConsole_SudoPasswordIsNotEchoed(t *testing.T) {
	t.Parallel()

	c, ft, _ := newConsole(t, "alice", "sudo whoami\r"+alicePassword+"\r")
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	out := ft.output()
	if !strings.Contains(out, "[sudo] password for alice: ") {
		t.Errorf("output lacks the sudo prompt:\n%s", out)
	}
	if !strings.Contains(out, "root\n") {
		t.Errorf("sudo whoami did not print root:\n%s", out)
	}
	if strings.Contains(out, alicePassword) {
		t.Errorf("password was echoed:\n%s", out)
	}
}

func TestConsole_EOFEndsLoop(t *testing.T) {
	t.Parallel()

	c, _, sess := newConsole(t, "alice", "")
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v, want nil on end of input", err)
	}
	if sess.Closed() {
		t.Error("end of input should not close the session itself")
	}
}

func TestConsole_RunCanceled(t *testing.T) {
	t.Parallel()

	c, _, _ := newConsole(t, "alice", "pwd\r")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestConsole_Prompt(t *testing.T) {
	t.Parallel()

	c, ft, _ := newConsole(t, "alice", "yes\r")
	got, err := c.Prompt(context.Background(), shell.InputRequest{Kind: shell.InputConfirm, Message: "overwrite? "})
	if err != nil || got != "yes" {
		t.Errorf("Prompt() = %q, %v, want yes", got, err)
	}
	if !strings.Contains(ft.output(), "overwrite? ") {
		t.Errorf("question not written:\n%s", ft.output())
	}

	if _, err := c.Prompt(context.Background(), shell.InputRequest{Kind: shell.InputText, Message: "name: "}); !errors.Is(err, shell.ErrNoInput) {
		t.Errorf("Prompt() at EOF error = %v, want ErrNoInput", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Prompt(ctx, shell.InputRequest{Kind: shell.InputPassword, Message: "pw: "}); err == nil {
		t.Error("Prompt() with a canceled context should fail")
	}
}
