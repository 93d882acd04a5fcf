// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/invowk/vshell/internal/identity"
	"github.com/invowk/vshell/internal/vfs"
	"github.com/invowk/vshell/pkg/types"
)

func TestExecute_Sequence(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sess := f.session(f.alice)
	res := f.run(t, sess, "say one; say two\nsay three")
	if res.Output != "one\ntwo\nthree\n" {
		t.Errorf("Output = %q", res.Output)
	}
	if res.ExitCode != types.ExitSuccess || res.Err != nil {
		t.Errorf("ExitCode = %d, Err = %v", res.ExitCode, res.Err)
	}
}

func TestExecute_PipelineFeedsStdin(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res := f.run(t, f.session(f.alice), "say hello world | pass | upper")
	if res.Output != "HELLO WORLD\n" {
		t.Errorf("Output = %q, want %q", res.Output, "HELLO WORLD\n")
	}
}

func TestExecute_RedirectTruncateAndAppend(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sess := f.session(f.alice)

	res := f.run(t, sess, "say first > /tmp/out.txt")
	if res.Output != "" || res.Err != nil {
		t.Fatalf("redirected run: Output = %q, Err = %v", res.Output, res.Err)
	}
	f.run(t, sess, "say second > /tmp/out.txt")
	if got := f.read(t, "/tmp/out.txt"); got != "second\n" {
		t.Errorf("after >: %q, want %q", got, "second\n")
	}
	f.run(t, sess, "say third | upper >> /tmp/out.txt")
	if got := f.read(t, "/tmp/out.txt"); got != "second\nTHIRD\n" {
		t.Errorf("after >>: %q", got)
	}
	if f.sys.FS.Dirty() {
		t.Error("store still dirty after foreground statements")
	}
}

func TestExecute_InputRedirect(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sess := f.session(f.alice)
	f.run(t, sess, "say abc > notes")
	res := f.run(t, sess, "upper < notes")
	if res.Output != "ABC\n" {
		t.Errorf("Output = %q, want %q", res.Output, "ABC\n")
	}
}

func TestExecute_RedirectNeedsWritePermission(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res := f.run(t, f.session(f.bob), "say x > /home/alice/x")
	if !errors.Is(res.Err, vfs.ErrPermissionDenied) {
		t.Fatalf("Err = %v, want ErrPermissionDenied", res.Err)
	}
	if f.sys.FS.Exists(identity.Root(), "/home/alice/x") {
		t.Error("file created despite denial")
	}
}

func TestExecute_RedirectCreatesMissingParents(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sess := f.session(f.alice)
	res := f.run(t, sess, "say x > /tmp/a/b/out.txt")
	if res.Err != nil || res.ExitCode != types.ExitSuccess {
		t.Fatalf("Err = %v, ExitCode = %d, want success", res.Err, res.ExitCode)
	}
	if got := f.read(t, "/tmp/a/b/out.txt"); got != "x\n" {
		t.Errorf("/tmp/a/b/out.txt = %q, want %q", got, "x\n")
	}
	info, err := f.sys.FS.Stat(identity.Root(), "/tmp/a")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Owner != "alice" {
		t.Errorf("/tmp/a owner = %q, want alice", info.Owner)
	}

	res = f.run(t, f.session(f.bob), "say x >> /home/alice/new/out.txt")
	if !errors.Is(res.Err, vfs.ErrPermissionDenied) {
		t.Errorf("bob: Err = %v, want ErrPermissionDenied", res.Err)
	}
}

func TestExecute_StageFailureStopsPipeline(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res := f.run(t, f.session(f.alice), "say a | boom | mark after")

	var stageErr *PipelineStageError
	if !errors.As(res.Err, &stageErr) {
		t.Fatalf("Err = %v, want PipelineStageError", res.Err)
	}
	if stageErr.Index != 1 || stageErr.Command != "boom" {
		t.Errorf("stage = %d/%s, want 1/boom", stageErr.Index, stageErr.Command)
	}
	if !errors.Is(res.Err, errBoom) || !errors.Is(res.Err, ErrPipelineStage) {
		t.Errorf("Err = %v does not wrap both the cause and ErrPipelineStage", res.Err)
	}
	if len(f.ran) != 0 {
		t.Errorf("later stage ran: %v", f.ran)
	}
	if res.ErrOutput != "boom: boom\n" {
		t.Errorf("ErrOutput = %q", res.ErrOutput)
	}
	if res.ExitCode != types.ExitFailure {
		t.Errorf("ExitCode = %d, want 1", res.ExitCode)
	}
}

func TestExecute_EarlierStageEffectsStay(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res := f.run(t, f.session(f.alice), "mark early | boom")
	if res.Err == nil {
		t.Fatal("expected an error")
	}
	if got := f.read(t, "/tmp/early"); got != "marked\n" {
		t.Errorf("/tmp/early = %q", got)
	}
}

func TestExecute_ContractCheckedBeforeAnyStage(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res := f.run(t, f.session(f.alice), "mark early | one a b")
	if !errors.Is(res.Err, ErrMalformedCommand) {
		t.Fatalf("Err = %v, want ErrMalformedCommand", res.Err)
	}
	if res.ExitCode != types.ExitUsage {
		t.Errorf("ExitCode = %d, want 2", res.ExitCode)
	}
	if len(f.ran) != 0 || f.sys.FS.Exists(identity.Root(), "/tmp/early") {
		t.Error("first stage ran despite a contract violation later in the pipeline")
	}
	want := "one: expects 1 argument, got 2\nusage: one ARG\n"
	if res.ErrOutput != want {
		t.Errorf("ErrOutput = %q, want %q", res.ErrOutput, want)
	}
}

func TestExecute_SyntaxRejectedBeforeAnything(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res := f.run(t, f.session(f.alice), "mark early; say a && say b")
	if !errors.Is(res.Err, ErrMalformedCommand) {
		t.Fatalf("Err = %v, want ErrMalformedCommand", res.Err)
	}
	if len(f.ran) != 0 {
		t.Error("statement ran before the rest of the line was rejected")
	}
}

func TestExecute_LaterStatementsRunAfterFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res := f.run(t, f.session(f.alice), "nosuch; say still")
	if res.Output != "still\n" {
		t.Errorf("Output = %q", res.Output)
	}
	if res.ErrOutput != "nosuch: command not found\n" {
		t.Errorf("ErrOutput = %q", res.ErrOutput)
	}
	if res.ExitCode != types.ExitSuccess {
		t.Errorf("ExitCode = %d, want last statement's 0", res.ExitCode)
	}
}

func TestExecute_CommandNotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res := f.run(t, f.session(f.alice), "nosuch arg")
	if !errors.Is(res.Err, ErrCommandNotFound) || res.ExitCode != types.ExitCommandNotFound {
		t.Errorf("Err = %v, ExitCode = %d", res.Err, res.ExitCode)
	}
}

func TestExecute_Cancellation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan *Result)
	go func() { done <- f.interp.Execute(ctx, f.session(f.alice), "nap") }()

	for f.clock.Pending() == 0 {
		time.Sleep(time.Millisecond)
	}
	cancel()
	res := <-done
	if !errors.Is(res.Err, ErrCancelled) {
		t.Fatalf("Err = %v, want ErrCancelled", res.Err)
	}
	if res.ExitCode != types.ExitInterrupted {
		t.Errorf("ExitCode = %d, want 130", res.ExitCode)
	}
}

func TestExecute_QuotingAndExpansion(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sess := f.session(f.alice)
	sess.Setenv("GREETING", "hi there")

	tests := []struct {
		line string
		want string
	}{
		{`say "a   b" c`, "a   b c\n"},
		{`say 'a | b; c > d'`, "a | b; c > d\n"},
		{`say $GREETING`, "hi there\n"},
		{`say "${GREETING}!"`, "hi there!\n"},
		{`say '$GREETING'`, "$GREETING\n"},
		{`say ~`, "/home/alice\n"},
		{`say ~/docs`, "/home/alice/docs\n"},
		{`say $USER`, "alice\n"},
		{`say -n x`, "x"},
		{`say \*`, "*\n"},
		{`say a\ b`, "a b\n"},
		{`say \$HOME`, "$HOME\n"},
		{`say a\|b`, "a|b\n"},
		{`say \~`, "~\n"},
		{`say "a\"b"`, "a\"b\n"},
	}
	for _, tt := range tests {
		if got := f.run(t, sess, tt.line).Output; got != tt.want {
			t.Errorf("%s: Output = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestExecute_EscapedSpaceNamesOneFile(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sess := f.session(f.alice)
	f.run(t, sess, `say hello > my\ notes.txt`)
	if got := f.read(t, "/home/alice/my notes.txt"); got != "hello\n" {
		t.Errorf("my notes.txt = %q, want %q", got, "hello\n")
	}
	if got := f.run(t, sess, `upper < my\ notes.txt`).Output; got != "HELLO\n" {
		t.Errorf("Output = %q, want %q", got, "HELLO\n")
	}
}

func TestExecute_Glob(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sess := f.session(f.alice)
	for _, name := range []string{"b.txt", "a.txt", "c.md", ".hidden.txt"} {
		if err := f.sys.FS.WriteFile(f.alice, "/home/alice/"+name, []byte("x")); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}

	tests := []struct {
		line string
		want string
	}{
		{"say *.txt", "a.txt b.txt\n"},
		{"say /home/alice/?.md", "/home/alice/c.md\n"},
		{"say .*.txt", ".hidden.txt\n"},
		{"say '*.txt'", "*.txt\n"},
		{"say *.none", "*.none\n"},
	}
	for _, tt := range tests {
		if got := f.run(t, sess, tt.line).Output; got != tt.want {
			t.Errorf("%s: Output = %q, want %q", tt.line, got, tt.want)
		}
	}

	// bob cannot list alice's home, so the pattern stays literal.
	if got := f.run(t, f.session(f.bob), "say /home/alice/*.txt").Output; got != "/home/alice/*.txt\n" {
		t.Errorf("glob through denied directory: %q", got)
	}
}

func TestExecute_StatusParameter(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sess := f.session(f.alice)
	res := f.run(t, sess, "boom; say $?")
	if !strings.HasSuffix(res.Output, "1\n") {
		t.Errorf("Output = %q, want $? to be 1", res.Output)
	}
	if sess.Status() != types.ExitSuccess {
		t.Errorf("Status() = %d, want 0", sess.Status())
	}
}

func TestExecute_History(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sess := f.session(f.alice)
	f.run(t, sess, "say a")
	f.run(t, sess, "   ")
	f.run(t, sess, "say b")
	if got := sess.History(); len(got) != 2 || got[1] != "say b" {
		t.Errorf("History() = %q", got)
	}
}

func TestExecute_Prompt(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	answers := NewAnswers("Ada")
	sess := NewSession(SessionOptions{User: f.alice, Home: "/home/alice", Prompter: answers})
	if got := f.run(t, sess, "ask").Output; got != "Ada\n" {
		t.Errorf("Output = %q", got)
	}
	if asked := answers.Asked(); len(asked) != 1 || asked[0].Message != "name? " {
		t.Errorf("Asked() = %+v", asked)
	}
	res := f.run(t, sess, "ask")
	if !errors.Is(res.Err, ErrNoInput) {
		t.Errorf("Err = %v, want ErrNoInput once answers run out", res.Err)
	}
}

func TestExecute_Background(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sess := f.session(f.alice)

	res := f.run(t, sess, "nap > /tmp/nap.txt & say foreground")
	if !strings.HasPrefix(res.Output, "[1] ") || !strings.HasSuffix(res.Output, "foreground\n") {
		t.Fatalf("Output = %q", res.Output)
	}
	jobs := sess.Jobs().List()
	if len(jobs) != 1 || jobs[0].State != JobRunning || jobs[0].Line != "nap > /tmp/nap.txt" {
		t.Fatalf("List() = %+v", jobs)
	}

	for f.clock.Pending() == 0 {
		time.Sleep(time.Millisecond)
	}
	f.clock.Advance(time.Minute)
	if err := sess.Jobs().Wait(context.Background(), "%1"); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if got := f.read(t, "/tmp/nap.txt"); got != "rested\n" {
		t.Errorf("/tmp/nap.txt = %q", got)
	}
	if f.sys.FS.Dirty() {
		t.Error("background job did not commit")
	}

	res = f.run(t, sess, "say next")
	if !strings.Contains(res.Output, "[1]+  Done") || !strings.HasSuffix(res.Output, "next\n") {
		t.Errorf("Output = %q, want completion notice then output", res.Output)
	}
	if len(sess.Jobs().List()) != 0 {
		t.Error("finished job still listed after its notice")
	}
}

func TestExecute_BackgroundContractErrorReportedAtOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sess := f.session(f.alice)
	res := f.run(t, sess, "one &")
	if !errors.Is(res.Err, ErrMalformedCommand) {
		t.Fatalf("Err = %v, want ErrMalformedCommand", res.Err)
	}
	if len(sess.Jobs().List()) != 0 {
		t.Error("job started despite contract error")
	}
}

func TestExecute_BackgroundKill(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sess := f.session(f.alice)
	f.run(t, sess, "nap &")
	if err := sess.Jobs().Kill("%1"); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}
	if err := sess.Jobs().Wait(context.Background(), ""); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	res := f.run(t, sess, "say x")
	if !strings.Contains(res.Output, "Killed") {
		t.Errorf("Output = %q, want a Killed notice", res.Output)
	}
}

func TestExecute_BackgroundHasNoPrompter(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sess := f.session(f.alice, "never used")
	f.run(t, sess, "ask &")
	if err := sess.Jobs().Wait(context.Background(), ""); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	res := f.run(t, sess, "")
	if !strings.Contains(res.ErrOutput, ErrNoInput.Error()) || !strings.Contains(res.Output, "Exit 1") {
		t.Errorf("Output = %q, ErrOutput = %q", res.Output, res.ErrOutput)
	}
}

func TestExecute_CommitFailureIsLoud(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.sys.FS = vfs.New(vfs.Options{Quota: 4, Clock: f.clock, Seed: vfs.Seed{Users: []string{"alice"}}})
	if err := f.sys.FS.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := f.sys.FS.Commit(context.Background()); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	res := f.run(t, f.session(f.alice), "say too-large > /tmp/big")
	if !errors.Is(res.Err, vfs.ErrQuotaExceeded) {
		t.Fatalf("Err = %v, want ErrQuotaExceeded", res.Err)
	}
	if !strings.Contains(res.ErrOutput, "disk quota exceeded") {
		t.Errorf("ErrOutput = %q", res.ErrOutput)
	}
	if f.sys.FS.Exists(identity.Root(), "/tmp/big") {
		t.Error("rolled back file still present")
	}
}
