// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/invowk/vshell/internal/vfs"
	"github.com/invowk/vshell/pkg/types"
)

type (
	// Interpreter runs command lines against a System.
	Interpreter struct {
		sys *System
		reg *Registry
		log *log.Logger
	}

	// Result is what a submitted line produced. Output and ErrOutput are
	// the concatenated standard output and error of every statement; Err
	// and ExitCode belong to the last statement.
	Result struct {
		Output    string
		ErrOutput string
		ExitCode  types.ExitCode
		Err       error
	}
)

// NewInterpreter returns an interpreter running commands from reg.
func NewInterpreter(sys *System, reg *Registry) *Interpreter {
	return &Interpreter{sys: sys, reg: reg, log: sys.Logger()}
}

// System returns the machine the interpreter runs on.
func (in *Interpreter) System() *System { return in.sys }

// Registry returns the command registry.
func (in *Interpreter) Registry() *Registry { return in.reg }

// Execute runs line in sess. The whole line is parsed and checked for
// unsupported constructs first; then each statement is expanded, checked
// against its commands' contracts and run to completion, or handed off as
// a job, before the next one starts. Output of background jobs that
// finished since the previous call comes first.
func (in *Interpreter) Execute(ctx context.Context, sess *Session, line string) *Result {
	var stdout, stderr bytes.Buffer
	res := &Result{}
	in.drainJobs(sess, &stdout, &stderr)

	if strings.TrimSpace(line) != "" {
		sess.AddHistory(line)
	}
	stmts, err := parseLine(line)
	if err != nil {
		in.report(&stderr, shellName, err)
		res.Err, res.ExitCode = err, ExitCodeOf(err)
		sess.setStatus(res.ExitCode)
		return in.finish(res, &stdout, &stderr)
	}

	for _, st := range stmts {
		if err := ctx.Err(); err != nil {
			res.Err = Cancelled(err)
			res.ExitCode = ExitCodeOf(res.Err)
			break
		}
		if sess.Closed() {
			break
		}
		if st.background {
			res.Err = in.background(ctx, sess, st, &stdout, &stderr)
		} else {
			res.Err = in.foreground(ctx, sess, st, &stdout, &stderr)
		}
		res.ExitCode = ExitCodeOf(res.Err)
		sess.setStatus(res.ExitCode)
	}
	return in.finish(res, &stdout, &stderr)
}

func (in *Interpreter) finish(res *Result, stdout, stderr *bytes.Buffer) *Result {
	res.Output = stdout.String()
	res.ErrOutput = stderr.String()
	return res
}

func (in *Interpreter) drainJobs(sess *Session, stdout, stderr io.Writer) {
	for _, j := range sess.Jobs().Drain() {
		if r := j.Result(); r != nil {
			io.WriteString(stdout, r.Output)
			io.WriteString(stderr, r.ErrOutput)
		}
		fmt.Fprintln(stdout, j.Notice())
	}
}

// foreground runs one statement and commits what it changed.
func (in *Interpreter) foreground(ctx context.Context, sess *Session, st *statement, stdout, stderr io.Writer) error {
	err := in.runStatement(ctx, sess, st, stdout, stderr)
	if cerr := in.commit(ctx, stderr); cerr != nil {
		return errors.Join(err, cerr)
	}
	return err
}

// background checks the statement in the foreground, so contract errors
// are reported at once, then hands it to the job table.
func (in *Interpreter) background(ctx context.Context, sess *Session, st *statement, stdout, stderr io.Writer) error {
	p, err := in.plan(sess, st)
	if err != nil {
		in.report(stderr, p.failed, err)
		return err
	}
	bg := sess.detach()
	j := sess.Jobs().Start(ctx, st.text, func(jctx context.Context) *Result {
		var out, errOut bytes.Buffer
		r := &Result{}
		r.Err = in.runPlan(jctx, bg, p, &out, &errOut)
		if cerr := in.commit(jctx, &errOut); cerr != nil {
			r.Err = errors.Join(r.Err, cerr)
		}
		r.ExitCode = ExitCodeOf(r.Err)
		return in.finish(r, &out, &errOut)
	})
	fmt.Fprintf(stdout, "[%d] %s\n", j.Num, j.ID)
	return nil
}

// commit saves what the statement changed. It runs even when the
// statement was cancelled, since its effects are already in the tree.
func (in *Interpreter) commit(ctx context.Context, stderr io.Writer) error {
	if !in.sys.FS.Dirty() {
		return nil
	}
	if err := in.sys.FS.Commit(context.WithoutCancel(ctx)); err != nil {
		in.log.Error("commit failed", "err", err)
		in.report(stderr, shellName, err)
		return &reportedError{err: err}
	}
	return nil
}

type plan struct {
	stages    []stage
	input     string
	output    string
	appendOut bool
	// failed names the command whose expansion or contract failed.
	failed string
}

// plan expands every word of st and checks every stage's contract and the
// redirection targets. Nothing has run when it returns.
func (in *Interpreter) plan(sess *Session, st *statement) (*plan, error) {
	ex := newExpander(in.sys, sess)
	p := &plan{appendOut: st.appendOut, failed: shellName}
	for _, call := range st.stages {
		argv, err := ex.fields(call.Args)
		if err != nil {
			return p, err
		}
		if len(argv) == 0 {
			return p, syntaxErr("empty command")
		}
		p.failed = argv[0]
		s, err := in.prepare(argv)
		if err != nil {
			return p, err
		}
		p.stages = append(p.stages, s)
	}
	p.failed = shellName

	var err error
	if st.input != nil {
		if p.input, err = ex.literal(st.input); err != nil {
			return p, err
		}
		p.input = sess.Resolve(p.input)
		if _, err := in.sys.FS.Validate(sess.Identity(), p.input, vfs.ValidateOptions{Op: "read", ExpectedType: vfs.KindFile}); err != nil {
			return p, err
		}
	}
	if st.output != nil {
		if p.output, err = ex.literal(st.output); err != nil {
			return p, err
		}
		p.output = sess.Resolve(p.output)
		op := "write"
		if st.appendOut {
			op = "append to"
		}
		if err := in.sys.FS.CheckWrite(sess.Identity(), op, p.output); err != nil {
			return p, err
		}
	}
	return p, nil
}

// prepare looks up argv[0] and parses the rest against its contract.
func (in *Interpreter) prepare(argv []string) (stage, error) {
	cmd, ok := in.reg.Lookup(argv[0])
	if !ok {
		return stage{}, &CommandNotFoundError{Name: argv[0]}
	}
	flags, args, err := cmd.Contract().ParseArgs(argv[0], argv[1:])
	if err != nil {
		return stage{}, err
	}
	return stage{name: argv[0], cmd: cmd, flags: flags, args: args}, nil
}

func (in *Interpreter) runStatement(ctx context.Context, sess *Session, st *statement, stdout, stderr io.Writer) error {
	p, err := in.plan(sess, st)
	if err != nil {
		in.report(stderr, p.failed, err)
		return err
	}
	return in.runPlan(ctx, sess, p, stdout, stderr)
}

// runPlan runs the stages in order, each reading the previous stage's
// captured output. A failing stage stops the pipeline; effects of earlier
// stages stay.
func (in *Interpreter) runPlan(ctx context.Context, sess *Session, p *plan, stdout, stderr io.Writer) error {
	var input []byte
	if p.input != "" {
		data, err := in.sys.FS.ReadFile(sess.Identity(), p.input)
		if err != nil {
			in.report(stderr, shellName, err)
			return err
		}
		input = data
	}

	for i, s := range p.stages {
		var out bytes.Buffer
		err := in.runStage(ctx, sess, s, bytes.NewReader(input), &out, stderr)
		last := i == len(p.stages)-1
		if err != nil {
			in.report(stderr, s.name, err)
			if !last {
				return &PipelineStageError{Index: i, Command: s.name, Err: err}
			}
			if len(p.stages) > 1 {
				err = &PipelineStageError{Index: i, Command: s.name, Err: err}
			}
			if werr := in.emit(sess, p, out.Bytes(), stdout, stderr); werr != nil {
				return errors.Join(err, werr)
			}
			return err
		}
		input = out.Bytes()
	}
	return in.emit(sess, p, input, stdout, stderr)
}

// emit delivers the pipeline's final output to the redirection target or
// to stdout.
func (in *Interpreter) emit(sess *Session, p *plan, data []byte, stdout, stderr io.Writer) error {
	if p.output == "" {
		_, err := stdout.Write(data)
		return err
	}
	write := in.sys.FS.WriteFile
	if p.appendOut {
		write = in.sys.FS.AppendFile
	}
	if err := write(sess.Identity(), p.output, data); err != nil {
		in.report(stderr, shellName, err)
		return &reportedError{err: err}
	}
	return nil
}

func (in *Interpreter) runStage(ctx context.Context, sess *Session, s stage, stdin io.Reader, stdout, stderr io.Writer) error {
	inv := &Invocation{
		Sys:     in.sys,
		Session: sess,
		Name:    s.name,
		Args:    s.args,
		Flags:   s.flags,
		Stdin:   stdin,
		Stdout:  stdout,
		Stderr:  stderr,
		interp:  in,
	}
	return Cancelled(s.cmd.Run(ctx, inv))
}

// report writes "<name>: <err>" unless err carries no message or was
// already reported.
func (in *Interpreter) report(w io.Writer, name string, err error) {
	if err == nil || silent(err) {
		return
	}
	var mal *MalformedCommandError
	if errors.As(err, &mal) && mal.Usage != "" {
		fmt.Fprintf(w, "%s: %v\nusage: %s\n", name, err, mal.Usage)
		return
	}
	fmt.Fprintf(w, "%s: %v\n", name, err)
}
