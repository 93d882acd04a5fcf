// SPDX-License-Identifier: MPL-2.0

// Package console is the interactive front end of vshell. It runs a
// line-editing REPL over any terminal-like stream, so the same code serves
// the local terminal and SSH sessions, and answers the interpreter's
// password and confirmation prompts on that stream.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"golang.org/x/term"

	"github.com/invowk/vshell/internal/identity"
	"github.com/invowk/vshell/internal/shell"
)

type (
	// Options configures a Console.
	Options struct {
		Hostname string
		// Renderer styles the prompt. Nil disables styling.
		Renderer *lipgloss.Renderer
		Logger   *log.Logger
	}

	// Console reads lines from a terminal and feeds them to an interpreter
	// session until the session closes or input ends.
	Console struct {
		term   *term.Terminal
		interp *shell.Interpreter
		sess   *shell.Session
		host   string
		styles *styles
		log    *log.Logger
	}

	styles struct {
		user lipgloss.Style
		root lipgloss.Style
		cwd  lipgloss.Style
	}
)

// New attaches a console to rw and installs it as sess's prompter.
func New(rw io.ReadWriter, interp *shell.Interpreter, sess *shell.Session, opts Options) *Console {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	c := &Console{
		term:   term.NewTerminal(rw, ""),
		interp: interp,
		sess:   sess,
		host:   opts.Hostname,
		log:    logger,
	}
	if r := opts.Renderer; r != nil {
		c.styles = &styles{
			user: r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
			root: r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
			cwd:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		}
	}
	sess.SetPrompter(c)
	return c
}

// PromptString renders "user@host:cwd$ ", or "#" in place of "$" for root.
func PromptString(id identity.Identity, host, cwd string) string {
	return fmt.Sprintf("%s@%s:%s%s ", id.Name, host, cwd, sigil(id))
}

func sigil(id identity.Identity) string {
	if id.IsRoot() {
		return "#"
	}
	return "$"
}

func (c *Console) prompt() string {
	id, cwd := c.sess.Identity(), c.sess.Cwd()
	if c.styles == nil {
		return PromptString(id, c.host, cwd)
	}
	who := c.styles.user
	if id.IsRoot() {
		who = c.styles.root
	}
	return who.Render(id.Name+"@"+c.host) + ":" + c.styles.cwd.Render(cwd) + sigil(id) + " "
}

// SetSize forwards a terminal resize to the line editor.
func (c *Console) SetSize(width, height int) error {
	return c.term.SetSize(width, height)
}

// Run is the read-eval-print loop. It returns nil when the session exits
// or input ends, and ctx's error when ctx is done between lines.
func (c *Console) Run(ctx context.Context) error {
	c.log.Debug("console started", "session", c.sess.ID(), "user", c.sess.Identity().Name)
	defer c.log.Debug("console finished", "session", c.sess.ID())

	for !c.sess.Closed() {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.term.SetPrompt(c.prompt())
		line, err := c.term.ReadLine()
		if errors.Is(err, io.EOF) {
			_, _ = io.WriteString(c.term, "\n")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read line: %w", err)
		}
		res := c.interp.Execute(ctx, c.sess, line)
		if err := c.print(res); err != nil {
			return err
		}
	}
	return nil
}

func (c *Console) print(res *shell.Result) error {
	if _, err := io.WriteString(c.term, res.Output); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if _, err := io.WriteString(c.term, res.ErrOutput); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// Prompt implements shell.Prompter on the console's terminal. Passwords
// are read without echo. End of input answers ErrNoInput.
func (c *Console) Prompt(ctx context.Context, req shell.InputRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", shell.Cancelled(err)
	}
	var (
		answer string
		err    error
	)
	if req.Kind == shell.InputPassword {
		answer, err = c.term.ReadPassword(req.Message)
	} else {
		c.term.SetPrompt(req.Message)
		answer, err = c.term.ReadLine()
		c.term.SetPrompt("")
	}
	if errors.Is(err, io.EOF) {
		return "", shell.ErrNoInput
	}
	if err != nil {
		return "", fmt.Errorf("read answer: %w", err)
	}
	return answer, nil
}
