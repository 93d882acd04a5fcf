// SPDX-License-Identifier: MPL-2.0

package sshserver

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	"github.com/muesli/termenv"

	"github.com/invowk/vshell/internal/console"
	"github.com/invowk/vshell/pkg/types"
)

// sessionEnv exposes the client's environment to termenv so the prompt is
// styled for the remote terminal, not the server's.
type sessionEnv struct {
	environ []string
}

func (e sessionEnv) Environ() []string { return e.environ }

func (e sessionEnv) Getenv(key string) string {
	for _, kv := range e.environ {
		if k, v, ok := strings.Cut(kv, "="); ok && k == key {
			return v
		}
	}
	return ""
}

func (s *Server) passwordHandler(ctx ssh.Context, password string) bool {
	if err := s.machine.Authenticate(ctx.User(), password); err != nil {
		s.logger.Warn("authentication failed", "user", ctx.User(), "remote", ctx.RemoteAddr(), "err", err)
		return false
	}
	return true
}

// sessionMiddleware runs "ssh host CMD" as one command line and gives
// interactive sessions a console. Interactive sessions need a pty.
func (s *Server) sessionMiddleware() wish.Middleware {
	interactive := activeterm.Middleware()(s.runConsole)
	return func(ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			s.logger.Info("ssh session opened", "user", sess.User(), "remote", sess.RemoteAddr())
			defer s.logger.Info("ssh session closed", "user", sess.User(), "remote", sess.RemoteAddr())
			if len(sess.Command()) > 0 {
				s.runCommand(sess)
				return
			}
			interactive(sess)
		}
	}
}

func (s *Server) runCommand(sess ssh.Session) {
	vs, err := s.machine.Login(sess.User(), nil)
	if err != nil {
		wish.Fatalln(sess, err)
		return
	}
	res := s.machine.Interp.Execute(sess.Context(), vs, sess.RawCommand())
	_, _ = fmt.Fprint(sess, res.Output)
	_, _ = fmt.Fprint(sess.Stderr(), res.ErrOutput)
	_ = sess.Exit(int(res.ExitCode))
}

func (s *Server) runConsole(sess ssh.Session) {
	vs, err := s.machine.Login(sess.User(), nil)
	if err != nil {
		wish.Fatalln(sess, err)
		return
	}
	ptyReq, winCh, _ := sess.Pty()
	renderer := lipgloss.NewRenderer(sess,
		termenv.WithUnsafe(),
		termenv.WithTTY(true),
		termenv.WithEnvironment(sessionEnv{environ: append(sess.Environ(), "TERM="+ptyReq.Term)}),
	)
	c := console.New(sess, s.machine.Interp, vs, console.Options{
		Hostname: s.machine.Config.Hostname,
		Renderer: renderer,
		Logger:   s.logger,
	})
	_ = c.SetSize(ptyReq.Window.Width, ptyReq.Window.Height)
	go func() {
		for win := range winCh {
			_ = c.SetSize(win.Width, win.Height)
		}
	}()

	code := types.ExitSuccess
	if err := c.Run(sess.Context()); err != nil {
		s.logger.Debug("console ended", "user", sess.User(), "err", err)
		code = types.ExitFailure
	}
	_ = sess.Exit(int(code))
}
