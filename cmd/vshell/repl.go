// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/invowk/vshell/internal/console"
	"github.com/invowk/vshell/internal/identity"
	"github.com/invowk/vshell/internal/issue"
)

// runREPL opens an interactive session for the default user on the local
// terminal.
func (a *App) runREPL(ctx context.Context) error {
	stdio, err := console.OpenStdio()
	if err != nil {
		return newServiceError(err, issue.TerminalRequiredId)
	}
	defer func() { _ = stdio.Close() }()

	m, err := a.openMachine(ctx)
	if err != nil {
		return err
	}
	defer closeMachine(m)

	sess, err := m.Login(m.Config.DefaultUser, nil)
	if err != nil {
		return newServiceError(issue.WrapWithContext(err, "log in", m.Config.DefaultUser), issue.ConfigLoadFailedId)
	}
	c := console.New(stdio, m.Interp, sess, console.Options{
		Hostname: m.Config.Hostname,
		Renderer: lipgloss.NewRenderer(os.Stdout),
		Logger:   m.Log.WithPrefix("console"),
	})
	if w, h, err := stdio.Size(); err == nil {
		_ = c.SetSize(w, h)
	}

	if motd, err := m.Store.ReadFile(identity.Root(), "/etc/motd"); err == nil {
		fmt.Fprint(stdio, string(motd))
	}
	if err := c.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
