// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"golang.org/x/term"

	"github.com/invowk/vshell/internal/config"
	"github.com/invowk/vshell/internal/console"
	"github.com/invowk/vshell/internal/issue"
	"github.com/invowk/vshell/internal/vfs"
)

// ServiceError is an error that carries the issue guide the CLI renders
// under the message. Always create via newServiceError.
type ServiceError struct {
	// Err is the underlying error (must not be nil).
	Err error
	// IssueID is the optional issue catalog ID for rendering help text.
	IssueID issue.Id
}

func newServiceError(err error, issueID issue.Id) *ServiceError {
	if err == nil {
		panic("ServiceError: Err must not be nil")
	}
	return &ServiceError{Err: err, IssueID: issueID}
}

// Error implements the error interface.
func (e *ServiceError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ServiceError) Unwrap() error { return e.Err }

// classify picks the issue guide for well-known failures, or 0.
func classify(err error) issue.Id {
	switch {
	case errors.Is(err, vfs.ErrQuotaExceeded):
		return issue.QuotaExceededId
	case errors.Is(err, vfs.ErrCorruptSnapshot):
		return issue.SnapshotLoadFailedId
	case errors.Is(err, vfs.ErrPersistence):
		return issue.PersistenceFailedId
	case errors.Is(err, vfs.ErrPermissionDenied):
		return issue.PermissionDeniedId
	case errors.Is(err, config.ErrInvalidConfig):
		return issue.ConfigLoadFailedId
	case errors.Is(err, console.ErrNotTerminal):
		return issue.TerminalRequiredId
	default:
		return 0
	}
}

// handleError is the fang error handler. A bare ExitError was reported by
// the command itself and prints nothing.
func (a *App) handleError(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		renderServiceError(w, svcErr, a.verbose)
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// formatErrorForDisplay formats an error for user display. ActionableErrors
// add their suggestions, and in verbose mode the full error chain.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

// renderServiceError prints the message and then the issue guide, if any.
func renderServiceError(w io.Writer, svcErr *ServiceError, verbose bool) {
	fmt.Fprintln(w, ErrorStyle.Render("Error: ")+formatErrorForDisplay(svcErr.Err, verbose))
	if svcErr.IssueID == 0 {
		return
	}
	entry := issue.Get(svcErr.IssueID)
	if entry == nil {
		return
	}
	rendered, err := entry.Render(glamourStyle(w))
	if err != nil {
		fmt.Fprintln(w, VerboseStyle.Render("(issue guide unavailable: "+err.Error()+")"))
		return
	}
	fmt.Fprint(w, rendered)
}

// glamourStyle is "dark" on a terminal and "notty" otherwise.
func glamourStyle(w io.Writer) string {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "dark"
	}
	return "notty"
}
