// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invowk/vshell/internal/issue"
	"github.com/invowk/vshell/pkg/types"
)

func newExecCommand(a *App) *cobra.Command {
	var (
		line string
		user string
	)
	cmd := &cobra.Command{
		Use:   "exec -c LINE",
		Short: "Run one command line and exit with its status",
		Long: `Run one command line as a vshell user and exit with its status.

The line may use pipes, redirections, ';' and '&' just as in the
interactive shell. Commands that need an answer (sudo passwords, cp -i)
fail because no terminal is attached.`,
		Example: `  vshell exec -c 'ls -l /home'
  vshell exec -u bob -c 'cat /etc/sudoers'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.openMachine(cmd.Context())
			if err != nil {
				return err
			}
			defer closeMachine(m)

			if user == "" {
				user = m.Config.DefaultUser
			}
			sess, err := m.Login(user, nil)
			if err != nil {
				return newServiceError(issue.WrapWithContext(err, "log in", user), 0)
			}
			res := m.Interp.Execute(cmd.Context(), sess, line)
			fmt.Fprint(a.stdout, res.Output)
			fmt.Fprint(a.stderr, res.ErrOutput)
			if res.ExitCode != types.ExitSuccess {
				if id := classify(res.Err); id != 0 && id != issue.PermissionDeniedId {
					return &ExitError{Code: res.ExitCode, Err: newServiceError(res.Err, id)}
				}
				return &ExitError{Code: res.ExitCode}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&line, "command", "c", "", "command line to run")
	cmd.Flags().StringVarP(&user, "user", "u", "", "user to run as (default is default_user)")
	_ = cmd.MarkFlagRequired("command")
	return cmd
}
