// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invowk/vshell/internal/issue"
)

func newFSCommand(a *App) *cobra.Command {
	fsCmd := &cobra.Command{
		Use:   "fs",
		Short: "Inspect the stored filesystem",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	fsCmd.AddCommand(&cobra.Command{
		Use:   "export",
		Short: "Print the filesystem snapshot as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.openMachine(cmd.Context())
			if err != nil {
				return err
			}
			defer closeMachine(m)

			data, err := m.Store.Export()
			if err != nil {
				return newServiceError(issue.WrapWithContext(err, "export filesystem", m.Config.Persistence.Key), 0)
			}
			if _, err := a.stdout.Write(data); err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.stdout)
			return err
		},
	})

	fsCmd.AddCommand(&cobra.Command{
		Use:   "usage",
		Short: "Show used bytes against the quota",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.openMachine(cmd.Context())
			if err != nil {
				return err
			}
			defer closeMachine(m)
			fmt.Fprintln(a.stdout, usageLine(m.Store.Usage(), m.Store.Quota()))
			return nil
		},
	})
	return fsCmd
}

// usageLine renders "used N of M bytes (P%)", or "used N bytes (no quota)"
// when the quota is 0.
func usageLine(used, quota int64) string {
	if quota <= 0 {
		return fmt.Sprintf("used %d bytes (no quota)", used)
	}
	return fmt.Sprintf("used %d of %d bytes (%d%%)", used, quota, used*100/quota)
}
