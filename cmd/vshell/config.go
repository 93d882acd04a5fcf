// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invowk/vshell/internal/config"
)

// newConfigCommand creates the `vshell config` command tree.
func newConfigCommand(a *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect vshell configuration",
		Long: `Inspect vshell configuration.

Configuration is read from the --config file, or from
$XDG_CONFIG_HOME/vshell/config.yaml when present, on top of the built-in
defaults. VSHELL_* environment variables override both, for example
VSHELL_PERSISTENCE_BACKEND=file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	var format string
	show := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := config.ParseFormat(format)
			if err != nil {
				return err
			}
			loaded, err := a.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			out, err := config.Render(loaded.Config, f)
			if err != nil {
				return err
			}
			_, err = a.stdout.Write(out)
			return err
		},
	}
	show.Flags().StringVarP(&format, "format", "f", string(config.FormatYAML), "output format: yaml, toml or json")
	cfgCmd.AddCommand(show)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := a.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			if loaded.Path == "" {
				fmt.Fprintln(a.stdout, VerboseStyle.Render("(no file, built-in defaults)"))
				return nil
			}
			fmt.Fprintln(a.stdout, loaded.Path)
			return nil
		},
	})
	return cfgCmd
}
