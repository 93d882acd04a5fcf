// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/invowk/vshell/internal/issue"
	"github.com/invowk/vshell/internal/sshserver"
	"github.com/invowk/vshell/pkg/types"
)

// hostKeyFile is the host key name under the data directory.
const hostKeyFile = "ssh_host_ed25519"

func newServeCommand(a *App) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve vshell sessions over SSH",
		Long: `Serve vshell sessions over SSH until interrupted.

Clients log in with a vshell user's password. All sessions share one
filesystem. A host key is generated under the data directory on first use
unless ssh.host_key_path names one.`,
		Example: `  vshell serve
  vshell serve --host 0.0.0.0 --port 2022
  ssh -p 2222 alice@127.0.0.1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			m, err := a.openMachine(ctx)
			if err != nil {
				return err
			}
			defer closeMachine(m)

			cfg := sshserver.Config{
				Host:        m.Config.SSH.Host,
				Port:        m.Config.SSH.Port,
				HostKeyPath: m.Config.SSH.HostKeyPath,
			}
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = types.ListenPort(port)
			}
			if cfg.HostKeyPath == "" {
				cfg.HostKeyPath = filepath.Join(a.dataDir, hostKeyFile)
			}

			srv := sshserver.New(cfg, m, m.Log.WithPrefix("ssh"))
			if err := srv.Start(ctx); err != nil {
				return newServiceError(issue.WrapWithContext(err, "start SSH server", cfg.Port.Addr(cfg.Host)), issue.SSHServerFailedId)
			}
			fmt.Fprintln(a.stdout, SuccessStyle.Render("Listening on ")+CmdStyle.Render(srv.Address()))

			var serveErr error
			select {
			case <-ctx.Done():
			case err, ok := <-srv.Err():
				if ok {
					serveErr = err
				}
			}
			if err := srv.Stop(); err != nil {
				m.Log.Warn("SSH shutdown", "err", err)
			}
			if serveErr != nil {
				return newServiceError(issue.WrapWithContext(serveErr, "serve SSH", srv.Address()), issue.SSHServerFailedId)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "address to bind (default is ssh.host)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on, 0 picks a free one (default is ssh.port)")
	return cmd
}
