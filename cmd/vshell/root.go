// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the vshell command-line interface.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/invowk/vshell/internal/app"
	"github.com/invowk/vshell/internal/clock"
	"github.com/invowk/vshell/internal/config"
	"github.com/invowk/vshell/internal/issue"
	"github.com/invowk/vshell/internal/persist"
	"github.com/invowk/vshell/pkg/types"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

type (
	// App wires the CLI to its dependencies. Every command handler
	// receives the App and loads configuration and the machine through it.
	App struct {
		Config  config.Provider
		adapter persist.Adapter
		clock   clock.Clock
		dataDir string
		stdout  io.Writer
		stderr  io.Writer

		// Global flags.
		configPath string
		verbose    bool
	}

	// Dependencies are the injection points for NewApp. Nil fields take
	// production defaults.
	Dependencies struct {
		Config config.Provider
		// Adapter replaces the configured persistence backend.
		Adapter persist.Adapter
		Clock   clock.Clock
		DataDir string
		Stdout  io.Writer
		Stderr  io.Writer
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	if deps.DataDir == "" {
		deps.DataDir = config.DataDir()
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	return &App{
		Config:  deps.Config,
		adapter: deps.Adapter,
		clock:   deps.Clock,
		dataDir: deps.DataDir,
		stdout:  deps.Stdout,
		stderr:  deps.Stderr,
	}
}

// NewRootCommand builds the vshell command tree for a.
func NewRootCommand(a *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "vshell",
		Short: "A simulated multi-user Unix shell",
		Long: TitleStyle.Render("vshell") + SubtitleStyle.Render(" - a simulated multi-user Unix shell") + `

vshell runs a shell over an in-memory filesystem with users, groups,
POSIX permission bits and a sudoers policy. The filesystem is saved after
every command to the configured backend (memory, file, postgres, s3).

` + SubtitleStyle.Render("Examples:") + `
  vshell                         Start an interactive session
  vshell exec -c 'ls -l /home'   Run one command line
  vshell serve --port 2222       Serve sessions over SSH
  vshell config show             Show the effective configuration`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runREPL(cmd.Context())
		},
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging and full error chains")
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/vshell/config.yaml)")

	root.AddCommand(newExecCommand(a))
	root.AddCommand(newServeCommand(a))
	root.AddCommand(newConfigCommand(a))
	root.AddCommand(newFSCommand(a))
	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits with the command's status. It is called
// by main.main().
func Execute() {
	a := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(a),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(a.handleError),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(int(types.ExitFailure))
	}
}

// loadConfig reads the configuration named by --config, or the default
// search path.
func (a *App) loadConfig(ctx context.Context) (*config.Loaded, error) {
	loaded, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.configPath})
	if err != nil {
		return nil, newServiceError(err, issue.ConfigLoadFailedId)
	}
	return loaded, nil
}

// logger builds the process logger: the configured level, or debug with
// --verbose.
func (a *App) logger(cfg *config.Config) *log.Logger {
	level := cfg.Level()
	if a.verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(a.stderr, log.Options{
		Prefix:          "vshell",
		ReportTimestamp: true,
		Level:           level,
	})
}

// openMachine loads configuration and the filesystem. The caller closes
// the machine.
func (a *App) openMachine(ctx context.Context) (*app.Machine, error) {
	loaded, err := a.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	logger := a.logger(loaded.Config)
	if loaded.Path != "" {
		logger.Debug("configuration loaded", "path", loaded.Path)
	}
	m, err := app.New(ctx, app.Options{
		Config:  loaded.Config,
		Adapter: a.adapter,
		DataDir: a.dataDir,
		Clock:   a.clock,
		Logger:  logger,
	})
	if err != nil {
		return nil, newServiceError(
			issue.WrapWithContext(err, "load filesystem", loaded.Persistence.Backend),
			classify(err),
		)
	}
	return m, nil
}

func closeMachine(m *app.Machine) {
	if err := m.Close(); err != nil {
		m.Log.Warn("closing snapshot backend", "err", err)
	}
}
