// SPDX-License-Identifier: MPL-2.0

package coreutils

import (
	"context"
	"fmt"
	"strings"

	"github.com/invowk/vshell/internal/shell"
)

// historyCommand prints or clears the session history.
type historyCommand struct{ base }

// newHistoryCommand creates a new history command.
func newHistoryCommand() *historyCommand {
	return &historyCommand{base{
		name: "history",
		contract: shell.Contract{
			Usage:   "history [-c] [N]",
			Summary: "display or clear the command history",
			Flags:   []shell.FlagSpec{{Name: "clear", Short: "c", Description: "clear the history list"}},
			Args:    shell.AtMost(1),
		},
	}}
}

// Run executes the history command.
func (c *historyCommand) Run(_ context.Context, inv *shell.Invocation) error {
	if inv.Flags.Bool("clear") {
		inv.Session.ClearHistory()
		return nil
	}
	lines := inv.Session.History()
	start := 0
	if len(inv.Args) == 1 {
		var n int
		if _, err := fmt.Sscanf(inv.Args[0], "%d", &n); err != nil || n < 0 {
			return shell.Malformed(c.name, "%s: numeric argument required", inv.Args[0])
		}
		start = max(len(lines)-n, 0)
	}
	for i := start; i < len(lines); i++ {
		fmt.Fprintf(inv.Stdout, "%5d  %s\n", i+1, lines[i])
	}
	return nil
}

// envCommand prints the session environment.
type envCommand struct{ base }

// newEnvCommand creates a new env command.
func newEnvCommand() *envCommand {
	return &envCommand{base{
		name:     "env",
		contract: shell.Contract{Usage: "env", Summary: "print the environment", Args: shell.Exactly(0)},
	}}
}

// Run executes the env command.
func (c *envCommand) Run(_ context.Context, inv *shell.Invocation) error {
	return writeLines(inv.Stdout, inv.Session.Environ())
}

// exportCommand sets environment variables.
type exportCommand struct{ base }

// newExportCommand creates a new export command.
func newExportCommand() *exportCommand {
	return &exportCommand{base{
		name:     "export",
		contract: shell.Contract{Usage: "export NAME=VALUE...", Summary: "set environment variables", Args: shell.Any()},
	}}
}

// Run executes the export command. Without arguments it lists the
// environment as export lines.
func (c *exportCommand) Run(_ context.Context, inv *shell.Invocation) error {
	if len(inv.Args) == 0 {
		for _, kv := range inv.Session.Environ() {
			k, v, _ := strings.Cut(kv, "=")
			fmt.Fprintf(inv.Stdout, "export %s=%q\n", k, v)
		}
		return nil
	}
	fails := newFailures(inv)
	for _, arg := range inv.Args {
		key, value, ok := strings.Cut(arg, "=")
		if !validEnvName(key) {
			fails.add(fmt.Errorf("'%s': not a valid identifier", arg))
			continue
		}
		if !ok {
			if _, set := inv.Session.Getenv(key); set {
				continue
			}
		}
		inv.Session.Setenv(key, value)
	}
	return fails.err()
}

// unsetCommand removes environment variables.
type unsetCommand struct{ base }

// newUnsetCommand creates a new unset command.
func newUnsetCommand() *unsetCommand {
	return &unsetCommand{base{
		name:     "unset",
		contract: shell.Contract{Usage: "unset NAME...", Summary: "remove environment variables", Args: shell.AtLeast(1)},
	}}
}

// Run executes the unset command.
func (c *unsetCommand) Run(_ context.Context, inv *shell.Invocation) error {
	fails := newFailures(inv)
	for _, key := range inv.Args {
		if !validEnvName(key) {
			fails.add(fmt.Errorf("'%s': not a valid identifier", key))
			continue
		}
		inv.Session.Unsetenv(key)
	}
	return fails.err()
}

func validEnvName(name string) bool {
	if name == "" || name[0] >= '0' && name[0] <= '9' {
		return false
	}
	for _, r := range name {
		if r != '_' && (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// helpCommand lists commands or describes one.
type helpCommand struct{ base }

// newHelpCommand creates a new help command.
func newHelpCommand() *helpCommand {
	return &helpCommand{base{
		name:     "help",
		contract: shell.Contract{Usage: "help [COMMAND]", Summary: "describe the available commands", Args: shell.AtMost(1)},
	}}
}

// Run executes the help command.
func (c *helpCommand) Run(_ context.Context, inv *shell.Invocation) error {
	reg := inv.Registry()
	if len(inv.Args) == 0 {
		for _, name := range reg.Names() {
			cmd, _ := reg.Lookup(name)
			fmt.Fprintf(inv.Stdout, "  %-10s %s\n", name, cmd.Contract().Summary)
		}
		return nil
	}
	cmd, ok := reg.Lookup(inv.Args[0])
	if !ok {
		return fmt.Errorf("no help topics match '%s'", inv.Args[0])
	}
	ct := cmd.Contract()
	fmt.Fprintf(inv.Stdout, "usage: %s\n%s\n", ct.Usage, ct.Summary)
	for _, f := range ct.Flags {
		fmt.Fprintf(inv.Stdout, "  %-22s %s\n", flagLabel(f), f.Description)
	}
	return nil
}

func flagLabel(f shell.FlagSpec) string {
	var label string
	switch {
	case f.Short != "" && f.Short != f.Name:
		label = "-" + f.Short + ", --" + f.Name
	case len(f.Name) == 1:
		label = "-" + f.Name
	default:
		label = "--" + f.Name
	}
	if f.TakesValue {
		label += " VALUE"
	}
	return label
}

// clearCommand clears the terminal.
type clearCommand struct{ base }

// newClearCommand creates a new clear command.
func newClearCommand() *clearCommand {
	return &clearCommand{base{
		name:     "clear",
		contract: shell.Contract{Usage: "clear", Summary: "clear the terminal screen", Args: shell.Exactly(0)},
	}}
}

// Run executes the clear command.
func (c *clearCommand) Run(_ context.Context, inv *shell.Invocation) error {
	_, err := fmt.Fprint(inv.Stdout, "\x1b[H\x1b[2J")
	return err
}
