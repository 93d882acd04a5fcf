// SPDX-License-Identifier: MPL-2.0

package coreutils

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/invowk/vshell/internal/shell"
)

// jobsCommand lists background jobs.
type jobsCommand struct{ base }

// newJobsCommand creates a new jobs command.
func newJobsCommand() *jobsCommand {
	return &jobsCommand{base{
		name: "jobs",
		contract: shell.Contract{
			Usage:   "jobs [-l]",
			Summary: "list background jobs",
			Flags:   []shell.FlagSpec{{Name: "long", Short: "l", Description: "also list job ids"}},
			Args:    shell.Exactly(0),
		},
	}}
}

// Run executes the jobs command.
func (c *jobsCommand) Run(_ context.Context, inv *shell.Invocation) error {
	for _, j := range inv.Session.Jobs().List() {
		if inv.Flags.Bool("long") {
			fmt.Fprintf(inv.Stdout, "[%d]  %s %-10s %s\n", j.Num, j.ID, j.State, j.Line)
			continue
		}
		fmt.Fprintf(inv.Stdout, "[%d]  %-10s %s\n", j.Num, j.State, j.Line)
	}
	return nil
}

// killCommand cancels background jobs.
type killCommand struct{ base }

// newKillCommand creates a new kill command.
func newKillCommand() *killCommand {
	return &killCommand{base{
		name: "kill",
		contract: shell.Contract{
			Usage:   "kill %JOB...",
			Summary: "terminate background jobs",
			Args:    shell.AtLeast(1),
		},
	}}
}

// Run executes the kill command.
func (c *killCommand) Run(_ context.Context, inv *shell.Invocation) error {
	fails := newFailures(inv)
	for _, ref := range inv.Args {
		fails.add(inv.Session.Jobs().Kill(ref))
	}
	return fails.err()
}

// waitCommand blocks until background jobs finish.
type waitCommand struct{ base }

// newWaitCommand creates a new wait command.
func newWaitCommand() *waitCommand {
	return &waitCommand{base{
		name: "wait",
		contract: shell.Contract{
			Usage:   "wait [%JOB]...",
			Summary: "wait for background jobs to finish",
			Args:    shell.Any(),
		},
	}}
}

// Run executes the wait command. With references it ends with the status
// of the last one.
func (c *waitCommand) Run(ctx context.Context, inv *shell.Invocation) error {
	jobs := inv.Session.Jobs()
	if len(inv.Args) == 0 {
		return jobs.Wait(ctx, "")
	}
	var status error
	for _, ref := range inv.Args {
		if err := jobs.Wait(ctx, ref); err != nil {
			return err
		}
		j, err := jobs.Get(ref)
		if err != nil {
			return err
		}
		status = nil
		if res := j.Result(); res != nil && res.ExitCode != 0 {
			status = &shell.ExitStatusError{Code: res.ExitCode}
		}
	}
	return status
}

// sleepCommand pauses for a duration on the system clock.
type sleepCommand struct{ base }

// newSleepCommand creates a new sleep command.
func newSleepCommand() *sleepCommand {
	return &sleepCommand{base{
		name: "sleep",
		contract: shell.Contract{
			Usage:   "sleep NUMBER[smh]...",
			Summary: "delay for a specified amount of time",
			Args:    shell.AtLeast(1),
		},
	}}
}

// Run executes the sleep command.
func (c *sleepCommand) Run(ctx context.Context, inv *shell.Invocation) error {
	var total time.Duration
	for _, arg := range inv.Args {
		d, err := parseSleep(arg)
		if err != nil {
			return shell.Malformed(c.name, "invalid time interval '%s'", arg)
		}
		total += d
	}
	select {
	case <-inv.Sys.Clock.After(total):
		return nil
	case <-ctx.Done():
		return shell.Cancelled(ctx.Err())
	}
}

// parseSleep reads seconds with an optional s, m, h or d suffix.
func parseSleep(arg string) (time.Duration, error) {
	unit := time.Second
	num := arg
	if n := len(arg); n > 0 {
		switch arg[n-1] {
		case 's':
			num = arg[:n-1]
		case 'm':
			unit, num = time.Minute, arg[:n-1]
		case 'h':
			unit, num = time.Hour, arg[:n-1]
		case 'd':
			unit, num = 24*time.Hour, arg[:n-1]
		}
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || v < 0 || strings.ContainsAny(num, "eExX") {
		return 0, fmt.Errorf("invalid interval %q", arg)
	}
	return time.Duration(v * float64(unit)), nil
}
