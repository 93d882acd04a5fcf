// SPDX-License-Identifier: MPL-2.0

package coreutils

import (
	"errors"
	"fmt"

	"github.com/invowk/vshell/internal/shell"
)

type (
	// base provides Name and Contract for every command.
	base struct {
		name     string
		contract shell.Contract
	}

	// failures collects per-operand errors for commands that continue past
	// a failing operand. Each error is printed when added.
	failures struct {
		inv  *shell.Invocation
		errs []error
	}
)

// Name returns the command name.
func (b *base) Name() string { return b.name }

// Contract returns the command's flag and argument contract.
func (b *base) Contract() shell.Contract { return b.contract }

func newFailures(inv *shell.Invocation) *failures { return &failures{inv: inv} }

// add prints err under the command name.
func (f *failures) add(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(f.inv.Stderr, "%s: %v\n", f.inv.Name, err)
	f.errs = append(f.errs, err)
}

// addJoined adds each member of an errors.Join result separately.
func (f *failures) addJoined(err error) {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			f.add(e)
		}
		return
	}
	f.add(err)
}

// err returns the collected errors, already reported.
func (f *failures) err() error {
	if len(f.errs) == 0 {
		return nil
	}
	return shell.Reported(errors.Join(f.errs...))
}
