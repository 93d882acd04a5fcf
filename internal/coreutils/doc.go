// SPDX-License-Identifier: MPL-2.0

// Package coreutils provides the built-in commands of the simulated shell.
//
// Every command works against the virtual filesystem through the
// invocation's System and acts as the invocation's identity, so permission
// checks apply exactly as they would to a real user. Commands never touch
// the host filesystem.
//
// # Supported Commands
//
// Files: ls, cd, pwd, cat, echo, mkdir, rmdir, touch, rm, cp, mv, chmod,
// chown, find, file, stat, du, df.
//
// Text: grep, head, tail, wc, sort, uniq, cut, tr, tee, seq, basename,
// dirname, sed.
//
// Users and privilege: whoami, id, groups, sudo, su, exit, logout, useradd,
// passwd.
//
// Jobs: jobs, kill, wait, sleep.
//
// Session: history, env, export, unset, help, clear.
//
// # Error Format
//
// Commands return errors without a prefix; the interpreter prints them as
//
//	rm: cannot remove '/etc/passwd': permission denied
//
// Commands that keep going after a failing operand (cat, rm, mkdir, ...)
// print each failure themselves and return the joined errors marked with
// shell.Reported.
package coreutils
