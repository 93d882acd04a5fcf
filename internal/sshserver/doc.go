// SPDX-License-Identifier: MPL-2.0

// Package sshserver serves vshell sessions over SSH with wish. Clients log
// in with a vshell user's password; an interactive session gets the
// console REPL on its pty and "ssh host CMD" runs one command line.
package sshserver
