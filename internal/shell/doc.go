// SPDX-License-Identifier: MPL-2.0

// Package shell is the command interpreter of the simulated system.
//
// A submitted line is parsed with mvdan.cc/sh into statements separated by
// ";" or newlines, each a pipeline of stages joined by "|" with optional
// "<" input on the first stage, ">" or ">>" output on the last, and an
// optional trailing "&". Every stage is checked against its command's
// declared Contract before any stage runs. Stages then run in order, the
// captured output of one becoming the input of the next, and the statement
// ends with a commit of any filesystem changes.
//
// Commands live in a Registry and receive an Invocation carrying the
// System, the calling Session, parsed flags and positional arguments, and
// their standard streams.
package shell
