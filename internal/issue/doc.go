// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors and Markdown issue guides for
// vshell's command-line surface.
//
// ActionableError carries an operation, a resource and remediation hints;
// Issue values are longer guides rendered with glamour for well-known
// failures such as a bad configuration or an exceeded quota.
package issue
