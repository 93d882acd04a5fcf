// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers shared by the front-end tests: a fully
// wired machine on an in-memory backend and cleanup helpers that fail or
// log consistently.
package testutil
