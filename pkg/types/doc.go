// SPDX-License-Identifier: MPL-2.0

// Package types holds small validated value types shared between the shell
// core and its outer surfaces (CLI, SSH server).
package types
