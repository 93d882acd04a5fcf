// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/invowk/vshell/cmd/vshell"

func main() {
	cmd.Execute()
}
