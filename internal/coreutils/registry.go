// SPDX-License-Identifier: MPL-2.0

package coreutils

import "github.com/invowk/vshell/internal/shell"

// RegisterAll adds every built-in command to reg. It panics if one of the
// names is already taken.
func RegisterAll(reg *shell.Registry) {
	for _, cmd := range []shell.Command{
		// files
		newLsCommand(), newCdCommand(), newPwdCommand(), newCatCommand(), newEchoCommand(),
		newMkdirCommand(), newRmdirCommand(), newTouchCommand(), newRmCommand(),
		newCpCommand(), newMvCommand(), newChmodCommand(), newChownCommand(),
		newFindCommand(), newFileCommand(), newStatCommand(), newDuCommand(), newDfCommand(),
		// text
		newGrepCommand(), newHeadCommand(), newTailCommand(), newWcCommand(),
		newSortCommand(), newUniqCommand(), newCutCommand(), newTrCommand(), newTeeCommand(),
		newSeqCommand(), newBasenameCommand(), newDirnameCommand(), newSedCommand(),
		// users and privilege
		newWhoamiCommand(), newIDCommand(), newGroupsCommand(), newSudoCommand(), newSuCommand(),
		newExitCommand(), newLogoutCommand(), newUseraddCommand(), newPasswdCommand(),
		// jobs
		newJobsCommand(), newKillCommand(), newWaitCommand(), newSleepCommand(),
		// session
		newHistoryCommand(), newEnvCommand(), newExportCommand(), newUnsetCommand(),
		newHelpCommand(), newClearCommand(),
	} {
		reg.Register(cmd)
	}
}

// NewRegistry returns a registry holding every built-in command.
func NewRegistry() *shell.Registry {
	reg := shell.NewRegistry()
	RegisterAll(reg)
	return reg
}
