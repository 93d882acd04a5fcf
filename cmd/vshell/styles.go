// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/charmbracelet/lipgloss"

// Adaptive colors so output stays readable on light and dark terminals.
var (
	colorAccent = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"}
	colorDim    = lipgloss.AdaptiveColor{Light: "#57534E", Dark: "#A8A29E"}
	colorFail   = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	colorLink   = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
)

var (
	// TitleStyle renders the program name in help output.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)

	SubtitleStyle = lipgloss.NewStyle().Foreground(colorDim)

	SuccessStyle = lipgloss.NewStyle().Foreground(colorAccent)

	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(colorFail)

	// CmdStyle marks text meant to be copied: addresses, paths, commands.
	CmdStyle = lipgloss.NewStyle().Foreground(colorLink)

	VerboseStyle = lipgloss.NewStyle().Italic(true).Foreground(colorDim)
)
