// SPDX-License-Identifier: MIT
package tui

import "github.com/charmbracelet/lipgloss"

// Accent is the crop and spectrum colour, #d13a16.
var Accent = lipgloss.Color("#D13A16")

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(Accent).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C6C6C"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(Accent).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")).
			Bold(true)

	waveStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#9A9A9A"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFDF5"))
	markerStyle   = lipgloss.NewStyle().Foreground(Accent).Bold(true)
	spectrumStyle = lipgloss.NewStyle().Foreground(Accent)
	playheadStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#25A065"))

	fieldStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#6C6C6C")).
			Padding(0, 1)

	focusedFieldStyle = fieldStyle.BorderForeground(Accent)
)
