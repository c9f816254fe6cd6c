package ui

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.Color("#FF6600")

	ContentStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	HelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#828282"))

	HelpKeyStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true)
)
