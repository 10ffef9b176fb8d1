package tui

import "github.com/charmbracelet/lipgloss"

var (
	surface  = lipgloss.Color("#45475a")
	text     = lipgloss.Color("#cdd6f4")
	subtext  = lipgloss.Color("#a6adc8")
	lavender = lipgloss.Color("#b4befe")
	sapphire = lipgloss.Color("#74c7ec")
	green    = lipgloss.Color("#a6e3a1")
	peach    = lipgloss.Color("#fab387")
	red      = lipgloss.Color("#f38ba8")

	titleStyle    = lipgloss.NewStyle().Foreground(sapphire).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(subtext)
	hoursStyle    = lipgloss.NewStyle().Foreground(green).Bold(true)
	suggestStyle  = lipgloss.NewStyle().Foreground(peach)
	errorStyle    = lipgloss.NewStyle().Foreground(red)
	selectedStyle = lipgloss.NewStyle().Foreground(lavender).Bold(true)
	rowStyle      = lipgloss.NewStyle().Foreground(text)

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(surface).
			Padding(0, 1)
)
