package ui

import "github.com/charmbracelet/lipgloss"

var (
	colorCyan  = lipgloss.Color("#8BE9FD")
	colorGreen = lipgloss.Color("#50FA7B")
	colorWhite = lipgloss.Color("#F8F8F2")
	colorGray  = lipgloss.Color("#6272A4")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorGray).
			Padding(0, 1)

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	labelStyle  = lipgloss.NewStyle().Foreground(colorGray)
	valueStyle  = lipgloss.NewStyle().Foreground(colorWhite)
	rateStyle   = lipgloss.NewStyle().Foreground(colorGreen)
	headerStyle = lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(colorGray)
)
