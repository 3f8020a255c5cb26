package ui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("114"))

	subtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("203"))

	stageDoneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("114"))

	stageActiveStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("221"))

	stagePendingStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241"))

	chipStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("151")).
			Background(lipgloss.Color("236")).
			Padding(0, 1).
			MarginRight(1)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("239"))

	composeBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)
