package tui

import "github.com/charmbracelet/lipgloss"

var (
	appStyle      = lipgloss.NewStyle().Padding(1, 2)
	titleStyle    = lipgloss.NewStyle().Bold(true)
	helpStyle     = lipgloss.NewStyle().Faint(true)
	errorStyle    = lipgloss.NewStyle().Bold(true)
	selectedStyle = lipgloss.NewStyle().Bold(true).Reverse(true)
	incomeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	expenseStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)
