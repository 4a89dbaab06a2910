package ui

import "github.com/charmbracelet/lipgloss"

var HelpStyle = lipgloss.NewStyle().
	Padding(0, 1)
