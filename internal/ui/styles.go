package ui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	Title     lipgloss.Style
	Name      lipgloss.Style
	Meta      lipgloss.Style
	Muted     lipgloss.Style
	Error     lipgloss.Style
	Button    lipgloss.Style
	Disabled  lipgloss.Style
	SearchBar lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7aa2f7")).
			MarginBottom(1),
		Name: lipgloss.NewStyle().
			Bold(true),
		Meta: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a9b1d6")),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#565f89")),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f7768e")).
			Bold(true),
		Button: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 2),
		Disabled: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Foreground(lipgloss.Color("#565f89")).
			Padding(0, 2),
		SearchBar: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e0af68")),
	}
}
