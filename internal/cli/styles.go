package cli

import "github.com/charmbracelet/lipgloss"

var (
	// PrimaryColor is the accent used for headings.
	PrimaryColor = lipgloss.Color("#2196F3")
	SuccessColor = lipgloss.Color("#4CAF50")
	WarningColor = lipgloss.Color("#FF9800")
	ErrorColor   = lipgloss.Color("#F44336")
	SubtleColor  = lipgloss.Color("#757575")

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	SubtleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(PrimaryColor)

	AmountStyle = lipgloss.NewStyle().
			Bold(true)
)

// Swatch renders a block in a category's color.
func Swatch(hex string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Render("■")
}
