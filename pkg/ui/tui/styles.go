package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	trumpRed    = lipgloss.Color("#E4002B")
	muskBlue    = lipgloss.Color("#1DA1F2")
	neonGreen   = lipgloss.Color("#39FF14")
	neonYellow  = lipgloss.Color("#FFFF00")
	neonOrange  = lipgloss.Color("#FF6700")
	neonMagenta = lipgloss.Color("#FF00FF")
	neonCyan    = lipgloss.Color("#00FFFF")
	darkBg      = lipgloss.Color("#0A0E27")
	darkBg2     = lipgloss.Color("#1A1E37")
	dimWhite    = lipgloss.Color("#B0B0B0")
	errorRed    = lipgloss.Color("#FF0000")

	baseStyle = lipgloss.NewStyle().
			Background(darkBg).
			Foreground(dimWhite)

	logoStyle = lipgloss.NewStyle().
			Foreground(neonCyan).
			Bold(true).
			Padding(1, 0, 0, 0).
			Align(lipgloss.Center)

	descriptionStyle = lipgloss.NewStyle().
				Foreground(dimWhite).
				Italic(true).
				Align(lipgloss.Center)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(neonMagenta).
			Background(darkBg2).
			Padding(0, 1)

	focusedPanelStyle = panelStyle.
				BorderForeground(neonCyan)

	titleStyle = lipgloss.NewStyle().
			Background(neonMagenta).
			Foreground(darkBg).
			Bold(true).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(neonCyan).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(neonYellow)

	successStyle = lipgloss.NewStyle().
			Foreground(neonGreen).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorRed).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(neonOrange).
			Bold(true)

	exampleStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			Foreground(dimWhite)

	exampleNextStyle = lipgloss.NewStyle().
				PaddingLeft(2).
				Foreground(neonGreen).
				Bold(true)

	historyStyle = lipgloss.NewStyle().
			Foreground(dimWhite).
			Faint(true)

	logTimestampStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666"))

	logMessageStyle = lipgloss.NewStyle().
			Foreground(dimWhite)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(1, 0, 0, 2)
)

// LabelColor returns the display color for an author label
func LabelColor(label string) lipgloss.Color {
	switch label {
	case "Donald Trump":
		return trumpRed
	case "Elon Musk":
		return muskBlue
	case "Error":
		return errorRed
	default:
		return neonMagenta
	}
}

// ConfidenceStyle picks a style by the winning probability
func ConfidenceStyle(p float64) lipgloss.Style {
	switch {
	case p >= 0.9:
		return successStyle
	case p >= 0.6:
		return valueStyle
	default:
		return warningStyle
	}
}
