package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorNavy   = lipgloss.Color("#1B2A4A")
	ColorBlue   = lipgloss.Color("#4FC3F7")
	ColorGray   = lipgloss.Color("#6C7A89")
	ColorWhite  = lipgloss.Color("#FFFFFF")
	ColorRed    = lipgloss.Color("#FF5252")
	ColorOrange = lipgloss.Color("#FFA726")
	ColorGreen  = lipgloss.Color("#66BB6A")
	ColorDim    = lipgloss.Color("#3E4A59")
)

var (
	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorGray)

	panelTitleStyle = lipgloss.NewStyle().
			Foreground(ColorBlue).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Italic(true)

	disabledStyle = lipgloss.NewStyle().
			Foreground(ColorDim)

	keyStyle = lipgloss.NewStyle().
			Foreground(ColorOrange).
			Bold(true)
)

// noticeColor maps a notification level to its banner color.
func noticeColor(level string) lipgloss.Color {
	switch level {
	case "error":
		return ColorRed
	case "warning":
		return ColorOrange
	default:
		return ColorGreen
	}
}
