package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/printwatch/internal/model"
	"github.com/tinytelemetry/printwatch/internal/viewmodel"
)

// renderBranding renders "printwatch" with a green to light blue gradient.
func renderBranding() string {
	colors := []string{
		"#49E209", "#3FE01C", "#35DD2F", "#2BDB42", "#21D955",
		"#17D668", "#0DD47B", "#06D28E", "#00D0A1", "#00CAC7",
	}
	var b strings.Builder
	for i, char := range "printwatch" {
		b.WriteString(lipgloss.NewStyle().
			Background(ColorNavy).
			Foreground(lipgloss.Color(colors[i%len(colors)])).
			Bold(true).
			Render(string(char)))
	}
	return b.String()
}

// renderHeader renders the title row with the connection health pill.
func (m *DashboardModel) renderHeader() string {
	health := m.sess.Health()
	label := viewmodel.HealthLabel(health)
	if health == model.HealthChecking {
		label = m.spinner.View() + " " + label
	}
	pill := lipgloss.NewStyle().
		Background(lipgloss.Color(viewmodel.HealthColor(health))).
		Foreground(lipgloss.Color("#000000")).
		Bold(true).
		Padding(0, 1).
		Render(label)

	title := lipgloss.NewStyle().
		Foreground(ColorBlue).
		Bold(true).
		Render("3D Print Defect Analysis")
	if m.opts.BaseURL != "" {
		title += helpStyle.Render("  " + m.opts.BaseURL)
	}

	gap := max(m.width-lipgloss.Width(title)-lipgloss.Width(pill), 1)
	return title + strings.Repeat(" ", gap) + pill
}

// renderBanner renders the latest notification while it is fresh.
func (m *DashboardModel) renderBanner() string {
	if !m.bannerActive {
		return ""
	}
	n, ok := m.sess.LastNotification()
	if !ok || n.Seq != m.bannerSeq {
		return ""
	}
	text := n.Title
	if n.Message != "" {
		text += ": " + n.Message
	}
	return lipgloss.NewStyle().
		Width(m.width).
		MaxWidth(m.width).
		Background(noticeColor(n.Level.String())).
		Foreground(lipgloss.Color("#000000")).
		Bold(true).
		Padding(0, 1).
		Render(text)
}

// renderStatusLine renders the status/help line at the bottom of the screen.
func (m *DashboardModel) renderStatusLine() string {
	baseStyle := lipgloss.NewStyle().
		Background(ColorNavy).
		Foreground(ColorWhite)

	w := m.width
	veryNarrow := w < 70
	narrow := w < 100
	medium := w < 140

	leftText := "[Dashboard]"
	if m.HasModal() {
		leftText = "[Help]"
	}

	var statusText string
	switch {
	case m.HasModal():
		statusText = "ESC: Close"
	case veryNarrow:
		statusText = "s • space • x • ? • q"
	case narrow:
		statusText = "?: Help • s: Start • Space: Pause • x: Stop • q: Quit"
	case medium:
		statusText = "?: Help • s: Start • Space: Pause • n: Step • x: Stop • r: Reset • c: Capture • q: Quit"
	default:
		statusText = "?: Help • s: Start • Space: Pause • n: Step • x: Stop • r: Reset • d: Details • c: Capture • y: Copy console • R: Retry • q: Quit"
	}

	var rightParts []string
	if !veryNarrow {
		var dotColor lipgloss.Color
		switch m.sess.Health() {
		case model.HealthConnected:
			dotColor = lipgloss.Color("#44FF44")
		case model.HealthDisconnected:
			dotColor = lipgloss.Color("#FF4444")
		default:
			dotColor = lipgloss.Color("#FFAA00")
		}
		dot := lipgloss.NewStyle().Background(ColorNavy).Foreground(dotColor).Render("●")
		source := m.opts.BaseURL
		if source == "" {
			source = "analysis service"
		}
		rightParts = append(rightParts, dot+" "+source)
	}
	if !narrow && !m.sess.Polling() && m.sess.State().IsRunning {
		rightParts = append(rightParts, "⏸ Polling off")
	}
	if w >= 40 {
		rightParts = append(rightParts, renderBranding())
	}
	rightText := strings.Join(rightParts, "  ")

	leftWidth := lipgloss.Width(leftText) + 2
	rightWidth := lipgloss.Width(rightText) + 2
	if leftWidth+rightWidth >= w {
		rightText = renderBranding()
		rightWidth = lipgloss.Width(rightText) + 2
	}
	centerWidth := max(w-leftWidth-rightWidth, 0)
	if lipgloss.Width(statusText) > centerWidth {
		statusText = fmt.Sprintf("%.*s", max(centerWidth-1, 0), statusText)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		baseStyle.Align(lipgloss.Left).Width(leftWidth).Render(leftText),
		baseStyle.Align(lipgloss.Center).Width(centerWidth).Render(statusText),
		baseStyle.Align(lipgloss.Right).Width(rightWidth).Render(rightText),
	)
}
