package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

// renderHelpModalWithViewport renders the help modal using the provided viewport.
func (m *DashboardModel) renderHelpModalWithViewport(vp *viewport.Model, width, height int) string {
	modalWidth := width - 8   // 4 chars margin on each side
	modalHeight := height - 4 // 2 lines margin top and bottom

	contentWidth := modalWidth - 4
	contentHeight := modalHeight - 4

	vp.Width = contentWidth
	vp.Height = contentHeight
	vp.SetContent(lipgloss.NewStyle().Width(contentWidth).Render(m.renderHelpModalContent()))

	contentPane := lipgloss.NewStyle().
		Width(contentWidth).
		Height(contentHeight).
		Border(lipgloss.NormalBorder()).
		BorderForeground(ColorGray).
		Render(vp.View())

	header := lipgloss.NewStyle().
		Width(contentWidth).
		Foreground(ColorBlue).
		Bold(true).
		Render("Help")

	statusBar := lipgloss.NewStyle().
		Foreground(ColorGray).
		Render("up/down/Wheel: Scroll | PgUp/PgDn: Page | ?: Toggle Help | ESC: Close")

	modal := lipgloss.JoinVertical(lipgloss.Left, header, contentPane, statusBar)

	finalModal := lipgloss.NewStyle().
		Width(modalWidth).
		Height(modalHeight).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBlue).
		Render(modal)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, finalModal)
}

// renderHelpModalContent lists every binding, grouped.
func (m *DashboardModel) renderHelpModalContent() string {
	k := m.keys
	groups := []struct {
		title string
		lines [][2]string
	}{
		{"ANALYSIS", [][2]string{
			{k.Start.Help().Key, "Start analysis of the configured video"},
			{k.PauseResume.Help().Key, "Pause or resume the running analysis"},
			{k.SingleStep.Help().Key, "Advance one frame while paused"},
			{k.Stop.Help().Key, "Stop analysis and clear the frame"},
			{k.Reset.Help().Key, "Reset the defect counters"},
			{k.Details.Help().Key, "Ask the service to print defect details to its console"},
		}},
		{"CONNECTION & CAPTURE", [][2]string{
			{k.Retry.Help().Key, "Retry the connection after a disconnect"},
			{k.Capture.Help().Key, "Save the displayed frame as JPEG"},
			{k.CopyConsole.Help().Key, "Copy console output to the clipboard"},
			{k.CopyDefects.Help().Key, "Copy the current frame's defects to the clipboard"},
		}},
		{"CONSOLE", [][2]string{
			{k.Up.Help().Key + " " + k.Down.Help().Key, "Scroll one line"},
			{k.PageUp.Help().Key + "/" + k.PageDown.Help().Key, "Scroll half a page"},
			{k.Home.Help().Key, "Jump to the oldest line (stops following)"},
			{k.End.Help().Key, "Jump to the newest line and follow"},
		}},
		{"GENERAL", [][2]string{
			{k.Help.Help().Key, "Toggle this help"},
			{k.Quit.Help().Key + "/" + k.ForceQuit.Help().Key, "Quit"},
		}},
	}

	var b strings.Builder
	b.WriteString("3D Print Defect Analysis Dashboard\n\n")
	b.WriteString("Controls dimmed on the dashboard are not available in the current state.\n")
	for _, g := range groups {
		fmt.Fprintf(&b, "\n%s:\n", g.title)
		for _, l := range g.lines {
			fmt.Fprintf(&b, "  %-14s - %s\n", l[0], l[1])
		}
	}
	return b.String()
}
