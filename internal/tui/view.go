package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/printwatch/internal/model"
	"github.com/tinytelemetry/printwatch/internal/viewmodel"
)

const (
	minWidth  = 60
	minHeight = 20
)

func (m *DashboardModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	if top := m.TopModal(); top != nil {
		return top.View(m.width, m.height)
	}
	if m.width < minWidth || m.height < minHeight {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			helpStyle.Render(fmt.Sprintf("Terminal too small (%dx%d, need %dx%d)", m.width, m.height, minWidth, minHeight)))
	}

	rows := []string{m.renderHeader()}
	if banner := m.renderBanner(); banner != "" {
		rows = append(rows, banner)
	}
	avail := m.height - len(rows) - 1

	topH := max(10, avail*11/20)
	midH := max(6, avail/4)
	consoleH := avail - topH - midH
	if consoleH < 4 {
		consoleH = 4
		topH = avail - midH - consoleH
	}

	leftW := m.width * 3 / 5
	rightW := m.width - leftW
	statusH := topH / 2
	controlsH := topH - statusH

	top := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderFramePanel(leftW, topH),
		lipgloss.JoinVertical(lipgloss.Left,
			m.renderStatusPanel(rightW, statusH),
			m.renderControlsPanel(rightW, controlsH),
		),
	)
	mid := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderCountersPanel(leftW, midH),
		m.renderDefectsPanel(rightW, midH),
	)

	rows = append(rows, top, mid, m.renderConsolePanel(m.width, consoleH), m.renderStatusLine())
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// renderPanel draws a bordered section of exactly w x h cells.
func renderPanel(title, body string, w, h int) string {
	innerW := max(w-2, 1)
	innerH := max(h-2, 1)
	content := clipLines(panelTitleStyle.Render(title)+"\n"+body, innerH)
	content = lipgloss.NewStyle().MaxWidth(innerW).Render(content)
	return sectionStyle.Width(innerW).Height(innerH).Render(content)
}

// clipLines keeps at most n lines of s.
func clipLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}

func (m *DashboardModel) renderFramePanel(w, h int) string {
	innerW := max(w-2, 1)
	imgRows := max(h-2-3, 1) // title, label and progress lines
	state := m.sess.State()

	var img string
	if frame, ok := m.sess.Frame(); ok {
		out, err := m.frames.Get(m.sess.FrameKey(), frame.Image, innerW, imgRows)
		if err != nil {
			img = lipgloss.Place(innerW, imgRows, lipgloss.Center, lipgloss.Center,
				lipgloss.NewStyle().Foreground(ColorRed).Render("Frame unavailable: "+err.Error()))
		} else {
			img = lipgloss.Place(innerW, imgRows, lipgloss.Center, lipgloss.Center, out)
		}
	} else {
		img = lipgloss.Place(innerW, imgRows, lipgloss.Center, lipgloss.Center,
			helpStyle.Render(viewmodel.FrameLabel(state)))
	}

	pct := viewmodel.ProgressPercent(state)
	m.progress.Width = max(innerW-8, 4)
	bar := m.progress.ViewAs(pct/100) + fmt.Sprintf(" %5.1f%%", pct)

	label := viewmodel.FrameLabel(state)
	if !state.IsRunning {
		label = "No analysis running"
	}
	body := lipgloss.JoinVertical(lipgloss.Left, img, label, bar)
	return renderPanel("Frame", body, w, h)
}

func (m *DashboardModel) renderStatusPanel(w, h int) string {
	state := m.sess.State()
	status := viewmodel.StatusLabel(state)
	statusText := lipgloss.NewStyle().
		Foreground(lipgloss.Color(viewmodel.StatusColor(status))).
		Bold(true).
		Render(status.String())

	polling := "off"
	if m.sess.Polling() {
		polling = "on"
	}
	video := m.sess.Config().VideoPath
	if video == "" {
		video = "(not set)"
	}

	lines := []string{
		"Status    " + statusText,
		fmt.Sprintf("Frame     %d / %d", state.CurrentFrame, state.TotalFrames),
		fmt.Sprintf("Progress  %.1f%%", viewmodel.ProgressPercent(state)),
		fmt.Sprintf("FPS       %.1f", state.FPS),
		fmt.Sprintf("Defects   %d total, %d on frame", viewmodel.TotalDefects(state), len(state.Defects)),
		"Polling   " + polling,
		"Video     " + video,
	}
	return renderPanel("Status", strings.Join(lines, "\n"), w, h)
}

func (m *DashboardModel) renderControlsPanel(w, h int) string {
	var lines []string
	for _, cb := range m.keys.commandBindings() {
		lines = append(lines, controlLine(cb.binding.Help().Key, cb.cmd.String(), m.sess.Available(cb.cmd)))
	}
	_, hasFrame := m.sess.Frame()
	lines = append(lines,
		controlLine(m.keys.Retry.Help().Key, "Retry connection", m.sess.Health() == model.HealthDisconnected),
		controlLine(m.keys.Capture.Help().Key, "Capture frame", hasFrame && m.opts.Saver != nil),
	)
	return renderPanel("Controls", strings.Join(lines, "\n"), w, h)
}

// controlLine renders a key hint, dimmed when the action is unavailable.
func controlLine(k, label string, enabled bool) string {
	line := fmt.Sprintf("%-8s %s", k, label)
	if !enabled {
		return disabledStyle.Render(line)
	}
	return keyStyle.Render(fmt.Sprintf("%-8s", k)) + " " + label
}

// counterAbbrev shortens defect type names for the chart legend.
var counterAbbrev = map[model.DefectType]string{
	model.DefectStringing:      "STR",
	model.DefectBlob:           "BLB",
	model.DefectLayerIssue:     "LAY",
	model.DefectUnderExtrusion: "UND",
	model.DefectOverExtrusion:  "OVR",
	model.DefectWarping:        "WRP",
}

func abbrev(t model.DefectType) string {
	if a, ok := counterAbbrev[t]; ok {
		return a
	}
	s := string(t)
	if len(s) > 3 {
		s = s[:3]
	}
	return s
}

func (m *DashboardModel) renderCountersPanel(w, h int) string {
	innerW := max(w-2, 1)
	innerH := max(h-2, 1)
	state := m.sess.State()
	rows := viewmodel.CounterRows(state)

	var legend []string
	for _, r := range rows {
		legend = append(legend, lipgloss.NewStyle().Foreground(lipgloss.Color(r.Color)).Render(fmt.Sprintf("%s %d", abbrev(r.Type), r.Count)))
	}
	legendText := lipgloss.NewStyle().Width(innerW).Render(strings.Join(legend, "  "))
	chartH := innerH - 1 - lipgloss.Height(legendText)

	title := fmt.Sprintf("Defect Counters (%d)", viewmodel.TotalDefects(state))
	if chartH < 2 || viewmodel.TotalDefects(state) == 0 {
		return renderPanel(title, legendText, w, h)
	}

	barW := max(1, min(6, (innerW-(len(rows)-1))/max(len(rows), 1)))
	chartW := min(innerW, len(rows)*barW+len(rows)-1)
	bc := barchart.New(chartW, chartH,
		barchart.WithBarGap(1),
		barchart.WithBarWidth(barW),
		barchart.WithNoAxis(),
	)
	for _, r := range rows {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(r.Color)).Background(lipgloss.Color(r.Color))
		bc.Push(barchart.BarData{
			Label: "",
			Values: []barchart.BarValue{
				{Name: string(r.Type), Value: float64(r.Count), Style: style},
			},
		})
	}
	bc.Draw()

	return renderPanel(title, bc.View()+"\n"+legendText, w, h)
}

func (m *DashboardModel) renderDefectsPanel(w, h int) string {
	state := m.sess.State()
	if len(state.Defects) == 0 {
		return renderPanel("Current Frame", helpStyle.Render("No defects on this frame"), w, h)
	}
	lines := make([]string, 0, len(state.Defects))
	for _, d := range state.Defects {
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(viewmodel.ColorFor(d.Type))).Render("■")
		lines = append(lines, fmt.Sprintf("%s %s/%s %s area %.0f", swatch, d.Type, d.Subtype, d.Confidence, d.Area))
	}
	return renderPanel(fmt.Sprintf("Current Frame (%d)", len(state.Defects)), strings.Join(lines, "\n"), w, h)
}

func (m *DashboardModel) renderConsolePanel(w, h int) string {
	m.console.Width = max(w-2, 1)
	m.console.Height = max(h-3, 1)
	if m.consoleFollow {
		m.console.GotoBottom()
	}
	title := "Console"
	if !m.consoleFollow {
		title += helpStyle.Render("  (scrolled, End to follow)")
	}
	body := m.console.View()
	if m.consoleText == "" {
		body = helpStyle.Render("No console output")
	}
	return renderPanel(title, body, w, h)
}
