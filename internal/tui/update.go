package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/printwatch/internal/capture"
	"github.com/tinytelemetry/printwatch/internal/model"
	"github.com/tinytelemetry/printwatch/internal/session"
)

// captureDoneMsg reports the result of saving a frame.
type captureDoneMsg struct {
	path string
	err  error
}

// copyDoneMsg reports the result of a clipboard copy.
type copyDoneMsg struct {
	what string
	err  error
}

// bannerExpireMsg hides the banner if it still shows notification seq.
type bannerExpireMsg struct {
	seq int
}

// Update routes msg to the session first, then to dashboard handlers.
func (m *DashboardModel) Update(msg tea.Msg) tea.Cmd {
	if cmd, ok := m.sess.Update(msg); ok {
		return m.afterChange(cmd)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return nil

	case spinner.TickMsg:
		if m.sess.Health() != model.HealthChecking {
			m.spinning = false
			return nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd

	case captureDoneMsg:
		m.busy["capture"] = false
		if msg.err != nil {
			m.sess.Post(session.LevelError, "Capture failed", msg.err.Error())
		} else {
			m.sess.Post(session.LevelInfo, "Frame captured", msg.path)
		}
		return m.afterChange(nil)

	case copyDoneMsg:
		m.busy["copy"] = false
		if msg.err != nil {
			m.sess.Post(session.LevelError, "Copy failed", msg.err.Error())
		} else {
			m.sess.Post(session.LevelInfo, "Copied", msg.what+" copied to clipboard")
		}
		return m.afterChange(nil)

	case bannerExpireMsg:
		if msg.seq == m.bannerSeq {
			m.bannerActive = false
		}
		return nil

	case tea.KeyMsg:
		return m.afterChange(m.handleKey(msg))

	case tea.MouseMsg:
		return m.handleMouse(msg)
	}
	return nil
}

// afterChange brings derived view state up to date with the session and
// batches the banner timer and spinner with cmd.
func (m *DashboardModel) afterChange(cmd tea.Cmd) tea.Cmd {
	m.syncConsole()

	cmds := []tea.Cmd{cmd}
	if n, ok := m.sess.LastNotification(); ok && n.Seq > m.bannerSeq {
		m.bannerSeq = n.Seq
		m.bannerActive = true
		seq := n.Seq
		cmds = append(cmds, m.schedule()(BannerDuration, func(time.Time) tea.Msg {
			return bannerExpireMsg{seq: seq}
		}))
	}
	cmds = append(cmds, m.startSpinner())
	return tea.Batch(cmds...)
}

func (m *DashboardModel) schedule() session.Scheduler {
	if m.opts.Scheduler != nil {
		return m.opts.Scheduler
	}
	return tea.Tick
}

func (m *DashboardModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m.quit()
	}

	if top := m.TopModal(); top != nil {
		pop, cmd := top.Update(msg)
		if pop {
			m.PopModal()
		}
		return cmd
	}

	for _, cb := range m.keys.commandBindings() {
		if key.Matches(msg, cb.binding) {
			// Rejections are already posted as notifications.
			cmd, _ := m.sess.Issue(cb.cmd)
			return cmd
		}
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Help):
		m.PushModal(NewHelpModal(m))
	case key.Matches(msg, m.keys.Retry):
		return m.sess.Retry()
	case key.Matches(msg, m.keys.Capture):
		return m.captureFrame()
	case key.Matches(msg, m.keys.CopyConsole):
		return m.copyText("Console output", capture.ConsoleText(m.sess.State().ConsoleOutput))
	case key.Matches(msg, m.keys.CopyDefects):
		return m.copyText("Defect list", capture.DefectText(m.sess.State().Defects))
	case key.Matches(msg, m.keys.Up):
		m.console.ScrollUp(1)
		m.consoleFollow = m.console.AtBottom()
	case key.Matches(msg, m.keys.Down):
		m.console.ScrollDown(1)
		m.consoleFollow = m.console.AtBottom()
	case key.Matches(msg, m.keys.PageUp):
		m.console.HalfPageUp()
		m.consoleFollow = m.console.AtBottom()
	case key.Matches(msg, m.keys.PageDown):
		m.console.HalfPageDown()
		m.consoleFollow = m.console.AtBottom()
	case key.Matches(msg, m.keys.Home):
		m.console.GotoTop()
		m.consoleFollow = false
	case key.Matches(msg, m.keys.End):
		m.console.GotoBottom()
		m.consoleFollow = true
	}
	return nil
}

func (m *DashboardModel) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if top := m.TopModal(); top != nil {
		pop, cmd := top.Update(msg)
		if pop {
			m.PopModal()
		}
		return cmd
	}
	if msg.Action != tea.MouseActionPress {
		return nil
	}
	up := msg.Button == tea.MouseButtonWheelUp
	down := msg.Button == tea.MouseButtonWheelDown
	if m.opts.ReverseScrollWheel {
		up, down = down, up
	}
	switch {
	case up:
		m.console.ScrollUp(1)
	case down:
		m.console.ScrollDown(1)
	default:
		return nil
	}
	m.consoleFollow = m.console.AtBottom()
	return nil
}

// quit tears the session down before the program exits.
func (m *DashboardModel) quit() tea.Cmd {
	m.sess.Teardown()
	return tea.Quit
}

func (m *DashboardModel) captureFrame() tea.Cmd {
	if m.opts.Saver == nil {
		m.sess.Post(session.LevelWarning, "Capture unavailable", "No capture directory configured")
		return nil
	}
	frame, ok := m.sess.Frame()
	if !ok {
		m.sess.Post(session.LevelWarning, "Nothing to capture", "No frame is displayed")
		return nil
	}
	if m.busy["capture"] {
		return nil
	}
	m.busy["capture"] = true
	saver := m.opts.Saver
	return func() tea.Msg {
		path, err := saver.Save(frame)
		return captureDoneMsg{path: path, err: err}
	}
}

func (m *DashboardModel) copyText(what, text string) tea.Cmd {
	if m.busy["copy"] {
		return nil
	}
	m.busy["copy"] = true
	return func() tea.Msg {
		return copyDoneMsg{what: what, err: capture.CopyText(text)}
	}
}
