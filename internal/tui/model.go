package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/printwatch/internal/capture"
	"github.com/tinytelemetry/printwatch/internal/frameview"
	"github.com/tinytelemetry/printwatch/internal/model"
	"github.com/tinytelemetry/printwatch/internal/session"
)

// BannerDuration is how long a notification stays in the banner.
const BannerDuration = 5 * time.Second

// Options configures the dashboard.
type Options struct {
	// BaseURL is shown in the status line.
	BaseURL string
	// Saver writes frame captures. Nil disables capture.
	Saver *capture.Saver
	// ReverseScrollWheel flips mouse wheel direction in scrollable views.
	ReverseScrollWheel bool
	// Scheduler runs the banner timer. Defaults to tea.Tick.
	Scheduler session.Scheduler
}

// ModalContext carries the settings modals need from the dashboard.
type ModalContext struct {
	ReverseScrollWheel bool
}

// DashboardModel renders one monitoring session. All session mutation goes
// through sess.Update so it happens on the Bubble Tea loop.
type DashboardModel struct {
	sess *session.Session
	opts Options
	keys KeyMap

	width  int
	height int

	modalStack []Modal

	// Frame panel
	frames frameview.Cache

	// Progress and console
	progress      progress.Model
	console       viewport.Model
	consoleText   string
	consoleFollow bool

	// Connection spinner, ticking only while health is Checking
	spinner  spinner.Model
	spinning bool

	// Notification banner
	bannerSeq    int
	bannerActive bool

	// Capture or copy currently running
	busy map[string]bool
}

// NewDashboardModel creates a dashboard over sess.
func NewDashboardModel(sess *session.Session, opts Options) *DashboardModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &DashboardModel{
		sess:          sess,
		opts:          opts,
		keys:          DefaultKeyMap(),
		progress:      progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		console:       viewport.New(40, 5),
		consoleFollow: true,
		spinner:       sp,
		busy:          make(map[string]bool),
	}
}

// Session returns the underlying session.
func (m *DashboardModel) Session() *session.Session { return m.sess }

func (m *DashboardModel) Init() tea.Cmd {
	return tea.Batch(m.sess.Init(), m.startSpinner())
}

// HasModal reports whether any modal is open.
func (m *DashboardModel) HasModal() bool { return len(m.modalStack) > 0 }

// TopModal returns the topmost modal, or nil.
func (m *DashboardModel) TopModal() Modal {
	if len(m.modalStack) == 0 {
		return nil
	}
	return m.modalStack[len(m.modalStack)-1]
}

// PushModal opens a modal unless one with the same ID is already on top.
func (m *DashboardModel) PushModal(modal Modal) {
	if top := m.TopModal(); top != nil && top.ID() == modal.ID() {
		return
	}
	m.modalStack = append(m.modalStack, modal)
}

// PopModal closes the topmost modal.
func (m *DashboardModel) PopModal() {
	if len(m.modalStack) > 0 {
		m.modalStack = m.modalStack[:len(m.modalStack)-1]
	}
}

func (m *DashboardModel) modalContext() ModalContext {
	return ModalContext{ReverseScrollWheel: m.opts.ReverseScrollWheel}
}

func (m *DashboardModel) startSpinner() tea.Cmd {
	if m.spinning || m.sess.Health() != model.HealthChecking {
		return nil
	}
	m.spinning = true
	return m.spinner.Tick
}

// syncConsole refreshes the console viewport when the server's lines change.
func (m *DashboardModel) syncConsole() {
	text := strings.Join(m.sess.State().ConsoleOutput, "\n")
	if text == m.consoleText {
		return
	}
	m.consoleText = text
	m.console.SetContent(text)
	if m.consoleFollow {
		m.console.GotoBottom()
	}
}
