package tui

import tea "github.com/charmbracelet/bubbletea"

// Page represents a top-level screen in the TUI.
type Page interface {
	ID() string
	Init() tea.Cmd
	Update(msg tea.Msg) (tea.Cmd, *PageNav)
	View(width, height int) string
}

// PageNav is returned from Update to request a page switch.
type PageNav struct {
	PageID string
	Params interface{}
}

// Closer is implemented by pages holding resources that must be released
// when the program exits.
type Closer interface {
	Close()
}

// DashboardPage adapts DashboardModel to the Page interface.
type DashboardPage struct {
	model *DashboardModel
}

// NewDashboardPage wraps m as the "dashboard" page.
func NewDashboardPage(m *DashboardModel) *DashboardPage {
	return &DashboardPage{model: m}
}

func (p *DashboardPage) ID() string { return "dashboard" }

func (p *DashboardPage) Init() tea.Cmd { return p.model.Init() }

func (p *DashboardPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	return p.model.Update(msg), nil
}

func (p *DashboardPage) View(width, height int) string {
	p.model.width = width
	p.model.height = height
	return p.model.View()
}

// Close tears down the dashboard's session.
func (p *DashboardPage) Close() { p.model.sess.Teardown() }
