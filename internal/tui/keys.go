package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/tinytelemetry/printwatch/internal/session"
)

// KeyMap defines all dashboard key bindings with built-in help text.
type KeyMap struct {
	// Global
	Quit      key.Binding
	ForceQuit key.Binding
	Help      key.Binding
	Escape    key.Binding

	// Analysis commands
	Start       key.Binding
	PauseResume key.Binding
	Stop        key.Binding
	Reset       key.Binding
	SingleStep  key.Binding
	Details     key.Binding

	// Connection and capture
	Retry       key.Binding
	Capture     key.Binding
	CopyConsole key.Binding
	CopyDefects key.Binding

	// Console scrolling
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "force quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Escape: key.NewBinding(
			key.WithKeys("escape", "esc"),
			key.WithHelp("esc", "close"),
		),

		Start: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "start analysis"),
		),
		PauseResume: key.NewBinding(
			key.WithKeys(" ", "p"),
			key.WithHelp("space/p", "pause/resume"),
		),
		Stop: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "stop analysis"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reset counters"),
		),
		SingleStep: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "single step"),
		),
		Details: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "defect details"),
		),

		Retry: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "retry connection"),
		),
		Capture: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "capture frame"),
		),
		CopyConsole: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy console"),
		),
		CopyDefects: key.NewBinding(
			key.WithKeys("Y"),
			key.WithHelp("Y", "copy defects"),
		),

		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll console"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll console"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "pagedown"),
			key.WithHelp("pgdn", "page down"),
		),
		Home: key.NewBinding(
			key.WithKeys("home"),
			key.WithHelp("home", "oldest console line"),
		),
		End: key.NewBinding(
			key.WithKeys("end"),
			key.WithHelp("end", "follow console"),
		),
	}
}

// commandBinding pairs a session command with its key.
type commandBinding struct {
	cmd     session.Command
	binding key.Binding
}

func (k KeyMap) commandBindings() []commandBinding {
	return []commandBinding{
		{session.CmdStart, k.Start},
		{session.CmdPauseResume, k.PauseResume},
		{session.CmdStop, k.Stop},
		{session.CmdReset, k.Reset},
		{session.CmdSingleStep, k.SingleStep},
		{session.CmdDefectDetails, k.Details},
	}
}
