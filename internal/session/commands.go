package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/printwatch/internal/model"
)

// Command is a user-issued control action.
type Command int

const (
	CmdStart Command = iota
	CmdPauseResume
	CmdStop
	CmdReset
	CmdSingleStep
	CmdDefectDetails
)

// Commands lists every command in display order.
func Commands() []Command {
	return []Command{CmdStart, CmdPauseResume, CmdStop, CmdReset, CmdSingleStep, CmdDefectDetails}
}

func (c Command) String() string {
	if desc, ok := commandTable[c]; ok {
		return desc.name
	}
	return fmt.Sprintf("command(%d)", int(c))
}

// commandDesc describes one command: when it may be issued, the service call,
// and the refresh that follows it.
type commandDesc struct {
	name  string
	ready func(state model.AnalysisState, health model.ConnectionHealth) bool
	call  func(ctx context.Context, svc model.Controller, videoPath string) error
	// onIssue runs locally as soon as the command is sent.
	onIssue      func(s *Session)
	refreshDelay func(cfg Config) time.Duration
	refreshFrame bool
	// refreshOnReject keeps the follow-up refresh when the service refuses.
	refreshOnReject bool
	// successNotice is posted when the call succeeds, if set.
	successNotice string
}

func running(st model.AnalysisState, _ model.ConnectionHealth) bool { return st.IsRunning }

func commandDelay(cfg Config) time.Duration { return cfg.CommandRefreshDelay }

var commandTable = map[Command]commandDesc{
	CmdStart: {
		name: "Start analysis",
		ready: func(st model.AnalysisState, h model.ConnectionHealth) bool {
			return !st.IsRunning && h == model.HealthConnected
		},
		call: func(ctx context.Context, svc model.Controller, videoPath string) error {
			return svc.StartAnalysis(ctx, videoPath)
		},
		refreshDelay:  func(cfg Config) time.Duration { return cfg.StartRefreshDelay },
		refreshFrame:  true,
		successNotice: "Analysis started",
	},
	CmdPauseResume: {
		name:  "Pause/Resume",
		ready: running,
		call: func(ctx context.Context, svc model.Controller, _ string) error {
			return svc.PauseAnalysis(ctx)
		},
		refreshDelay:    commandDelay,
		refreshOnReject: true,
	},
	CmdStop: {
		name:  "Stop analysis",
		ready: running,
		call: func(ctx context.Context, svc model.Controller, _ string) error {
			return svc.StopAnalysis(ctx)
		},
		onIssue:         (*Session).clearFrame,
		refreshDelay:    commandDelay,
		refreshOnReject: true,
	},
	CmdReset: {
		name:  "Reset counters",
		ready: func(model.AnalysisState, model.ConnectionHealth) bool { return true },
		call: func(ctx context.Context, svc model.Controller, _ string) error {
			return svc.ResetCounters(ctx)
		},
		refreshDelay:    commandDelay,
		refreshOnReject: true,
	},
	CmdSingleStep: {
		name: "Single step",
		ready: func(st model.AnalysisState, _ model.ConnectionHealth) bool {
			return st.IsRunning && st.IsPaused
		},
		call: func(ctx context.Context, svc model.Controller, _ string) error {
			return svc.SingleStep(ctx)
		},
		refreshDelay:    commandDelay,
		refreshOnReject: true,
	},
	CmdDefectDetails: {
		name:  "Defect details",
		ready: running,
		call: func(ctx context.Context, svc model.Controller, _ string) error {
			return svc.DefectDetails(ctx)
		},
		refreshDelay: commandDelay,
	},
}

type commandResultMsg struct {
	cmd Command
	err error
}

type refreshMsg struct {
	frame bool
}

// Available reports whether cmd may be issued now: its precondition holds
// and the same command is not already outstanding.
func (s *Session) Available(cmd Command) bool {
	desc, ok := commandTable[cmd]
	if !ok || s.closed || s.commandInFlight[cmd] {
		return false
	}
	return desc.ready(s.state, s.health)
}

// Issue sends cmd to the service. A command whose precondition fails is
// rejected locally with ErrNotReady before any network call. Local state is
// never changed optimistically; the follow-up refresh brings the truth.
func (s *Session) Issue(cmd Command) (tea.Cmd, error) {
	desc, ok := commandTable[cmd]
	if !ok {
		return nil, fmt.Errorf("session: unknown command %d", int(cmd))
	}
	if s.closed {
		return nil, fmt.Errorf("%s: session closed: %w", desc.name, model.ErrNotReady)
	}
	if s.commandInFlight[cmd] {
		err := fmt.Errorf("%s: already in progress: %w", desc.name, model.ErrNotReady)
		s.notify(LevelWarning, desc.name, "Already in progress")
		s.observer.ObserveCommand(desc.name, err)
		return nil, err
	}
	if !desc.ready(s.state, s.health) {
		reason := notReadyReason(cmd, s.state, s.health)
		err := fmt.Errorf("%s: %s: %w", desc.name, reason, model.ErrNotReady)
		s.notify(LevelWarning, desc.name, reason)
		s.observer.ObserveCommand(desc.name, err)
		return nil, err
	}

	s.commandInFlight[cmd] = true
	if desc.onIssue != nil {
		desc.onIssue(s)
	}
	log.Printf("session: issuing %s", desc.name)

	svc := s.svc
	obs := s.observer
	videoPath := s.cfg.VideoPath
	return func() tea.Msg {
		ctx, cancel := s.requestContext()
		defer cancel()
		err := desc.call(ctx, svc, videoPath)
		obs.ObserveCommand(desc.name, err)
		return commandResultMsg{cmd: cmd, err: err}
	}, nil
}

func (s *Session) handleCommandResult(msg commandResultMsg) tea.Cmd {
	if s.closed {
		return nil
	}
	delete(s.commandInFlight, msg.cmd)
	desc := commandTable[msg.cmd]

	if msg.err == nil {
		log.Printf("session: %s ok", desc.name)
		if desc.successNotice != "" {
			s.notify(LevelInfo, desc.name, desc.successNotice)
		}
		return s.scheduleRefresh(desc.refreshDelay(s.cfg), desc.refreshFrame)
	}

	log.Printf("session: %s failed: %v", desc.name, msg.err)
	s.notify(LevelError, desc.name+" failed", describeError(msg.err))
	// The refresh's own failure is what marks the service disconnected.
	if desc.refreshOnReject || model.ErrorKind(msg.err) == model.ErrUnreachable {
		return s.scheduleRefresh(desc.refreshDelay(s.cfg), false)
	}
	return nil
}

func (s *Session) scheduleRefresh(d time.Duration, withFrame bool) tea.Cmd {
	return s.schedule(d, func(time.Time) tea.Msg {
		return refreshMsg{frame: withFrame}
	})
}

// handleRefresh runs one out-of-band fetch; it does not touch the poll loops.
func (s *Session) handleRefresh(msg refreshMsg) tea.Cmd {
	if s.closed {
		return nil
	}
	cmds := []tea.Cmd{s.fetchStateCmd(0, false)}
	if msg.frame {
		cmds = append(cmds, s.fetchFrameCmd(0, false))
	}
	return tea.Batch(cmds...)
}

func notReadyReason(cmd Command, st model.AnalysisState, h model.ConnectionHealth) string {
	switch {
	case cmd == CmdStart && h != model.HealthConnected:
		return "Not connected to the analysis service"
	case cmd == CmdStart && st.IsRunning:
		return "Analysis is already running"
	case cmd == CmdSingleStep && st.IsRunning && !st.IsPaused:
		return "Pause the analysis before stepping"
	default:
		return "Analysis is not running"
	}
}

func describeError(err error) string {
	var se *model.ServiceError
	if errors.As(err, &se) {
		switch {
		case se.Message != "":
			return se.Message
		case se.StatusCode != 0:
			return fmt.Sprintf("%s (HTTP %d)", se.Kind, se.StatusCode)
		default:
			return se.Kind.Error()
		}
	}
	return err.Error()
}
