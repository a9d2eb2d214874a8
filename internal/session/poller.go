package session

import (
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/printwatch/internal/model"
)

type stateTickMsg struct{ gen int }

type frameTickMsg struct{ gen int }

// stateResultMsg carries one state fetch. loop marks fetches issued by the
// poll loop; refreshes requested by commands or probes are out of band.
type stateResultMsg struct {
	gen   int
	loop  bool
	state model.AnalysisState
	err   error
}

type frameResultMsg struct {
	gen   int
	loop  bool
	epoch int
	frame model.FrameData
	err   error
}

func (s *Session) scheduleStateTick() tea.Cmd {
	gen := s.stateGen
	return s.schedule(s.cfg.StateInterval, func(time.Time) tea.Msg {
		return stateTickMsg{gen: gen}
	})
}

func (s *Session) scheduleFrameTick() tea.Cmd {
	gen := s.frameGen
	return s.schedule(s.cfg.FrameInterval, func(time.Time) tea.Msg {
		return frameTickMsg{gen: gen}
	})
}

func (s *Session) handleStateTick(msg stateTickMsg) tea.Cmd {
	if s.closed || !s.gateOpen || msg.gen != s.stateGen {
		return nil
	}
	// Previous fetch still outstanding: wait another interval.
	if s.stateInFlight {
		return s.scheduleStateTick()
	}
	s.stateInFlight = true
	return s.fetchStateCmd(msg.gen, true)
}

func (s *Session) handleFrameTick(msg frameTickMsg) tea.Cmd {
	if s.closed || !s.gateOpen || msg.gen != s.frameGen {
		return nil
	}
	// An outstanding stop may still be racing the server; fetch nothing.
	if s.frameInFlight || s.commandInFlight[CmdStop] {
		return s.scheduleFrameTick()
	}
	s.frameInFlight = true
	return s.fetchFrameCmd(msg.gen, true)
}

func (s *Session) fetchStateCmd(gen int, loop bool) tea.Cmd {
	if s.closed {
		return nil
	}
	svc := s.svc
	obs := s.observer
	return func() tea.Msg {
		ctx, cancel := s.requestContext()
		defer cancel()
		start := time.Now()
		state, err := svc.AnalysisState(ctx)
		obs.ObserveFetch("state", time.Since(start), err)
		return stateResultMsg{gen: gen, loop: loop, state: state, err: err}
	}
}

func (s *Session) fetchFrameCmd(gen int, loop bool) tea.Cmd {
	if s.closed {
		return nil
	}
	svc := s.svc
	obs := s.observer
	epoch := s.frameEpoch
	return func() tea.Msg {
		ctx, cancel := s.requestContext()
		defer cancel()
		start := time.Now()
		frame, err := svc.CurrentFrame(ctx)
		obs.ObserveFetch("frame", time.Since(start), err)
		return frameResultMsg{gen: gen, loop: loop, epoch: epoch, frame: frame, err: err}
	}
}

// handleStateResult replaces the whole state on success; any failure marks
// the service disconnected. The loop re-arms relative to completion.
func (s *Session) handleStateResult(msg stateResultMsg) tea.Cmd {
	if s.closed {
		return nil
	}
	if msg.loop {
		s.stateInFlight = false
	}

	if msg.err != nil {
		log.Printf("session: state fetch failed: %v", msg.err)
		s.setHealth(model.HealthDisconnected)
		return s.syncGate()
	}

	s.state = normalizeState(msg.state)

	var cmds []tea.Cmd
	cmds = append(cmds, s.syncGate())
	if msg.loop && s.gateOpen && msg.gen == s.stateGen {
		cmds = append(cmds, s.scheduleStateTick())
	}
	return tea.Batch(cmds...)
}

// handleFrameResult keeps the latest completed frame. Failures are logged
// once per streak and never change health.
func (s *Session) handleFrameResult(msg frameResultMsg) tea.Cmd {
	if s.closed {
		return nil
	}
	if msg.loop {
		s.frameInFlight = false
	}

	if msg.err != nil {
		if !s.frameFailing {
			s.frameFailing = true
			log.Printf("session: frame fetch failed: %v", msg.err)
		}
	} else {
		if s.frameFailing {
			s.frameFailing = false
			log.Printf("session: frame fetch recovered")
		}
		if msg.epoch == s.frameEpoch && !s.commandInFlight[CmdStop] {
			f := msg.frame
			s.frame = &f
			s.frameKey++
		}
	}

	if msg.loop && s.gateOpen && msg.gen == s.frameGen {
		return s.scheduleFrameTick()
	}
	return nil
}

// clearFrame drops the displayed frame and invalidates frames already in flight.
func (s *Session) clearFrame() {
	s.frame = nil
	s.frameEpoch++
	s.frameKey++
}

func normalizeState(st model.AnalysisState) model.AnalysisState {
	if st.DefectCounter == nil {
		st.DefectCounter = model.DefectCounter{}
	}
	if st.Defects == nil {
		st.Defects = []model.Defect{}
	}
	return st
}
