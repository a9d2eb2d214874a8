package session

import (
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/printwatch/internal/model"
)

type probeResultMsg struct {
	err error
	dur time.Duration
}

// Retry re-probes the service after a disconnect. It moves health from
// Disconnected to Checking while the probe is out and is a no-op otherwise.
func (s *Session) Retry() tea.Cmd {
	if s.closed || s.health != model.HealthDisconnected || s.probeInFlight {
		return nil
	}
	s.setHealth(model.HealthChecking)
	log.Printf("session: retrying connection")
	return s.startProbe()
}

func (s *Session) startProbe() tea.Cmd {
	if s.closed || s.probeInFlight {
		return nil
	}
	s.probeInFlight = true

	svc := s.svc
	obs := s.observer
	return func() tea.Msg {
		ctx, cancel := s.requestContext()
		defer cancel()
		start := time.Now()
		err := svc.Probe(ctx)
		d := time.Since(start)
		obs.ObserveFetch("probe", d, err)
		return probeResultMsg{err: err, dur: d}
	}
}

func (s *Session) handleProbeResult(msg probeResultMsg) tea.Cmd {
	if s.closed {
		return nil
	}
	s.probeInFlight = false

	if msg.err != nil {
		log.Printf("session: probe failed: %v", msg.err)
		s.setHealth(model.HealthDisconnected)
		return s.syncGate()
	}

	log.Printf("session: probe ok (%s)", msg.dur.Round(time.Millisecond))
	s.setHealth(model.HealthConnected)
	// Pick up a run that is already in progress on the service.
	return tea.Batch(s.syncGate(), s.fetchStateCmd(0, false))
}

// setHealth records h and posts a notice on the edge into Disconnected.
func (s *Session) setHealth(h model.ConnectionHealth) {
	prev := s.health
	if prev == h {
		return
	}
	s.health = h
	s.observer.SetHealth(h)
	log.Printf("session: health %s -> %s", prev, h)
	if h == model.HealthDisconnected {
		s.notify(LevelError, "Disconnected", "Lost connection to the analysis service")
	}
}
