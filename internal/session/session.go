// Package session keeps the dashboard's local copy of the remote analysis
// state in sync with the service. A Session owns the analysis state, the
// connection health and the current frame. It is driven from the Bubble Tea
// event loop: network calls run inside tea.Cmd goroutines and report back as
// messages handled by Update, so all mutation happens on one goroutine.
package session

import (
	"context"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/printwatch/internal/model"
)

// Config holds the session cadences and timeouts.
type Config struct {
	VideoPath           string        `mapstructure:"video-path"`
	StateInterval       time.Duration `mapstructure:"state-interval"`
	FrameInterval       time.Duration `mapstructure:"frame-interval"`
	RequestTimeout      time.Duration `mapstructure:"request-timeout"`
	StartRefreshDelay   time.Duration `mapstructure:"start-refresh-delay"`
	CommandRefreshDelay time.Duration `mapstructure:"command-refresh-delay"`
}

// DefaultConfig returns the default cadences.
func DefaultConfig() Config {
	return Config{
		StateInterval:       model.DefaultStateInterval,
		FrameInterval:       model.DefaultFrameInterval,
		RequestTimeout:      model.DefaultRequestTimeout,
		StartRefreshDelay:   model.DefaultStartRefreshDelay,
		CommandRefreshDelay: model.DefaultCommandRefreshDelay,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.StateInterval <= 0 {
		c.StateInterval = d.StateInterval
	}
	if c.FrameInterval <= 0 {
		c.FrameInterval = d.FrameInterval
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.StartRefreshDelay <= 0 {
		c.StartRefreshDelay = d.StartRefreshDelay
	}
	if c.CommandRefreshDelay <= 0 {
		c.CommandRefreshDelay = d.CommandRefreshDelay
	}
	return c
}

// Scheduler produces a command that delivers fn's message after d.
// tea.Tick satisfies it.
type Scheduler func(d time.Duration, fn func(time.Time) tea.Msg) tea.Cmd

// Observer receives fetch, command and health events. Implementations must be
// safe to call from tea.Cmd goroutines.
type Observer interface {
	ObserveFetch(kind string, d time.Duration, err error)
	ObserveCommand(name string, err error)
	SetHealth(h model.ConnectionHealth)
}

type noopObserver struct{}

func (noopObserver) ObserveFetch(string, time.Duration, error) {}
func (noopObserver) ObserveCommand(string, error)              {}
func (noopObserver) SetHealth(model.ConnectionHealth)          {}

// Option customizes a Session.
type Option func(*Session)

// WithScheduler replaces tea.Tick, mainly for tests.
func WithScheduler(sched Scheduler) Option {
	return func(s *Session) {
		if sched != nil {
			s.schedule = sched
		}
	}
}

// WithClock replaces time.Now for notification timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithObserver attaches metrics instrumentation.
func WithObserver(o Observer) Option {
	return func(s *Session) {
		if o != nil {
			s.observer = o
		}
	}
}

// Session is the single owner of the dashboard's view of the remote service.
// It is not safe for concurrent use; call it only from the event loop.
type Session struct {
	svc      model.AnalysisService
	cfg      Config
	schedule Scheduler
	now      func() time.Time
	observer Observer

	ctx    context.Context
	cancel context.CancelFunc
	closed bool

	state  model.AnalysisState
	health model.ConnectionHealth

	frame      *model.FrameData
	frameKey   uint64
	frameEpoch int // bumped when the frame is cleared; older responses are dropped

	// Poll loop bookkeeping. A tick whose generation no longer matches is
	// stale and ends its loop.
	gateOpen        bool
	stateGen        int
	frameGen        int
	stateInFlight   bool
	frameInFlight   bool
	probeInFlight   bool
	frameFailing    bool
	commandInFlight map[Command]bool

	notices   []Notification
	noticeSeq int
}

// New creates a session in the Checking state. Call Init to start it.
func New(svc model.AnalysisService, cfg Config, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		svc:             svc,
		cfg:             cfg.withDefaults(),
		schedule:        tea.Tick,
		now:             time.Now,
		observer:        noopObserver{},
		ctx:             ctx,
		cancel:          cancel,
		state:           model.EmptyAnalysisState(),
		health:          model.HealthChecking,
		commandInFlight: make(map[Command]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.observer.SetHealth(s.health)
	return s
}

// Init starts the session by probing the service.
func (s *Session) Init() tea.Cmd {
	return s.startProbe()
}

// Update applies a session message. It reports whether msg belonged to the
// session; other messages are left for the caller.
func (s *Session) Update(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case probeResultMsg:
		return s.handleProbeResult(msg), true
	case stateTickMsg:
		return s.handleStateTick(msg), true
	case frameTickMsg:
		return s.handleFrameTick(msg), true
	case stateResultMsg:
		return s.handleStateResult(msg), true
	case frameResultMsg:
		return s.handleFrameResult(msg), true
	case refreshMsg:
		return s.handleRefresh(msg), true
	case commandResultMsg:
		return s.handleCommandResult(msg), true
	}
	return nil, false
}

// Teardown stops both poll loops, aborts in-flight requests and makes the
// session ignore every message that arrives afterwards. It is idempotent.
func (s *Session) Teardown() {
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	s.gateOpen = false
	s.stateGen++
	s.frameGen++
	log.Printf("session: torn down")
}

// Closed reports whether Teardown has run.
func (s *Session) Closed() bool { return s.closed }

// Config returns the effective configuration.
func (s *Session) Config() Config { return s.cfg }

// State returns the last successfully fetched analysis state.
func (s *Session) State() model.AnalysisState { return s.state }

// Health returns the current connection health.
func (s *Session) Health() model.ConnectionHealth { return s.health }

// Frame returns the current frame, if one is displayed.
func (s *Session) Frame() (model.FrameData, bool) {
	if s.frame == nil {
		return model.FrameData{}, false
	}
	return *s.frame, true
}

// FrameKey increases every time the displayed frame changes, even when the
// payload is identical.
func (s *Session) FrameKey() uint64 { return s.frameKey }

// Polling reports whether the poll loops are running.
func (s *Session) Polling() bool { return s.gateOpen }

// syncGate starts or stops both poll loops to match
// is_running && health == Connected. A run that has ended takes its frame
// with it; a lost connection leaves the last frame up.
func (s *Session) syncGate() tea.Cmd {
	open := !s.closed && s.state.IsRunning && s.health == model.HealthConnected
	switch {
	case open && !s.gateOpen:
		s.gateOpen = true
		s.stateGen++
		s.frameGen++
		log.Printf("session: polling started")
		return tea.Batch(s.scheduleStateTick(), s.scheduleFrameTick())
	case !open && s.gateOpen:
		s.gateOpen = false
		s.stateGen++
		s.frameGen++
		if !s.state.IsRunning {
			s.clearFrame()
		}
		log.Printf("session: polling stopped")
	}
	return nil
}

// requestContext bounds one call by the request timeout and the session lifetime.
func (s *Session) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(s.ctx, s.cfg.RequestTimeout)
}
