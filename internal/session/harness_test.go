package session

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/printwatch/internal/model"
)

// fakeClock registers timers when the session schedules them and fires them
// in due order when the test advances time.
type fakeClock struct {
	now    time.Time
	seq    int
	timers []fakeTimer
}

type fakeTimer struct {
	due time.Time
	seq int
	fn  func(time.Time) tea.Msg
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Tick(d time.Duration, fn func(time.Time) tea.Msg) tea.Cmd {
	c.seq++
	c.timers = append(c.timers, fakeTimer{due: c.now.Add(d), seq: c.seq, fn: fn})
	return nil
}

func (c *fakeClock) popDue(limit time.Time) (fakeTimer, bool) {
	if len(c.timers) == 0 {
		return fakeTimer{}, false
	}
	sort.SliceStable(c.timers, func(i, j int) bool {
		if c.timers[i].due.Equal(c.timers[j].due) {
			return c.timers[i].seq < c.timers[j].seq
		}
		return c.timers[i].due.Before(c.timers[j].due)
	})
	next := c.timers[0]
	if next.due.After(limit) {
		return fakeTimer{}, false
	}
	c.timers = c.timers[1:]
	return next, true
}

func (c *fakeClock) pending() int { return len(c.timers) }

// fakeService counts calls and answers from its fields. It returns the
// context error once the session cancels it.
type fakeService struct {
	mu sync.Mutex

	probeErr error
	state    model.AnalysisState
	stateErr error
	frame    model.FrameData
	frameErr error
	cmdErr   map[string]error

	calls     map[string]int
	videoPath string
}

func newFakeService() *fakeService {
	return &fakeService{
		state:  model.EmptyAnalysisState(),
		cmdErr: make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (f *fakeService) record(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeService) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeService) set(fn func(f *fakeService)) {
	f.mu.Lock()
	fn(f)
	f.mu.Unlock()
}

func (f *fakeService) Probe(ctx context.Context) error {
	f.record("probe")
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probeErr
}

func (f *fakeService) AnalysisState(ctx context.Context) (model.AnalysisState, error) {
	f.record("state")
	if err := ctx.Err(); err != nil {
		return model.AnalysisState{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.stateErr
}

func (f *fakeService) CurrentFrame(ctx context.Context) (model.FrameData, error) {
	f.record("frame")
	if err := ctx.Err(); err != nil {
		return model.FrameData{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frame, f.frameErr
}

func (f *fakeService) command(ctx context.Context, name string) error {
	f.record(name)
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cmdErr[name]
}

func (f *fakeService) StartAnalysis(ctx context.Context, videoPath string) error {
	f.mu.Lock()
	f.videoPath = videoPath
	f.mu.Unlock()
	return f.command(ctx, "start")
}

func (f *fakeService) PauseAnalysis(ctx context.Context) error { return f.command(ctx, "pause") }
func (f *fakeService) StopAnalysis(ctx context.Context) error  { return f.command(ctx, "stop") }
func (f *fakeService) ResetCounters(ctx context.Context) error { return f.command(ctx, "reset") }
func (f *fakeService) SingleStep(ctx context.Context) error    { return f.command(ctx, "step") }
func (f *fakeService) DefectDetails(ctx context.Context) error { return f.command(ctx, "details") }

// harness runs session commands synchronously and feeds their messages back
// into Update, the way the Bubble Tea runtime would.
type harness struct {
	t     *testing.T
	clock *fakeClock
	svc   *fakeService
	sess  *Session
}

func newHarness(t *testing.T, svc *fakeService, opts ...Option) *harness {
	t.Helper()
	clock := newFakeClock()
	cfg := DefaultConfig()
	cfg.VideoPath = "/videos/print.mov"
	opts = append([]Option{WithScheduler(clock.Tick), WithClock(clock.Now)}, opts...)
	h := &harness{
		t:     t,
		clock: clock,
		svc:   svc,
		sess:  New(svc, cfg, opts...),
	}
	t.Cleanup(h.sess.Teardown)
	return h
}

func (h *harness) run(cmd tea.Cmd) {
	h.t.Helper()
	if cmd == nil {
		return
	}
	h.dispatch(cmd())
}

func (h *harness) dispatch(msg tea.Msg) {
	h.t.Helper()
	switch msg := msg.(type) {
	case nil:
	case tea.BatchMsg:
		for _, c := range msg {
			h.run(c)
		}
	default:
		cmd, ok := h.sess.Update(msg)
		if !ok {
			h.t.Fatalf("session did not handle %T", msg)
		}
		h.run(cmd)
	}
}

// advance moves the clock forward by d, firing every timer that falls due.
func (h *harness) advance(d time.Duration) {
	h.t.Helper()
	target := h.clock.now.Add(d)
	for {
		timer, ok := h.clock.popDue(target)
		if !ok {
			break
		}
		h.clock.now = timer.due
		h.dispatch(timer.fn(timer.due))
	}
	h.clock.now = target
}

func (h *harness) issue(cmd Command) {
	h.t.Helper()
	c, err := h.sess.Issue(cmd)
	if err != nil {
		h.t.Fatalf("Issue(%s): %v", cmd, err)
	}
	h.run(c)
}

// start runs the initial probe and its follow-up state fetch.
func (h *harness) start() {
	h.t.Helper()
	h.run(h.sess.Init())
}

func runningState(current, total int) model.AnalysisState {
	st := model.EmptyAnalysisState()
	st.IsRunning = true
	st.CurrentFrame = current
	st.TotalFrames = total
	return st
}

// startRunning brings a session to Connected with a running analysis.
func startRunning(t *testing.T, opts ...Option) *harness {
	t.Helper()
	svc := newFakeService()
	svc.state = runningState(10, 100)
	svc.frame = model.FrameData{Image: "data:image/jpeg;base64,AAAA", Frame: 10}
	h := newHarness(t, svc, opts...)
	h.start()
	if h.sess.Health() != model.HealthConnected || !h.sess.Polling() {
		t.Fatalf("setup: health=%s polling=%v", h.sess.Health(), h.sess.Polling())
	}
	return h
}

func countLevel(notices []Notification, title string) int {
	n := 0
	for _, note := range notices {
		if note.Title == title {
			n++
		}
	}
	return n
}
