package session

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tinytelemetry/printwatch/internal/model"
)

func TestStartIssuesOneStateAndOneFrameFetch(t *testing.T) {
	h := newHarness(t, newFakeService())
	h.start()
	state, frames := h.svc.count("state"), h.svc.count("frame")

	h.issue(CmdStart)
	if got := h.svc.count("start"); got != 1 {
		t.Fatalf("start calls = %d, want 1", got)
	}
	if h.svc.videoPath != "/videos/print.mov" {
		t.Fatalf("video path = %q", h.svc.videoPath)
	}
	if h.sess.State().IsRunning {
		t.Fatal("start mutated is_running optimistically")
	}

	h.svc.set(func(f *fakeService) {
		f.state = runningState(1, 100)
		f.frame = model.FrameData{Image: "AAAA", Frame: 1}
	})

	h.advance(999 * time.Millisecond)
	if h.svc.count("state") != state || h.svc.count("frame") != frames {
		t.Fatal("refresh fired before the start delay elapsed")
	}

	h.advance(time.Millisecond)
	if got := h.svc.count("state") - state; got != 1 {
		t.Fatalf("state fetches after start = %d, want 1", got)
	}
	if got := h.svc.count("frame") - frames; got != 1 {
		t.Fatalf("frame fetches after start = %d, want 1", got)
	}
	if !h.sess.State().IsRunning || !h.sess.Polling() {
		t.Fatal("running state not picked up by the refresh")
	}
	note, ok := h.sess.LastNotification()
	if !ok || note.Message != "Analysis started" || note.Level != LevelInfo {
		t.Fatalf("last notice = %+v", note)
	}
}

func TestStartRefreshDoesNotRepeatWhenIdle(t *testing.T) {
	h := newHarness(t, newFakeService())
	h.start()
	state, frames := h.svc.count("state"), h.svc.count("frame")

	h.issue(CmdStart)
	h.advance(10 * time.Second)

	if got := h.svc.count("state") - state; got != 1 {
		t.Fatalf("state fetches = %d, want exactly 1", got)
	}
	if got := h.svc.count("frame") - frames; got != 1 {
		t.Fatalf("frame fetches = %d, want exactly 1", got)
	}
}

func TestStartRequiresConnection(t *testing.T) {
	svc := newFakeService()
	svc.probeErr = errDown
	h := newHarness(t, svc)
	h.start()

	if h.sess.Available(CmdStart) {
		t.Fatal("start available while disconnected")
	}
	_, err := h.sess.Issue(CmdStart)
	if !errors.Is(err, model.ErrNotReady) {
		t.Fatalf("err = %v, want ErrNotReady", err)
	}
	if got := h.svc.count("start"); got != 0 {
		t.Fatalf("start calls = %d, want 0", got)
	}
}

func TestStartRejectedWhileChecking(t *testing.T) {
	h := newHarness(t, newFakeService())

	if _, err := h.sess.Issue(CmdStart); !errors.Is(err, model.ErrNotReady) {
		t.Fatalf("err = %v, want ErrNotReady before the probe completes", err)
	}
}

func TestSingleStepRejectedLocallyUnlessPaused(t *testing.T) {
	h := startRunning(t)

	if h.sess.Available(CmdSingleStep) {
		t.Fatal("single step available while not paused")
	}
	cmd, err := h.sess.Issue(CmdSingleStep)
	if cmd != nil || !errors.Is(err, model.ErrNotReady) {
		t.Fatalf("Issue = %v, %v; want nil, ErrNotReady", cmd, err)
	}
	if got := h.svc.count("step"); got != 0 {
		t.Fatalf("single-step calls = %d, want 0", got)
	}
	note, _ := h.sess.LastNotification()
	if note.Level != LevelWarning || note.Title != "Single step" {
		t.Fatalf("notice = %+v, want single step warning", note)
	}

	paused := runningState(10, 100)
	paused.IsPaused = true
	h.svc.set(func(f *fakeService) { f.state = paused })
	h.advance(time.Second)

	if !h.sess.Available(CmdSingleStep) {
		t.Fatal("single step unavailable while paused")
	}
	h.issue(CmdSingleStep)
	if got := h.svc.count("step"); got != 1 {
		t.Fatalf("single-step calls = %d, want 1", got)
	}
}

func TestRunningOnlyCommandsRejectedWhenIdle(t *testing.T) {
	h := newHarness(t, newFakeService())
	h.start()

	for _, cmd := range []Command{CmdPauseResume, CmdStop, CmdSingleStep, CmdDefectDetails} {
		if h.sess.Available(cmd) {
			t.Errorf("%s available while idle", cmd)
		}
		if _, err := h.sess.Issue(cmd); !errors.Is(err, model.ErrNotReady) {
			t.Errorf("%s err = %v, want ErrNotReady", cmd, err)
		}
	}
	for _, name := range []string{"pause", "stop", "step", "details"} {
		if got := h.svc.count(name); got != 0 {
			t.Errorf("%s calls = %d, want 0", name, got)
		}
	}
}

func TestResetAllowedInAnyState(t *testing.T) {
	svc := newFakeService()
	svc.probeErr = errDown
	h := newHarness(t, svc)
	h.start()

	if !h.sess.Available(CmdReset) {
		t.Fatal("reset unavailable while disconnected")
	}
	h.issue(CmdReset)
	if got := h.svc.count("reset"); got != 1 {
		t.Fatalf("reset calls = %d, want 1", got)
	}
}

func TestPauseSchedulesOneStateRefresh(t *testing.T) {
	svc := newFakeService()
	h := newHarness(t, svc)
	h.start()
	// Running locally but the poll loop is not started, so only the command
	// refresh can fetch.
	h.sess.state = runningState(5, 100)
	state := svc.count("state")

	h.issue(CmdPauseResume)
	if h.sess.State().IsPaused {
		t.Fatal("pause mutated is_paused optimistically")
	}
	h.advance(499 * time.Millisecond)
	if svc.count("state") != state {
		t.Fatal("refresh fired before the command delay")
	}
	h.advance(time.Millisecond)
	if got := svc.count("state") - state; got != 1 {
		t.Fatalf("state fetches = %d, want 1", got)
	}
	if got := svc.count("frame"); got != 0 {
		t.Fatalf("frame fetches = %d, want 0 for pause", got)
	}
}

func TestStopClearsFrameImmediately(t *testing.T) {
	h := startRunning(t)
	h.advance(100 * time.Millisecond)
	if _, ok := h.sess.Frame(); !ok {
		t.Fatal("setup: no frame displayed")
	}
	key := h.sess.FrameKey()

	cmd, err := h.sess.Issue(CmdStop)
	if err != nil {
		t.Fatalf("Issue(stop): %v", err)
	}
	if _, ok := h.sess.Frame(); ok {
		t.Fatal("frame still displayed after stop was issued")
	}
	if h.sess.FrameKey() == key {
		t.Fatal("frame key unchanged after clearing")
	}
	if got := h.svc.count("stop"); got != 0 {
		t.Fatal("stop request ran before Issue returned")
	}
	h.run(cmd)
	if _, ok := h.sess.Frame(); ok {
		t.Fatal("frame reappeared before the follow-up refresh")
	}
}

func TestStopDiscardsFrameAlreadyInFlight(t *testing.T) {
	h := startRunning(t)

	inflight, _ := h.sess.Update(frameTickMsg{gen: h.sess.frameGen})
	if inflight == nil {
		t.Fatal("frame tick did not start a fetch")
	}
	stop, err := h.sess.Issue(CmdStop)
	if err != nil {
		t.Fatalf("Issue(stop): %v", err)
	}
	h.run(inflight)
	if _, ok := h.sess.Frame(); ok {
		t.Fatal("a frame requested before stop was displayed")
	}
	h.run(stop)
}

func TestStopKeepsFrameClearedUntilRunEnds(t *testing.T) {
	h := startRunning(t)
	h.advance(100 * time.Millisecond)

	stop, err := h.sess.Issue(CmdStop)
	if err != nil {
		t.Fatalf("Issue(stop): %v", err)
	}
	frames := h.svc.count("frame")
	h.advance(100 * time.Millisecond)
	if _, ok := h.sess.Frame(); ok {
		t.Fatal("frame displayed while stop was outstanding")
	}
	if got := h.svc.count("frame") - frames; got != 0 {
		t.Fatalf("frame fetches while stop outstanding = %d, want 0", got)
	}

	// The server still answers frames until the refresh sees the run ended.
	h.svc.set(func(f *fakeService) { f.state = model.EmptyAnalysisState() })
	h.run(stop)
	h.advance(2 * time.Second)

	if h.sess.Polling() {
		t.Fatal("still polling after the run ended")
	}
	if _, ok := h.sess.Frame(); ok {
		t.Fatal("stale frame displayed after the run ended")
	}
}

func TestDisconnectKeepsLastFrame(t *testing.T) {
	h := startRunning(t)
	h.advance(100 * time.Millisecond)

	h.svc.set(func(f *fakeService) { f.stateErr = errDown })
	h.advance(time.Second)
	if h.sess.Health() != model.HealthDisconnected || h.sess.Polling() {
		t.Fatalf("health=%s polling=%v, want disconnected and stopped", h.sess.Health(), h.sess.Polling())
	}
	if _, ok := h.sess.Frame(); !ok {
		t.Fatal("last frame dropped on disconnect")
	}
}

func TestSameCommandInFlightRejected(t *testing.T) {
	h := startRunning(t)

	first, err := h.sess.Issue(CmdReset)
	if err != nil {
		t.Fatalf("Issue(reset): %v", err)
	}
	if h.sess.Available(CmdReset) {
		t.Fatal("reset available while outstanding")
	}
	if _, err := h.sess.Issue(CmdReset); !errors.Is(err, model.ErrNotReady) {
		t.Fatalf("second reset err = %v, want ErrNotReady", err)
	}
	// Other commands are unaffected.
	if !h.sess.Available(CmdPauseResume) {
		t.Fatal("pause blocked by an outstanding reset")
	}

	h.run(first)
	if !h.sess.Available(CmdReset) {
		t.Fatal("reset still blocked after completion")
	}
	if got := h.svc.count("reset"); got != 1 {
		t.Fatalf("reset calls = %d, want 1", got)
	}
}

func TestRejectedCommandNotifiesWithoutRefresh(t *testing.T) {
	h := startRunning(t)
	h.svc.set(func(f *fakeService) {
		f.cmdErr["details"] = &model.ServiceError{Kind: model.ErrRejected, Op: "GET /defect-details", StatusCode: 409, Message: "analysis is not running"}
	})
	state := h.svc.count("state")

	h.issue(CmdDefectDetails)
	note, ok := h.sess.LastNotification()
	if !ok || note.Title != "Defect details failed" || note.Level != LevelError {
		t.Fatalf("notice = %+v", note)
	}
	if !strings.Contains(note.Message, "not running") {
		t.Fatalf("notice message = %q, want the server error", note.Message)
	}
	if h.sess.Health() != model.HealthConnected {
		t.Fatal("rejected command changed health")
	}

	// The next loop fetch is a full second away; nothing else may fetch
	// inside the command delay.
	h.advance(500 * time.Millisecond)
	if got := h.svc.count("state") - state; got != 0 {
		t.Fatalf("state fetches = %d, want none after a rejection", got)
	}
}

func TestRejectedPauseStillRefreshesState(t *testing.T) {
	svc := newFakeService()
	h := newHarness(t, svc)
	h.start()
	// The local copy still says running; the server has already finished.
	h.sess.state = runningState(5, 100)
	svc.set(func(f *fakeService) {
		f.cmdErr["pause"] = &model.ServiceError{Kind: model.ErrRejected, Op: "POST /pause-analysis", StatusCode: 409, Message: "analysis is not running"}
	})
	state := svc.count("state")

	h.issue(CmdPauseResume)
	if note, _ := h.sess.LastNotification(); note.Title != "Pause/Resume failed" {
		t.Fatalf("notice = %+v", note)
	}
	h.advance(500 * time.Millisecond)
	if got := svc.count("state") - state; got != 1 {
		t.Fatalf("state fetches = %d, want 1 after a rejected pause", got)
	}
	if h.sess.State().IsRunning {
		t.Fatal("stale is_running kept after the refresh")
	}
}

type commandRecorder struct {
	noopObserver
	errs []error
}

func (r *commandRecorder) ObserveCommand(_ string, err error) { r.errs = append(r.errs, err) }

func TestObserverCountsLocalRejections(t *testing.T) {
	rec := &commandRecorder{}
	h := startRunning(t, WithObserver(rec))

	first, err := h.sess.Issue(CmdReset)
	if err != nil {
		t.Fatalf("Issue(reset): %v", err)
	}
	if _, err := h.sess.Issue(CmdReset); !errors.Is(err, model.ErrNotReady) {
		t.Fatalf("second reset err = %v, want ErrNotReady", err)
	}
	if _, err := h.sess.Issue(CmdSingleStep); !errors.Is(err, model.ErrNotReady) {
		t.Fatalf("single step err = %v, want ErrNotReady", err)
	}
	if len(rec.errs) != 2 {
		t.Fatalf("observed = %v, want both local rejections", rec.errs)
	}
	for _, err := range rec.errs {
		if !errors.Is(err, model.ErrNotReady) {
			t.Fatalf("observed %v, want ErrNotReady", err)
		}
	}

	h.run(first)
	if len(rec.errs) != 3 || rec.errs[2] != nil {
		t.Fatalf("observed = %v, want the reset result last", rec.errs)
	}
}

func TestUnreachableCommandFlipsHealthViaRefresh(t *testing.T) {
	svc := newFakeService()
	h := newHarness(t, svc)
	h.start()

	svc.set(func(f *fakeService) {
		f.cmdErr["reset"] = errDown
		f.stateErr = errDown
	})
	h.issue(CmdReset)
	if h.sess.Health() != model.HealthConnected {
		t.Fatal("command failure flipped health directly")
	}
	note, _ := h.sess.LastNotification()
	if note.Title != "Reset counters failed" {
		t.Fatalf("notice = %+v", note)
	}

	h.advance(500 * time.Millisecond)
	if got := h.sess.Health(); got != model.HealthDisconnected {
		t.Fatalf("health = %s, want disconnected after the refresh failed", got)
	}
}

func TestCommandNames(t *testing.T) {
	want := []string{"Start analysis", "Pause/Resume", "Stop analysis", "Reset counters", "Single step", "Defect details"}
	for i, cmd := range Commands() {
		if cmd.String() != want[i] {
			t.Errorf("Commands()[%d] = %q, want %q", i, cmd.String(), want[i])
		}
	}
	if got := Command(99).String(); got != "command(99)" {
		t.Errorf("unknown command = %q", got)
	}
}
