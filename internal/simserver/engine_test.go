package simserver

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	if cfg.FrameWidth == 0 {
		cfg.FrameWidth = 64
		cfg.FrameHeight = 36
	}
	return NewEngine(cfg)
}

func TestEngine_StartRequiresVideoPath(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, Config{})

	if err := e.Start(""); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("Start(\"\") err = %v, want ErrInvalidRequest", err)
	}
	if e.Snapshot().IsRunning {
		t.Fatal("engine running after rejected start")
	}
}

func TestEngine_StartTwiceConflicts(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, Config{})

	if err := e.Start("/videos/print.mov"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := e.Start("/videos/print.mov"); !errors.Is(err, ErrConflict) {
		t.Fatalf("second Start err = %v, want ErrConflict", err)
	}
}

func TestEngine_PauseStepResume(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, Config{TotalFrames: 50})

	if err := e.SingleStep(); !errors.Is(err, ErrConflict) {
		t.Fatalf("SingleStep while idle err = %v, want ErrConflict", err)
	}
	if err := e.Start("/videos/print.mov"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := e.SingleStep(); !errors.Is(err, ErrConflict) {
		t.Fatalf("SingleStep while running err = %v, want ErrConflict", err)
	}

	paused, err := e.TogglePause()
	if err != nil || !paused {
		t.Fatalf("TogglePause = %v, %v; want paused", paused, err)
	}
	if e.Advance() {
		t.Fatal("Advance processed a frame while paused")
	}
	if err := e.SingleStep(); err != nil {
		t.Fatalf("SingleStep while paused: %v", err)
	}
	if got := e.Snapshot().CurrentFrame; got != 1 {
		t.Fatalf("current frame after step = %d, want 1", got)
	}

	paused, err = e.TogglePause()
	if err != nil || paused {
		t.Fatalf("TogglePause = %v, %v; want resumed", paused, err)
	}
	if !e.Advance() {
		t.Fatal("Advance did not process a frame while running")
	}
	if got := e.Snapshot().CurrentFrame; got != 2 {
		t.Fatalf("current frame = %d, want 2", got)
	}
}

func TestEngine_FinishesAtTotalFrames(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, Config{TotalFrames: 3})

	if err := e.Start("/videos/print.mov"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 3; i++ {
		e.Advance()
	}
	s := e.Snapshot()
	if s.IsRunning {
		t.Fatal("engine still running after last frame")
	}
	if s.CurrentFrame != 3 {
		t.Fatalf("current frame = %d, want 3", s.CurrentFrame)
	}
	last := s.ConsoleOutput[len(s.ConsoleOutput)-1]
	if !strings.Contains(last, "Analysis complete") {
		t.Fatalf("last console line = %q, want completion message", last)
	}
}

func TestEngine_CountersAccumulateAndReset(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, Config{TotalFrames: 100, DefectRate: 1})

	if err := e.Start("/videos/print.mov"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 10; i++ {
		e.Advance()
	}

	s := e.Snapshot()
	total := 0
	for _, n := range s.DefectCounter {
		total += n
	}
	if total < 10 {
		t.Fatalf("counter total = %d, want >= 10 with defect rate 1", total)
	}
	if len(s.Defects) == 0 {
		t.Fatal("expected defects on the current frame")
	}
	for _, d := range s.Defects {
		if d.Frame != s.CurrentFrame {
			t.Fatalf("defect frame = %d, want current frame %d", d.Frame, s.CurrentFrame)
		}
	}

	e.ResetCounters()
	for k, n := range e.Snapshot().DefectCounter {
		if n != 0 {
			t.Fatalf("counter %s = %d after reset, want 0", k, n)
		}
	}
}

func TestEngine_ConsoleIsCapped(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, Config{TotalFrames: 500, DefectRate: 1, ConsoleLines: 20})

	if err := e.Start("/videos/print.mov"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 50; i++ {
		e.Advance()
	}
	if got := len(e.Snapshot().ConsoleOutput); got != 20 {
		t.Fatalf("console lines = %d, want 20", got)
	}
}

func TestEngine_StopDropsFrame(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, Config{})

	if _, err := e.Frame(); !errors.Is(err, ErrNoFrame) {
		t.Fatalf("Frame before start err = %v, want ErrNoFrame", err)
	}
	if err := e.Start("/videos/print.mov"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	e.Advance()
	frame, err := e.Frame()
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if !strings.HasPrefix(frame.Image, "data:image/jpeg;base64,") {
		t.Fatalf("frame image prefix = %.30q", frame.Image)
	}
	if frame.Frame != 1 {
		t.Fatalf("frame number = %d, want 1", frame.Frame)
	}

	if err := e.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if _, err := e.Frame(); !errors.Is(err, ErrNoFrame) {
		t.Fatalf("Frame after stop err = %v, want ErrNoFrame", err)
	}
	if err := e.Stop(); !errors.Is(err, ErrConflict) {
		t.Fatalf("second Stop err = %v, want ErrConflict", err)
	}
}

func TestEngine_ClampsFPS(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, Config{FPS: 2e9})

	if e.cfg.FPS != MaxFPS {
		t.Fatalf("fps = %v, want clamped to %d", e.cfg.FPS, MaxFPS)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
