package simserver

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/tinytelemetry/printwatch/internal/model"
)

var (
	// ErrInvalidRequest maps to 400.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrConflict maps to 409: the command does not apply in the current run state.
	ErrConflict = errors.New("command not valid in current state")
	// ErrNoFrame maps to 404.
	ErrNoFrame = errors.New("no frame available")
)

// Config controls the simulated analysis run.
type Config struct {
	Addr         string        `mapstructure:"addr"`
	TotalFrames  int           `mapstructure:"total-frames"`
	FPS          float64       `mapstructure:"fps"`
	FrameWidth   int           `mapstructure:"frame-width"`
	FrameHeight  int           `mapstructure:"frame-height"`
	DefectRate   float64       `mapstructure:"defect-rate"` // probability of defects per frame
	Seed         int64         `mapstructure:"seed"`
	ConsoleLines int           `mapstructure:"console-lines"`
	JPEGQuality  int           `mapstructure:"jpeg-quality"`
	Latency      time.Duration `mapstructure:"latency"` // artificial delay added to every request
}

// MaxFPS bounds the simulated frame rate so the tick interval stays positive.
const MaxFPS = 1000

// DefaultConfig returns the simulator defaults.
func DefaultConfig() Config {
	return Config{
		Addr:         model.DefaultSimAddr,
		TotalFrames:  1000,
		FPS:          10,
		FrameWidth:   320,
		FrameHeight:  180,
		DefectRate:   0.15,
		Seed:         1,
		ConsoleLines: 200,
		JPEGQuality:  80,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TotalFrames <= 0 {
		c.TotalFrames = d.TotalFrames
	}
	if c.FPS <= 0 {
		c.FPS = d.FPS
	}
	if c.FPS > MaxFPS {
		c.FPS = MaxFPS
	}
	if c.FrameWidth <= 0 {
		c.FrameWidth = d.FrameWidth
	}
	if c.FrameHeight <= 0 {
		c.FrameHeight = d.FrameHeight
	}
	if c.DefectRate < 0 {
		c.DefectRate = 0
	}
	if c.ConsoleLines <= 0 {
		c.ConsoleLines = d.ConsoleLines
	}
	if c.JPEGQuality <= 0 || c.JPEGQuality > 100 {
		c.JPEGQuality = d.JPEGQuality
	}
	return c
}

var defectSubtypes = map[model.DefectType][]string{
	model.DefectStringing:      {"thin_strands", "web"},
	model.DefectBlob:           {"zit", "ooze"},
	model.DefectLayerIssue:     {"shift", "gap"},
	model.DefectUnderExtrusion: {"sparse_infill", "missing_line"},
	model.DefectOverExtrusion:  {"bulge", "elephant_foot"},
	model.DefectWarping:        {"corner_lift", "edge_curl"},
}

var confidenceLabels = []string{"LOW", "MEDIUM", "HIGH"}

// Engine is the mutex-guarded state of one simulated analysis service.
type Engine struct {
	mu  sync.Mutex
	cfg Config
	rng *rand.Rand

	running   bool
	paused    bool
	videoPath string
	current   int
	defects   []model.Defect
	counter   model.DefectCounter
	console   []string
	frame     *model.FrameData
	started   time.Time

	framesProcessed uint64
	defectsDetected uint64

	now func() time.Time
}

// NewEngine creates an idle engine.
func NewEngine(cfg Config) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		counter: model.EmptyAnalysisState().DefectCounter,
		now:     time.Now,
	}
	e.logf("Analysis service ready (%d frames @ %.0f fps)", cfg.TotalFrames, cfg.FPS)
	return e
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Snapshot returns a deep copy of the current analysis state.
func (e *Engine) Snapshot() model.AnalysisState {
	e.mu.Lock()
	defer e.mu.Unlock()

	counter := make(model.DefectCounter, len(e.counter))
	for k, v := range e.counter {
		counter[k] = v
	}
	fps := 0.0
	if e.running && !e.paused {
		fps = e.cfg.FPS
	}
	return model.AnalysisState{
		IsRunning:     e.running,
		IsPaused:      e.paused,
		CurrentFrame:  e.current,
		TotalFrames:   e.totalFrames(),
		Defects:       append([]model.Defect{}, e.defects...),
		DefectCounter: counter,
		ConsoleOutput: append([]string{}, e.console...),
		FPS:           fps,
	}
}

// Frame returns the most recently rendered frame.
func (e *Engine) Frame() (model.FrameData, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.frame == nil {
		return model.FrameData{}, ErrNoFrame
	}
	return *e.frame, nil
}

// Start begins a run over videoPath.
func (e *Engine) Start(videoPath string) error {
	if videoPath == "" {
		return fmt.Errorf("%w: video_path is required", ErrInvalidRequest)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return fmt.Errorf("%w: analysis already running", ErrConflict)
	}
	e.running = true
	e.paused = false
	e.videoPath = videoPath
	e.current = 0
	e.defects = nil
	e.frame = nil
	e.started = e.now()
	e.logf("Started analysis of %s", videoPath)
	e.renderLocked()
	return nil
}

// TogglePause flips between paused and running and reports the new paused flag.
func (e *Engine) TogglePause() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return false, fmt.Errorf("%w: analysis is not running", ErrConflict)
	}
	e.paused = !e.paused
	if e.paused {
		e.logf("Paused at frame %d", e.current)
	} else {
		e.logf("Resumed at frame %d", e.current)
	}
	return e.paused, nil
}

// Stop ends the current run. The last frame is dropped.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return fmt.Errorf("%w: analysis is not running", ErrConflict)
	}
	e.running = false
	e.paused = false
	e.defects = nil
	e.frame = nil
	e.logf("Stopped at frame %d", e.current)
	return nil
}

// ResetCounters zeroes the cumulative defect counter.
func (e *Engine) ResetCounters() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range model.KnownDefectTypes() {
		e.counter[t] = 0
	}
	e.logf("Defect counters reset")
}

// SingleStep advances exactly one frame while paused.
func (e *Engine) SingleStep() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running || !e.paused {
		return fmt.Errorf("%w: single step requires a paused analysis", ErrConflict)
	}
	e.stepLocked()
	return nil
}

// DefectDetails writes the current frame's defects to the console and returns them.
func (e *Engine) DefectDetails() ([]model.Defect, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return nil, fmt.Errorf("%w: analysis is not running", ErrConflict)
	}
	if len(e.defects) == 0 {
		e.logf("Frame %d: no defects", e.current)
	}
	for i, d := range e.defects {
		e.logf("Defect %d/%d: %s/%s area=%.0fpx at (%.0f,%.0f) size %.0fx%.0f confidence=%s",
			i+1, len(e.defects), d.Type, d.Subtype, d.Area, d.Position[0], d.Position[1], d.Size[0], d.Size[1], d.Confidence)
	}
	return append([]model.Defect{}, e.defects...), nil
}

// Advance processes one frame when running and not paused.
// It reports whether a frame was processed.
func (e *Engine) Advance() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running || e.paused {
		return false
	}
	e.stepLocked()
	return true
}

// Run advances the engine at the configured FPS until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	interval := time.Duration(float64(time.Second) / e.cfg.FPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.Advance()
		}
	}
}

// Stats returns processing totals for metrics.
func (e *Engine) Stats() (framesProcessed, defectsDetected uint64, running, paused bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.framesProcessed, e.defectsDetected, e.running, e.paused
}

func (e *Engine) totalFrames() int {
	return e.cfg.TotalFrames
}

func (e *Engine) stepLocked() {
	if e.current >= e.totalFrames() {
		e.finishLocked()
		return
	}
	e.current++
	e.framesProcessed++
	e.defects = e.detectLocked()
	for _, d := range e.defects {
		e.counter[d.Type]++
		e.defectsDetected++
		e.logf("Frame %d: %s (%s) confidence=%s", e.current, d.Type, d.Subtype, d.Confidence)
	}
	e.renderLocked()

	if e.current >= e.totalFrames() {
		e.finishLocked()
	}
}

func (e *Engine) finishLocked() {
	e.running = false
	e.paused = false
	elapsed := e.now().Sub(e.started).Round(time.Second)
	e.logf("Analysis complete: %d frames in %s", e.current, elapsed)
}

func (e *Engine) detectLocked() []model.Defect {
	if e.rng.Float64() >= e.cfg.DefectRate {
		return []model.Defect{}
	}

	types := model.KnownDefectTypes()
	n := 1 + e.rng.Intn(3)
	defects := make([]model.Defect, 0, n)
	for i := 0; i < n; i++ {
		t := types[e.rng.Intn(len(types))]
		subtypes := defectSubtypes[t]
		w := 8 + e.rng.Float64()*float64(e.cfg.FrameWidth)/6
		h := 8 + e.rng.Float64()*float64(e.cfg.FrameHeight)/6
		defects = append(defects, model.Defect{
			Type:       t,
			Subtype:    subtypes[e.rng.Intn(len(subtypes))],
			Area:       w * h,
			Position:   [2]float64{e.rng.Float64() * (float64(e.cfg.FrameWidth) - w), e.rng.Float64() * (float64(e.cfg.FrameHeight) - h)},
			Size:       [2]float64{w, h},
			Confidence: confidenceLabels[e.rng.Intn(len(confidenceLabels))],
			Frame:      e.current,
		})
	}
	return defects
}

func (e *Engine) renderLocked() {
	img, err := renderFrame(e.cfg, e.current, e.defects)
	if err != nil {
		e.logf("Frame %d: render failed: %v", e.current, err)
		return
	}
	e.frame = &model.FrameData{
		Image:     img,
		Frame:     e.current,
		Timestamp: float64(e.now().UnixNano()) / 1e9,
	}
}

// logf appends a console line, dropping the oldest past ConsoleLines.
func (e *Engine) logf(format string, args ...interface{}) {
	line := fmt.Sprintf("[%s] ", e.now().Format("15:04:05")) + fmt.Sprintf(format, args...)
	e.console = append(e.console, line)
	if over := len(e.console) - e.cfg.ConsoleLines; over > 0 {
		e.console = append([]string(nil), e.console[over:]...)
	}
}
