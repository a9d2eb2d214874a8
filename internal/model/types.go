package model

// DefectType names one of the defect categories reported by the analysis service.
// Unknown values are kept as-is; display code falls back to a default color.
type DefectType string

const (
	DefectStringing      DefectType = "STRINGING"
	DefectBlob           DefectType = "BLOB"
	DefectLayerIssue     DefectType = "LAYER_ISSUE"
	DefectUnderExtrusion DefectType = "UNDER_EXTRUSION"
	DefectOverExtrusion  DefectType = "OVER_EXTRUSION"
	DefectWarping        DefectType = "WARPING"
)

// KnownDefectTypes returns the six counter keys in display order.
func KnownDefectTypes() []DefectType {
	return []DefectType{
		DefectStringing,
		DefectBlob,
		DefectLayerIssue,
		DefectUnderExtrusion,
		DefectOverExtrusion,
		DefectWarping,
	}
}

// Defect is a single detection in the current frame. Area is in pixels,
// Position is (x, y) and Size is (w, h). Confidence is an opaque label.
type Defect struct {
	Type       DefectType `json:"type" yaml:"type"`
	Subtype    string     `json:"subtype" yaml:"subtype"`
	Area       float64    `json:"area" yaml:"area"`
	Position   [2]float64 `json:"position" yaml:"position"`
	Size       [2]float64 `json:"size" yaml:"size"`
	Confidence string     `json:"confidence" yaml:"confidence"`
	Frame      int        `json:"frame" yaml:"frame"`
}

// DefectCounter holds cumulative counts per defect type since the last reset.
type DefectCounter map[DefectType]int

// Count returns the count for t, zero when absent.
func (c DefectCounter) Count(t DefectType) int {
	if c == nil {
		return 0
	}
	return c[t]
}

// AnalysisState is the server-owned snapshot of an analysis run.
// The client never edits one in place; each fetch replaces it wholesale.
type AnalysisState struct {
	IsRunning     bool          `json:"is_running" yaml:"is_running"`
	IsPaused      bool          `json:"is_paused" yaml:"is_paused"` // meaningful only while running
	CurrentFrame  int           `json:"current_frame" yaml:"current_frame"`
	TotalFrames   int           `json:"total_frames" yaml:"total_frames"`
	Defects       []Defect      `json:"defects" yaml:"defects"` // current frame only
	DefectCounter DefectCounter `json:"defect_counter" yaml:"defect_counter"`
	ConsoleOutput []string      `json:"console_output" yaml:"console_output"`
	FPS           float64       `json:"fps" yaml:"fps"`
}

// EmptyAnalysisState returns the state shown before the first successful fetch.
func EmptyAnalysisState() AnalysisState {
	counter := make(DefectCounter, len(KnownDefectTypes()))
	for _, t := range KnownDefectTypes() {
		counter[t] = 0
	}
	return AnalysisState{
		Defects:       []Defect{},
		DefectCounter: counter,
		ConsoleOutput: []string{},
	}
}

// FrameData is the most recent rendered frame.
type FrameData struct {
	Image     string  `json:"image"` // data URI or bare base64 payload
	Frame     int     `json:"frame"`
	Timestamp float64 `json:"timestamp"`
}

// ConnectionHealth is the tri-state reachability signal for the analysis service.
type ConnectionHealth int

const (
	HealthChecking ConnectionHealth = iota
	HealthConnected
	HealthDisconnected
)

func (h ConnectionHealth) String() string {
	switch h {
	case HealthChecking:
		return "checking"
	case HealthConnected:
		return "connected"
	case HealthDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}
