package analysisapi

// Endpoint Reference
//
// The analysis service exposes its state and controls as JSON over HTTP,
// rooted at a configurable base URL (for example http://host:5000/api).
//
//   Method  Path               Body                      Result
//   ──────  ─────────────────  ────────────────────────  ──────────────────────
//   GET     /analysis-state    (none)                    AnalysisState
//   GET     /current-frame     (none)                    FrameData
//   POST    /start-analysis    {video_path: string}      {status: string}
//   POST    /pause-analysis    (none)                    {status: string}   toggles pause
//   POST    /stop-analysis     (none)                    {status: string}
//   POST    /reset-counters    (none)                    {status: string}
//   POST    /single-step       (none)                    {status: string}
//   GET     /defect-details    (none)                    {defects: [...]}   result unused
//
// Any 2xx status is success. Non-2xx responses may carry {error: string},
// which is surfaced in the returned ServiceError.

const (
	PathAnalysisState = "/analysis-state"
	PathCurrentFrame  = "/current-frame"
	PathStartAnalysis = "/start-analysis"
	PathPauseAnalysis = "/pause-analysis"
	PathStopAnalysis  = "/stop-analysis"
	PathResetCounters = "/reset-counters"
	PathSingleStep    = "/single-step"
	PathDefectDetails = "/defect-details"
)

// StartRequest is the body of POST /start-analysis.
type StartRequest struct {
	VideoPath string `json:"video_path"`
}

// StatusResponse is the body returned by command endpoints.
type StatusResponse struct {
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// maxBodyBytes bounds decoded response bodies; frames are the largest payload.
const maxBodyBytes = 32 << 20
