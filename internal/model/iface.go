package model

import "context"

// StateQuerier provides the read side of the analysis service.
type StateQuerier interface {
	// Probe performs a reachability check against the state endpoint.
	Probe(ctx context.Context) error
	AnalysisState(ctx context.Context) (AnalysisState, error)
	CurrentFrame(ctx context.Context) (FrameData, error)
}

// Controller provides the control commands of the analysis service.
type Controller interface {
	StartAnalysis(ctx context.Context, videoPath string) error
	PauseAnalysis(ctx context.Context) error // toggles pause/resume
	StopAnalysis(ctx context.Context) error
	ResetCounters(ctx context.Context) error
	SingleStep(ctx context.Context) error
	DefectDetails(ctx context.Context) error
}

// AnalysisService is the full contract consumed by the dashboard session.
type AnalysisService interface {
	StateQuerier
	Controller
}
