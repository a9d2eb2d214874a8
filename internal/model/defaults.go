package model

import "time"

// Shared defaults used by both the dashboard and the simulator.
const (
	DefaultBaseURL             = "http://localhost:5000/api"
	DefaultStateInterval       = 1 * time.Second
	DefaultFrameInterval       = 100 * time.Millisecond
	DefaultRequestTimeout      = 5 * time.Second
	DefaultStartRefreshDelay   = 1 * time.Second
	DefaultCommandRefreshDelay = 500 * time.Millisecond
	DefaultSimAddr             = "0.0.0.0:5000"
)
