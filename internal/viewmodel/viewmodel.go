// Package viewmodel holds pure presentation transforms over the polled
// analysis state. Nothing here keeps state or performs I/O.
package viewmodel

import (
	"fmt"
	"sort"

	"github.com/tinytelemetry/printwatch/internal/model"
)

// FallbackColor is used for defect types outside the known palette.
const FallbackColor = "#FFFFFF"

var defectPalette = map[model.DefectType]string{
	model.DefectStringing:      "#FFA726",
	model.DefectBlob:           "#EF5350",
	model.DefectLayerIssue:     "#5C6BC0",
	model.DefectUnderExtrusion: "#66BB6A",
	model.DefectOverExtrusion:  "#FFEE58",
	model.DefectWarping:        "#EC407A",
}

// ColorFor returns the display color for a defect type.
func ColorFor(t model.DefectType) string {
	if c, ok := defectPalette[t]; ok {
		return c
	}
	return FallbackColor
}

// ProgressPercent returns current/total as a percentage, 0 when total is 0.
// The result is clamped to [0, 100] so a server reporting current > total
// still renders a full bar.
func ProgressPercent(s model.AnalysisState) float64 {
	if s.TotalFrames <= 0 {
		return 0
	}
	p := float64(s.CurrentFrame) / float64(s.TotalFrames) * 100
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// Status is the run status shown to the operator.
type Status int

const (
	StatusReady Status = iota
	StatusAnalyzing
	StatusPaused
)

func (s Status) String() string {
	switch s {
	case StatusAnalyzing:
		return "ANALYZING"
	case StatusPaused:
		return "PAUSED"
	default:
		return "READY"
	}
}

// StatusLabel derives the run status from the lifecycle flags.
func StatusLabel(s model.AnalysisState) Status {
	switch {
	case !s.IsRunning:
		return StatusReady
	case s.IsPaused:
		return StatusPaused
	default:
		return StatusAnalyzing
	}
}

// StatusColor returns the accent color for a status.
func StatusColor(s Status) string {
	switch s {
	case StatusAnalyzing:
		return "#E74C3C"
	case StatusPaused:
		return "#F1C40F"
	default:
		return "#2ECC71"
	}
}

// HealthLabel returns the connection pill text.
func HealthLabel(h model.ConnectionHealth) string {
	switch h {
	case model.HealthConnected:
		return "CONNECTED"
	case model.HealthDisconnected:
		return "DISCONNECTED"
	case model.HealthChecking:
		return "CHECKING..."
	default:
		return "UNKNOWN"
	}
}

// HealthColor returns the connection pill color.
func HealthColor(h model.ConnectionHealth) string {
	switch h {
	case model.HealthConnected:
		return "#2ECC71"
	case model.HealthDisconnected:
		return "#E74C3C"
	default:
		return "#F1C40F"
	}
}

// FrameLabel is the overlay text under the frame view.
func FrameLabel(s model.AnalysisState) string {
	if !s.IsRunning {
		return "Start analysis to see video stream"
	}
	return fmt.Sprintf("Frame: %d/%d", s.CurrentFrame, s.TotalFrames)
}

// CounterRow is one line of the defect counter panel.
type CounterRow struct {
	Type  model.DefectType
	Count int
	Color string
}

// CounterRows returns the six known counters in fixed order followed by any
// unknown keys the server reported, sorted by name.
func CounterRows(s model.AnalysisState) []CounterRow {
	known := model.KnownDefectTypes()
	rows := make([]CounterRow, 0, len(known))
	seen := make(map[model.DefectType]bool, len(known))
	for _, t := range known {
		seen[t] = true
		rows = append(rows, CounterRow{Type: t, Count: s.DefectCounter.Count(t), Color: ColorFor(t)})
	}

	var extra []model.DefectType
	for t := range s.DefectCounter {
		if !seen[t] {
			extra = append(extra, t)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	for _, t := range extra {
		rows = append(rows, CounterRow{Type: t, Count: s.DefectCounter[t], Color: ColorFor(t)})
	}
	return rows
}

// TotalDefects sums the cumulative counter.
func TotalDefects(s model.AnalysisState) int {
	total := 0
	for _, n := range s.DefectCounter {
		total += n
	}
	return total
}
