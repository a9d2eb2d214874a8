package simserver

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes engine totals to Prometheus.
type Metrics struct {
	registry *prometheus.Registry
}

// NewMetrics registers engine collectors on a private registry.
func NewMetrics(e *Engine) *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "printwatch_sim_frames_processed_total",
			Help: "Total frames processed by the simulated analysis engine",
		},
		func() float64 {
			frames, _, _, _ := e.Stats()
			return float64(frames)
		},
	))

	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "printwatch_sim_defects_detected_total",
			Help: "Total defects detected by the simulated analysis engine",
		},
		func() float64 {
			_, defects, _, _ := e.Stats()
			return float64(defects)
		},
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "printwatch_sim_running",
			Help: "1 while an analysis run is active (including paused)",
		},
		func() float64 {
			_, _, running, _ := e.Stats()
			return boolGauge(running)
		},
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "printwatch_sim_paused",
			Help: "1 while the active run is paused",
		},
		func() float64 {
			_, _, _, paused := e.Stats()
			return boolGauge(paused)
		},
	))

	return m
}

// Registry returns the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
