// Package metrics instruments the dashboard's polling and commands for
// Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tinytelemetry/printwatch/internal/model"
)

// Metrics implements session.Observer on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	commands      *prometheus.CounterVec
	health        *prometheus.GaugeVec
}

// New creates the collectors and registers them.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "printwatch_fetches_total",
			Help: "Requests made to the analysis service by kind (probe, state, frame) and result",
		}, []string{"kind", "result"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "printwatch_fetch_duration_seconds",
			Help:    "Round-trip time of analysis service requests",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"kind"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "printwatch_commands_total",
			Help: "Control commands by name and result",
		}, []string{"command", "result"}),
		health: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "printwatch_connection_health",
			Help: "1 for the current connection health state, 0 for the others",
		}, []string{"state"}),
	}
	m.registry.MustRegister(m.fetches, m.fetchDuration, m.commands, m.health)
	m.SetHealth(model.HealthChecking)
	return m
}

// Result maps an error to its metric label.
func Result(err error) string {
	switch model.ErrorKind(err) {
	case nil:
		return "ok"
	case model.ErrRejected:
		return "rejected"
	case model.ErrMalformed:
		return "malformed"
	case model.ErrNotReady:
		return "not_ready"
	default:
		return "unreachable"
	}
}

func (m *Metrics) ObserveFetch(kind string, d time.Duration, err error) {
	m.fetches.WithLabelValues(kind, Result(err)).Inc()
	m.fetchDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Metrics) ObserveCommand(name string, err error) {
	m.commands.WithLabelValues(name, Result(err)).Inc()
}

func (m *Metrics) SetHealth(h model.ConnectionHealth) {
	for _, s := range []model.ConnectionHealth{model.HealthChecking, model.HealthConnected, model.HealthDisconnected} {
		v := 0.0
		if s == h {
			v = 1
		}
		m.health.WithLabelValues(s.String()).Set(v)
	}
}

// Registry exposes the registry for tests and custom handlers.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
