// Package metrics collects per-run Prometheus metrics and optionally pushes
// them to a Pushgateway when the process exits. A one-shot CLI has no scrape
// endpoint, so every run builds its own registry.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"ocingest/internal/config"
)

// Outcomes reported through last_run_outcome.
var outcomes = []string{"succeeded", "skipped", "failed", "timed_out"}

// Metrics holds the collectors of one archive run.
type Metrics struct {
	registry *prometheus.Registry

	TracksTotal   *prometheus.CounterVec
	TracksDropped *prometheus.CounterVec
	RunDuration   prometheus.Gauge
	LastOutcome   *prometheus.GaugeVec
}

// New creates a registry with all run collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		TracksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ocingest_tracks_total",
			Help: "Tracks uploaded to Opencast by flavor",
		}, []string{"flavor"}),
		TracksDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ocingest_tracks_dropped_total",
			Help: "Candidate media files left out of the package by reason",
		}, []string{"reason"}),
		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ocingest_run_duration_seconds",
			Help: "Wall-clock duration of the last archive run",
		}),
		LastOutcome: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ocingest_last_run_outcome",
			Help: "1 for the outcome of the last archive run, 0 for the others",
		}, []string{"outcome"}),
	}
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveTrack counts one uploaded track.
func (m *Metrics) ObserveTrack(flavor string) {
	if m != nil {
		m.TracksTotal.WithLabelValues(flavor).Inc()
	}
}

// ObserveDropped counts one rejected candidate.
func (m *Metrics) ObserveDropped(reason string) {
	if m != nil {
		m.TracksDropped.WithLabelValues(reason).Inc()
	}
}

// ObserveRun records the run duration and marks its outcome.
func (m *Metrics) ObserveRun(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.RunDuration.Set(d.Seconds())
	for _, candidate := range outcomes {
		value := 0.0
		if candidate == outcome {
			value = 1
		}
		m.LastOutcome.WithLabelValues(candidate).Set(value)
	}
}

// Pusher sends a registry to a Pushgateway.
type Pusher struct {
	url      string
	job      string
	grouping map[string]string
}

// NewPusher returns nil when no Pushgateway is configured.
func NewPusher(cfg *config.Config, meetingID string) *Pusher {
	if cfg == nil || cfg.Metrics.PushgatewayURL == "" {
		return nil
	}
	return &Pusher{
		url:      cfg.Metrics.PushgatewayURL,
		job:      cfg.Metrics.Job,
		grouping: map[string]string{"meeting_id": meetingID},
	}
}

// Push replaces the metrics of this job and meeting on the gateway.
func (p *Pusher) Push(ctx context.Context, m *Metrics) error {
	if p == nil || m == nil {
		return nil
	}
	pusher := push.New(p.url, p.job).Gatherer(m.registry)
	for name, value := range p.grouping {
		if value != "" {
			pusher = pusher.Grouping(name, value)
		}
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
