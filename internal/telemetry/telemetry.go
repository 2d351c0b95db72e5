// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package telemetry wires the ambient logging and metrics stack used by
// the Engine and the latency pipe element. It is intentionally small:
// Journal.Append and JournalReader.TryAdvance never touch it; the only
// per-item call into it is ObserveLatency, reached through a Latency
// element or EndToEndLatency given an engine's LatencySink.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Telemetry bundles a logger and a metrics registry, constructed once per
// Engine and threaded through its stages.
type Telemetry struct {
	Logger   *zap.Logger
	registry *prometheus.Registry

	StageWorked *prometheus.CounterVec
	StageIdle   *prometheus.CounterVec
	StageState  *prometheus.GaugeVec
	Latency     *prometheus.HistogramVec
}

// New constructs a Telemetry around logger (a no-op logger if nil) and
// registers its metrics against registry, mirroring the construction style of
// internal/infrastructure/{logging,monitoring} in the source examples
// this project drew its ambient stack from.
func New(registry *prometheus.Registry, logger *zap.Logger) *Telemetry {
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(registry)
	return &Telemetry{
		Logger:   logger,
		registry: registry,
		StageWorked: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "roda_stage_worked_total",
			Help: "Number of iterations in which a stage advanced its input reader and produced work.",
		}, []string{"stage"}),
		StageIdle: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "roda_stage_idle_total",
			Help: "Number of iterations in which a stage found no input available.",
		}, []string{"stage"}),
		StageState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "roda_stage_state",
			Help: "Current lifecycle state of a stage (0=Running, 1=Draining, 2=Stopped).",
		}, []string{"stage"}),
		Latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roda_pipe_latency_seconds",
			Help:    "Per-item latency sampled by the latency pipe element, by label.",
			Buckets: prometheus.ExponentialBuckets(1e-7, 2, 20), // 100ns .. ~52ms
		}, []string{"label"}),
	}
}

// Registry returns the Prometheus registry this Telemetry's metrics are
// registered against.
func (t *Telemetry) Registry() *prometheus.Registry {
	return t.registry
}

// ObserveLatency records a duration against the named latency histogram.
func (t *Telemetry) ObserveLatency(label string, d time.Duration) {
	if t == nil || t.Latency == nil {
		return
	}
	t.Latency.WithLabelValues(label).Observe(d.Seconds())
}
