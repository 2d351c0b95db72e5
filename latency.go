// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package roda

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"code.hybscloud.com/roda/internal/telemetry"
)

// LatencySink receives duration samples recorded by the [Latency] pipe
// element and [EndToEndLatency.Observe]. Use [Engine.LatencySink] to
// record into an engine's own histogram, or [PrometheusLatencySink] to
// record directly into a prometheus.Observer already owned by the
// caller.
type LatencySink interface {
	Observe(d time.Duration)
}

// engineLatencySink routes samples into an Engine's own latency
// histogram, labeled by name. It is the sink returned by
// [Engine.LatencySink]; external callers never construct it directly,
// since *telemetry.Telemetry is an internal type.
type engineLatencySink struct {
	tel   *telemetry.Telemetry
	label string
}

func (s engineLatencySink) Observe(d time.Duration) {
	s.tel.ObserveLatency(s.label, d)
}

// PrometheusLatencySink adapts a prometheus.Observer — a Histogram or
// Summary the caller has already created and registered — into a
// LatencySink, recording each duration in seconds.
func PrometheusLatencySink(o prometheus.Observer) LatencySink {
	return prometheusLatencySink{o: o}
}

type prometheusLatencySink struct {
	o prometheus.Observer
}

func (s prometheusLatencySink) Observe(d time.Duration) {
	s.o.Observe(d.Seconds())
}
