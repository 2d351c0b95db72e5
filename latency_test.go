// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package roda_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.hybscloud.com/roda"
)

type spySink struct {
	samples []time.Duration
}

func (s *spySink) Observe(d time.Duration) {
	s.samples = append(s.samples, d)
}

func TestPipeLatencyRecordsIntoEngineSink(t *testing.T) {
	eng := newTestEngine(t)
	sink := eng.LatencySink("stage-a")

	p := roda.Latency(roda.NewPipe[int](), sink)
	out, ok := p.Run(7)
	require.True(t, ok)
	assert.Equal(t, 7, out)

	mfs, err := eng.Registry().Gather()
	require.NoError(t, err)
	var latency *dto.MetricFamily
	for _, mf := range mfs {
		if mf.GetName() == "roda_pipe_latency_seconds" {
			latency = mf
		}
	}
	require.NotNil(t, latency, "latency histogram not registered")
	require.Len(t, latency.Metric, 1)
	assert.Equal(t, uint64(1), latency.Metric[0].GetHistogram().GetSampleCount())
}

func TestPipeLatencyRecordsIntoPrometheusObserver(t *testing.T) {
	hist := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_latency_seconds",
		Buckets: prometheus.DefBuckets,
	})
	sink := roda.PrometheusLatencySink(hist)

	p := roda.Latency(roda.NewPipe[int](), sink)
	_, ok := p.Run(1)
	require.True(t, ok)

	m := &dto.Metric{}
	require.NoError(t, hist.Write(m))
	assert.Equal(t, uint64(1), m.GetHistogram().GetSampleCount())
}

func TestPipeLatencyWithSpySink(t *testing.T) {
	spy := &spySink{}
	p := roda.Latency(roda.NewPipe[int](), spy)

	_, ok := p.Run(1)
	require.True(t, ok)
	require.Len(t, spy.samples, 1)
	assert.GreaterOrEqual(t, spy.samples[0], time.Duration(0))
}

func TestEndToEndLatencyMarkAndObserveThroughStage(t *testing.T) {
	eng := newTestEngine(t)
	in, err := roda.NewJournal[int](eng, roda.JournalOptions{Name: "in", Capacity: 8})
	require.NoError(t, err)
	out, err := roda.NewJournal[int](eng, roda.JournalOptions{Name: "out", Capacity: 8})
	require.NoError(t, err)

	e2e, err := roda.NewEndToEndLatency(eng, "e2e", 8)
	require.NoError(t, err)
	defer e2e.Close()

	in.AttachLatency(e2e)

	pipe := roda.Map(roda.NewPipe[int](), func(v int) int { return v * 2 })
	stage := roda.NewStage("double", in.Reader(), pipe, out)
	spy := &spySink{}
	stage.ObserveEndToEndLatency(e2e, spy)

	require.NoError(t, in.Send(intPtr(21)))
	result, err := stage.Step()
	require.NoError(t, err)
	assert.Equal(t, roda.Worked, result)

	require.Len(t, spy.samples, 1)
	assert.GreaterOrEqual(t, spy.samples[0], time.Duration(0))
}
