// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package roda

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Builder constructs an Engine through a fluent chain of configuration
// calls.
type Builder struct {
	opts EngineOptions
}

// New starts a Builder for an engine named name. Sensible defaults are
// applied for backoff thresholds and drain grace; call Build to obtain
// the configured Engine.
func New(name string) *Builder {
	return &Builder{opts: EngineOptions{
		Name:       name,
		Backoff:    DefaultBackoffConfig(),
		DrainGrace: 50 * time.Millisecond,
	}}
}

// Dir makes every region this engine creates file-backed under dir
// instead of anonymous.
func (b *Builder) Dir(dir string) *Builder {
	b.opts.Dir = dir
	return b
}

// PinMemory requests every region this engine creates be locked in
// physical memory by default.
func (b *Builder) PinMemory() *Builder {
	b.opts.PinMemory = true
	return b
}

// Affinity assigns a stage's spawn order (0-indexed) to a CPU core id.
// Call once per pinned stage.
func (b *Builder) Affinity(stageIndex, core int) *Builder {
	if b.opts.Affinity == nil {
		b.opts.Affinity = make(map[int]int)
	}
	b.opts.Affinity[stageIndex] = core
	return b
}

// Backoff overrides the default idle backoff thresholds.
func (b *Builder) Backoff(cfg BackoffConfig) *Builder {
	b.opts.Backoff = cfg
	return b
}

// DrainGrace overrides the default bounded grace period a Draining stage
// waits before transitioning to Stopped.
func (b *Builder) DrainGrace(d time.Duration) *Builder {
	b.opts.DrainGrace = d
	return b
}

// Logger sets the engine's structured logger.
func (b *Builder) Logger(logger *zap.Logger) *Builder {
	b.opts.Logger = logger
	return b
}

// Registry sets the Prometheus registry the engine's metrics register
// against.
func (b *Builder) Registry(registry *prometheus.Registry) *Builder {
	b.opts.Registry = registry
	return b
}

// Build returns the configured Engine.
func (b *Builder) Build() *Engine {
	return NewEngine(b.opts)
}
