// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package roda

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"code.hybscloud.com/roda/internal/affinity"
	"code.hybscloud.com/roda/internal/mmap"
	"code.hybscloud.com/roda/internal/telemetry"
)

// BackoffConfig configures a worker's idle backoff policy. The
// illustrative values in the design are performance-sensitive, so they
// are configurable per engine rather than hard-coded.
type BackoffConfig struct {
	// T1 is the idle-iteration threshold below which a worker spins
	// continuously with no pause (Hot state).
	T1 uint64
	// T2 is the idle-iteration threshold at or above which a worker parks
	// instead of emitting a CPU pause hint (Cold state). Between T1
	// and T2 the worker is in the Warm state.
	T2 uint64
	// ColdPark is how long a worker sleeps per iteration in the Cold
	// state.
	ColdPark time.Duration
}

// DefaultBackoffConfig returns the illustrative Hot/Warm/Cold thresholds.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{T1: 1000, T2: 100_000, ColdPark: 50 * time.Microsecond}
}

// EngineOptions configures an Engine.
type EngineOptions struct {
	// Name prefixes the names of file-backed regions this engine
	// creates.
	Name string

	// Dir, if non-empty, makes every region this engine creates
	// file-backed under this directory instead of anonymous.
	Dir string

	// PinMemory requests every region be locked in physical memory by
	// default; individual JournalOptions/SlotStoreOptions.Lock fields
	// can override this per store.
	PinMemory bool

	// Affinity maps a stage's spawn order (0-indexed, in the order
	// Spawn is called) to a CPU core id. Stages with no entry remain
	// unpinned.
	Affinity map[int]int

	// Backoff configures the idle backoff policy applied to every
	// worker. Zero value is replaced with DefaultBackoffConfig.
	Backoff BackoffConfig

	// DrainGrace bounds how long a Draining stage keeps stepping after
	// its input reader goes idle before transitioning to Stopped. Zero
	// defaults to 50ms.
	DrainGrace time.Duration

	// Logger receives structured logs for region pin failures, affinity
	// failures, and stage errors. Defaults to a no-op logger.
	Logger *zap.Logger

	// Registry receives this engine's Prometheus metrics. Defaults to
	// a fresh, unregistered registry.
	Registry *prometheus.Registry
}

// Engine owns the memory-mapped regions backing a pipeline's journals and
// slot stores, and the worker goroutines driving its stages.
type Engine struct {
	opts EngineOptions
	id   string
	tel  *telemetry.Telemetry

	shutdown   atomix.Bool
	wg         sync.WaitGroup
	mu         sync.Mutex
	regions    []*mmap.Region
	stageCount int
	stageNames []string
}

// StageStats is a point-in-time snapshot of one stage's counters, as
// returned by [Engine.Stats].
type StageStats struct {
	Worked uint64
	Idle   uint64
	State  StageState
}

// NewEngine constructs an Engine. The returned Engine creates no regions
// and spawns no workers until journals/slot stores are created through
// it and stages are handed to Spawn.
func NewEngine(opts EngineOptions) *Engine {
	if opts.Backoff == (BackoffConfig{}) {
		opts.Backoff = DefaultBackoffConfig()
	}
	if opts.DrainGrace == 0 {
		opts.DrainGrace = 50 * time.Millisecond
	}
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return &Engine{
		opts: opts,
		id:   uuid.NewString(),
		tel:  telemetry.New(registry, opts.Logger),
	}
}

// ID returns a unique identifier generated for this engine instance, used
// to disambiguate concurrently running engines of the same Name in logs
// and in file-backed region names.
func (e *Engine) ID() string {
	return e.id
}

// Stats returns a snapshot of every spawned stage's worked/idle counts
// and current lifecycle state, read out of the same Prometheus counters
// the worker loop increments.
func (e *Engine) Stats() map[string]StageStats {
	e.mu.Lock()
	names := make([]string, len(e.stageNames))
	copy(names, e.stageNames)
	e.mu.Unlock()

	out := make(map[string]StageStats, len(names))
	for _, name := range names {
		out[name] = StageStats{
			Worked: uint64(testutil.ToFloat64(e.tel.StageWorked.WithLabelValues(name))),
			Idle:   uint64(testutil.ToFloat64(e.tel.StageIdle.WithLabelValues(name))),
			State:  StageState(testutil.ToFloat64(e.tel.StageState.WithLabelValues(name))),
		}
	}
	return out
}

// Registry returns the Prometheus registry backing this engine's
// metrics, for callers that want to expose it directly (e.g. through
// promhttp.Handler).
func (e *Engine) Registry() *prometheus.Registry {
	return e.tel.Registry()
}

// LatencySink returns a LatencySink that records samples into this
// engine's own latency histogram under label, for use with the
// [Latency] pipe element or [EndToEndLatency.Observe]. Samples land in
// the same "roda_pipe_latency_seconds" histogram exposed through
// Registry, distinguished by label.
func (e *Engine) LatencySink(label string) LatencySink {
	return engineLatencySink{tel: e.tel, label: label}
}

// newRegion allocates and tracks a memory-mapped region for a journal or
// slot store, named under this engine and honoring its Dir/PinMemory
// configuration. It is called by NewJournal and NewSlotStore, never
// directly by callers.
func (e *Engine) newRegion(name string, size int, lock bool) (*mmap.Region, error) {
	path := ""
	if e.opts.Dir != "" {
		path = filepath.Join(e.opts.Dir, fmt.Sprintf("%s-%s-%s.roda", e.opts.Name, name, e.id))
	}

	region, err := mmap.New(mmap.Options{Path: path, Size: size, Lock: lock})
	if err != nil {
		return nil, mappingFailedError(name, err)
	}
	if lock && !region.Locked() {
		e.tel.Logger.Warn("failed to pin region in memory, continuing swappable",
			zap.String("region", name))
	}

	e.mu.Lock()
	e.regions = append(e.regions, region)
	e.mu.Unlock()
	return region, nil
}

// Spawn starts one worker goroutine driving stage's step loop until
// shutdown is requested and the stage drains, or stage.Step returns an
// error. If opts.Affinity has an entry for this stage's spawn order, the
// worker attempts to pin itself to that core.
func (e *Engine) Spawn(stage stageRunner) {
	index := e.stageCount
	e.stageCount++

	e.mu.Lock()
	e.stageNames = append(e.stageNames, stage.Name())
	e.mu.Unlock()

	core, pin := e.opts.Affinity[index]

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if pin {
			affinity.Pin(e.tel.Logger, stage.Name(), core)
		}
		e.runWorker(stage)
	}()
}

// runWorker is one stage's worker loop: step, apply the Hot/Warm/Cold
// backoff policy on Idle, and drive the Running → Draining → Stopped
// state machine cooperatively against e.shutdown.
func (e *Engine) runWorker(stage stageRunner) {
	var idleCount uint64
	var sw spin.Wait
	var drainStart time.Time
	draining := false

	for {
		if !draining && e.shutdown.LoadAcquire() {
			draining = true
			drainStart = time.Now()
			stage.setState(Draining)
		}

		result, err := stage.Step()
		if err != nil {
			e.tel.Logger.Error("stage stopped on error",
				zap.String("stage", stage.Name()),
				zap.Error(err))
			stage.setState(Stopped)
			e.tel.StageState.WithLabelValues(stage.Name()).Set(float64(Stopped))
			return
		}

		switch result {
		case Worked:
			idleCount = 0
			sw.Reset()
			if draining {
				drainStart = time.Now()
			}
			e.tel.StageWorked.WithLabelValues(stage.Name()).Inc()
		case Idle:
			idleCount++
			e.tel.StageIdle.WithLabelValues(stage.Name()).Inc()

			if draining && time.Since(drainStart) >= e.opts.DrainGrace {
				if ferr := stage.Flush(); ferr != nil {
					e.tel.Logger.Error("stage flush failed",
						zap.String("stage", stage.Name()),
						zap.Error(ferr))
				}
				stage.setState(Stopped)
				e.tel.StageState.WithLabelValues(stage.Name()).Set(float64(Stopped))
				return
			}

			switch {
			case idleCount < e.opts.Backoff.T1:
				// Hot: continuous retry, no pause.
			case idleCount < e.opts.Backoff.T2:
				sw.Once()
			default:
				time.Sleep(e.opts.Backoff.ColdPark)
			}
		}

		e.tel.StageState.WithLabelValues(stage.Name()).Set(float64(stage.State()))
	}
}

// Shutdown requests every spawned stage begin draining. It does not
// block; call Wait or Close to block until all workers have stopped.
func (e *Engine) Shutdown() {
	e.shutdown.StoreRelease(true)
}

// Wait blocks until every spawned worker has returned.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Close requests shutdown, waits for every worker to stop, and then
// unmaps every region this engine created.
func (e *Engine) Close() error {
	e.Shutdown()
	e.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()
	var firstErr error
	for _, r := range e.regions {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
