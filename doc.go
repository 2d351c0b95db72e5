// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package roda provides deterministic, ultra-low-latency streaming
// pipelines on a single machine.
//
// A pipeline is a chain of stages. Each stage owns a [JournalReader] over
// an upstream [Journal], a statically composed [Pipe], and a writer handle
// to a downstream Journal. The [Engine] owns the memory-mapped storage,
// spawns one goroutine per stage, and drives an adaptive backoff loop when
// a stage has no work.
//
// # Quick Start
//
//	eng := roda.New("ticks").Build()
//	defer eng.Close()
//
//	ticks, err := roda.NewJournal[Tick](eng, roda.JournalOptions{Name: "ticks", Capacity: 4096})
//	candles, err := roda.NewJournal[Candle](eng, roda.JournalOptions{Name: "candles", Capacity: 1024})
//
//	pipe := roda.Stateful(roda.NewPipe[Tick](), 64, keyOfTick, newCandle, updateCandle)
//
//	stage := roda.NewStage("tick-to-candle", ticks.Reader(), pipe, candles)
//	eng.Spawn(stage)
//
//	ticks.Send(&Tick{Sym: 1, Price: 10, TS: 0})
//
// # Journal
//
// [Journal] is a fixed-capacity, memory-mapped, append-only ring addressed
// by a monotonic sequence counter. It has a single, non-cloneable writer
// handle and any number of independent [JournalReader] handles. Publish is
// a single release-store of the write index; readers observe published
// items with an acquire-load, establishing happens-before without locks
// or blocking.
//
// The journal never wraps. Once full, [Journal.Append] returns
// [ErrCapacityExceeded]. This is a deliberate trade against a circular
// buffer: silent overwrite would break the monotonic-cursor contract that
// readers and [DirectIndex] rely on.
//
// # SlotStore
//
// [SlotStore] is a fixed, random-access array of versioned slots. Writes
// are seqlock writes (odd → write → even); reads retry until they observe
// a stable, even version, guaranteeing torn-free snapshots without a mutex
// .
//
// # DirectIndex
//
// [DirectIndex] layers an open-addressed key→cursor map, backed by one
// SlotStore for its bucket array plus an in-process atomic cursor
// tracking how far it has caught up, letting a stage look up "the most
// recent item with key K" in expected O(1) time without scanning the
// journal.
//
// # Pipe
//
// A [Pipe] is a statically composed chain of per-item elements — Map,
// Filter, Inspect, Stateful, Delta, DedupBy, Latency, GroupBoundary,
// Windowed — each shaped `step(in) (out, ok)`. The chain is resolved
// once, at construction, into a single closure with no further dispatch.
//
// # Engine and backoff
//
// [Engine] applies CPU affinity when configured and runs each [Stage]'s
// step function in a loop. A worker idle for T1 consecutive iterations
// enters a Warm state (CPU pause hint via [code.hybscloud.com/spin]), and
// past T2 iterations enters a Cold state (parks with a short sleep). Any
// successful step resets the idle counter to zero.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/atomix] for acquire/release
// atomics on journal and slot-store headers, [code.hybscloud.com/spin] for
// CPU pause hints in the Warm backoff state, and [code.hybscloud.com/iox]
// for semantic "would block" signaling on the terminal ingress/egress
// API. Structured logging uses [go.uber.org/zap]; the latency pipe
// element and engine-level counters are exported through
// [github.com/prometheus/client_golang/prometheus].
package roda
