// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package roda

import (
	"time"
)

// EndToEndLatency measures the time an item spends traveling from an
// ingress journal to a terminal stage, across however many intermediate
// stages sit between them. It stamps a monotonic timestamp into a
// side-channel slot store keyed by the item's journal cursor at Mark,
// and converts that back into an elapsed duration at Observe.
//
// Unlike the per-stage latency pipe element, which only measures one
// stage's own processing time, EndToEndLatency spans the whole
// pipeline — but only across a chain of stages that each forward every
// input exactly once, in order (Map, Inspect, Stateful, Latency,
// GroupBoundary's own cursor excluded): a Filter, DedupBy, Delta, or
// Windowed stage anywhere upstream of the observing stage changes how
// many items reach it, breaking the correspondence between the cursor
// Mark recorded and the cursor Observe looks up. Attach to a pipeline's
// ingress journal with [Journal.AttachLatency], and to a downstream
// stage with [Stage.ObserveEndToEndLatency].
type EndToEndLatency struct {
	marks *SlotStore[int64]
}

// NewEndToEndLatency creates an EndToEndLatency backed by a slot store of
// the given capacity, allocated through eng. capacity should match the
// ingress journal's capacity so that cursor-to-slot addressing never
// collides within one journal's lifetime; smaller capacities wrap
// cursors modulo capacity, trading collision risk for a smaller mapping.
func NewEndToEndLatency(eng *Engine, name string, capacity int) (*EndToEndLatency, error) {
	marks, err := NewSlotStore[int64](eng, SlotStoreOptions{Name: name, Count: capacity})
	if err != nil {
		return nil, err
	}
	return &EndToEndLatency{marks: marks}, nil
}

// Mark stamps the current monotonic time against cursor, to be read back
// later by Observe once the item reaches a terminal stage.
func (l *EndToEndLatency) Mark(cursor uint64) {
	now := time.Now().UnixNano()
	_ = l.marks.Set(l.slotFor(cursor), &now)
}

// Observe reads back the timestamp Mark recorded for cursor and records
// the elapsed duration into sink. It is a no-op if cursor was never
// marked, or if sink is nil.
func (l *EndToEndLatency) Observe(cursor uint64, sink LatencySink) {
	stamped, ok := l.marks.Get(l.slotFor(cursor))
	if !ok || stamped == 0 || sink == nil {
		return
	}
	sink.Observe(time.Since(time.Unix(0, stamped)))
}

func (l *EndToEndLatency) slotFor(cursor uint64) int {
	return int(cursor % uint64(l.marks.Count()))
}

// Close unmaps the side-channel slot store.
func (l *EndToEndLatency) Close() error {
	return l.marks.Close()
}
