// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package roda

import (
	"time"
)

// Pipe is a statically composed chain of per-item processing elements,
// resolved to a single closure at construction so that a Stage's hot
// path never pays for virtual dispatch. Each element has the shape
// step(In) (Out, bool): true forwards to the next element, false drops
// the item.
//
// A chain element that buffers an item rather than forwarding it
// immediately (currently only [GroupBoundary]) may also set flush, which
// [Pipe.Flush] calls once a stage has no further input, to release
// whatever the chain is still holding.
type Pipe[In, Out any] struct {
	run   func(In) (Out, bool)
	flush func() (Out, bool)
}

// NewPipe returns the identity pipe over T: every input is forwarded
// unchanged. Chain Map, Filter, Inspect, Stateful, Delta, DedupBy,
// Latency, GroupBoundary, or Windowed onto it to build a pipeline.
func NewPipe[T any]() *Pipe[T, T] {
	return &Pipe[T, T]{run: func(v T) (T, bool) { return v, true }}
}

// Flush returns the chain's final buffered output, if any element in the
// chain is holding one back. It reports false if nothing is pending.
func (p *Pipe[In, Out]) Flush() (Out, bool) {
	if p.flush == nil {
		var zero Out
		return zero, false
	}
	return p.flush()
}

// Map applies f to every item that reaches this point in the chain.
// Always forwards.
func Map[In, Mid, Out any](p *Pipe[In, Mid], f func(Mid) Out) *Pipe[In, Out] {
	prev := p.run
	prevFlush := p.flush
	return &Pipe[In, Out]{
		run: func(v In) (Out, bool) {
			mid, ok := prev(v)
			if !ok {
				var zero Out
				return zero, false
			}
			return f(mid), true
		},
		flush: func() (Out, bool) {
			var zero Out
			if prevFlush == nil {
				return zero, false
			}
			mid, ok := prevFlush()
			if !ok {
				return zero, false
			}
			return f(mid), true
		},
	}
}

// Filter forwards an item only if pred reports true for it.
func Filter[In, T any](p *Pipe[In, T], pred func(T) bool) *Pipe[In, T] {
	prev := p.run
	prevFlush := p.flush
	return &Pipe[In, T]{
		run: func(v In) (T, bool) {
			mid, ok := prev(v)
			if !ok || !pred(mid) {
				var zero T
				return zero, false
			}
			return mid, true
		},
		flush: func() (T, bool) {
			var zero T
			if prevFlush == nil {
				return zero, false
			}
			mid, ok := prevFlush()
			if !ok || !pred(mid) {
				return zero, false
			}
			return mid, true
		},
	}
}

// Inspect runs f as a side effect on every item that reaches this point,
// then forwards the item unchanged.
func Inspect[In, T any](p *Pipe[In, T], f func(T)) *Pipe[In, T] {
	prev := p.run
	prevFlush := p.flush
	return &Pipe[In, T]{
		run: func(v In) (T, bool) {
			mid, ok := prev(v)
			if !ok {
				return mid, false
			}
			f(mid)
			return mid, true
		},
		flush: func() (T, bool) {
			var zero T
			if prevFlush == nil {
				return zero, false
			}
			mid, ok := prevFlush()
			if !ok {
				return zero, false
			}
			f(mid)
			return mid, true
		},
	}
}

// Stateful maintains a key→state map in memory private to the stage that
// owns this pipe. On every input it either initializes or updates the
// state for that input's key, via keyOf and init/update, then forwards
// the updated state as output. The map is pre-sized at
// construction and never rehashes on the hot path for up to
// expectedKeys distinct keys.
func Stateful[In, T any, K comparable, S any](p *Pipe[In, T], expectedKeys int, keyOf func(T) K, init func(T) S, update func(S, T) S) *Pipe[In, S] {
	prev := p.run
	if expectedKeys < 16 {
		expectedKeys = 16
	}
	states := make(map[K]S, expectedKeys)
	return &Pipe[In, S]{run: func(v In) (S, bool) {
		mid, ok := prev(v)
		if !ok {
			var zero S
			return zero, false
		}
		key := keyOf(mid)
		s, exists := states[key]
		if exists {
			s = update(s, mid)
		} else {
			s = init(mid)
		}
		states[key] = s
		return s, true
	}}
}

// Delta maintains the previous input observed for each key and calls
// compare with the current item and that previous item (nil on the
// first observation for a key), forwarding whatever compare decides to
// emit.
func Delta[In, T, Out any, K comparable](p *Pipe[In, T], expectedKeys int, keyOf func(T) K, compare func(current T, previous *T) (Out, bool)) *Pipe[In, Out] {
	prev := p.run
	if expectedKeys < 16 {
		expectedKeys = 16
	}
	history := make(map[K]T, expectedKeys)
	return &Pipe[In, Out]{run: func(v In) (Out, bool) {
		mid, ok := prev(v)
		if !ok {
			var zero Out
			return zero, false
		}
		key := keyOf(mid)
		var prevPtr *T
		if last, exists := history[key]; exists {
			prevPtr = &last
		}
		out, emit := compare(mid, prevPtr)
		history[key] = mid
		if !emit {
			var zero Out
			return zero, false
		}
		return out, true
	}}
}

// DedupBy drops an input if keyOf's result equals the last observed key;
// otherwise it remembers the new key and forwards the item.
func DedupBy[In, T any, K comparable](p *Pipe[In, T], keyOf func(T) K) *Pipe[In, T] {
	prev := p.run
	var lastKey K
	hasLast := false
	return &Pipe[In, T]{run: func(v In) (T, bool) {
		mid, ok := prev(v)
		if !ok {
			return mid, false
		}
		key := keyOf(mid)
		if hasLast && key == lastKey {
			var zero T
			return zero, false
		}
		lastKey = key
		hasLast = true
		return mid, true
	}}
}

// GroupBoundary holds back each item that reaches this point in the
// chain until keyOf's result on it differs from the previous item's, at
// which point it forwards the *previous* item, not the current one:
// a group's output is only emitted once the following item shows the
// group has closed. The last group in the stream is never seen this way
// and is only released by Flush, so a Stage only reports it once its
// input reader has gone idle and the stage is draining.
func GroupBoundary[In, Out any, K comparable](p *Pipe[In, Out], keyOf func(Out) K) *Pipe[In, Out] {
	prev := p.run
	var pending Out
	var pendingKey K
	hasPending := false
	return &Pipe[In, Out]{
		run: func(v In) (Out, bool) {
			mid, ok := prev(v)
			if !ok {
				var zero Out
				return zero, false
			}
			key := keyOf(mid)
			if !hasPending {
				pending, pendingKey, hasPending = mid, key, true
				var zero Out
				return zero, false
			}
			if key != pendingKey {
				closed := pending
				pending, pendingKey = mid, key
				return closed, true
			}
			pending = mid
			var zero Out
			return zero, false
		},
		flush: func() (Out, bool) {
			if !hasPending {
				var zero Out
				return zero, false
			}
			hasPending = false
			return pending, true
		},
	}
}

// Latency samples the monotonic clock around the rest of the chain
// upstream of this element and records the elapsed duration into sink,
// then forwards the item unchanged. sink is typically obtained from
// [Engine.LatencySink] or [PrometheusLatencySink]; a nil sink disables
// recording without disabling the timing itself.
func Latency[In, T any](p *Pipe[In, T], sink LatencySink) *Pipe[In, T] {
	prev := p.run
	return &Pipe[In, T]{run: func(v In) (T, bool) {
		start := time.Now()
		mid, ok := prev(v)
		if sink != nil {
			sink.Observe(time.Since(start))
		}
		return mid, ok
	}}
}

// Windowed forwards the n most recently observed items, oldest first,
// once at least n have been seen; before that it drops the item. This
// supplements the other built-in elements with the sliding-window behavior
// the original design's window module provided.
func Windowed[In, T any](p *Pipe[In, T], n int) *Pipe[In, []T] {
	prev := p.run
	buf := make([]T, 0, n)
	return &Pipe[In, []T]{run: func(v In) ([]T, bool) {
		mid, ok := prev(v)
		if !ok {
			return nil, false
		}
		if len(buf) == n {
			copy(buf, buf[1:])
			buf = buf[:n-1]
		}
		buf = append(buf, mid)
		if len(buf) < n {
			return nil, false
		}
		out := make([]T, n)
		copy(out, buf)
		return out, true
	}}
}

// Run executes the pipe's full resolved chain on one item.
func (p *Pipe[In, Out]) Run(v In) (Out, bool) {
	return p.run(v)
}
