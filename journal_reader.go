// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package roda

// JournalReader is one independent cursor over a Journal's items. Readers
// never block each other or the writer: each holds only its own
// local cursor into the shared, append-only data region.
//
// A JournalReader is not safe for concurrent use by multiple goroutines;
// each goroutine that wants its own view of a Journal should call
// [Journal.Reader] to obtain its own reader.
type JournalReader[T any] struct {
	core    *journalCore[T]
	cursor  uint64
	hasItem bool
}

// TryAdvance moves the reader's cursor forward by one item if one is
// available. It reports whether an item became available, via an
// acquire-load of the journal's write index.
func (r *JournalReader[T]) TryAdvance() bool {
	if r.cursor >= r.core.header.writeIndex.LoadAcquire() {
		r.hasItem = false
		return false
	}
	r.cursor++
	r.hasItem = true
	return true
}

// TryReceive is the terminal egress API: it advances the reader by
// one item and returns it, or [ErrWouldBlock] if none is available yet.
func (r *JournalReader[T]) TryReceive() (*T, error) {
	if !r.TryAdvance() {
		return nil, ErrWouldBlock
	}
	item, _ := r.Get()
	return item, nil
}

// Cursor returns the reader's current position: the sequence number one
// past the last item it has advanced over.
func (r *JournalReader[T]) Cursor() uint64 {
	return r.cursor
}

// Get returns the item the most recent successful TryAdvance moved onto.
// It reports false if TryAdvance has not yet been called, or its last
// call returned false.
func (r *JournalReader[T]) Get() (*T, bool) {
	if !r.hasItem {
		return nil, false
	}
	return &r.core.data[r.cursor-1], true
}

// GetAt returns the item at the given absolute sequence number, if it has
// been published. It does not move the reader's cursor.
func (r *JournalReader[T]) GetAt(seq uint64) (*T, bool) {
	if seq >= r.core.header.writeIndex.LoadAcquire() {
		return nil, false
	}
	return &r.core.data[seq], true
}

// GetLast returns the most recently published item, if any. It does not
// move the reader's cursor.
func (r *JournalReader[T]) GetLast() (*T, bool) {
	wi := r.core.header.writeIndex.LoadAcquire()
	if wi == 0 {
		return nil, false
	}
	return &r.core.data[wi-1], true
}

// GetWindow returns the n most recently published items ending at and
// including the absolute sequence number end, oldest first. It reports
// false if end has not been published or fewer than n items precede it.
// The returned slice aliases the journal's backing storage and is only
// valid for as long as the writer does not overwrite it — which, since
// Journal never wraps, is for the lifetime of the journal.
func (r *JournalReader[T]) GetWindow(end uint64, n int) ([]T, bool) {
	if n <= 0 {
		return nil, false
	}
	if end >= r.core.header.writeIndex.LoadAcquire() {
		return nil, false
	}
	if uint64(n) > end+1 {
		return nil, false
	}
	start := end + 1 - uint64(n)
	return r.core.data[start : end+1], true
}

// With calls f with the item at the reader's current position, as Get
// would return it, and reports whether f was called.
func (r *JournalReader[T]) With(f func(*T)) bool {
	v, ok := r.Get()
	if !ok {
		return false
	}
	f(v)
	return true
}

// WithAt calls f with the item at the given absolute sequence number, as
// GetAt would return it, and reports whether f was called.
func (r *JournalReader[T]) WithAt(seq uint64, f func(*T)) bool {
	v, ok := r.GetAt(seq)
	if !ok {
		return false
	}
	f(v)
	return true
}

// WithLast calls f with the most recently published item, as GetLast
// would return it, and reports whether f was called.
func (r *JournalReader[T]) WithLast(f func(*T)) bool {
	v, ok := r.GetLast()
	if !ok {
		return false
	}
	f(v)
	return true
}
