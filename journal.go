// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package roda

import (
	"fmt"
	"unsafe"

	"code.hybscloud.com/atomix"

	"code.hybscloud.com/roda/internal/mmap"
)

// headerSize is the fixed size in bytes of a Journal or SlotStore header:
// two cache lines. write_index is the only field either header mutates
// after construction, so it gets a cache line to itself via pad; the
// remaining, read-only fields share the second line.
const headerSize = 2 * cacheLineSize

// journalHeader is the first two cache lines of a journal's mapped
// region. It is cast in place from the mapping's raw bytes, never
// copied.
//
//	offset 0..8     write_index (atomic, release-store / acquire-load)
//	offset 8..72    pad, isolates write_index on its own cache line
//	offset 72..80   capacity
//	offset 80..88   elem_size
//	offset 88..128  reserved
type journalHeader struct {
	writeIndex atomix.Uint64
	_          pad
	capacity   uint64
	elemSize   uint64
	_          [headerSize - 88]byte
}

// journalCore is the state shared between a Journal's writer handle and
// every JournalReader created from it. It carries no mutable fields of its
// own beyond what already lives in the mapped header and data region, so
// sharing a pointer to it across goroutines is safe under the SWMR
// discipline.
type journalCore[T any] struct {
	name   string
	header *journalHeader
	data   []T
}

// Journal is a fixed-capacity, memory-mapped, append-only ring of T,
// addressed by a monotonic sequence number. It has exactly one writer
// handle, obtained from [NewJournal], and any number of independent
// [JournalReader] handles obtained from [Journal.Reader].
//
// Journal never wraps: once Capacity items have been appended,
// further [Journal.Append] calls return [ErrCapacityExceeded].
type Journal[T any] struct {
	core    *journalCore[T]
	region  *mmap.Region
	latency *EndToEndLatency
}

// JournalOptions configures the creation of a Journal.
type JournalOptions struct {
	// Name identifies the journal for logging, metrics, and (if the
	// owning Engine is file-backed) the mapped file's name.
	Name string

	// Capacity is the fixed number of elements the journal can hold.
	// Must be > 0. Not resizable after construction.
	Capacity int

	// Lock requests the region be pinned in memory. If unset, the
	// owning Engine's default (EngineOptions.PinMemory) applies.
	Lock *bool
}

// NewJournal creates a new Journal[T] backed by a region allocated through
// eng. It fails fatally if T does not satisfy the plain-data contract,
// if Capacity is not positive, or if the OS refuses the mapping.
func NewJournal[T any](eng *Engine, opts JournalOptions) (*Journal[T], error) {
	if err := checkPlainData[T](); err != nil {
		return nil, err
	}
	if opts.Capacity <= 0 {
		return nil, fmt.Errorf("roda: journal %q: capacity must be > 0, got %d", opts.Name, opts.Capacity)
	}

	var probe T
	elemSize := int(unsafe.Sizeof(probe))
	totalSize := roundUpToCacheLine(headerSize + elemSize*opts.Capacity)

	lock := eng.opts.PinMemory
	if opts.Lock != nil {
		lock = *opts.Lock
	}

	region, err := eng.newRegion(opts.Name, totalSize, lock)
	if err != nil {
		return nil, err
	}

	bytes := region.Bytes()
	hdr := (*journalHeader)(unsafe.Pointer(&bytes[0]))
	hdr.capacity = uint64(opts.Capacity)
	hdr.elemSize = uint64(elemSize)
	hdr.writeIndex.StoreRelease(0)

	data := unsafe.Slice((*T)(unsafe.Pointer(&bytes[headerSize])), opts.Capacity)

	return &Journal[T]{
		core: &journalCore[T]{
			name:   opts.Name,
			header: hdr,
			data:   data,
		},
		region: region,
	}, nil
}

// Append writes value into the next slot and publishes it with a
// release-store of the write index. Only the journal's owner
// should call Append; Journal has no internal enforcement of the
// single-writer discipline beyond documentation, matching the zero-cost
// contract of the SWMR queues this design is grounded on.
//
// Returns [ErrCapacityExceeded] once Capacity items have been appended.
func (j *Journal[T]) Append(value *T) error {
	idx := j.core.header.writeIndex.LoadRelaxed()
	if idx >= j.core.header.capacity {
		return ErrCapacityExceeded
	}
	j.core.data[idx] = *value
	j.core.header.writeIndex.StoreRelease(idx + 1)
	if j.latency != nil {
		j.latency.Mark(idx)
	}
	return nil
}

// AttachLatency marks every subsequent Append/Send against l, keyed by
// the cursor assigned to the item. Attach to a pipeline's ingress
// journal, and pair with [Stage.ObserveEndToEndLatency] on a downstream
// stage using the same EndToEndLatency, to measure how long an item
// spends in the pipeline end to end.
func (j *Journal[T]) AttachLatency(l *EndToEndLatency) {
	j.latency = l
}

// Send is the terminal ingress API: it appends value exactly as
// Append does, but reports fullness as [ErrWouldBlock] rather than
// [ErrCapacityExceeded], matching the retry-with-backoff convention this
// project's queue libraries use at their own terminal send/receive calls.
func (j *Journal[T]) Send(value *T) error {
	if err := j.Append(value); err != nil {
		if err == ErrCapacityExceeded {
			return ErrWouldBlock
		}
		return err
	}
	return nil
}

// Reader returns a fresh JournalReader positioned at cursor 0.
func (j *Journal[T]) Reader() *JournalReader[T] {
	return &JournalReader[T]{core: j.core}
}

// Len returns the number of items published so far (an acquire-load of
// the write index).
func (j *Journal[T]) Len() uint64 {
	return j.core.header.writeIndex.LoadAcquire()
}

// Capacity returns the fixed element capacity of the journal.
func (j *Journal[T]) Capacity() uint64 {
	return j.core.header.capacity
}

// Name returns the journal's configured name.
func (j *Journal[T]) Name() string {
	return j.core.name
}

// Close unmaps the journal's backing region. The Engine that created the
// journal also closes it on [Engine.Close]; calling Close directly is only
// needed for journals created outside an Engine's lifecycle in tests.
func (j *Journal[T]) Close() error {
	return j.region.Close()
}
