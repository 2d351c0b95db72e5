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

// slotStoreHeader is sized identically to journalHeader even though it has
// no field that is mutated after construction, so the two header types
// remain interchangeable at the storage layer.
//
//	offset 0..8   reserved (kept structurally identical to journalHeader)
//	offset 8..16  count
//	offset 16..24 elem_size
//	offset 24..128 reserved
type slotStoreHeader struct {
	_        [8]byte
	count    uint64
	elemSize uint64
	_        [headerSize - 24]byte
}

// slot is one versioned entry in a SlotStore: a seqlock word followed by
// the slot's value and a trailing padShort, mirroring mpmcSlot[T]'s own
// per-slot trailing pad. A slot therefore occupies 64 bytes plus the size
// of T, and the pad keeps one slot's version and value at least 56 bytes
// away from the next slot's, reducing false sharing between neighboring
// slots; slots are not aligned to cache-line boundaries. version is even
// while the slot is stable and odd while a write is in progress; a reader
// that observes an odd version, or a version that changed between its two
// reads, retries.
type slot[T any] struct {
	version atomix.Uint64
	value   T
	_       padShort
}

// SlotStore is a fixed-size array of independently versioned slots of T,
// each readable without blocking the writer and without the writer
// blocking on readers. Unlike Journal, a slot's value may be
// overwritten in place.
type SlotStore[T any] struct {
	name   string
	header *slotStoreHeader
	slots  []slot[T]
	region *mmap.Region
}

// SlotStoreOptions configures the creation of a SlotStore.
type SlotStoreOptions struct {
	// Name identifies the store for logging, metrics, and (if the owning
	// Engine is file-backed) the mapped file's name.
	Name string

	// Count is the fixed number of slots. Must be > 0.
	Count int

	// Lock requests the region be pinned in memory. If unset, the owning
	// Engine's default (EngineOptions.PinMemory) applies.
	Lock *bool
}

// NewSlotStore creates a new SlotStore[T] backed by a region allocated
// through eng.
func NewSlotStore[T any](eng *Engine, opts SlotStoreOptions) (*SlotStore[T], error) {
	if err := checkPlainData[T](); err != nil {
		return nil, err
	}
	if opts.Count <= 0 {
		return nil, fmt.Errorf("roda: slot store %q: count must be > 0, got %d", opts.Name, opts.Count)
	}

	var probe slot[T]
	slotSize := int(unsafe.Sizeof(probe))
	totalSize := roundUpToCacheLine(headerSize + slotSize*opts.Count)

	lock := eng.opts.PinMemory
	if opts.Lock != nil {
		lock = *opts.Lock
	}

	region, err := eng.newRegion(opts.Name, totalSize, lock)
	if err != nil {
		return nil, err
	}

	bytes := region.Bytes()
	hdr := (*slotStoreHeader)(unsafe.Pointer(&bytes[0]))
	hdr.count = uint64(opts.Count)
	hdr.elemSize = uint64(slotSize)

	slots := unsafe.Slice((*slot[T])(unsafe.Pointer(&bytes[headerSize])), opts.Count)

	return &SlotStore[T]{
		name:   opts.Name,
		header: hdr,
		slots:  slots,
		region: region,
	}, nil
}

// Set writes value into the slot at the given index under the seqlock
// protocol: the version is bumped to odd before the write and back to
// even after, so concurrent readers either see the old value, the new
// value, or retry.
func (s *SlotStore[T]) Set(index int, value *T) error {
	if index < 0 || uint64(index) >= s.header.count {
		return fmt.Errorf("roda: slot store %q: index %d out of range [0,%d)", s.name, index, s.header.count)
	}
	sl := &s.slots[index]
	sl.version.AddAcqRel(1)
	sl.value = *value
	sl.version.AddAcqRel(1)
	return nil
}

// Get reads the slot at the given index, retrying internally until it
// observes a torn-free snapshot: an even version that does not change
// between the read of the value and the second version check. It reports
// false only if index is out of range.
func (s *SlotStore[T]) Get(index int) (T, bool) {
	var zero T
	if index < 0 || uint64(index) >= s.header.count {
		return zero, false
	}
	sl := &s.slots[index]
	for {
		v1 := sl.version.LoadAcquire()
		if v1&1 != 0 {
			continue
		}
		value := sl.value
		v2 := sl.version.LoadAcquire()
		if v1 == v2 {
			return value, true
		}
	}
}

// Count returns the fixed number of slots.
func (s *SlotStore[T]) Count() int {
	return int(s.header.count)
}

// Name returns the slot store's configured name.
func (s *SlotStore[T]) Name() string {
	return s.name
}

// Close unmaps the slot store's backing region.
func (s *SlotStore[T]) Close() error {
	return s.region.Close()
}
