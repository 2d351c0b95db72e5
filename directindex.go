// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package roda

import (
	"fmt"
	"unsafe"

	"code.hybscloud.com/atomix"
)

// directBucket is one open-addressed slot of a DirectIndex's bucket
// array: a key, the cursor it last resolved to, and an occupied flag.
// Storing it inside a SlotStore gives bucket reads and writes the same
// torn-free seqlock guarantee as any other slot.
type directBucket[K comparable, V any] struct {
	key      K
	cursor   uint64
	occupied bool
}

// DirectIndex maps keys of type K to the most recent cursor, in a source
// Journal[V], carrying an element with that key. It is bound to exactly
// one journal for its lifetime.
type DirectIndex[K comparable, V any] struct {
	name        string
	buckets     *SlotStore[directBucket[K, V]]
	bucketCount int
	reader      *JournalReader[V]
	lastCursor  atomix.Uint64
	hash        func(K) uint64
}

// DirectIndexOptions configures the creation of a DirectIndex.
type DirectIndexOptions[K comparable] struct {
	// Name identifies the index's backing bucket store.
	Name string

	// Capacity is the expected number of distinct keys. The bucket
	// array is sized so the load factor stays below 0.7 even if
	// Capacity keys are all live simultaneously.
	Capacity int

	// Hash, if set, overrides the default bit-identity hash derived
	// from K's raw bytes.
	Hash func(K) uint64

	// Lock requests the bucket store's region be pinned in memory.
	Lock *bool
}

// NewDirectIndex creates a DirectIndex over source, allocating its bucket
// array through eng.
func NewDirectIndex[K comparable, V any](eng *Engine, source *Journal[V], opts DirectIndexOptions[K]) (*DirectIndex[K, V], error) {
	if opts.Capacity <= 0 {
		return nil, fmt.Errorf("roda: direct index %q: capacity must be > 0, got %d", opts.Name, opts.Capacity)
	}

	bucketCount := nextPow2(int(float64(opts.Capacity)/0.7) + 1)

	buckets, err := NewSlotStore[directBucket[K, V]](eng, SlotStoreOptions{
		Name:  opts.Name,
		Count: bucketCount,
		Lock:  opts.Lock,
	})
	if err != nil {
		return nil, err
	}

	hash := opts.Hash
	if hash == nil {
		hash = hashBitIdentity[K]
	}

	return &DirectIndex[K, V]{
		name:        opts.Name,
		buckets:     buckets,
		bucketCount: bucketCount,
		reader:      source.Reader(),
		hash:        hash,
	}, nil
}

// Compute drains newly published items from the index's internal reader
// of the source journal, extracting each one's key with keyOf and
// upserting key → sequence number. It is intended to be called from
// within a worker after that worker's own reader of the same journal has
// advanced — DirectIndex never races ahead of what is published,
// since it reads through the same acquire-ordered write index.
func (d *DirectIndex[K, V]) Compute(keyOf func(V) K) {
	for d.reader.TryAdvance() {
		item, ok := d.reader.Get()
		if !ok {
			continue
		}
		key := keyOf(*item)
		seq := d.reader.Cursor() - 1
		d.upsert(key, seq)
		d.lastCursor.StoreRelease(seq + 1)
	}
}

// upsert writes key → seq into the bucket array via linear probing,
// updating an existing entry for key if present or claiming the first
// empty slot otherwise. Compute is the index's single writer, so no
// additional coordination is needed here beyond the seqlock already
// provided by SlotStore.
func (d *DirectIndex[K, V]) upsert(key K, seq uint64) {
	start := int(d.hash(key) % uint64(d.bucketCount))
	for i := 0; i < d.bucketCount; i++ {
		idx := (start + i) % d.bucketCount
		b, _ := d.buckets.Get(idx)
		if !b.occupied || b.key == key {
			_ = d.buckets.Set(idx, &directBucket[K, V]{key: key, cursor: seq, occupied: true})
			return
		}
	}
}

// Lookup probes the bucket array for key and returns the cursor it last
// resolved to. It reports false if key has never been indexed.
func (d *DirectIndex[K, V]) Lookup(key K) (uint64, bool) {
	start := int(d.hash(key) % uint64(d.bucketCount))
	for i := 0; i < d.bucketCount; i++ {
		idx := (start + i) % d.bucketCount
		b, _ := d.buckets.Get(idx)
		if !b.occupied {
			return 0, false
		}
		if b.key == key {
			return b.cursor, true
		}
	}
	return 0, false
}

// LastCursor returns the source-journal sequence number up to which
// Compute has incorporated every item: the index never points at an
// element that is not yet published.
func (d *DirectIndex[K, V]) LastCursor() uint64 {
	return d.lastCursor.LoadAcquire()
}

// Close unmaps the index's bucket store.
func (d *DirectIndex[K, V]) Close() error {
	return d.buckets.Close()
}

// hashBitIdentity is the default DirectIndex hash: an FNV-1a64 over K's
// raw in-memory bytes.
func hashBitIdentity[K comparable](key K) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211

	size := unsafe.Sizeof(key)
	bytes := unsafe.Slice((*byte)(unsafe.Pointer(&key)), size)

	h := uint64(offset64)
	for _, b := range bytes {
		h ^= uint64(b)
		h *= prime64
	}
	return h
}
