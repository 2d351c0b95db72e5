// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package roda

// pad is cache-line padding used to isolate a hot atomic field from its
// neighbors and prevent false sharing. journalHeader uses it to give
// write_index a cache line to itself.
type pad [64]byte

// padShort pads out the remainder of a cache line after an 8-byte field.
// slot[T] uses it to keep neighboring slots from false-sharing a line.
type padShort [64 - 8]byte

// cacheLineSize is the assumed cache line size used throughout the header
// and slot layouts in journal.go and slotstore.go.
const cacheLineSize = 64

// roundUpToCacheLine rounds n up to the next multiple of cacheLineSize.
// NewJournal and NewSlotStore use it to keep a region's total mapped size
// a whole number of cache lines.
func roundUpToCacheLine(n int) int {
	return (n + cacheLineSize - 1) &^ (cacheLineSize - 1)
}

// nextPow2 returns the smallest power of two >= n, with a minimum of 1.
func nextPow2(n int) int {
	if n < 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
