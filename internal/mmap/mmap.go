// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package mmap provides the memory-mapped region abstraction backing
// Journal and SlotStore storage: anonymous or file-backed creation, a
// best-effort mlock pin, and page-aligned msync.
//
// On-disk layout is not a stable format: the mapping is valid only for
// the lifetime of the creating process.
package mmap

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Region is a single memory-mapped byte region: either anonymous
// (in-memory only) or backed by a path on disk.
type Region struct {
	file   *os.File // nil for anonymous regions
	data   []byte
	locked bool
}

// Options configures the creation of a Region.
type Options struct {
	// Path, if non-empty, backs the region with a file at this path. If
	// empty, the region is anonymous (process-private, never persisted).
	Path string

	// Size is the total region size in bytes, including any header.
	Size int

	// Lock requests the region be pinned in physical memory (mlock),
	// advising the OS not to swap it out. Failure to pin is not fatal —
	// the caller should log it and continue with an ordinary mapping.
	Lock bool
}

// New creates a new memory-mapped region of the requested size, zero
// filled. If opts.Path is set, the backing file is created (or truncated)
// to opts.Size and the mapping is MAP_SHARED so it would be visible to
// another process holding the same file descriptor for the lifetime of
// this process; the file is still not intended for cross-process or
// cross-version reuse.
func New(opts Options) (*Region, error) {
	if opts.Size <= 0 {
		return nil, fmt.Errorf("mmap: size must be > 0, got %d", opts.Size)
	}

	if opts.Path == "" {
		data, err := unix.Mmap(-1, 0, opts.Size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANON)
		if err != nil {
			return nil, fmt.Errorf("mmap: anonymous map failed: %w", err)
		}
		r := &Region{data: data}
		r.tryLock(opts.Lock)
		return r, nil
	}

	f, err := os.OpenFile(opts.Path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("mmap: open %q: %w", opts.Path, err)
	}
	if err := f.Truncate(int64(opts.Size)); err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap: truncate %q: %w", opts.Path, err)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, opts.Size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap: map %q: %w", opts.Path, err)
	}
	r := &Region{file: f, data: data}
	r.tryLock(opts.Lock)
	return r, nil
}

// tryLock attempts unix.Mlock and records whether it succeeded. Failure
// to pin is not fatal; the caller (Journal/SlotStore construction) logs
// it through the engine's telemetry and proceeds with an ordinary
// (swappable) mapping.
func (r *Region) tryLock(requested bool) {
	if !requested {
		return
	}
	r.locked = unix.Mlock(r.data) == nil
}

// Locked reports whether the region was successfully pinned in memory.
func (r *Region) Locked() bool {
	return r.locked
}

// Bytes returns the mapped region as a byte slice. The slice is valid
// until Close is called.
func (r *Region) Bytes() []byte {
	return r.data
}

// Sync flushes the given byte range to the backing file, page-aligning
// the range as required by some platforms. It is a no-op for anonymous
// regions.
func (r *Region) Sync(offset, length int) error {
	if r.file == nil || length <= 0 {
		return nil
	}
	pageSize := unix.Getpagesize()
	alignedStart := (offset / pageSize) * pageSize
	end := offset + length
	alignedEnd := ((end + pageSize - 1) / pageSize) * pageSize
	if alignedEnd > len(r.data) {
		alignedEnd = len(r.data)
	}
	if alignedStart >= alignedEnd {
		return nil
	}
	return unix.Msync(r.data[alignedStart:alignedEnd], unix.MS_ASYNC)
}

// Close flushes a file-backed region's dirty pages, unmaps the region,
// and closes the backing file, if any.
func (r *Region) Close() error {
	if r.data == nil {
		return nil
	}
	var err error
	if r.file != nil {
		err = r.Sync(0, len(r.data))
	}
	if r.locked {
		_ = unix.Munlock(r.data)
	}
	if merr := unix.Munmap(r.data); err == nil {
		err = merr
	}
	r.data = nil
	if r.file != nil {
		if cerr := r.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
