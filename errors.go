// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package roda

import (
	"errors"
	"fmt"

	"code.hybscloud.com/iox"
)

// ErrCapacityExceeded is returned by [Journal.Append] when the journal has
// already accepted Capacity items. There is no recovery path other than
// sizing the journal correctly; the caller is expected to have a sizing
// bug if this is ever observed in production.
var ErrCapacityExceeded = errors.New("roda: journal capacity exceeded")

// ErrInvalidType is returned at construction time when the element type T
// fails the plain-data check: it must be fixed size, trivially
// copyable, safe to observe under any bit pattern, and free of embedded
// indirections. This is a fatal, construction-time error.
var ErrInvalidType = errors.New("roda: element type is not plain data")

// ErrMappingFailed is returned when the OS refuses to create a
// memory-mapped region. Fatal at construction. A refused memory lock is
// not an error: the region stays mapped, unpinned, and the engine logs a
// warning.
var ErrMappingFailed = errors.New("roda: memory mapping failed")

// ErrShutdownRequested names the cooperative-cancellation error kind. No
// function in this package returns it: a worker that observes shutdown
// drains and returns cleanly, and callers observe drain completion
// through [Engine.Wait].
var ErrShutdownRequested = errors.New("roda: shutdown requested")

// ErrWouldBlock indicates the operation cannot proceed immediately: the
// egress reader on a terminal stage has no item available, or the ingress
// writer's journal is full.
//
// ErrWouldBlock is a control flow signal, not a failure — the caller
// should retry with backoff rather than propagate the error. It is an
// alias for [iox.ErrWouldBlock] for ecosystem consistency, matching the
// convention used throughout code.hybscloud.com libraries.
var ErrWouldBlock = iox.ErrWouldBlock

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal, not a failure.
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// invalidTypeError wraps ErrInvalidType with the offending type name and
// the reason the plain-data check failed.
func invalidTypeError(typeName, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidType, typeName, reason)
}

// mappingFailedError wraps ErrMappingFailed with the region name and the
// underlying OS error.
func mappingFailedError(name string, cause error) error {
	return fmt.Errorf("%w: region %q: %w", ErrMappingFailed, name, cause)
}
