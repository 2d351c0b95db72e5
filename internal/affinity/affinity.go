// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package affinity applies best-effort CPU pinning to the calling OS
// thread. Pinning is optional: absent configuration threads remain
// unpinned, and failure to pin is logged, never fatal.
package affinity

import (
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Pin locks the calling goroutine to its current OS thread and attempts to
// restrict that thread to the given core. Callers must invoke Pin from the
// goroutine that will run the stage's worker loop, having already called
// runtime.LockOSThread indirectly through this function.
//
// Failure is logged at Warn level and otherwise ignored: the worker keeps
// running unpinned.
func Pin(logger *zap.Logger, stageName string, core int) {
	runtime.LockOSThread()

	var set unix.CPUSet
	set.Zero()
	set.Set(core)

	if err := unix.SchedSetaffinity(0, &set); err != nil {
		if logger != nil {
			logger.Warn("cpu affinity pin failed, continuing unpinned",
				zap.String("stage", stageName),
				zap.Int("core", core),
				zap.Error(err),
			)
		}
	}
}
