// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package roda

// RaceEnabled is true when the race detector is active.
// Used by tests to skip or shorten timing-sensitive concurrent tests that
// would otherwise run too slowly, or trigger false positives, under -race.
const RaceEnabled = true
