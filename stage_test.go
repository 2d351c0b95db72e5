// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package roda_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.hybscloud.com/roda"
)

func TestStageStepIdleThenWorked(t *testing.T) {
	eng := newTestEngine(t)
	in, err := roda.NewJournal[int](eng, roda.JournalOptions{Name: "in", Capacity: 4})
	require.NoError(t, err)
	out, err := roda.NewJournal[int](eng, roda.JournalOptions{Name: "out", Capacity: 4})
	require.NoError(t, err)

	pipe := roda.Map(roda.NewPipe[int](), func(v int) int { return v * 10 })
	stage := roda.NewStage("double", in.Reader(), pipe, out)

	result, err := stage.Step()
	require.NoError(t, err)
	assert.Equal(t, roda.Idle, result)

	require.NoError(t, in.Append(intPtr(3)))
	result, err = stage.Step()
	require.NoError(t, err)
	assert.Equal(t, roda.Worked, result)

	v, ok := out.Reader().Get()
	// Get without TryAdvance returns nothing on a fresh reader; use TryReceive instead.
	assert.False(t, ok)
	assert.Nil(t, v)

	r := out.Reader()
	item, err := r.TryReceive()
	require.NoError(t, err)
	assert.Equal(t, 30, *item)
}

func TestStageStepDropsFilteredItems(t *testing.T) {
	eng := newTestEngine(t)
	in, err := roda.NewJournal[int](eng, roda.JournalOptions{Name: "in", Capacity: 4})
	require.NoError(t, err)
	out, err := roda.NewJournal[int](eng, roda.JournalOptions{Name: "out", Capacity: 4})
	require.NoError(t, err)

	pipe := roda.Filter(roda.NewPipe[int](), func(v int) bool { return v%2 == 0 })
	stage := roda.NewStage("evens", in.Reader(), pipe, out)

	require.NoError(t, in.Append(intPtr(3)))
	result, err := stage.Step()
	require.NoError(t, err)
	assert.Equal(t, roda.Worked, result)
	assert.Equal(t, uint64(0), out.Len())

	require.NoError(t, in.Append(intPtr(4)))
	_, err = stage.Step()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), out.Len())
}

func TestStageStepSurfacesCapacityExceeded(t *testing.T) {
	eng := newTestEngine(t)
	in, err := roda.NewJournal[int](eng, roda.JournalOptions{Name: "in", Capacity: 4})
	require.NoError(t, err)
	out, err := roda.NewJournal[int](eng, roda.JournalOptions{Name: "out", Capacity: 1})
	require.NoError(t, err)

	stage := roda.NewStage("passthrough", in.Reader(), roda.NewPipe[int](), out)

	require.NoError(t, in.Append(intPtr(1)))
	_, err = stage.Step()
	require.NoError(t, err)

	require.NoError(t, in.Append(intPtr(2)))
	_, err = stage.Step()
	require.ErrorIs(t, err, roda.ErrCapacityExceeded)
}

func TestStageStartsRunning(t *testing.T) {
	eng := newTestEngine(t)
	in, err := roda.NewJournal[int](eng, roda.JournalOptions{Name: "in", Capacity: 4})
	require.NoError(t, err)
	out, err := roda.NewJournal[int](eng, roda.JournalOptions{Name: "out", Capacity: 4})
	require.NoError(t, err)

	stage := roda.NewStage("s", in.Reader(), roda.NewPipe[int](), out)
	assert.Equal(t, roda.Running, stage.State())
}

func intPtr(v int) *int { return &v }
