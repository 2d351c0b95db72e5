// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package roda_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.hybscloud.com/roda"
)

type tick struct {
	Sym   int64
	Price int64
	TS    int64
}

func newTestEngine(t *testing.T) *roda.Engine {
	t.Helper()
	eng := roda.New(t.Name()).Build()
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func TestJournalAppendAndReaderAdvance(t *testing.T) {
	eng := newTestEngine(t)
	j, err := roda.NewJournal[tick](eng, roda.JournalOptions{Name: "ticks", Capacity: 8})
	require.NoError(t, err)

	for i := int64(0); i < 4; i++ {
		require.NoError(t, j.Append(&tick{Sym: 1, Price: 10 + i, TS: i}))
	}
	assert.Equal(t, uint64(4), j.Len())

	r := j.Reader()
	for i := int64(0); i < 4; i++ {
		require.True(t, r.TryAdvance())
		item, ok := r.Get()
		require.True(t, ok)
		assert.Equal(t, 10+i, item.Price)
		assert.Equal(t, uint64(i+1), r.Cursor())
	}
	assert.False(t, r.TryAdvance())
}

func TestJournalCapacityExceeded(t *testing.T) {
	eng := newTestEngine(t)
	j, err := roda.NewJournal[tick](eng, roda.JournalOptions{Name: "small", Capacity: 4})
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		require.NoError(t, j.Append(&tick{Sym: 1}))
	}
	err = j.Append(&tick{Sym: 1})
	require.ErrorIs(t, err, roda.ErrCapacityExceeded)
	assert.Equal(t, uint64(4), j.Len())
}

func TestJournalSendMapsFullnessToWouldBlock(t *testing.T) {
	eng := newTestEngine(t)
	j, err := roda.NewJournal[tick](eng, roda.JournalOptions{Name: "small", Capacity: 1})
	require.NoError(t, err)

	require.NoError(t, j.Send(&tick{Sym: 1}))
	err = j.Send(&tick{Sym: 1})
	require.ErrorIs(t, err, roda.ErrWouldBlock)
	assert.True(t, roda.IsWouldBlock(err))
}

func TestJournalReaderTryReceive(t *testing.T) {
	eng := newTestEngine(t)
	j, err := roda.NewJournal[tick](eng, roda.JournalOptions{Name: "ticks", Capacity: 2})
	require.NoError(t, err)

	r := j.Reader()
	_, err = r.TryReceive()
	require.ErrorIs(t, err, roda.ErrWouldBlock)

	require.NoError(t, j.Append(&tick{Sym: 42}))
	item, err := r.TryReceive()
	require.NoError(t, err)
	assert.Equal(t, int64(42), item.Sym)
}

func TestJournalGetAtGetLastGetWindow(t *testing.T) {
	eng := newTestEngine(t)
	j, err := roda.NewJournal[tick](eng, roda.JournalOptions{Name: "ticks", Capacity: 8})
	require.NoError(t, err)

	for i := int64(0); i < 5; i++ {
		require.NoError(t, j.Append(&tick{Sym: i}))
	}
	r := j.Reader()

	at, ok := r.GetAt(2)
	require.True(t, ok)
	assert.Equal(t, int64(2), at.Sym)

	_, ok = r.GetAt(10)
	assert.False(t, ok)

	last, ok := r.GetLast()
	require.True(t, ok)
	assert.Equal(t, int64(4), last.Sym)

	window, ok := r.GetWindow(4, 3)
	require.True(t, ok)
	require.Len(t, window, 3)
	assert.Equal(t, []int64{2, 3, 4}, []int64{window[0].Sym, window[1].Sym, window[2].Sym})

	_, ok = r.GetWindow(1, 3)
	assert.False(t, ok)
}

func TestJournalMultipleIndependentReaders(t *testing.T) {
	eng := newTestEngine(t)
	j, err := roda.NewJournal[tick](eng, roda.JournalOptions{Name: "ticks", Capacity: 16})
	require.NoError(t, err)

	for i := int64(0); i < 6; i++ {
		require.NoError(t, j.Append(&tick{Sym: i}))
	}

	var wg sync.WaitGroup
	results := make([][]int64, 3)
	for k := 0; k < 3; k++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			r := j.Reader()
			var seen []int64
			for r.TryAdvance() {
				item, _ := r.Get()
				seen = append(seen, item.Sym)
			}
			results[idx] = seen
		}(k)
	}
	wg.Wait()

	for _, seen := range results {
		assert.Equal(t, []int64{0, 1, 2, 3, 4, 5}, seen)
	}
}
