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

func TestSlotStoreSetGet(t *testing.T) {
	eng := newTestEngine(t)
	s, err := roda.NewSlotStore[int64](eng, roda.SlotStoreOptions{Name: "s", Count: 4})
	require.NoError(t, err)

	var v int64 = 7
	require.NoError(t, s.Set(0, &v))
	got, ok := s.Get(0)
	require.True(t, ok)
	assert.Equal(t, int64(7), got)
}

func TestSlotStoreOutOfRange(t *testing.T) {
	eng := newTestEngine(t)
	s, err := roda.NewSlotStore[int64](eng, roda.SlotStoreOptions{Name: "s", Count: 2})
	require.NoError(t, err)

	_, ok := s.Get(5)
	assert.False(t, ok)

	var v int64 = 1
	assert.Error(t, s.Set(-1, &v))
	assert.Error(t, s.Set(2, &v))
}

// TestSlotStoreConcurrentObservers checks that with one writer storing
// 0..1_000_000 into slot 0 while two readers hammer Get concurrently,
// every value each reader observes must have actually been written.
func TestSlotStoreConcurrentObservers(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping stress test in short mode")
	}
	eng := newTestEngine(t)
	s, err := roda.NewSlotStore[int64](eng, roda.SlotStoreOptions{Name: "s", Count: 1})
	require.NoError(t, err)

	n := 1_000_000
	if roda.RaceEnabled {
		// The race detector's instrumentation makes a million-iteration
		// spin loop too slow to be worth running twice per test target.
		n = 10_000
	}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := int64(0); i <= int64(n); i++ {
			_ = s.Set(0, &i)
		}
	}()

	observe := func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			v, ok := s.Get(0)
			require.True(t, ok)
			require.GreaterOrEqual(t, v, int64(0))
			require.LessOrEqual(t, v, int64(n))
		}
	}
	wg.Add(2)
	go observe()
	go observe()
	wg.Wait()
}
