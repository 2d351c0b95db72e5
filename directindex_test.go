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

type quoteEvent struct {
	Key   int64
	Price int64
}

func TestDirectIndexComputeAndLookup(t *testing.T) {
	eng := newTestEngine(t)
	j, err := roda.NewJournal[quoteEvent](eng, roda.JournalOptions{Name: "quotes", Capacity: 64})
	require.NoError(t, err)

	idx, err := roda.NewDirectIndex[int64, quoteEvent](eng, j, roda.DirectIndexOptions[int64]{Name: "quotes-idx", Capacity: 16})
	require.NoError(t, err)

	require.NoError(t, j.Append(&quoteEvent{Key: 1, Price: 100}))
	require.NoError(t, j.Append(&quoteEvent{Key: 2, Price: 200}))
	require.NoError(t, j.Append(&quoteEvent{Key: 1, Price: 105}))

	keyOf := func(e quoteEvent) int64 { return e.Key }
	idx.Compute(keyOf)

	cursor, ok := idx.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, uint64(2), cursor)

	cursor, ok = idx.Lookup(2)
	require.True(t, ok)
	assert.Equal(t, uint64(1), cursor)

	_, ok = idx.Lookup(3)
	assert.False(t, ok)

	assert.Equal(t, j.Len(), idx.LastCursor())
}

// TestDirectIndexLagTolerance checks that the index never points at an
// element beyond what has actually been published, and every resolved
// cursor's element matches the queried key.
func TestDirectIndexLagTolerance(t *testing.T) {
	eng := newTestEngine(t)
	j, err := roda.NewJournal[quoteEvent](eng, roda.JournalOptions{Name: "quotes", Capacity: 64})
	require.NoError(t, err)

	idx, err := roda.NewDirectIndex[int64, quoteEvent](eng, j, roda.DirectIndexOptions[int64]{Name: "quotes-idx", Capacity: 16})
	require.NoError(t, err)

	reader := j.Reader()
	keyOf := func(e quoteEvent) int64 { return e.Key }

	for i := int64(0); i < 20; i++ {
		require.NoError(t, j.Append(&quoteEvent{Key: i % 3, Price: i}))
		require.True(t, reader.TryAdvance())

		// Index runs at half the cadence of the main reader.
		if i%2 == 0 {
			idx.Compute(keyOf)
		}

		assert.LessOrEqual(t, idx.LastCursor(), j.Len())

		for k := int64(0); k < 3; k++ {
			if cursor, ok := idx.Lookup(k); ok {
				elem, ok := reader.GetAt(cursor)
				require.True(t, ok)
				assert.Equal(t, k, elem.Key)
			}
		}
	}
}
