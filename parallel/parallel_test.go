package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForEachRangeVisitsEveryIndex(t *testing.T) {
	const n = 257
	var seen [n]int32
	ForEachRange(n, func(i int) {
		atomic.AddInt32(&seen[i], 1)
	})
	for i, v := range seen {
		assert.Equal(t, int32(1), v, "index %d", i)
	}
}

func TestForEachRangeZeroAndOne(t *testing.T) {
	calls := 0
	ForEachRange(0, func(int) { calls++ })
	assert.Equal(t, 0, calls)

	ForEachRange(1, func(i int) { calls++; assert.Equal(t, 0, i) })
	assert.Equal(t, 1, calls)
}
