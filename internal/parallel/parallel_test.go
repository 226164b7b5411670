package parallel

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFor(t *testing.T) {
	var counter int64
	n := 1000

	For(n, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, DefaultConfig())

	assert.Equal(t, int64(n), counter)
}

func TestForBatchVisitsEveryCell(t *testing.T) {
	batch, channels := 4, 8
	results := make([][]bool, batch)
	for b := range results {
		results[b] = make([]bool, channels)
	}

	ForBatch(batch, channels, func(b, c int) {
		results[b][c] = true
	}, Config{Enabled: true, NumWorkers: 3, MinChunkSize: 1})

	for b := 0; b < batch; b++ {
		for c := 0; c < channels; c++ {
			assert.True(t, results[b][c], "missing [%d][%d]", b, c)
		}
	}
}

func TestForRangeCoversWithoutOverlap(t *testing.T) {
	var mu sync.Mutex
	seen := make([]int, 103)

	ForRange(len(seen), func(start, end int) {
		mu.Lock()
		defer mu.Unlock()
		for i := start; i < end; i++ {
			seen[i]++
		}
	}, Config{Enabled: true, NumWorkers: 4, MinChunkSize: 5})

	for i, n := range seen {
		require.Equal(t, 1, n, "index %d", i)
	}
}

func TestSequentialRunsInline(t *testing.T) {
	calls := 0
	ForRange(50, func(start, end int) {
		calls++
		assert.Equal(t, 0, start)
		assert.Equal(t, 50, end)
	}, Sequential())
	assert.Equal(t, 1, calls)
}

func TestForEmpty(t *testing.T) {
	For(0, func(_ int) { t.Fatal("must not be called") }, DefaultConfig())
}
