package xid

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceIsStrictlyIncreasingWithinOneMillisecond(t *testing.T) {
	frozen := time.UnixMilli(1_700_000_000_000)
	seq := NewSequence(func() time.Time { return frozen })

	first := seq.Next()
	second := seq.Next()
	third := seq.Next()

	assert.Equal(t, frozen.UnixMilli(), first)
	assert.Equal(t, first+1, second)
	assert.Equal(t, second+1, third)
}

func TestSequenceObserveSkipsLoadedIDs(t *testing.T) {
	seq := NewSequence(func() time.Time { return time.UnixMilli(1000) })
	seq.Observe(5000)
	assert.Equal(t, int64(5001), seq.Next())

	seq.Observe(10)
	assert.Equal(t, int64(5002), seq.Next())
}

func TestSequenceConcurrentCallersNeverCollide(t *testing.T) {
	seq := NewSequence(nil)
	const workers, perWorker = 8, 200

	var mu sync.Mutex
	seen := make(map[int64]struct{}, workers*perWorker)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				id := seq.Next()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, workers*perWorker)
}

func TestNewUsesPrefix(t *testing.T) {
	id := New("confirm")
	assert.True(t, strings.HasPrefix(id, "confirm-"))
	assert.NotEqual(t, id, New("confirm"))
}
