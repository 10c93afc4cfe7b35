package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbckr/mailcheck/internal/testutil"
	"github.com/tbckr/mailcheck/internal/worker"
)

// recordingSleep counts pacing sleeps without waiting.
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func TestProcess_AllIndicesInOrder(t *testing.T) {
	rec := &recordingSleep{}
	pool := worker.NewPool(5, 100*time.Millisecond, testutil.NopLogger(), worker.WithSleep(rec.sleep))

	out := make([]int, 12)
	err := pool.Process(context.Background(), len(out), func(_ context.Context, i int) error {
		out[i] = i * i
		return nil
	})
	require.NoError(t, err)

	for i, v := range out {
		assert.Equal(t, i*i, v)
	}
	// 12 jobs in chunks of 5 -> 3 chunks -> 2 pauses, none after the last chunk.
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 100 * time.Millisecond}, rec.delays)
}

func TestProcess_ChunkConcurrencyBounded(t *testing.T) {
	pool := worker.NewPool(3, 0, testutil.NopLogger())

	var inFlight, peak atomic.Int64
	err := pool.Process(context.Background(), 10, func(_ context.Context, _ int) error {
		cur := inFlight.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int64(3))
}

func TestProcess_ChunkBarrier(t *testing.T) {
	pool := worker.NewPool(2, 0, testutil.NopLogger())

	var mu sync.Mutex
	var finished []int
	err := pool.Process(context.Background(), 4, func(_ context.Context, i int) error {
		if i == 0 {
			time.Sleep(20 * time.Millisecond)
		}
		mu.Lock()
		finished = append(finished, i)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	require.Len(t, finished, 4)
	assert.ElementsMatch(t, []int{0, 1}, finished[:2], "second chunk must not start before the first finishes")
	assert.ElementsMatch(t, []int{2, 3}, finished[2:])
}

func TestProcess_SingleChunkNoDelay(t *testing.T) {
	rec := &recordingSleep{}
	pool := worker.NewPool(5, time.Second, testutil.NopLogger(), worker.WithSleep(rec.sleep))

	require.NoError(t, pool.Process(context.Background(), 5, func(context.Context, int) error { return nil }))
	assert.Empty(t, rec.delays)
}

func TestProcess_Empty(t *testing.T) {
	pool := worker.NewPool(5, time.Second, testutil.NopLogger())
	called := false
	require.NoError(t, pool.Process(context.Background(), 0, func(context.Context, int) error {
		called = true
		return nil
	}))
	assert.False(t, called)
}

func TestProcess_CancelStopsBeforeNextChunk(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := worker.NewPool(2, 0, testutil.NopLogger())

	var calls atomic.Int64
	err := pool.Process(ctx, 6, func(_ context.Context, _ int) error {
		if calls.Add(1) == 2 {
			cancel()
		}
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(2), calls.Load())
}

func TestProcess_JobErrorStopsPool(t *testing.T) {
	pool := worker.NewPool(3, time.Hour, testutil.NopLogger())
	errBroken := errors.New("resolver unreachable")

	var calls atomic.Int64
	var siblingsCancelled atomic.Int64
	err := pool.Process(context.Background(), 9, func(ctx context.Context, i int) error {
		calls.Add(1)
		if i == 1 {
			return errBroken
		}
		select {
		case <-ctx.Done():
			siblingsCancelled.Add(1)
		case <-time.After(time.Second):
		}
		return nil
	})
	require.ErrorIs(t, err, errBroken)
	assert.Equal(t, int64(3), calls.Load(), "no chunk after the failing one may start")
	assert.Equal(t, int64(2), siblingsCancelled.Load())
}

func TestNewPool_Defaults(t *testing.T) {
	assert.Equal(t, worker.DefaultSize, worker.NewPool(0, 0, testutil.NopLogger()).Size())
	assert.Equal(t, 7, worker.NewPool(7, -1, testutil.NopLogger()).Size())
}
