package barrier

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaderOnceNoGroup(t *testing.T) {
	var calls int
	err := LeaderOnce(context.Background(), -1, nil, func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "rank -1 runs the work inline")
}

func TestLeaderOnceRunsWorkExactlyOnce(t *testing.T) {
	for _, size := range []int{1, 2, 4, 8} {
		size := size
		t.Run("", func(t *testing.T) {
			g := NewLocalGroup(size)
			var calls atomic.Int32

			var wg sync.WaitGroup
			errs := make([]error, size)
			for rank := 0; rank < size; rank++ {
				wg.Add(1)
				go func(rank int) {
					defer wg.Done()
					errs[rank] = LeaderOnce(context.Background(), rank, g, func(context.Context) error {
						calls.Add(1)
						return nil
					})
				}(rank)
			}
			wg.Wait()

			for rank, err := range errs {
				assert.NoError(t, err, "rank %d", rank)
			}
			assert.Equal(t, int32(1), calls.Load(), "guarded work must run exactly once")
		})
	}
}

func TestLeaderOnceFollowersSeeCompletedWork(t *testing.T) {
	const size = 4
	g := NewLocalGroup(size)

	// The guarded resource: followers must never observe it half-built.
	var state atomic.Int64

	var wg sync.WaitGroup
	observed := make([]int64, size)
	for rank := 0; rank < size; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			err := LeaderOnce(context.Background(), rank, g, func(context.Context) error {
				time.Sleep(20 * time.Millisecond) // make partial observation likely
				state.Store(42)
				return nil
			})
			require.NoError(t, err)
			observed[rank] = state.Load()
		}(rank)
	}
	wg.Wait()

	for rank, v := range observed {
		assert.Equal(t, int64(42), v, "rank %d observed partial state", rank)
	}
}

func TestLeaderOnceAbortPropagatesToFollowers(t *testing.T) {
	const size = 3
	g := NewLocalGroup(size)
	boom := errors.New("index build failed")

	var wg sync.WaitGroup
	errs := make([]error, size)
	for rank := 0; rank < size; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			errs[rank] = LeaderOnce(context.Background(), rank, g, func(context.Context) error {
				return boom
			})
		}(rank)
	}
	wg.Wait()

	assert.ErrorIs(t, errs[0], boom)
	for rank := 1; rank < size; rank++ {
		var le *LeaderError
		require.ErrorAs(t, errs[rank], &le, "rank %d", rank)
		assert.ErrorIs(t, le.Err, boom)
	}
}

func TestBarrierReusableAcrossRounds(t *testing.T) {
	const size = 3
	const rounds = 5
	g := NewLocalGroup(size)

	var wg sync.WaitGroup
	for i := 0; i < size; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				if err := g.Barrier(context.Background()); err != nil {
					t.Errorf("Barrier: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestBarrierContextCancellation(t *testing.T) {
	g := NewLocalGroup(2)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// Only one of two participants arrives; the wait must end with the
	// context, not hang.
	err := g.Barrier(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The withdrawn participant no longer counts: a fresh pair completes.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, g.Barrier(context.Background()))
		}()
	}
	wg.Wait()
}

func TestAbortWakesWaiters(t *testing.T) {
	g := NewLocalGroup(2)
	boom := errors.New("gone")

	done := make(chan error, 1)
	go func() {
		done <- g.Barrier(context.Background())
	}()

	time.Sleep(10 * time.Millisecond)
	g.Abort(boom)

	select {
	case err := <-done:
		var le *LeaderError
		require.ErrorAs(t, err, &le)
		assert.ErrorIs(t, le.Err, boom)
	case <-time.After(time.Second):
		t.Fatal("waiter was not released by Abort")
	}

	// Aborted groups fail fast afterwards.
	assert.Error(t, g.Barrier(context.Background()))
}

func TestNewLocalGroupClampsSize(t *testing.T) {
	g := NewLocalGroup(0)
	assert.Equal(t, 1, g.Size())
	assert.NoError(t, g.Barrier(context.Background()))
}
