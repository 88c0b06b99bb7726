package scan

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/persona-cli/internal/model"
)

func TestLimiters_BlocksInsteadOfFailing(t *testing.T) {
	l := NewLimiters(20, 1, nil)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Wait(ctx, model.NetworkGitHub))
	}
	// One token up front, then four more at 50ms intervals.
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestLimiters_IndependentPerNetwork(t *testing.T) {
	l := NewLimiters(1, 1, nil)
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, model.NetworkGitHub))

	start := time.Now()
	require.NoError(t, l.Wait(ctx, model.NetworkTwitter))
	require.NoError(t, l.Wait(ctx, model.NetworkLinkedIn))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestLimiters_SlotPastDeadlineIsTimeout(t *testing.T) {
	l := NewLimiters(0.5, 1, nil)
	require.NoError(t, l.Wait(context.Background(), model.NetworkGitHub))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx, model.NetworkGitHub)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestLimiters_ContextCancelled(t *testing.T) {
	l := NewLimiters(0.5, 1, nil)
	require.NoError(t, l.Wait(context.Background(), model.NetworkGitHub))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Wait(ctx, model.NetworkGitHub)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestLimiters_ServesWaitersInArrivalOrder(t *testing.T) {
	l := NewLimiters(10, 10, nil)
	ctx := context.Background()

	const waiters = 25
	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, l.Wait(ctx, model.NetworkLinkedIn))
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}(i)
		// Stagger arrivals so each waiter reserves its token after the previous one.
		time.Sleep(5 * time.Millisecond)
	}
	wg.Wait()

	want := make([]int, waiters)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, order)
}

func TestLimiters_ConcurrentWaitersAllServed(t *testing.T) {
	l := NewLimiters(200, 1, nil)
	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- l.Wait(context.Background(), model.NetworkTwitter)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}
