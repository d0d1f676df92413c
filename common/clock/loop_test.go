package clock

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoopFn(t *testing.T) {
	clock := NewDeterministicClock(time.Unix(1000, 0))
	var calls atomic.Int32
	closed := make(chan struct{})

	loop := NewLoopFn(clock, func(ctx context.Context) {
		calls.Add(1)
	}, func() error {
		close(closed)
		return nil
	}, time.Second)

	require.True(t, clock.WaitForNewPendingTaskWithTimeout(time.Second))
	clock.AdvanceTime(time.Second)
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, loop.Close())
	select {
	case <-closed:
	default:
		t.Fatal("onClose was not called")
	}
}
