package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDeterministicClockTime(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := NewDeterministicClock(start)
	require.Equal(t, start, clock.Now())

	clock.AdvanceTime(5 * time.Minute)
	require.Equal(t, start.Add(5*time.Minute), clock.Now())
	require.Equal(t, 5*time.Minute, clock.Since(start))

	// SetTime may go backwards; checkpoint tests rely on it
	clock.SetTime(start.Add(-time.Hour))
	require.Equal(t, start.Add(-time.Hour), clock.Now())
}

func TestDeterministicTickerFiresPerPeriod(t *testing.T) {
	clock := NewDeterministicClock(time.Unix(0, 0))
	ticker := clock.NewTicker(time.Minute)
	defer ticker.Stop()

	clock.AdvanceTime(30 * time.Second)
	select {
	case <-ticker.Ch():
		t.Fatal("ticker fired before its period")
	default:
	}

	clock.AdvanceTime(30 * time.Second)
	select {
	case now := <-ticker.Ch():
		require.Equal(t, time.Unix(60, 0), now)
	default:
		t.Fatal("ticker did not fire")
	}
}
