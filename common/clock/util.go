package clock

import "time"

// WindowBounds returns the next feed window [start, end) ending at clock.Now().
// A zero last checkpoint starts lookback ago; a start older than maxWindow is
// clamped so the window never grows unbounded. A checkpoint ahead of the
// clock yields an empty window.
func WindowBounds(clock RWClock, last time.Time, lookback, maxWindow time.Duration) (start, end time.Time, clamped bool) {
	end = clock.Now()
	if last.IsZero() {
		return end.Add(-lookback), end, false
	}
	if last.After(end) {
		return end, end, false
	}
	if maxWindow > 0 && end.Sub(last) > maxWindow {
		return end.Add(-maxWindow), end, true
	}
	return last, end, false
}
