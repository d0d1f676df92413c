package clock

import "time"

// RWClock reads wall-clock time. Window and quiet-hour computations need nothing more.
type RWClock interface {
	Now() time.Time
}

// Clock is the time source of the polling loop. SystemClock in production,
// DeterministicClock in tests.
type Clock interface {
	RWClock

	Since(t time.Time) time.Duration

	NewTicker(d time.Duration) Ticker
}

type Ticker interface {
	Ch() <-chan time.Time
	Stop()
	Reset(d time.Duration)
}

var SystemClock Clock = systemClock{}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

type systemTicker struct {
	*time.Ticker
}

func (t systemTicker) Ch() <-chan time.Time {
	return t.C
}

func (systemClock) NewTicker(d time.Duration) Ticker {
	return systemTicker{time.NewTicker(d)}
}
