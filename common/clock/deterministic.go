package clock

import (
	"context"
	"sync"
	"time"
)

type action interface {
	// return true if the action is due to fire
	isDue(time.Time) bool

	// fire triggers the action. Returns true if the action needs to fire again in the future
	fire(time.Time) bool
}

type ticker struct {
	c       Clock
	ch      chan time.Time
	nextDue time.Time
	period  time.Duration
	stopped bool
	sync.Mutex
}

func (t *ticker) Ch() <-chan time.Time {
	return t.ch
}

func (t *ticker) Stop() {
	t.Lock()
	defer t.Unlock()
	t.stopped = true
}

func (t *ticker) Reset(d time.Duration) {
	if d <= 0 {
		panic("Continuously firing tickers are a really bad idea")
	}
	t.Lock()
	defer t.Unlock()
	t.period = d
	t.nextDue = t.c.Now().Add(d)
}

func (t *ticker) isDue(now time.Time) bool {
	t.Lock()
	defer t.Unlock()
	return !t.nextDue.After(now)
}

func (t *ticker) fire(now time.Time) bool {
	t.Lock()
	defer t.Unlock()
	if t.stopped {
		return false
	}

	// publish without blocking and only update due time if we publish successfully
	select {
	case t.ch <- now:
		t.nextDue = now.Add(t.period)
	default:

	}

	return true
}

type DeterministicClock struct {
	now          time.Time
	pending      []action
	newPendingCh chan struct{}
	lock         sync.Mutex
}

func NewDeterministicClock(now time.Time) *DeterministicClock {
	return &DeterministicClock{
		now:          now,
		newPendingCh: make(chan struct{}, 1),
	}
}

func (d *DeterministicClock) Now() time.Time {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.now
}

func (d *DeterministicClock) Since(t time.Time) time.Duration {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.now.Sub(t)
}

func (d *DeterministicClock) NewTicker(dur time.Duration) Ticker {
	if dur <= 0 {
		panic("Continuously firing tickers are a really bad idea")
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	ch := make(chan time.Time, 1)
	t := &ticker{
		c:       d,
		ch:      ch,
		nextDue: d.now.Add(dur),
		period:  dur,
	}
	d.addPending(t)
	return t
}

func (d *DeterministicClock) addPending(t action) {
	d.pending = append(d.pending, t)
	select {
	case d.newPendingCh <- struct{}{}:
	default:
		// Must already have a new pending task flagged, do nothing
	}
}

func (s *DeterministicClock) WaitForNewPendingTaskWithTimeout(timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.WaitForNewPendingTask(ctx)
}

func (s *DeterministicClock) WaitForNewPendingTask(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-s.newPendingCh:
		return true
	}
}

// AdvanceTime moves the clock forward and fires every pending action that became due.
func (s *DeterministicClock) AdvanceTime(d time.Duration) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.now = s.now.Add(d)
	var remaining []action
	for _, a := range s.pending {
		if !a.isDue(s.now) || a.fire(s.now) {
			remaining = append(remaining, a)
		}
	}
	s.pending = remaining
}

// SetTime jumps the clock to now without firing pending actions. Used by tests that
// only care about wall-clock readings, e.g. quiet hours.
func (s *DeterministicClock) SetTime(now time.Time) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.now = now
}

var _ Clock = (*DeterministicClock)(nil)
