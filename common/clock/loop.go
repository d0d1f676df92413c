package clock

import (
	"context"
	"sync"
	"time"
)

// LoopFn runs fn on every tick of the given clock until Close is called.
type LoopFn struct {
	ctx    context.Context
	cancel context.CancelFunc

	onClose func() error
	wg      sync.WaitGroup
}

// NewLoopFn starts a background loop. fn is invoked once per interval and never
// concurrently with itself; onClose runs after the loop exits.
func NewLoopFn(clock Clock, fn func(ctx context.Context), onClose func() error, interval time.Duration) *LoopFn {
	ctx, cancel := context.WithCancel(context.Background())
	lf := &LoopFn{
		ctx:     ctx,
		cancel:  cancel,
		onClose: onClose,
	}
	lf.wg.Add(1)
	go func() {
		defer lf.wg.Done()
		ticker := clock.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.Ch():
				fn(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
	return lf
}

// Close stops the loop, waits for an in-flight fn to return and then calls onClose.
func (lf *LoopFn) Close() error {
	lf.cancel()
	lf.wg.Wait()
	if lf.onClose != nil {
		return lf.onClose()
	}
	return nil
}
