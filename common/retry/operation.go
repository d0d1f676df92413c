package retry

import (
	"context"
	"fmt"
	"time"
)

// ErrFailedPermanently is returned by Do when every attempt failed.
type ErrFailedPermanently struct {
	attempts int
	LastErr  error
}

func (e *ErrFailedPermanently) Error() string {
	return fmt.Sprintf("operation failed permanently after %d attempts: %v", e.attempts, e.LastErr)
}

func (e *ErrFailedPermanently) Unwrap() error {
	return e.LastErr
}

// Do retries op up to maxAttempts times, sleeping according to strategy between
// attempts. It stops early when ctx is done.
func Do[T any](ctx context.Context, maxAttempts int, strategy Strategy, op func() (T, error)) (T, error) {
	var empty, ret T
	var err error
	if maxAttempts < 1 {
		return empty, fmt.Errorf("need at least 1 attempt to run op, but have %d max attempts", maxAttempts)
	}

	for i := 0; i < maxAttempts; i++ {
		if ctx.Err() != nil {
			return empty, ctx.Err()
		}
		ret, err = op()
		if err == nil {
			return ret, nil
		}
		if i != maxAttempts-1 {
			select {
			case <-ctx.Done():
				return empty, ctx.Err()
			case <-time.After(strategy.Duration(i)):
			}
		}
	}
	return empty, &ErrFailedPermanently{attempts: maxAttempts, LastErr: err}
}
