package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDoSucceedsAfterRetries(t *testing.T) {
	attempts := 0
	res, err := Do(context.Background(), 3, &FixedStrategy{Dur: time.Millisecond}, func() (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, res)
	require.Equal(t, 3, attempts)
}

func TestDoFailsPermanently(t *testing.T) {
	cause := errors.New("db down")
	_, err := Do(context.Background(), 2, &FixedStrategy{Dur: time.Millisecond}, func() (any, error) {
		return nil, cause
	})
	var permanent *ErrFailedPermanently
	require.ErrorAs(t, err, &permanent)
	require.ErrorIs(t, err, cause)
}

func TestDoStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Do(ctx, 5, &FixedStrategy{Dur: time.Second}, func() (any, error) {
		return nil, errors.New("never reached")
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestExponentialStrategyCapsAtMax(t *testing.T) {
	s := &ExponentialStrategy{Min: 100 * time.Millisecond, Max: 3 * time.Second}
	require.Equal(t, 100*time.Millisecond+time.Second, s.Duration(0))
	require.Equal(t, 3*time.Second, s.Duration(10))
}
