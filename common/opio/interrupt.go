package opio

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// DefaultInterruptSignals stop the sync service gracefully.
var DefaultInterruptSignals = []os.Signal{
	os.Interrupt,
	syscall.SIGTERM,
	syscall.SIGQUIT,
}

// BlockOnInterruptContext returns on the first interrupt signal or when ctx is done.
func BlockOnInterruptContext(ctx context.Context, signals ...os.Signal) {
	if len(signals) == 0 {
		signals = DefaultInterruptSignals
	}
	interruptChannel := make(chan os.Signal, 1)
	signal.Notify(interruptChannel, signals...)
	defer signal.Stop(interruptChannel)
	select {
	case <-interruptChannel:
	case <-ctx.Done():
	}
}
