package cliapp

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/JokingLove/whale-alert-sync/common/opio"
)

// Lifecycle represents a long-running service that can be started and stopped.
type Lifecycle interface {
	// Start starts the service. It must not block on the work it schedules.
	Start(ctx context.Context) error
	// Stop stops the service. The ctx bounds how long a graceful stop may take.
	Stop(ctx context.Context) error
	// Stopped reports whether the service stopped, possibly on its own.
	Stopped() bool
}

// LifecycleAction instantiates a Lifecycle from the CLI context. The shutdown
// function may be called by the service to request a shutdown with a cause.
type LifecycleAction func(ctx *cli.Context, shutdown context.CancelCauseFunc) (Lifecycle, error)

var interruptErr = errors.New("interrupt signal")

// LifecycleCmd turns a LifecycleAction into a cli action that runs until an
// interrupt arrives or the service requests shutdown.
func LifecycleCmd(fn LifecycleAction) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		hostCtx := ctx.Context
		appCtx, appCancel := context.WithCancelCause(hostCtx)
		ctx.Context = appCtx

		go func() {
			opio.BlockOnInterruptContext(appCtx)
			appCancel(interruptErr)
		}()

		appLifecycle, err := fn(ctx, appCancel)
		if err != nil {
			return errors.Join(
				fmt.Errorf("failed to setup: %w", err),
				context.Cause(appCtx),
			)
		}

		if err := appLifecycle.Start(appCtx); err != nil {
			return errors.Join(
				fmt.Errorf("failed to start: %w", err),
				context.Cause(appCtx),
			)
		}

		<-appCtx.Done()
		log.Info("shutting down", "cause", context.Cause(appCtx))

		stopCtx, stopCancel := context.WithCancel(hostCtx)
		go func() {
			opio.BlockOnInterruptContext(stopCtx)
			if stopCtx.Err() == nil {
				log.Warn("second interrupt received, forcing shutdown")
				stopCancel()
			}
		}()
		defer stopCancel()

		if err := appLifecycle.Stop(stopCtx); err != nil {
			return fmt.Errorf("failed to stop app: %w", err)
		}
		if cause := context.Cause(appCtx); cause != nil && !errors.Is(cause, interruptErr) {
			fmt.Fprintln(os.Stderr, "shutdown cause:", cause)
		}
		return nil
	}
}
