package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/JokingLove/whale-alert-sync/common/clock"
	"github.com/JokingLove/whale-alert-sync/common/tasks"
)

// WhaleSync runs a polling cycle every interval until closed.
type WhaleSync struct {
	poller   *Poller
	interval time.Duration
	clock    clock.Clock

	worker         *clock.LoopFn
	resourceCtx    context.Context
	resourceCancel context.CancelFunc
	tasks          tasks.Group

	lastSummary atomic.Pointer[CycleSummary]
}

func NewWhaleSync(poller *Poller, interval time.Duration, clk clock.Clock, shutdown context.CancelCauseFunc) *WhaleSync {
	resCtx, resCancel := context.WithCancel(context.Background())
	return &WhaleSync{
		poller:         poller,
		interval:       interval,
		clock:          clk,
		resourceCtx:    resCtx,
		resourceCancel: resCancel,
		tasks: tasks.Group{
			HandleCrit: func(err error) {
				shutdown(fmt.Errorf("critical error in whale sync: %w", err))
			},
		},
	}
}

// Start runs the first cycle right away, then one per interval.
func (ws *WhaleSync) Start() error {
	if ws.worker != nil {
		return errors.New("whale sync is already started")
	}
	log.Info("start whale sync", "interval", ws.interval)
	ws.tasks.Go(func() error {
		ws.tick(ws.resourceCtx)
		return nil
	})
	ws.worker = clock.NewLoopFn(ws.clock, ws.tick, func() error {
		log.Info("shutting down whale sync loop")
		return nil
	}, ws.interval)
	return nil
}

func (ws *WhaleSync) Close() error {
	ws.resourceCancel()
	var result error
	if ws.worker != nil {
		result = errors.Join(result, ws.worker.Close())
	}
	if err := ws.tasks.Wait(); err != nil {
		result = errors.Join(result, fmt.Errorf("failed to await whale sync tasks: %w", err))
	}
	return result
}

// LastSummary is the outcome of the most recent cycle that ran, nil before the first.
func (ws *WhaleSync) LastSummary() *CycleSummary {
	return ws.lastSummary.Load()
}

func (ws *WhaleSync) tick(ctx context.Context) {
	summary, err := ws.poller.RunCycle(ctx)
	if errors.Is(err, ErrCycleInProgress) {
		return
	}
	if err != nil {
		log.Error("polling cycle failed", "err", err)
	}
	ws.lastSummary.Store(&summary)
}
