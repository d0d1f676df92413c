package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/JokingLove/whale-alert-sync/common/address"
	"github.com/JokingLove/whale-alert-sync/common/clock"
	"github.com/JokingLove/whale-alert-sync/common/retry"
	"github.com/JokingLove/whale-alert-sync/config"
	"github.com/JokingLove/whale-alert-sync/database"
	"github.com/JokingLove/whale-alert-sync/metrics"
)

type FeedClient interface {
	GetTransactions(ctx context.Context, blockchain database.Blockchain, start, end time.Time, minValueUsd decimal.Decimal, limit int) ([]database.WhaleTransaction, error)
	GetAddressTransactions(ctx context.Context, blockchain database.Blockchain, address string, start, end time.Time, limit int) []database.WhaleTransaction
}

type Dispatcher interface {
	Dispatch(ctx context.Context, txs []database.WhaleTransaction) error
}

// Emitter publishes newly stored transactions. Failures never fail a cycle.
type Emitter interface {
	Emit(ctx context.Context, txs []database.WhaleTransaction) error
}

type CycleSummary struct {
	Success     bool      `json:"success"`
	Processed   int       `json:"processed"`
	Errors      []string  `json:"errors"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	FinishedAt  time.Time `json:"finished_at"`
}

type Poller struct {
	cfg         config.PollerConfig
	blockchains []database.Blockchain

	db         *database.DB
	feed       FeedClient
	ingestor   *Ingestor
	dispatcher Dispatcher
	emitter    Emitter
	lock       CycleLock
	clock      clock.Clock

	checkpointAttempts int
	checkpointStrategy retry.Strategy
}

// NewPoller wires one polling cycle. emitter may be nil; lock defaults to a LocalLock.
func NewPoller(cfg config.PollerConfig, db *database.DB, feed FeedClient, dispatcher Dispatcher, emitter Emitter, lock CycleLock, clk clock.Clock) (*Poller, error) {
	blockchains := make([]database.Blockchain, 0, len(cfg.Blockchains))
	for _, name := range cfg.Blockchains {
		bc, err := database.ParseBlockchain(name)
		if err != nil {
			return nil, err
		}
		blockchains = append(blockchains, bc)
	}
	if lock == nil {
		lock = NewLocalLock()
	}
	return &Poller{
		cfg:                cfg,
		blockchains:        blockchains,
		db:                 db,
		feed:               feed,
		ingestor:           NewIngestor(db),
		dispatcher:         dispatcher,
		emitter:            emitter,
		lock:               lock,
		clock:              clk,
		checkpointAttempts: 3,
		checkpointStrategy: &retry.FixedStrategy{Dur: 500 * time.Millisecond},
	}, nil
}

// RunCycle fetches the window since the last checkpoint from every configured
// blockchain, stores what is new, notifies subscribers and advances the
// checkpoint. Per blockchain failures are recorded in the summary and do not
// stop the checkpoint; a storage failure does.
func (p *Poller) RunCycle(ctx context.Context) (CycleSummary, error) {
	release, err := p.lock.TryLock(ctx)
	if err != nil {
		if errors.Is(err, ErrCycleInProgress) {
			metrics.CyclesTotal.WithLabelValues("skipped").Inc()
			log.Warn("polling cycle skipped, previous cycle still running")
		}
		return CycleSummary{}, err
	}
	defer release()

	begin := p.clock.Now()
	defer func() {
		metrics.CyclePhase.Set(metrics.PhaseIdle)
		metrics.CycleLatency.Observe(p.clock.Since(begin).Seconds())
	}()

	prev, err := p.db.PollingState.QueryPollingState()
	if err != nil {
		metrics.CyclesTotal.WithLabelValues("failed").Inc()
		return CycleSummary{Errors: []string{err.Error()}}, fmt.Errorf("%w: load polling state: %w", ErrPersistence, err)
	}
	var last time.Time
	if prev != nil {
		last = prev.LastProcessedTimestamp
	}

	start, end, clamped := clock.WindowBounds(p.clock, last, p.cfg.InitialLookback, p.cfg.MaxWindow)
	var errs []string
	if clamped {
		// the gap stays visible in last_error until an operator backfills it
		log.Warn("checkpoint older than max window, skipping ahead", "checkpoint", last, "start", start, "max_window", p.cfg.MaxWindow)
		errs = append(errs, fmt.Sprintf("skipped backlog [%s, %s) older than max window %s",
			last.UTC().Format(time.RFC3339), start.UTC().Format(time.RFC3339), p.cfg.MaxWindow))
	}
	summary := CycleSummary{WindowStart: start, WindowEnd: end}
	log.Info("polling cycle started", "start", start, "end", end, "blockchains", len(p.blockchains))

	metrics.CyclePhase.Set(metrics.PhaseFetching)
	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.CycleTimeout)
	batch, fetchErrs := p.fetch(fetchCtx, start, end)
	cancel()
	errs = append(errs, fetchErrs...)

	metrics.CyclePhase.Set(metrics.PhaseIngesting)
	inserted, err := p.ingestor.Ingest(ctx, batch)
	if err != nil {
		metrics.CyclesTotal.WithLabelValues("failed").Inc()
		log.Error("ingest failed, checkpoint not advanced", "transactions", len(batch), "err", err)
		summary.Errors = append(errs, err.Error())
		summary.FinishedAt = p.clock.Now()
		return summary, err
	}

	if len(inserted) > 0 {
		metrics.CyclePhase.Set(metrics.PhaseDispatching)
		if p.emitter != nil {
			if err := p.emitter.Emit(ctx, inserted); err != nil {
				log.Warn("failed to emit whale events", "count", len(inserted), "err", err)
			}
		}
		if err := p.dispatcher.Dispatch(ctx, inserted); err != nil {
			log.Error("dispatch failed", "err", err)
			errs = append(errs, fmt.Sprintf("dispatch: %v", err))
		}
	}

	metrics.CyclePhase.Set(metrics.PhaseCheckpointing)
	next := database.PollingState{
		LastProcessedTimestamp:     end,
		TransactionsProcessedTotal: int64(len(inserted)),
	}
	if prev != nil {
		next.LastTransactionHash = prev.LastTransactionHash
		next.TransactionsProcessedTotal += prev.TransactionsProcessedTotal
	}
	if len(batch) > 0 {
		hash := batch[len(batch)-1].Hash
		next.LastTransactionHash = &hash
	}
	if len(errs) > 0 {
		joined := strings.Join(errs, "; ")
		next.LastError = &joined
	}

	// the checkpoint is written even when ctx is done, so partial results of
	// a timed out cycle still count
	checkpointCtx := context.WithoutCancel(ctx)
	state, err := retry.Do[*database.PollingState](checkpointCtx, p.checkpointAttempts, p.checkpointStrategy, func() (*database.PollingState, error) {
		return p.db.PollingState.AdvancePollingState(prev, next)
	})
	if err != nil {
		metrics.CyclesTotal.WithLabelValues("failed").Inc()
		log.Error("failed to advance checkpoint", "err", err)
		summary.Processed = len(inserted)
		summary.Errors = append(errs, err.Error())
		summary.FinishedAt = p.clock.Now()
		return summary, fmt.Errorf("%w: advance checkpoint: %w", ErrPersistence, err)
	}
	metrics.CheckpointTimestamp.Set(float64(state.LastProcessedTimestamp.Unix()))

	summary.Success = len(errs) == 0
	summary.Processed = len(inserted)
	summary.Errors = errs
	summary.FinishedAt = p.clock.Now()
	if summary.Success {
		metrics.CyclesTotal.WithLabelValues("success").Inc()
	} else {
		metrics.CyclesTotal.WithLabelValues("partial").Inc()
	}
	log.Info("polling cycle finished",
		"fetched", len(batch),
		"processed", summary.Processed,
		"errors", len(errs),
		"total", state.TransactionsProcessedTotal,
		"duration", p.clock.Since(begin))
	return summary, nil
}

// fetch queries every blockchain and watched address concurrently and waits
// for all of them. Results keep configuration order.
func (p *Poller) fetch(ctx context.Context, start, end time.Time) ([]database.WhaleTransaction, []string) {
	chainResults := make([][]database.WhaleTransaction, len(p.blockchains))
	chainErrs := make([]error, len(p.blockchains))
	addressResults := make([][]database.WhaleTransaction, len(p.cfg.WatchedAddresses))
	addressErrs := make([]error, len(p.cfg.WatchedAddresses))

	var g errgroup.Group
	for i, bc := range p.blockchains {
		g.Go(func() error {
			txs, err := p.feed.GetTransactions(ctx, bc, start, end, p.cfg.MinValueUsd, p.cfg.Limit)
			if err != nil {
				metrics.BlockchainErrors.WithLabelValues(bc.String()).Inc()
				log.Warn("fetch failed", "blockchain", bc, "err", err)
				chainErrs[i] = err
				return nil
			}
			chainResults[i] = txs
			return nil
		})
	}
	for i, addr := range p.cfg.WatchedAddresses {
		bc, err := address.Classify(addr)
		if err != nil {
			addressErrs[i] = err
			continue
		}
		g.Go(func() error {
			addressResults[i] = p.feed.GetAddressTransactions(ctx, bc, addr, start, end, p.cfg.Limit)
			return nil
		})
	}
	_ = g.Wait()

	var batch []database.WhaleTransaction
	var errs []string
	for i, bc := range p.blockchains {
		if chainErrs[i] != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", bc, chainErrs[i]))
			continue
		}
		batch = append(batch, chainResults[i]...)
	}
	for i, addr := range p.cfg.WatchedAddresses {
		if addressErrs[i] != nil {
			errs = append(errs, fmt.Sprintf("address %s: %v", addr, addressErrs[i]))
			continue
		}
		batch = append(batch, addressResults[i]...)
	}
	return batch, errs
}
