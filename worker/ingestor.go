package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/JokingLove/whale-alert-sync/common/retry"
	"github.com/JokingLove/whale-alert-sync/database"
	"github.com/JokingLove/whale-alert-sync/metrics"
)

var ErrPersistence = errors.New("persistence failure")

// Ingestor stores feed transactions idempotently, keyed by hash.
type Ingestor struct {
	db          *database.DB
	maxAttempts int
	strategy    retry.Strategy
}

func NewIngestor(db *database.DB) *Ingestor {
	return &Ingestor{
		db:          db,
		maxAttempts: 5,
		strategy:    &retry.ExponentialStrategy{Min: 100 * time.Millisecond, Max: 5 * time.Second, MaxJitter: 100 * time.Millisecond},
	}
}

// Ingest inserts txs in one database transaction and returns the subset that
// was not stored before, in input order. Hashes repeated within txs count once.
// Safe to call concurrently: the unique hash key decides who inserts.
func (ing *Ingestor) Ingest(ctx context.Context, txs []database.WhaleTransaction) ([]database.WhaleTransaction, error) {
	if len(txs) == 0 {
		return nil, nil
	}

	inserted, err := retry.Do[[]database.WhaleTransaction](ctx, ing.maxAttempts, ing.strategy, func() ([]database.WhaleTransaction, error) {
		var fresh []database.WhaleTransaction
		err := ing.db.Transaction(func(tx *database.DB) error {
			for i := range txs {
				row := txs[i]
				if row.Hash == "" {
					log.Warn("skipping feed transaction without hash", "blockchain", row.Blockchain, "symbol", row.Symbol)
					continue
				}
				ok, err := tx.WhaleTransactions.StoreWhaleTransaction(&row)
				if err != nil {
					return err
				}
				if ok {
					fresh = append(fresh, row)
				}
			}
			return nil
		})
		if err != nil {
			log.Warn("ingest attempt failed", "transactions", len(txs), "err", err)
			return nil, err
		}
		return fresh, nil
	})
	if err != nil {
		metrics.IngestErrors.Inc()
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	metrics.TransactionsIngested.WithLabelValues("new").Add(float64(len(inserted)))
	metrics.TransactionsIngested.WithLabelValues("duplicate").Add(float64(len(txs) - len(inserted)))
	return inserted, nil
}
