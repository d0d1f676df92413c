package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JokingLove/whale-alert-sync/database"
)

type feedCall struct {
	blockchain database.Blockchain
	address    string
	start, end time.Time
}

type fakeFeed struct {
	mu        sync.Mutex
	byChain   map[database.Blockchain][]database.WhaleTransaction
	byAddress map[string][]database.WhaleTransaction
	failures  map[database.Blockchain]error
	calls     []feedCall

	// when set, GetTransactions signals entered and waits for release
	entered chan struct{}
	release chan struct{}
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{
		byChain:   map[database.Blockchain][]database.WhaleTransaction{},
		byAddress: map[string][]database.WhaleTransaction{},
		failures:  map[database.Blockchain]error{},
	}
}

func (f *fakeFeed) GetTransactions(ctx context.Context, blockchain database.Blockchain, start, end time.Time, _ decimal.Decimal, _ int) ([]database.WhaleTransaction, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, feedCall{blockchain: blockchain, start: start, end: end})
	if err := f.failures[blockchain]; err != nil {
		return nil, err
	}
	return append([]database.WhaleTransaction(nil), f.byChain[blockchain]...), nil
}

func (f *fakeFeed) GetAddressTransactions(_ context.Context, blockchain database.Blockchain, address string, start, end time.Time, _ int) []database.WhaleTransaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, feedCall{blockchain: blockchain, address: address, start: start, end: end})
	return append([]database.WhaleTransaction{}, f.byAddress[address]...)
}

func (f *fakeFeed) Calls() []feedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]feedCall(nil), f.calls...)
}

type fakeDispatcher struct {
	mu      sync.Mutex
	batches [][]database.WhaleTransaction
	err     error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, txs []database.WhaleTransaction) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.batches = append(d.batches, txs)
	return d.err
}

func (d *fakeDispatcher) Batches() [][]database.WhaleTransaction {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]database.WhaleTransaction(nil), d.batches...)
}

type fakeEmitter struct {
	mu    sync.Mutex
	count int
}

func (e *fakeEmitter) Emit(_ context.Context, txs []database.WhaleTransaction) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.count += len(txs)
	return errors.New("broker down")
}

func feedTx(hash string, blockchain database.Blockchain, usd int64, ts time.Time) database.WhaleTransaction {
	return database.WhaleTransaction{
		Hash:            hash,
		Blockchain:      blockchain,
		Symbol:          "btc",
		Amount:          decimal.NewFromInt(42),
		AmountUsd:       decimal.NewFromInt(usd),
		FromOwner:       "binance",
		TransactionType: database.TxTypeTransfer,
		Timestamp:       ts,
	}
}
