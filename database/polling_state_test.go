package database_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JokingLove/whale-alert-sync/database"
	"github.com/JokingLove/whale-alert-sync/database/dbtest"
)

func strPtr(s string) *string { return &s }

func TestPollingStateLifecycle(t *testing.T) {
	db := dbtest.NewSqliteDB(t)

	state, err := db.PollingState.QueryPollingState()
	require.NoError(t, err)
	require.Nil(t, state)

	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	first, err := db.PollingState.AdvancePollingState(nil, database.PollingState{
		LastProcessedTimestamp:     t0,
		LastTransactionHash:        strPtr("h1"),
		TransactionsProcessedTotal: 3,
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, first.Version)

	loaded, err := db.PollingState.QueryPollingState()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.True(t, loaded.LastProcessedTimestamp.Equal(t0))
	require.Equal(t, "h1", *loaded.LastTransactionHash)
	require.EqualValues(t, 3, loaded.TransactionsProcessedTotal)
	require.Nil(t, loaded.LastError)

	second, err := db.PollingState.AdvancePollingState(loaded, database.PollingState{
		LastProcessedTimestamp:     t0.Add(5 * time.Minute),
		LastTransactionHash:        loaded.LastTransactionHash,
		TransactionsProcessedTotal: 5,
		LastError:                  strPtr("ethereum: feed unavailable"),
	})
	require.NoError(t, err)
	require.EqualValues(t, 2, second.Version)

	loaded, err = db.PollingState.QueryPollingState()
	require.NoError(t, err)
	require.True(t, loaded.LastProcessedTimestamp.Equal(t0.Add(5*time.Minute)))
	require.Equal(t, "ethereum: feed unavailable", *loaded.LastError)
}

func TestPollingStateNeverMovesBackwards(t *testing.T) {
	db := dbtest.NewSqliteDB(t)
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	prev, err := db.PollingState.AdvancePollingState(nil, database.PollingState{LastProcessedTimestamp: t0, TransactionsProcessedTotal: 10})
	require.NoError(t, err)

	next, err := db.PollingState.AdvancePollingState(prev, database.PollingState{LastProcessedTimestamp: t0.Add(-time.Hour), TransactionsProcessedTotal: 2})
	require.NoError(t, err)
	require.True(t, next.LastProcessedTimestamp.Equal(t0))
	require.EqualValues(t, 10, next.TransactionsProcessedTotal)

	loaded, err := db.PollingState.QueryPollingState()
	require.NoError(t, err)
	require.True(t, loaded.LastProcessedTimestamp.Equal(t0))
}

func TestPollingStateConflict(t *testing.T) {
	db := dbtest.NewSqliteDB(t)
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := db.PollingState.AdvancePollingState(nil, database.PollingState{LastProcessedTimestamp: t0})
	require.NoError(t, err)

	// a second writer that also believed no state existed loses
	_, err = db.PollingState.AdvancePollingState(nil, database.PollingState{LastProcessedTimestamp: t0})
	require.ErrorIs(t, err, database.ErrCheckpointConflict)

	stale, err := db.PollingState.QueryPollingState()
	require.NoError(t, err)
	_, err = db.PollingState.AdvancePollingState(stale, database.PollingState{LastProcessedTimestamp: t0.Add(time.Minute)})
	require.NoError(t, err)

	_, err = db.PollingState.AdvancePollingState(stale, database.PollingState{LastProcessedTimestamp: t0.Add(2 * time.Minute)})
	require.ErrorIs(t, err, database.ErrCheckpointConflict)
}
