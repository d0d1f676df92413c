package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/JokingLove/whale-alert-sync/common/clock"
	"github.com/JokingLove/whale-alert-sync/config"
	"github.com/JokingLove/whale-alert-sync/database"
	"github.com/JokingLove/whale-alert-sync/database/dbtest"
)

type fakeRelay struct {
	mu       sync.Mutex
	requests []EmailRequest
	status   int
	reject   map[string]string
	silent   map[string]bool
}

func (f *fakeRelay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || r.URL.Path != "/notifications/email" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	status := f.status
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if status != http.StatusOK {
		_ = json.NewEncoder(w).Encode(relayErrorBody{Error: "smtp upstream down"})
		return
	}
	var resp EmailResponse
	for _, d := range req.Deliveries {
		if f.silent[d.UserID] {
			continue
		}
		if reason, ok := f.reject[d.UserID]; ok {
			resp.Results = append(resp.Results, EmailResult{ID: d.ID, Status: "rejected", Reason: reason})
			continue
		}
		resp.Results = append(resp.Results, EmailResult{ID: d.ID, Status: "accepted"})
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (f *fakeRelay) Requests() []EmailRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]EmailRequest(nil), f.requests...)
}

func seedSubscriber(t *testing.T, db *database.DB, userID string, entitled bool, prefs database.Preferences) {
	t.Helper()
	require.NoError(t, db.Subscriptions.StoreSubscription(&database.WhaleSubscription{
		UserID:      userID,
		Email:       userID + "@example.com",
		IsActive:    true,
		Preferences: datatypes.NewJSONType(prefs),
	}))
	if entitled {
		require.NoError(t, db.Subscriptions.StoreEntitlement(&database.FeatureEntitlement{
			UserID:  userID,
			Feature: database.DefaultEntitlementFeature,
		}))
	}
}

func dispatchFixture(t *testing.T, relayURL string) (*database.DB, *Dispatcher) {
	t.Helper()
	db := dbtest.NewSqliteDB(t)
	clk := clock.NewDeterministicClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	d, err := NewDispatcher(db, config.NotifierConfig{
		EntitlementFeature: database.DefaultEntitlementFeature,
		EmailRelayUrl:      relayURL,
		DefaultTimezone:    "UTC",
	}, clk)
	require.NoError(t, err)
	return db, d
}

func whale(hash string, usd int64) database.WhaleTransaction {
	return database.WhaleTransaction{
		Hash:            hash,
		Blockchain:      database.BlockchainBitcoin,
		Symbol:          "btc",
		Amount:          decimal.RequireFromString("1234.56789"),
		AmountUsd:       decimal.NewFromInt(usd),
		FromOwner:       "binance",
		ToOwner:         "",
		TransactionType: database.TxTypeTransfer,
		Timestamp:       time.Date(2024, 3, 1, 11, 58, 0, 0, time.UTC),
	}
}

func TestDispatch(t *testing.T) {
	relay := &fakeRelay{status: http.StatusOK}
	srv := httptest.NewServer(relay)
	defer srv.Close()
	db, d := dispatchFixture(t, srv.URL)

	both := testPrefs()
	both.NotificationChannels = []database.NotificationChannel{database.ChannelInApp, database.ChannelEmail}
	seedSubscriber(t, db, "alice", true, both)

	quiet := testPrefs()
	quiet.QuietHours = database.QuietHours{Enabled: true, Start: "11:00", End: "13:00"}
	seedSubscriber(t, db, "bob", true, quiet)

	seedSubscriber(t, db, "carol", false, testPrefs())

	emailOnly := testPrefs()
	emailOnly.NotificationChannels = []database.NotificationChannel{database.ChannelEmail}
	seedSubscriber(t, db, "dave", true, emailOnly)

	txs := []database.WhaleTransaction{whale("big", 2_000_000), whale("small", 500_000)}
	require.NoError(t, d.Dispatch(context.Background(), txs))

	alice, err := db.Notifications.QueryNotificationsByUser("alice")
	require.NoError(t, err)
	require.Len(t, alice, 1)
	require.Equal(t, "big", alice[0].TransactionRef)
	require.Equal(t, "1,234.5679 BTC ($2,000,000)", alice[0].Title)
	require.Equal(t, "binance → Unknown on Bitcoin", alice[0].Message)

	var data NotificationData
	require.NoError(t, json.Unmarshal(alice[0].Data, &data))
	require.Equal(t, "big", data.Hash)
	require.Equal(t, "bitcoin", data.Blockchain)
	require.True(t, data.AmountUsd.Equal(decimal.NewFromInt(2_000_000)))

	for _, user := range []string{"bob", "carol", "dave"} {
		rows, err := db.Notifications.QueryNotificationsByUser(user)
		require.NoError(t, err)
		require.Emptyf(t, rows, "%s should have no in-app notification", user)
	}

	requests := relay.Requests()
	require.Len(t, requests, 1, "one relay call per dispatch")
	require.Len(t, requests[0].Deliveries, 2)
	require.Equal(t, "alice", requests[0].Deliveries[0].UserID)
	require.Equal(t, "alice@example.com", requests[0].Deliveries[0].Email)
	require.Equal(t, "alice:big", requests[0].Deliveries[0].ID)
	require.Equal(t, "dave", requests[0].Deliveries[1].UserID)

	// replaying the same batch never duplicates in-app rows
	require.NoError(t, d.Dispatch(context.Background(), txs))
	count, err := db.Notifications.CountNotifications()
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestDispatchRelayFailureKeepsInApp(t *testing.T) {
	relay := &fakeRelay{status: http.StatusBadGateway}
	srv := httptest.NewServer(relay)
	defer srv.Close()
	db, d := dispatchFixture(t, srv.URL)

	both := testPrefs()
	both.NotificationChannels = []database.NotificationChannel{database.ChannelInApp, database.ChannelEmail}
	seedSubscriber(t, db, "alice", true, both)

	err := d.Dispatch(context.Background(), []database.WhaleTransaction{whale("big", 2_000_000)})
	var relayErr *RelayError
	require.ErrorAs(t, err, &relayErr)
	require.Equal(t, http.StatusBadGateway, relayErr.StatusCode)
	require.Equal(t, "smtp upstream down", relayErr.Message)

	rows, err := db.Notifications.QueryNotificationsByUser("alice")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestDispatchReportsRejectedDeliveries(t *testing.T) {
	relay := &fakeRelay{
		status: http.StatusOK,
		reject: map[string]string{"alice": "mailbox unavailable"},
		silent: map[string]bool{"erin": true},
	}
	srv := httptest.NewServer(relay)
	defer srv.Close()
	db, d := dispatchFixture(t, srv.URL)

	emailOnly := testPrefs()
	emailOnly.NotificationChannels = []database.NotificationChannel{database.ChannelEmail}
	for _, user := range []string{"alice", "dave", "erin"} {
		seedSubscriber(t, db, user, true, emailOnly)
	}

	err := d.Dispatch(context.Background(), []database.WhaleTransaction{whale("big", 2_000_000)})
	require.ErrorContains(t, err, "email relay rejected 2 of 3 deliveries")
}

func TestSendEmailsChunksAndReports(t *testing.T) {
	relay := &fakeRelay{status: http.StatusOK, reject: map[string]string{"user-7": "bounced"}}
	srv := httptest.NewServer(relay)
	defer srv.Close()
	client, err := NewEmailClient(srv.URL)
	require.NoError(t, err)

	deliveries := make([]EmailDelivery, 250)
	for i := range deliveries {
		user := fmt.Sprintf("user-%d", i)
		deliveries[i] = EmailDelivery{ID: deliveryID(user, "big"), UserID: user, Email: user + "@example.com"}
	}
	report, err := client.SendEmails(context.Background(), deliveries)
	require.NoError(t, err)
	require.Equal(t, 249, report.Accepted)
	require.Equal(t, []DeliveryRejection{{ID: "user-7:big", UserID: "user-7", Reason: "bounced"}}, report.Rejected)

	requests := relay.Requests()
	require.Len(t, requests, 3)
	require.Len(t, requests[0].Deliveries, maxEmailsPerCall)
	require.Len(t, requests[2].Deliveries, 50)
}

func TestDispatchWithoutRelaySkipsEmail(t *testing.T) {
	db, d := dispatchFixture(t, "")
	emailOnly := testPrefs()
	emailOnly.NotificationChannels = []database.NotificationChannel{database.ChannelEmail}
	seedSubscriber(t, db, "dave", true, emailOnly)

	require.NoError(t, d.Dispatch(context.Background(), []database.WhaleTransaction{whale("big", 2_000_000)}))
	count, err := db.Notifications.CountNotifications()
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestDispatchNothing(t *testing.T) {
	_, d := dispatchFixture(t, "")
	require.NoError(t, d.Dispatch(context.Background(), nil))
}

func TestFormatting(t *testing.T) {
	tests := []struct {
		in     string
		places int32
		want   string
	}{
		{"0", 0, "0"},
		{"999", 0, "999"},
		{"1000", 0, "1,000"},
		{"1234567.891", 2, "1,234,567.89"},
		{"15030000.25", 0, "15,030,000"},
		{"-1234.5", 1, "-1,234.5"},
		{"100000", 4, "100,000"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, formatDecimal(decimal.RequireFromString(tt.in), tt.places))
	}

	tx := whale("x", 1_500_000)
	tx.FromOwner, tx.ToOwner = "unknown", "coinbase"
	tx.Blockchain = database.BlockchainEthereum
	tx.Symbol = "usdt"
	tx.Amount = decimal.NewFromInt(1_500_000)
	require.Equal(t, "1,500,000 USDT ($1,500,000)", Title(&tx))
	require.Equal(t, "Unknown → coinbase on Ethereum", Message(&tx))
}
