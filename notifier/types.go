package notifier

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/JokingLove/whale-alert-sync/database"
)

// NotificationData is the structured payload stored with each notification.
type NotificationData struct {
	Hash            string          `json:"hash"`
	Blockchain      string          `json:"blockchain"`
	Symbol          string          `json:"symbol"`
	Amount          decimal.Decimal `json:"amount"`
	AmountUsd       decimal.Decimal `json:"amountUsd"`
	Timestamp       time.Time       `json:"timestamp"`
	TransactionType string          `json:"transactionType"`
	From            string          `json:"from"`
	To              string          `json:"to"`
}

func newNotificationData(tx *database.WhaleTransaction) NotificationData {
	return NotificationData{
		Hash:            tx.Hash,
		Blockchain:      tx.Blockchain.String(),
		Symbol:          tx.Symbol,
		Amount:          tx.Amount,
		AmountUsd:       tx.AmountUsd,
		Timestamp:       tx.Timestamp.UTC(),
		TransactionType: tx.TransactionType.String(),
		From:            ownerOrUnknown(tx.FromOwner),
		To:              ownerOrUnknown(tx.ToOwner),
	}
}

// EmailDelivery is one email for one subscriber and transaction. ID is stable
// across retries so the relay can drop repeats.
type EmailDelivery struct {
	ID      string           `json:"id"`
	UserID  string           `json:"user_id"`
	Email   string           `json:"email"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
	Data    NotificationData `json:"data"`
}

func deliveryID(userID, hash string) string {
	return userID + ":" + hash
}

type EmailRequest struct {
	Deliveries []EmailDelivery `json:"deliveries"`
}

type EmailResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

type EmailResponse struct {
	Results []EmailResult `json:"results"`
}

type relayErrorBody struct {
	Error string `json:"error"`
}
