package services

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/JokingLove/whale-alert-sync/database"
	"github.com/JokingLove/whale-alert-sync/worker"
)

type ReturnCode int

const (
	ReturnCodeSuccess ReturnCode = 0
	ReturnCodeError   ReturnCode = 1
)

// Response is the envelope of every JSON endpoint.
type Response struct {
	Code ReturnCode  `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}

type CheckpointStatus struct {
	LastProcessedTimestamp     time.Time `json:"last_processed_timestamp"`
	LastTransactionHash        string    `json:"last_transaction_hash,omitempty"`
	TransactionsProcessedTotal int64     `json:"transactions_processed_total"`
	LastError                  string    `json:"last_error,omitempty"`
	UpdatedAt                  time.Time `json:"updated_at"`
}

type StatusResponse struct {
	Checkpoint        *CheckpointStatus    `json:"checkpoint,omitempty"`
	LastCycle         *worker.CycleSummary `json:"last_cycle,omitempty"`
	WhaleTransactions int64                `json:"whale_transactions"`
	Notifications     int64                `json:"notifications"`
}

type ClassifyResponse struct {
	Address    string              `json:"address"`
	Normalized string              `json:"normalized"`
	Blockchain database.Blockchain `json:"blockchain"`
}

type TransactionItem struct {
	Hash            string                   `json:"hash"`
	Blockchain      database.Blockchain      `json:"blockchain"`
	Symbol          string                   `json:"symbol"`
	Amount          decimal.Decimal          `json:"amount"`
	AmountUsd       decimal.Decimal          `json:"amount_usd"`
	FromAddress     string                   `json:"from_address"`
	FromOwner       string                   `json:"from_owner,omitempty"`
	ToAddress       string                   `json:"to_address"`
	ToOwner         string                   `json:"to_owner,omitempty"`
	TransactionType database.TransactionType `json:"transaction_type"`
	Timestamp       time.Time                `json:"timestamp"`
}
