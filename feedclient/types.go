package feedclient

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JokingLove/whale-alert-sync/database"
)

const resultSuccess = "success"

type Party struct {
	Address   string `json:"address"`
	Owner     string `json:"owner,omitempty"`
	OwnerType string `json:"owner_type,omitempty"`
}

// Transaction is a transaction as encoded by the feed.
type Transaction struct {
	Blockchain       string          `json:"blockchain"`
	Symbol           string          `json:"symbol"`
	Id               string          `json:"id"`
	TransactionType  string          `json:"transaction_type"`
	Hash             string          `json:"hash"`
	From             Party           `json:"from"`
	To               Party           `json:"to"`
	Timestamp        int64           `json:"timestamp"`
	Amount           decimal.Decimal `json:"amount"`
	AmountUsd        decimal.Decimal `json:"amount_usd"`
	TransactionCount int             `json:"transaction_count"`
}

// ToWhaleTransaction converts into the persisted model. owner_type is free
// text on the feed and is kept as is.
func (t Transaction) ToWhaleTransaction() database.WhaleTransaction {
	return database.WhaleTransaction{
		Hash:            t.Hash,
		Blockchain:      database.Blockchain(strings.ToLower(t.Blockchain)),
		Symbol:          t.Symbol,
		Amount:          t.Amount,
		AmountUsd:       t.AmountUsd,
		FromAddress:     t.From.Address,
		FromOwner:       t.From.Owner,
		FromOwnerType:   t.From.OwnerType,
		ToAddress:       t.To.Address,
		ToOwner:         t.To.Owner,
		ToOwnerType:     t.To.OwnerType,
		TransactionType: database.TransactionType(t.TransactionType),
		Timestamp:       time.Unix(t.Timestamp, 0).UTC(),
	}
}

type transactionsResponse struct {
	Result       string        `json:"result"`
	Message      string        `json:"message,omitempty"`
	Cursor       string        `json:"cursor,omitempty"`
	Count        int           `json:"count"`
	Transactions []Transaction `json:"transactions"`
}

type BlockchainStatus struct {
	Name    string   `json:"name"`
	Symbols []string `json:"symbols"`
	Status  string   `json:"status"`
}

type Status struct {
	Result          string             `json:"result"`
	Message         string             `json:"message,omitempty"`
	BlockchainCount int                `json:"blockchain_count"`
	Blockchains     []BlockchainStatus `json:"blockchains"`
}
