package database

import (
	"fmt"
	"strings"
)

type Blockchain string

const (
	BlockchainBitcoin  Blockchain = "bitcoin"
	BlockchainEthereum Blockchain = "ethereum"
	BlockchainTron     Blockchain = "tron"
	BlockchainRipple   Blockchain = "ripple"
	BlockchainSolana   Blockchain = "solana"
	BlockchainPolygon  Blockchain = "polygon"
	BlockchainBinance  Blockchain = "binancechain"
	BlockchainLitecoin Blockchain = "litecoin"
	BlockchainDogecoin Blockchain = "dogecoin"
)

func (b Blockchain) String() string {
	return string(b)
}

// DisplayName is the human readable chain name used in notification copy.
func (b Blockchain) DisplayName() string {
	if b == "" {
		return "Unknown"
	}
	return strings.ToUpper(string(b[:1])) + string(b[1:])
}

// ParseBlockchain accepts any non-empty lower case identifier; the feed decides
// which chains exist, so the set is open.
func ParseBlockchain(s string) (Blockchain, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", fmt.Errorf("empty blockchain")
	}
	return Blockchain(s), nil
}

type TransactionType string

const (
	TxTypeTransfer           TransactionType = "transfer"
	TxTypeExchangeDeposit    TransactionType = "exchange_deposit"
	TxTypeExchangeWithdrawal TransactionType = "exchange_withdrawal"
	TxTypeMint               TransactionType = "mint"
	TxTypeBurn               TransactionType = "burn"
	TxTypeLock               TransactionType = "lock"
	TxTypeUnlock             TransactionType = "unlock"
)

func (tt TransactionType) String() string {
	return string(tt)
}

type NotificationChannel string

const (
	ChannelInApp NotificationChannel = "in_app"
	ChannelEmail NotificationChannel = "email"
)

func ParseNotificationChannel(s string) (NotificationChannel, error) {
	switch strings.ToLower(s) {
	case string(ChannelInApp):
		return ChannelInApp, nil
	case string(ChannelEmail):
		return ChannelEmail, nil
	default:
		return "", fmt.Errorf("unknown notification channel: %s", s)
	}
}

const (
	TableWhaleTransactions   = "whale_transactions"
	TablePollingState        = "polling_state"
	TableWhaleSubscriptions  = "whale_subscriptions"
	TableFeatureEntitlements = "feature_entitlements"
	TableNotifications       = "notifications"
)

// PollingStateID is the primary key of the single checkpoint row.
const PollingStateID = 1
