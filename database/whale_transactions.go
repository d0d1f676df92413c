package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WhaleTransaction struct {
	GUID            uuid.UUID       `gorm:"primaryKey;type:uuid" json:"guid"`
	Hash            string          `gorm:"uniqueIndex:idx_whale_transactions_hash;not null" json:"hash"`
	Blockchain      Blockchain      `gorm:"index;not null" json:"blockchain"`
	Symbol          string          `json:"symbol"`
	Amount          decimal.Decimal `gorm:"type:numeric" json:"amount"`
	AmountUsd       decimal.Decimal `gorm:"type:numeric" json:"amount_usd"`
	FromAddress     string          `json:"from_address"`
	FromOwner       string          `json:"from_owner"`
	FromOwnerType   string          `json:"from_owner_type"`
	ToAddress       string          `json:"to_address"`
	ToOwner         string          `json:"to_owner"`
	ToOwnerType     string          `json:"to_owner_type"`
	TransactionType TransactionType `json:"transaction_type"`
	Timestamp       time.Time       `gorm:"index" json:"timestamp"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (WhaleTransaction) TableName() string {
	return TableWhaleTransactions
}

type WhaleTransactionsView interface {
	QueryWhaleTransactionByHash(hash string) (*WhaleTransaction, error)
	QueryLatestWhaleTransactions(limit int) ([]WhaleTransaction, error)
	CountWhaleTransactions() (int64, error)
}

type WhaleTransactionsDB interface {
	WhaleTransactionsView

	// StoreWhaleTransaction inserts tx unless its hash is already stored and
	// reports whether a row was written.
	StoreWhaleTransaction(tx *WhaleTransaction) (bool, error)
}

type whaleTransactionsDB struct {
	gorm *gorm.DB
}

func NewWhaleTransactionsDB(db *gorm.DB) WhaleTransactionsDB {
	return &whaleTransactionsDB{gorm: db}
}

func (db *whaleTransactionsDB) QueryWhaleTransactionByHash(hash string) (*WhaleTransaction, error) {
	var tx WhaleTransaction
	result := db.gorm.Where("hash = ?", hash).Take(&tx)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &tx, nil
}

func (db *whaleTransactionsDB) QueryLatestWhaleTransactions(limit int) ([]WhaleTransaction, error) {
	var txs []WhaleTransaction
	result := db.gorm.Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}).Limit(limit).Find(&txs)
	if result.Error != nil {
		return nil, result.Error
	}
	return txs, nil
}

func (db *whaleTransactionsDB) CountWhaleTransactions() (int64, error) {
	var count int64
	result := db.gorm.Model(&WhaleTransaction{}).Count(&count)
	return count, result.Error
}

func (db *whaleTransactionsDB) StoreWhaleTransaction(tx *WhaleTransaction) (bool, error) {
	if tx.GUID == uuid.Nil {
		tx.GUID = uuid.New()
	}
	result := db.gorm.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "hash"}},
		DoNothing: true,
	}).Create(tx)
	if result.Error != nil {
		return false, errors.Wrapf(result.Error, "store whale transaction %s", tx.Hash)
	}
	return result.RowsAffected == 1, nil
}
