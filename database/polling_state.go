package database

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrCheckpointConflict is returned when the checkpoint row changed between
// load and advance, i.e. another cycle committed first.
var ErrCheckpointConflict = errors.New("polling checkpoint was advanced concurrently")

type PollingState struct {
	ID                         int       `gorm:"primaryKey;autoIncrement:false" json:"-"`
	LastProcessedTimestamp     time.Time `gorm:"not null" json:"last_processed_timestamp"`
	LastTransactionHash        *string   `json:"last_transaction_hash,omitempty"`
	TransactionsProcessedTotal int64     `gorm:"not null;default:0" json:"transactions_processed_total"`
	LastError                  *string   `json:"last_error,omitempty"`
	Version                    int64     `gorm:"not null;default:0" json:"version"`
	UpdatedAt                  time.Time `json:"updated_at"`
}

func (PollingState) TableName() string {
	return TablePollingState
}

type PollingStateView interface {
	QueryPollingState() (*PollingState, error)
}

type PollingStateDB interface {
	PollingStateView

	// AdvancePollingState writes next over prev in one statement. prev is the
	// state the caller loaded (nil when none existed). The timestamp never moves
	// backwards and the write fails with ErrCheckpointConflict if prev is stale.
	AdvancePollingState(prev *PollingState, next PollingState) (*PollingState, error)
}

type pollingStateDB struct {
	gorm *gorm.DB
}

func NewPollingStateDB(db *gorm.DB) PollingStateDB {
	return &pollingStateDB{gorm: db}
}

func (db *pollingStateDB) QueryPollingState() (*PollingState, error) {
	var state PollingState
	result := db.gorm.Where("id = ?", PollingStateID).Take(&state)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &state, nil
}

func (db *pollingStateDB) AdvancePollingState(prev *PollingState, next PollingState) (*PollingState, error) {
	next.ID = PollingStateID
	next.UpdatedAt = time.Now()

	if prev == nil {
		next.Version = 1
		result := db.gorm.Clauses(clause.OnConflict{DoNothing: true}).Create(&next)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, ErrCheckpointConflict
		}
		return &next, nil
	}

	if next.LastProcessedTimestamp.Before(prev.LastProcessedTimestamp) {
		next.LastProcessedTimestamp = prev.LastProcessedTimestamp
	}
	if next.TransactionsProcessedTotal < prev.TransactionsProcessedTotal {
		next.TransactionsProcessedTotal = prev.TransactionsProcessedTotal
	}
	next.Version = prev.Version + 1

	result := db.gorm.Model(&PollingState{}).
		Where("id = ? AND version = ?", PollingStateID, prev.Version).
		Updates(map[string]interface{}{
			"last_processed_timestamp":     next.LastProcessedTimestamp,
			"last_transaction_hash":        next.LastTransactionHash,
			"transactions_processed_total": next.TransactionsProcessedTotal,
			"last_error":                   next.LastError,
			"version":                      next.Version,
			"updated_at":                   next.UpdatedAt,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrCheckpointConflict
	}
	return &next, nil
}
