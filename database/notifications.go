package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// notificationBatchSize keeps each INSERT well below the bind variable limits
// of postgres (65535) and sqlite (32766); a row binds 9 values.
const notificationBatchSize = 500

type Notification struct {
	GUID           uuid.UUID      `gorm:"primaryKey;type:uuid" json:"guid"`
	UserID         string         `gorm:"uniqueIndex:idx_notifications_user_tx;not null" json:"user_id"`
	TransactionRef string         `gorm:"uniqueIndex:idx_notifications_user_tx;not null" json:"transaction_ref"`
	Title          string         `json:"title"`
	Message        string         `json:"message"`
	Data           datatypes.JSON `json:"data"`
	IsRead         bool           `gorm:"not null;default:false" json:"is_read"`
	IsArchived     bool           `gorm:"not null;default:false" json:"is_archived"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (Notification) TableName() string {
	return TableNotifications
}

type NotificationsView interface {
	QueryNotificationsByUser(userID string) ([]Notification, error)
	CountNotifications() (int64, error)
}

type NotificationsDB interface {
	NotificationsView

	// StoreNotifications bulk inserts in chunks within one transaction, skipping
	// rows already stored for the same user and transaction. Returns the number
	// of rows written; on error nothing is written.
	StoreNotifications(notifications []*Notification) (int64, error)
}

type notificationsDB struct {
	gorm *gorm.DB
}

func NewNotificationsDB(db *gorm.DB) NotificationsDB {
	return &notificationsDB{gorm: db}
}

func (db *notificationsDB) QueryNotificationsByUser(userID string) ([]Notification, error) {
	var notifications []Notification
	result := db.gorm.Where("user_id = ?", userID).Order("created_at asc, transaction_ref asc").Find(&notifications)
	if result.Error != nil {
		return nil, result.Error
	}
	return notifications, nil
}

func (db *notificationsDB) CountNotifications() (int64, error) {
	var count int64
	result := db.gorm.Model(&Notification{}).Count(&count)
	return count, result.Error
}

func (db *notificationsDB) StoreNotifications(notifications []*Notification) (int64, error) {
	if len(notifications) == 0 {
		return 0, nil
	}
	for _, n := range notifications {
		if n.GUID == uuid.Nil {
			n.GUID = uuid.New()
		}
	}
	var written int64
	err := db.gorm.Transaction(func(tx *gorm.DB) error {
		for start := 0; start < len(notifications); start += notificationBatchSize {
			end := min(start+notificationBatchSize, len(notifications))
			result := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "transaction_ref"}},
				DoNothing: true,
			}).Create(notifications[start:end])
			if result.Error != nil {
				return result.Error
			}
			written += result.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}
