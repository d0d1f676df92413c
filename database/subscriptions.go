package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultEntitlementFeature is the feature a user must hold for whale alerts.
const DefaultEntitlementFeature = "whale_alerts"

type QuietHours struct {
	Enabled  bool   `json:"enabled"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Timezone string `json:"timezone,omitempty"`
}

type Preferences struct {
	MinUsdValue          decimal.Decimal       `json:"minUsdValue"`
	Blockchains          []string              `json:"blockchains"`
	NotificationChannels []NotificationChannel `json:"notificationChannels"`
	TransactionTypes     []string              `json:"transactionTypes"`
	QuietHours           QuietHours            `json:"quietHours"`
}

func (p Preferences) HasChannel(channel NotificationChannel) bool {
	for _, c := range p.NotificationChannels {
		if c == channel {
			return true
		}
	}
	return false
}

type WhaleSubscription struct {
	GUID        uuid.UUID                       `gorm:"primaryKey;type:uuid" json:"guid"`
	UserID      string                          `gorm:"uniqueIndex:idx_whale_subscriptions_user;not null" json:"user_id"`
	Email       string                          `json:"email"`
	IsActive    bool                            `gorm:"not null" json:"is_active"`
	Preferences datatypes.JSONType[Preferences] `json:"preferences"`
	CreatedAt   time.Time                       `json:"created_at"`
	UpdatedAt   time.Time                       `json:"updated_at"`
}

func (WhaleSubscription) TableName() string {
	return TableWhaleSubscriptions
}

// FeatureEntitlement is written by the billing service; this service only reads it.
type FeatureEntitlement struct {
	GUID      uuid.UUID  `gorm:"primaryKey;type:uuid" json:"guid"`
	UserID    string     `gorm:"index:idx_feature_entitlements_user_feature;not null" json:"user_id"`
	Feature   string     `gorm:"index:idx_feature_entitlements_user_feature;not null" json:"feature"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (FeatureEntitlement) TableName() string {
	return TableFeatureEntitlements
}

type SubscriptionsView interface {
	// QueryActiveEntitledSubscriptions returns active subscriptions whose user
	// holds an unexpired entitlement to feature at now.
	QueryActiveEntitledSubscriptions(feature string, now time.Time) ([]WhaleSubscription, error)
	QuerySubscriptionByUser(userID string) (*WhaleSubscription, error)
}

type SubscriptionsDB interface {
	SubscriptionsView

	StoreSubscription(sub *WhaleSubscription) error
	StoreEntitlement(entitlement *FeatureEntitlement) error
}

type subscriptionsDB struct {
	gorm *gorm.DB
}

func NewSubscriptionsDB(db *gorm.DB) SubscriptionsDB {
	return &subscriptionsDB{gorm: db}
}

func (db *subscriptionsDB) QueryActiveEntitledSubscriptions(feature string, now time.Time) ([]WhaleSubscription, error) {
	entitled := db.gorm.Model(&FeatureEntitlement{}).
		Select("user_id").
		Where("feature = ? AND (expires_at IS NULL OR expires_at > ?)", feature, now)

	var subs []WhaleSubscription
	result := db.gorm.
		Where("is_active = ?", true).
		Where("user_id IN (?)", entitled).
		Order("user_id asc").
		Find(&subs)
	if result.Error != nil {
		return nil, result.Error
	}
	return subs, nil
}

func (db *subscriptionsDB) QuerySubscriptionByUser(userID string) (*WhaleSubscription, error) {
	var sub WhaleSubscription
	result := db.gorm.Where("user_id = ?", userID).Take(&sub)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &sub, nil
}

// StoreSubscription upserts by user id.
func (db *subscriptionsDB) StoreSubscription(sub *WhaleSubscription) error {
	if sub.GUID == uuid.Nil {
		sub.GUID = uuid.New()
	}
	return db.gorm.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "is_active", "preferences", "updated_at"}),
	}).Create(sub).Error
}

func (db *subscriptionsDB) StoreEntitlement(entitlement *FeatureEntitlement) error {
	if entitlement.GUID == uuid.Nil {
		entitlement.GUID = uuid.New()
	}
	return db.gorm.Create(entitlement).Error
}
