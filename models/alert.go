package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Asset types supported by the price providers
const (
	AssetTypeStock  = "stock"
	AssetTypeCrypto = "crypto"
	AssetTypeAuto   = "auto"
)

// Threshold directions for simple alerts
const (
	DirectionAbove = "above"
	DirectionBelow = "below"
)

// Alert is a simple threshold alert: it fires when the current price of
// a symbol crosses the configured threshold in the configured direction.
type Alert struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Symbol          string          `gorm:"size:20;not null;index" json:"symbol"`
	AssetType       string          `gorm:"size:10;not null;default:stock" json:"asset_type"`
	ThresholdPrice  decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"threshold_price"`
	Direction       string          `gorm:"size:10;not null" json:"direction"`
	Active          bool            `gorm:"default:true;index" json:"active"`
	TriggerCount    int             `gorm:"default:0" json:"trigger_count"`
	LastTriggeredAt *time.Time      `json:"last_triggered_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (Alert) TableName() string {
	return "alerts"
}

// AlertTriggerHistory is an append-only record of every alert trigger,
// written whether or not the notification was delivered.
type AlertTriggerHistory struct {
	ID          string            `gorm:"primaryKey;size:36" json:"id"`
	AlertID     uint              `gorm:"not null;index" json:"alert_id"`
	AlertType   string            `gorm:"size:10;not null" json:"alert_type"` // simple or advanced
	Symbol      string            `gorm:"size:20;not null" json:"symbol"`
	Price       float64           `gorm:"not null" json:"price"`
	Reason      string            `gorm:"size:255" json:"reason"`
	Snapshot    datatypes.JSONMap `json:"snapshot"`
	TriggeredAt time.Time         `gorm:"not null;index" json:"triggered_at"`
}

func (AlertTriggerHistory) TableName() string {
	return "alert_trigger_history"
}

// Notification attempt statuses
const (
	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"
	NotificationStatusSkipped = "skipped"
)

// NotificationAttempt records the outcome of one delivery attempt for a
// trigger, including skips when the channel is disabled.
type NotificationAttempt struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	HistoryID   string    `gorm:"size:36;index" json:"history_id"`
	AlertID     uint      `gorm:"not null;index" json:"alert_id"`
	Channel     string    `gorm:"size:20;not null" json:"channel"`
	Recipient   string    `gorm:"size:50" json:"recipient"`
	Body        string    `gorm:"size:2000" json:"body"`
	Status      string    `gorm:"size:10;not null" json:"status"`
	Error       string    `gorm:"size:500" json:"error,omitempty"`
	AttemptedAt time.Time `gorm:"not null" json:"attempted_at"`
}

func (NotificationAttempt) TableName() string {
	return "notification_attempts"
}

// MigrateModels runs auto-migration for all alert tables
func MigrateModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&Alert{},
		&AdvancedAlert{},
		&AlertTriggerHistory{},
		&NotificationAttempt{},
	)
}
