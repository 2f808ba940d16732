package scheduler

import (
	"context"
	"time"

	"gorm.io/datatypes"

	"price_alert_backend/models"
	"price_alert_backend/services/alerts"
	"price_alert_backend/services/pricing"
)

// AlertStore is the persistence surface the monitor needs.
type AlertStore interface {
	ListAlerts(activeOnly bool) ([]models.Alert, error)
	ListAdvancedAlerts(activeOnly bool) ([]models.AdvancedAlert, error)
	RecordAlertTrigger(id uint, at time.Time) error
	RecordAdvancedTrigger(alert *models.AdvancedAlert, at time.Time) error
	TouchAdvancedChecked(id uint, at time.Time) error
	UpdateAdvancedConditions(id uint, conditions datatypes.JSONMap) error
	AppendTriggerHistory(entry *models.AlertTriggerHistory) (string, error)
	AppendNotificationAttempt(attempt *models.NotificationAttempt) error
}

// QuoteSource resolves current prices for simple alerts.
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol, assetType string) (*pricing.Quote, error)
}

// AdvancedEvaluator evaluates one advanced alert.
type AdvancedEvaluator interface {
	Evaluate(ctx context.Context, alert *models.AdvancedAlert) (alerts.Result, error)
}

// Notifier delivers alert messages.
type Notifier interface {
	Configured() bool
	Recipient() string
	Send(ctx context.Context, body string) error
}

// Settings exposes the runtime-tunable monitoring parameters.
type Settings interface {
	IntervalMinutes() int
	CooldownHours() float64
	WhatsAppEnabled() bool
}
