package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"price_alert_backend/models"
	"price_alert_backend/services/alerts"
	"price_alert_backend/services/whatsapp"
)

// Monitor runs the monitoring cycle: it walks the active alerts,
// fetches prices, evaluates conditions, and dispatches notifications
// for triggers outside their cooldown window.
type Monitor struct {
	store     AlertStore
	quotes    QuoteSource
	evaluator AdvancedEvaluator
	notifier  Notifier
	settings  Settings
	stats     *MonitoringStats

	// runMu guarantees only one cycle runs at a time
	runMu sync.Mutex
}

func NewMonitor(store AlertStore, quotes QuoteSource, evaluator AdvancedEvaluator, notifier Notifier, settings Settings) *Monitor {
	return &Monitor{
		store:     store,
		quotes:    quotes,
		evaluator: evaluator,
		notifier:  notifier,
		settings:  settings,
		stats:     &MonitoringStats{},
	}
}

func (m *Monitor) Stats() *MonitoringStats {
	return m.stats
}

// RunCycle executes one full monitoring pass. A failure on one alert
// is recorded and never stops the rest of the cycle.
func (m *Monitor) RunCycle(ctx context.Context) CycleReport {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	start := time.Now()
	now := start.UTC()
	cooldownHours := m.settings.CooldownHours()

	var report CycleReport

	simpleAlerts, err := m.store.ListAlerts(true)
	if err != nil {
		// Storage being unavailable fails the whole cycle; the next
		// tick simply tries again
		report.Failed = true
		report.Errors = append(report.Errors, fmt.Sprintf("failed to load alerts: %v", err))
		report.Duration = time.Since(start)
		m.stats.RecordCycle(report)
		log.Printf("Monitoring cycle failed: %v", err)
		return report
	}
	advancedAlerts, err := m.store.ListAdvancedAlerts(true)
	if err != nil {
		report.Failed = true
		report.Errors = append(report.Errors, fmt.Sprintf("failed to load advanced alerts: %v", err))
		report.Duration = time.Since(start)
		m.stats.RecordCycle(report)
		log.Printf("Monitoring cycle failed: %v", err)
		return report
	}

	for i := range simpleAlerts {
		alert := &simpleAlerts[i]

		if InCooldown(alert.LastTriggeredAt, cooldownHours, now) {
			report.AlertsChecked++
			continue
		}

		quote, err := m.quotes.GetQuote(ctx, alert.Symbol, alert.AssetType)
		if err != nil {
			// Fetch failures do not count as a completed check
			report.Errors = append(report.Errors, fmt.Sprintf("alert %d (%s): %v", alert.ID, alert.Symbol, err))
			continue
		}
		report.AlertsChecked++

		if alerts.EvaluateThreshold(alert, decimal.NewFromFloat(quote.Price)) {
			m.fireSimple(ctx, alert, quote.Price, quote.Source, now, &report)
		}
	}

	for i := range advancedAlerts {
		alert := &advancedAlerts[i]

		// Every visited alert gets its last-checked stamp, even when
		// expiry or cooldown keeps it from being evaluated
		if err := m.store.TouchAdvancedChecked(alert.ID, now); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("advanced alert %d: %v", alert.ID, err))
		}

		if alert.ExpiresAt != nil && now.After(*alert.ExpiresAt) {
			continue
		}
		if InCooldown(alert.LastTriggeredAt, cooldownHours, now) {
			report.AdvancedChecked++
			continue
		}

		result, err := m.evaluator.Evaluate(ctx, alert)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("advanced alert %d (%s): %v", alert.ID, alert.Symbol, err))
			continue
		}
		report.AdvancedChecked++

		if !result.Triggered {
			if result.UpdatedConditions != nil {
				if err := m.store.UpdateAdvancedConditions(alert.ID, result.UpdatedConditions); err != nil {
					report.Errors = append(report.Errors, fmt.Sprintf("advanced alert %d: %v", alert.ID, err))
				}
			}
			continue
		}

		m.fireAdvanced(ctx, alert, result, now, &report)
	}

	report.Duration = time.Since(start)
	m.stats.RecordCycle(report)
	log.Printf("Monitoring cycle done in %s: %d alerts, %d advanced, %d triggered, %d errors",
		report.Duration.Round(time.Millisecond),
		report.AlertsChecked, report.AdvancedChecked, report.TriggersFired, len(report.Errors))
	return report
}

func (m *Monitor) fireSimple(ctx context.Context, alert *models.Alert, price float64, source string, now time.Time, report *CycleReport) {
	report.TriggersFired++
	threshold, _ := alert.ThresholdPrice.Float64()
	reason := fmt.Sprintf("price %s threshold %s", alert.Direction, alert.ThresholdPrice.String())
	report.Triggered = append(report.Triggered, fmt.Sprintf("alert %d %s: %s", alert.ID, alert.Symbol, reason))
	log.Printf("Alert %d triggered: %s at %.4f (%s)", alert.ID, alert.Symbol, price, reason)

	historyID, err := m.store.AppendTriggerHistory(&models.AlertTriggerHistory{
		AlertID:   alert.ID,
		AlertType: "simple",
		Symbol:    alert.Symbol,
		Price:     price,
		Reason:    reason,
		Snapshot: datatypes.JSONMap{
			"threshold": threshold,
			"direction": alert.Direction,
			"source":    source,
		},
		TriggeredAt: now,
	})
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("alert %d: %v", alert.ID, err))
	}

	message := whatsapp.ThresholdMessage(alert.Symbol, alert.Direction, price, threshold)
	m.notify(ctx, alert.ID, historyID, message, report)

	if err := m.store.RecordAlertTrigger(alert.ID, now); err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("alert %d: %v", alert.ID, err))
	}
}

func (m *Monitor) fireAdvanced(ctx context.Context, alert *models.AdvancedAlert, result alerts.Result, now time.Time, report *CycleReport) {
	report.TriggersFired++
	report.Triggered = append(report.Triggered, fmt.Sprintf("advanced alert %d %s: %s", alert.ID, alert.Symbol, result.Reason))
	log.Printf("Advanced alert %d triggered: %s, %s", alert.ID, alert.Symbol, result.Reason)

	historyID, err := m.store.AppendTriggerHistory(&models.AlertTriggerHistory{
		AlertID:     alert.ID,
		AlertType:   "advanced",
		Symbol:      alert.Symbol,
		Price:       result.Price,
		Reason:      result.Reason,
		Snapshot:    datatypes.JSONMap(result.Snapshot),
		TriggeredAt: now,
	})
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("advanced alert %d: %v", alert.ID, err))
	}

	message := whatsapp.AdvancedMessage(alert.Symbol, result.Reason, result.Price)
	m.notify(ctx, alert.ID, historyID, message, report)

	if result.UpdatedConditions != nil {
		alert.Conditions = result.UpdatedConditions
	}
	if err := m.store.RecordAdvancedTrigger(alert, now); err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("advanced alert %d: %v", alert.ID, err))
	}
}

// notify dispatches one message and records the attempt. Delivery
// failures never fail the trigger: the history row already exists and
// the attempt row carries the error.
func (m *Monitor) notify(ctx context.Context, alertID uint, historyID, message string, report *CycleReport) {
	attempt := &models.NotificationAttempt{
		HistoryID:   historyID,
		AlertID:     alertID,
		Channel:     "whatsapp",
		Recipient:   m.notifier.Recipient(),
		Body:        message,
		AttemptedAt: time.Now().UTC(),
	}

	switch {
	case !m.settings.WhatsAppEnabled():
		attempt.Status = models.NotificationStatusSkipped
		attempt.Error = "whatsapp notifications disabled"
	case !m.notifier.Configured():
		attempt.Status = models.NotificationStatusSkipped
		attempt.Error = "whatsapp channel not configured"
	default:
		if err := m.notifier.Send(ctx, message); err != nil {
			attempt.Status = models.NotificationStatusFailed
			attempt.Error = err.Error()
			m.stats.RecordNotification(false)
			report.Errors = append(report.Errors, fmt.Sprintf("notification for alert %d: %v", alertID, err))
		} else {
			attempt.Status = models.NotificationStatusSent
			m.stats.RecordNotification(true)
		}
	}

	if err := m.store.AppendNotificationAttempt(attempt); err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("notification attempt for alert %d: %v", alertID, err))
	}
}
