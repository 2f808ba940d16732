package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"price_alert_backend/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Store wraps all database access for alerts, trigger history and
// notification attempts.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates all tables.
func (s *Store) Migrate() error {
	return models.MigrateModels(s.db)
}

// ---- Simple alerts ----

func (s *Store) CreateAlert(alert *models.Alert) error {
	if err := s.db.Create(alert).Error; err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

func (s *Store) GetAlert(id uint) (*models.Alert, error) {
	var alert models.Alert
	if err := s.db.First(&alert, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get alert %d: %w", id, err)
	}
	return &alert, nil
}

func (s *Store) ListAlerts(activeOnly bool) ([]models.Alert, error) {
	var alerts []models.Alert
	query := s.db.Order("created_at DESC")
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	if err := query.Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}

func (s *Store) UpdateAlert(alert *models.Alert) error {
	if err := s.db.Save(alert).Error; err != nil {
		return fmt.Errorf("failed to update alert %d: %w", alert.ID, err)
	}
	return nil
}

func (s *Store) DeleteAlert(id uint) error {
	result := s.db.Delete(&models.Alert{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete alert %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleAlert flips the active flag and returns the updated alert.
func (s *Store) ToggleAlert(id uint) (*models.Alert, error) {
	alert, err := s.GetAlert(id)
	if err != nil {
		return nil, err
	}
	alert.Active = !alert.Active
	if err := s.UpdateAlert(alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// RecordAlertTrigger increments the trigger count and stamps the
// trigger time on a simple alert.
func (s *Store) RecordAlertTrigger(id uint, at time.Time) error {
	result := s.db.Model(&models.Alert{}).Where("id = ?", id).Updates(map[string]interface{}{
		"trigger_count":     gorm.Expr("trigger_count + 1"),
		"last_triggered_at": at,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to record trigger for alert %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- Advanced alerts ----

func (s *Store) CreateAdvancedAlert(alert *models.AdvancedAlert) error {
	if err := s.db.Create(alert).Error; err != nil {
		return fmt.Errorf("failed to create advanced alert: %w", err)
	}
	return nil
}

func (s *Store) GetAdvancedAlert(id uint) (*models.AdvancedAlert, error) {
	var alert models.AdvancedAlert
	if err := s.db.First(&alert, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get advanced alert %d: %w", id, err)
	}
	return &alert, nil
}

func (s *Store) ListAdvancedAlerts(activeOnly bool) ([]models.AdvancedAlert, error) {
	var alerts []models.AdvancedAlert
	query := s.db.Order("created_at DESC")
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	if err := query.Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("failed to list advanced alerts: %w", err)
	}
	return alerts, nil
}

func (s *Store) UpdateAdvancedAlert(alert *models.AdvancedAlert) error {
	if err := s.db.Save(alert).Error; err != nil {
		return fmt.Errorf("failed to update advanced alert %d: %w", alert.ID, err)
	}
	return nil
}

func (s *Store) DeleteAdvancedAlert(id uint) error {
	result := s.db.Delete(&models.AdvancedAlert{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete advanced alert %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ToggleAdvancedAlert(id uint) (*models.AdvancedAlert, error) {
	alert, err := s.GetAdvancedAlert(id)
	if err != nil {
		return nil, err
	}
	alert.Active = !alert.Active
	if err := s.UpdateAdvancedAlert(alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// RecordAdvancedTrigger increments the trigger count, stamps the
// trigger time and persists updated conditions (captured baselines,
// previous indicator values). Alerts that reach their max trigger
// count are deactivated in the same update.
func (s *Store) RecordAdvancedTrigger(alert *models.AdvancedAlert, at time.Time) error {
	alert.TriggerCount++
	alert.LastTriggeredAt = &at
	if alert.MaxTriggers > 0 && alert.TriggerCount >= alert.MaxTriggers {
		alert.Active = false
	}
	return s.UpdateAdvancedAlert(alert)
}

// TouchAdvancedChecked stamps the last evaluation time on an advanced
// alert.
func (s *Store) TouchAdvancedChecked(id uint, at time.Time) error {
	result := s.db.Model(&models.AdvancedAlert{}).Where("id = ?", id).
		Update("last_checked_at", at)
	if result.Error != nil {
		return fmt.Errorf("failed to stamp last checked for advanced alert %d: %w", id, result.Error)
	}
	return nil
}

// UpdateAdvancedConditions persists condition state without touching
// trigger counters, used for baseline capture and cross tracking.
func (s *Store) UpdateAdvancedConditions(id uint, conditions datatypes.JSONMap) error {
	result := s.db.Model(&models.AdvancedAlert{}).Where("id = ?", id).
		Update("conditions", conditions)
	if result.Error != nil {
		return fmt.Errorf("failed to update conditions for advanced alert %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- Trigger history ----

// AppendTriggerHistory writes an immutable trigger record and returns
// its generated ID.
func (s *Store) AppendTriggerHistory(entry *models.AlertTriggerHistory) (string, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.TriggeredAt.IsZero() {
		entry.TriggeredAt = time.Now().UTC()
	}
	if err := s.db.Create(entry).Error; err != nil {
		return "", fmt.Errorf("failed to append trigger history: %w", err)
	}
	return entry.ID, nil
}

func (s *Store) ListTriggerHistory(alertID uint, alertType string, limit int) ([]models.AlertTriggerHistory, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var entries []models.AlertTriggerHistory
	query := s.db.Order("triggered_at DESC").Limit(limit)
	if alertID != 0 {
		query = query.Where("alert_id = ?", alertID)
	}
	if alertType != "" {
		query = query.Where("alert_type = ?", alertType)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list trigger history: %w", err)
	}
	return entries, nil
}

// ---- Notification attempts ----

func (s *Store) AppendNotificationAttempt(attempt *models.NotificationAttempt) error {
	if attempt.AttemptedAt.IsZero() {
		attempt.AttemptedAt = time.Now().UTC()
	}
	if err := s.db.Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to append notification attempt: %w", err)
	}
	return nil
}

func (s *Store) ListNotificationAttempts(alertID uint, limit int) ([]models.NotificationAttempt, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var attempts []models.NotificationAttempt
	query := s.db.Order("attempted_at DESC").Limit(limit)
	if alertID != 0 {
		query = query.Where("alert_id = ?", alertID)
	}
	if err := query.Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to list notification attempts: %w", err)
	}
	return attempts, nil
}
