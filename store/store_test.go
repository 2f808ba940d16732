package store

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"price_alert_backend/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	s := NewStore(db)
	if err := s.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return s
}

func TestAlertCRUD(t *testing.T) {
	s := newTestStore(t)

	alert := &models.Alert{
		Symbol:         "AAPL",
		AssetType:      models.AssetTypeStock,
		ThresholdPrice: decimal.RequireFromString("190.50"),
		Direction:      models.DirectionAbove,
		Active:         true,
	}
	if err := s.CreateAlert(alert); err != nil {
		t.Fatalf("create: %v", err)
	}
	if alert.ID == 0 {
		t.Fatal("create did not assign an ID")
	}

	got, err := s.GetAlert(alert.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.ThresholdPrice.Equal(decimal.RequireFromString("190.50")) {
		t.Errorf("threshold = %s, want 190.50", got.ThresholdPrice)
	}

	got.Direction = models.DirectionBelow
	if err := s.UpdateAlert(got); err != nil {
		t.Fatalf("update: %v", err)
	}

	if err := s.DeleteAlert(alert.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetAlert(alert.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete = %v, want ErrNotFound", err)
	}
	if err := s.DeleteAlert(alert.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete = %v, want ErrNotFound", err)
	}
}

func TestListAlertsActiveFilter(t *testing.T) {
	s := newTestStore(t)

	for _, active := range []bool{true, false, true} {
		alert := &models.Alert{
			Symbol:         "AAPL",
			AssetType:      models.AssetTypeStock,
			ThresholdPrice: decimal.NewFromInt(100),
			Direction:      models.DirectionAbove,
			Active:         active,
		}
		if err := s.CreateAlert(alert); err != nil {
			t.Fatalf("create: %v", err)
		}
		// gorm skips zero-value fields on create with default tags
		if !active {
			if err := s.db.Model(alert).Update("active", false).Error; err != nil {
				t.Fatalf("deactivate: %v", err)
			}
		}
	}

	all, err := s.ListAlerts(false)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all = %d, want 3", len(all))
	}

	active, err := s.ListAlerts(true)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 2 {
		t.Errorf("active = %d, want 2", len(active))
	}
}

func TestToggleAlert(t *testing.T) {
	s := newTestStore(t)

	alert := &models.Alert{
		Symbol:         "BTC",
		AssetType:      models.AssetTypeCrypto,
		ThresholdPrice: decimal.NewFromInt(50000),
		Direction:      models.DirectionBelow,
		Active:         true,
	}
	if err := s.CreateAlert(alert); err != nil {
		t.Fatalf("create: %v", err)
	}

	toggled, err := s.ToggleAlert(alert.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if toggled.Active {
		t.Error("first toggle should deactivate")
	}

	toggled, err = s.ToggleAlert(alert.ID)
	if err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	if !toggled.Active {
		t.Error("second toggle should reactivate")
	}
}

func TestRecordAlertTrigger(t *testing.T) {
	s := newTestStore(t)

	alert := &models.Alert{
		Symbol:         "AAPL",
		AssetType:      models.AssetTypeStock,
		ThresholdPrice: decimal.NewFromInt(100),
		Direction:      models.DirectionAbove,
		Active:         true,
	}
	if err := s.CreateAlert(alert); err != nil {
		t.Fatalf("create: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	if err := s.RecordAlertTrigger(alert.ID, now); err != nil {
		t.Fatalf("record trigger: %v", err)
	}
	if err := s.RecordAlertTrigger(alert.ID, now.Add(time.Hour)); err != nil {
		t.Fatalf("record second trigger: %v", err)
	}

	got, err := s.GetAlert(alert.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TriggerCount != 2 {
		t.Errorf("trigger count = %d, want 2", got.TriggerCount)
	}
	if got.LastTriggeredAt == nil {
		t.Fatal("last triggered at not set")
	}

	if err := s.RecordAlertTrigger(9999, now); !errors.Is(err, ErrNotFound) {
		t.Errorf("trigger on missing alert = %v, want ErrNotFound", err)
	}
}

func TestAdvancedAlertMaxTriggersDeactivates(t *testing.T) {
	s := newTestStore(t)

	alert := &models.AdvancedAlert{
		Symbol:    "AAPL",
		AssetType: models.AssetTypeStock,
		AlertKind: models.AlertKindPercentageChange,
		Conditions: datatypes.JSONMap{
			"threshold_percent": 5.0,
		},
		Active:      true,
		MaxTriggers: 2,
	}
	if err := s.CreateAdvancedAlert(alert); err != nil {
		t.Fatalf("create: %v", err)
	}

	now := time.Now().UTC()
	if err := s.RecordAdvancedTrigger(alert, now); err != nil {
		t.Fatalf("first trigger: %v", err)
	}
	if !alert.Active {
		t.Fatal("deactivated before reaching max triggers")
	}
	if err := s.RecordAdvancedTrigger(alert, now.Add(time.Hour)); err != nil {
		t.Fatalf("second trigger: %v", err)
	}

	got, err := s.GetAdvancedAlert(alert.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Active {
		t.Error("alert must deactivate at max triggers")
	}
	if got.TriggerCount != 2 {
		t.Errorf("trigger count = %d, want 2", got.TriggerCount)
	}
}

func TestUpdateAdvancedConditions(t *testing.T) {
	s := newTestStore(t)

	alert := &models.AdvancedAlert{
		Symbol:    "BTC",
		AssetType: models.AssetTypeCrypto,
		AlertKind: models.AlertKindPercentageChange,
		Conditions: datatypes.JSONMap{
			"threshold_percent": 5.0,
		},
		Active: true,
	}
	if err := s.CreateAdvancedAlert(alert); err != nil {
		t.Fatalf("create: %v", err)
	}

	updated := datatypes.JSONMap{
		"threshold_percent": 5.0,
		"baseline_price":    50000.0,
	}
	if err := s.UpdateAdvancedConditions(alert.ID, updated); err != nil {
		t.Fatalf("update conditions: %v", err)
	}

	got, err := s.GetAdvancedAlert(alert.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if baseline, ok := got.ConditionFloat("baseline_price"); !ok || baseline != 50000.0 {
		t.Errorf("baseline_price = %v (%v), want 50000", baseline, ok)
	}

	// The trigger counter is untouched by condition updates
	if got.TriggerCount != 0 {
		t.Errorf("trigger count = %d, want 0", got.TriggerCount)
	}

	now := time.Now().UTC().Truncate(time.Second)
	if err := s.TouchAdvancedChecked(alert.ID, now); err != nil {
		t.Fatalf("touch checked: %v", err)
	}
	got, err = s.GetAdvancedAlert(alert.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LastCheckedAt == nil {
		t.Error("last checked at not stamped")
	}
}

func TestTriggerHistoryAppendAndList(t *testing.T) {
	s := newTestStore(t)

	id, err := s.AppendTriggerHistory(&models.AlertTriggerHistory{
		AlertID:   1,
		AlertType: "simple",
		Symbol:    "AAPL",
		Price:     150.25,
		Reason:    "price above threshold 150",
		Snapshot:  datatypes.JSONMap{"source": "alphavantage"},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if id == "" {
		t.Fatal("append did not return an ID")
	}

	if _, err := s.AppendTriggerHistory(&models.AlertTriggerHistory{
		AlertID:   2,
		AlertType: "advanced",
		Symbol:    "BTC",
		Price:     50000,
		Reason:    "moved 6% from baseline",
	}); err != nil {
		t.Fatalf("append second: %v", err)
	}

	entries, err := s.ListTriggerHistory(0, "", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("history = %d entries, want 2", len(entries))
	}

	simple, err := s.ListTriggerHistory(1, "simple", 10)
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(simple) != 1 || simple[0].Symbol != "AAPL" {
		t.Errorf("filtered history = %+v, want one AAPL entry", simple)
	}
}

func TestNotificationAttempts(t *testing.T) {
	s := newTestStore(t)

	if err := s.AppendNotificationAttempt(&models.NotificationAttempt{
		HistoryID: "h1",
		AlertID:   1,
		Channel:   "whatsapp",
		Status:    models.NotificationStatusSent,
	}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.AppendNotificationAttempt(&models.NotificationAttempt{
		HistoryID: "h2",
		AlertID:   2,
		Channel:   "whatsapp",
		Status:    models.NotificationStatusFailed,
		Error:     "twilio returned status 500",
	}); err != nil {
		t.Fatalf("append second: %v", err)
	}

	attempts, err := s.ListNotificationAttempts(0, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(attempts) != 2 {
		t.Errorf("attempts = %d, want 2", len(attempts))
	}

	failed, err := s.ListNotificationAttempts(2, 10)
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(failed) != 1 || failed[0].Status != models.NotificationStatusFailed {
		t.Errorf("filtered attempts = %+v, want one failed", failed)
	}
}
