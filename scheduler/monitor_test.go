package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"price_alert_backend/models"
	"price_alert_backend/services/alerts"
	"price_alert_backend/services/pricing"
)

type fakeStore struct {
	alerts       []models.Alert
	advanced     []models.AdvancedAlert
	history      []models.AlertTriggerHistory
	attempts     []models.NotificationAttempt
	triggered    []uint
	advTriggered []uint
	checked      []uint
	condUpdates  map[uint]datatypes.JSONMap
	listErr      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{condUpdates: make(map[uint]datatypes.JSONMap)}
}

func (f *fakeStore) ListAlerts(activeOnly bool) ([]models.Alert, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.alerts, nil
}

func (f *fakeStore) ListAdvancedAlerts(activeOnly bool) ([]models.AdvancedAlert, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.advanced, nil
}

func (f *fakeStore) RecordAlertTrigger(id uint, at time.Time) error {
	f.triggered = append(f.triggered, id)
	return nil
}

func (f *fakeStore) RecordAdvancedTrigger(alert *models.AdvancedAlert, at time.Time) error {
	f.advTriggered = append(f.advTriggered, alert.ID)
	return nil
}

func (f *fakeStore) TouchAdvancedChecked(id uint, at time.Time) error {
	f.checked = append(f.checked, id)
	return nil
}

func (f *fakeStore) UpdateAdvancedConditions(id uint, conditions datatypes.JSONMap) error {
	f.condUpdates[id] = conditions
	return nil
}

func (f *fakeStore) AppendTriggerHistory(entry *models.AlertTriggerHistory) (string, error) {
	entry.ID = "history-" + entry.Symbol
	f.history = append(f.history, *entry)
	return entry.ID, nil
}

func (f *fakeStore) AppendNotificationAttempt(attempt *models.NotificationAttempt) error {
	f.attempts = append(f.attempts, *attempt)
	return nil
}

type fakeQuotes struct {
	prices map[string]float64
	errs   map[string]error
	calls  []string
}

func (f *fakeQuotes) GetQuote(ctx context.Context, symbol, assetType string) (*pricing.Quote, error) {
	f.calls = append(f.calls, symbol)
	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}
	return &pricing.Quote{Symbol: symbol, Price: f.prices[symbol], Source: "fake"}, nil
}

type fakeEvaluator struct {
	results map[uint]alerts.Result
	errs    map[uint]error
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, alert *models.AdvancedAlert) (alerts.Result, error) {
	if err, ok := f.errs[alert.ID]; ok {
		return alerts.Result{}, err
	}
	return f.results[alert.ID], nil
}

type fakeNotifier struct {
	configured bool
	sendErr    error
	sent       []string
}

func (f *fakeNotifier) Configured() bool {
	return f.configured
}

func (f *fakeNotifier) Recipient() string {
	return "+5491100000000"
}

func (f *fakeNotifier) Send(ctx context.Context, body string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, body)
	return nil
}

type fakeSettings struct {
	interval int
	cooldown float64
	whatsapp bool
}

func (f *fakeSettings) IntervalMinutes() int   { return f.interval }
func (f *fakeSettings) CooldownHours() float64 { return f.cooldown }
func (f *fakeSettings) WhatsAppEnabled() bool  { return f.whatsapp }

func newTestMonitor(store *fakeStore, quotes *fakeQuotes, ev *fakeEvaluator, notifier *fakeNotifier) *Monitor {
	if quotes == nil {
		quotes = &fakeQuotes{}
	}
	if ev == nil {
		ev = &fakeEvaluator{}
	}
	if notifier == nil {
		notifier = &fakeNotifier{configured: true}
	}
	return NewMonitor(store, quotes, ev, notifier, &fakeSettings{interval: 5, cooldown: 1.0, whatsapp: true})
}

func TestRunCycleEmpty(t *testing.T) {
	store := newFakeStore()
	m := newTestMonitor(store, nil, nil, nil)

	report := m.RunCycle(context.Background())

	if report.AlertsChecked != 0 || report.AdvancedChecked != 0 || report.TriggersFired != 0 {
		t.Errorf("empty cycle produced work: %+v", report)
	}
	if len(report.Errors) != 0 {
		t.Errorf("empty cycle produced errors: %v", report.Errors)
	}
}

func TestRunCycleIsolatesFailures(t *testing.T) {
	store := newFakeStore()
	store.alerts = []models.Alert{
		{ID: 1, Symbol: "FAIL", AssetType: "stock", Direction: "above",
			ThresholdPrice: decimal.NewFromInt(100), Active: true},
		{ID: 2, Symbol: "AAPL", AssetType: "stock", Direction: "above",
			ThresholdPrice: decimal.NewFromInt(100), Active: true},
	}
	quotes := &fakeQuotes{
		prices: map[string]float64{"AAPL": 150},
		errs:   map[string]error{"FAIL": errors.New("provider down")},
	}
	notifier := &fakeNotifier{configured: true}
	m := newTestMonitor(store, quotes, nil, notifier)

	report := m.RunCycle(context.Background())

	// The failed fetch never completed a check
	if report.AlertsChecked != 1 {
		t.Errorf("alerts checked = %d, want 1", report.AlertsChecked)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("errors = %v, want exactly one", report.Errors)
	}
	if report.TriggersFired != 1 {
		t.Errorf("triggers fired = %d, want 1", report.TriggersFired)
	}
	if len(store.history) != 1 || store.history[0].Symbol != "AAPL" {
		t.Errorf("history = %+v, want one AAPL entry", store.history)
	}
	if len(notifier.sent) != 1 {
		t.Errorf("notifications sent = %d, want 1", len(notifier.sent))
	}
	if len(store.triggered) != 1 || store.triggered[0] != 2 {
		t.Errorf("recorded triggers = %v, want [2]", store.triggered)
	}
}

func TestRunCycleCooldownSuppression(t *testing.T) {
	recent := time.Now().UTC().Add(-10 * time.Minute)
	store := newFakeStore()
	store.alerts = []models.Alert{
		{ID: 1, Symbol: "AAPL", AssetType: "stock", Direction: "above",
			ThresholdPrice: decimal.NewFromInt(100), Active: true,
			LastTriggeredAt: &recent},
	}
	quotes := &fakeQuotes{prices: map[string]float64{"AAPL": 150}}
	m := newTestMonitor(store, quotes, nil, nil)

	report := m.RunCycle(context.Background())

	if report.TriggersFired != 0 {
		t.Errorf("cooldown alert fired, report %+v", report)
	}
	if report.AlertsChecked != 1 {
		t.Errorf("alerts checked = %d, want cooldown skip counted", report.AlertsChecked)
	}
	if len(quotes.calls) != 0 {
		t.Errorf("price fetched for suppressed alert: %v", quotes.calls)
	}
	if len(store.history) != 0 || len(store.attempts) != 0 {
		t.Error("suppressed trigger must leave no history or attempts")
	}
}

func TestRunCycleAdvancedBaselineCapture(t *testing.T) {
	store := newFakeStore()
	store.advanced = []models.AdvancedAlert{
		{ID: 7, Symbol: "BTC", AssetType: "crypto",
			AlertKind: models.AlertKindPercentageChange, Active: true},
	}
	ev := &fakeEvaluator{results: map[uint]alerts.Result{
		7: {
			Reason:            "baseline_captured",
			Price:             50000,
			UpdatedConditions: datatypes.JSONMap{"baseline_price": 50000.0},
		},
	}}
	m := newTestMonitor(store, nil, ev, nil)

	report := m.RunCycle(context.Background())

	if report.TriggersFired != 0 {
		t.Errorf("baseline capture must not trigger, report %+v", report)
	}
	if _, ok := store.condUpdates[7]; !ok {
		t.Error("captured baseline was not persisted")
	}
	if len(store.history) != 0 {
		t.Error("baseline capture must not write history")
	}
}

func TestRunCycleAdvancedTrigger(t *testing.T) {
	store := newFakeStore()
	store.advanced = []models.AdvancedAlert{
		{ID: 9, Symbol: "AAPL", AssetType: "stock",
			AlertKind: models.AlertKindTechnicalIndicator, Active: true},
	}
	ev := &fakeEvaluator{results: map[uint]alerts.Result{
		9: {
			Triggered: true,
			Reason:    "rsi(14) is 72.00, crosses_above 70.00",
			Snapshot:  map[string]interface{}{"indicator": "rsi"},
		},
	}}
	notifier := &fakeNotifier{configured: true}
	m := newTestMonitor(store, nil, ev, notifier)

	report := m.RunCycle(context.Background())

	if report.TriggersFired != 1 {
		t.Fatalf("triggers fired = %d, want 1", report.TriggersFired)
	}
	if len(store.history) != 1 || store.history[0].AlertType != "advanced" {
		t.Errorf("history = %+v, want one advanced entry", store.history)
	}
	if len(store.advTriggered) != 1 || store.advTriggered[0] != 9 {
		t.Errorf("recorded advanced triggers = %v, want [9]", store.advTriggered)
	}
	if len(notifier.sent) != 1 {
		t.Errorf("notifications sent = %d, want 1", len(notifier.sent))
	}
}

func TestRunCycleSkipsExpiredAdvanced(t *testing.T) {
	expired := time.Now().UTC().Add(-time.Hour)
	store := newFakeStore()
	store.advanced = []models.AdvancedAlert{
		{ID: 3, Symbol: "AAPL", AssetType: "stock",
			AlertKind: models.AlertKindPercentageChange, Active: true,
			ExpiresAt: &expired},
	}
	ev := &fakeEvaluator{results: map[uint]alerts.Result{
		3: {Triggered: true, Reason: "should never be seen"},
	}}
	m := newTestMonitor(store, nil, ev, nil)

	report := m.RunCycle(context.Background())

	if report.AdvancedChecked != 0 || report.TriggersFired != 0 {
		t.Errorf("expired alert was evaluated: %+v", report)
	}
	// The visit is still stamped even though the alert is past expiry
	if len(store.checked) != 1 || store.checked[0] != 3 {
		t.Errorf("checked stamps = %v, want [3]", store.checked)
	}
}

func TestRunCycleStampsCooldownAdvanced(t *testing.T) {
	recent := time.Now().UTC().Add(-10 * time.Minute)
	store := newFakeStore()
	store.advanced = []models.AdvancedAlert{
		{ID: 5, Symbol: "BTC", AssetType: "crypto",
			AlertKind: models.AlertKindPercentageChange, Active: true,
			LastTriggeredAt: &recent},
	}
	ev := &fakeEvaluator{results: map[uint]alerts.Result{
		5: {Triggered: true, Reason: "should never be seen"},
	}}
	m := newTestMonitor(store, nil, ev, nil)

	report := m.RunCycle(context.Background())

	if report.TriggersFired != 0 {
		t.Errorf("cooldown advanced alert fired: %+v", report)
	}
	if report.AdvancedChecked != 1 {
		t.Errorf("advanced checked = %d, want cooldown skip counted", report.AdvancedChecked)
	}
	if len(store.checked) != 1 || store.checked[0] != 5 {
		t.Errorf("checked stamps = %v, want [5]", store.checked)
	}
}

func TestNotifyDisabledRecordsSkip(t *testing.T) {
	store := newFakeStore()
	store.alerts = []models.Alert{
		{ID: 1, Symbol: "AAPL", AssetType: "stock", Direction: "above",
			ThresholdPrice: decimal.NewFromInt(100), Active: true},
	}
	quotes := &fakeQuotes{prices: map[string]float64{"AAPL": 150}}
	notifier := &fakeNotifier{configured: true}
	m := NewMonitor(store, quotes, &fakeEvaluator{}, notifier,
		&fakeSettings{interval: 5, cooldown: 1.0, whatsapp: false})

	m.RunCycle(context.Background())

	if len(notifier.sent) != 0 {
		t.Error("disabled channel must not send")
	}
	if len(store.attempts) != 1 {
		t.Fatalf("attempts = %d, want 1", len(store.attempts))
	}
	if store.attempts[0].Status != models.NotificationStatusSkipped {
		t.Errorf("attempt status = %q, want skipped", store.attempts[0].Status)
	}
	// The trigger itself still lands in history
	if len(store.history) != 1 {
		t.Errorf("history = %d entries, want 1", len(store.history))
	}
}

func TestNotifyFailureDoesNotLoseTrigger(t *testing.T) {
	store := newFakeStore()
	store.alerts = []models.Alert{
		{ID: 1, Symbol: "AAPL", AssetType: "stock", Direction: "below",
			ThresholdPrice: decimal.NewFromInt(200), Active: true},
	}
	quotes := &fakeQuotes{prices: map[string]float64{"AAPL": 150}}
	notifier := &fakeNotifier{configured: true, sendErr: errors.New("twilio down")}
	m := newTestMonitor(store, quotes, nil, notifier)

	report := m.RunCycle(context.Background())

	if report.TriggersFired != 1 {
		t.Fatalf("triggers fired = %d, want 1", report.TriggersFired)
	}
	if len(store.history) != 1 {
		t.Error("trigger history missing after delivery failure")
	}
	if len(store.attempts) != 1 || store.attempts[0].Status != models.NotificationStatusFailed {
		t.Errorf("attempts = %+v, want one failed", store.attempts)
	}
	if len(store.triggered) != 1 {
		t.Error("trigger count update missing after delivery failure")
	}
}

func TestRunCycleFailsWhenLoadFails(t *testing.T) {
	store := newFakeStore()
	store.listErr = errors.New("database is locked")
	m := newTestMonitor(store, nil, nil, nil)

	report := m.RunCycle(context.Background())

	if !report.Failed {
		t.Fatal("load failure must fail the cycle")
	}
	snap := m.Stats().Snapshot()
	if snap["failed_cycles"] != int64(1) {
		t.Errorf("failed_cycles = %v, want 1", snap["failed_cycles"])
	}
	if snap["successful_cycles"] != int64(0) {
		t.Errorf("successful_cycles = %v, want 0", snap["successful_cycles"])
	}
}

func TestRunCycleStampsLastChecked(t *testing.T) {
	store := newFakeStore()
	store.advanced = []models.AdvancedAlert{
		{ID: 4, Symbol: "AAPL", AssetType: "stock",
			AlertKind: models.AlertKindPercentageChange, Active: true},
	}
	ev := &fakeEvaluator{results: map[uint]alerts.Result{
		4: {Reason: "threshold_not_met"},
	}}
	m := newTestMonitor(store, nil, ev, nil)

	m.RunCycle(context.Background())

	if len(store.checked) != 1 || store.checked[0] != 4 {
		t.Errorf("checked stamps = %v, want [4]", store.checked)
	}
}

func TestStatsAccumulate(t *testing.T) {
	store := newFakeStore()
	store.alerts = []models.Alert{
		{ID: 1, Symbol: "AAPL", AssetType: "stock", Direction: "above",
			ThresholdPrice: decimal.NewFromInt(100), Active: true},
	}
	quotes := &fakeQuotes{prices: map[string]float64{"AAPL": 150}}
	m := newTestMonitor(store, quotes, nil, nil)

	m.RunCycle(context.Background())
	store.alerts[0].LastTriggeredAt = nil // keep the alert eligible
	m.RunCycle(context.Background())

	snap := m.Stats().Snapshot()
	if snap["total_cycles"] != int64(2) {
		t.Errorf("total_cycles = %v, want 2", snap["total_cycles"])
	}
	if snap["successful_cycles"] != int64(2) {
		t.Errorf("successful_cycles = %v, want 2", snap["successful_cycles"])
	}
	if snap["alerts_checked"] != int64(2) {
		t.Errorf("alerts_checked = %v, want 2", snap["alerts_checked"])
	}
	if snap["triggers_fired"] != int64(2) {
		t.Errorf("triggers_fired = %v, want 2", snap["triggers_fired"])
	}
}
