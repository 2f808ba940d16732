package scheduler

import (
	"sync"
	"time"
)

const maxRecentErrors = 20

// MonitoringStats accumulates counters across monitoring cycles. All
// methods are safe for concurrent use.
type MonitoringStats struct {
	mu sync.Mutex

	totalCycles         int64
	successfulCycles    int64
	failedCycles        int64
	lastCycleAt         time.Time
	lastCycleDuration   time.Duration
	alertsChecked       int64
	advancedChecked     int64
	triggersFired       int64
	notificationsSent   int64
	notificationsFailed int64
	totalErrors         int64
	lastError           string
	recentErrors        []string
}

// CycleReport summarizes one completed monitoring cycle. Failed is set
// only when the alert-loading step itself errored; per-alert failures
// land in Errors without failing the cycle.
type CycleReport struct {
	AlertsChecked   int
	AdvancedChecked int
	TriggersFired   int
	Triggered       []string
	Errors          []string
	Failed          bool
	Duration        time.Duration
}

func (s *MonitoringStats) RecordCycle(report CycleReport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalCycles++
	if report.Failed {
		s.failedCycles++
	} else {
		s.successfulCycles++
	}
	s.lastCycleAt = time.Now().UTC()
	s.lastCycleDuration = report.Duration
	s.alertsChecked += int64(report.AlertsChecked)
	s.advancedChecked += int64(report.AdvancedChecked)
	s.triggersFired += int64(report.TriggersFired)
	s.totalErrors += int64(len(report.Errors))

	if len(report.Errors) > 0 {
		s.lastError = report.Errors[len(report.Errors)-1]
	}
	s.recentErrors = append(s.recentErrors, report.Errors...)
	if len(s.recentErrors) > maxRecentErrors {
		s.recentErrors = s.recentErrors[len(s.recentErrors)-maxRecentErrors:]
	}
}

func (s *MonitoringStats) RecordNotification(sent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sent {
		s.notificationsSent++
	} else {
		s.notificationsFailed++
	}
}

// Snapshot returns the counters in a JSON-friendly map.
func (s *MonitoringStats) Snapshot() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lastCycle interface{}
	if !s.lastCycleAt.IsZero() {
		lastCycle = s.lastCycleAt.Format(time.RFC3339)
	}

	errs := make([]string, len(s.recentErrors))
	copy(errs, s.recentErrors)

	return map[string]interface{}{
		"total_cycles":         s.totalCycles,
		"successful_cycles":    s.successfulCycles,
		"failed_cycles":        s.failedCycles,
		"last_cycle_at":        lastCycle,
		"last_cycle_duration":  s.lastCycleDuration.String(),
		"alerts_checked":       s.alertsChecked,
		"advanced_checked":     s.advancedChecked,
		"triggers_fired":       s.triggersFired,
		"notifications_sent":   s.notificationsSent,
		"notifications_failed": s.notificationsFailed,
		"total_errors":         s.totalErrors,
		"last_error":           s.lastError,
		"recent_errors":        errs,
	}
}
