package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

// Scheduler owns the periodic execution of the monitoring cycle. It
// can be started, stopped and rescheduled at runtime.
type Scheduler struct {
	monitor  *Monitor
	settings Settings

	mu      sync.Mutex
	cron    *gocron.Scheduler
	job     *gocron.Job
	running bool
}

func NewScheduler(monitor *Monitor, settings Settings) *Scheduler {
	return &Scheduler{
		monitor:  monitor,
		settings: settings,
	}
}

// Start begins periodic monitoring at the configured interval.
// Starting an already-running scheduler is a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		log.Printf("Warning: scheduler already running, start ignored")
		return nil
	}

	interval := s.settings.IntervalMinutes()
	cron := gocron.NewScheduler(time.UTC)

	job, err := cron.Every(interval).Minutes().SingletonMode().Do(func() {
		s.monitor.RunCycle(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule monitoring job: %w", err)
	}

	cron.StartAsync()
	s.cron = cron
	s.job = job
	s.running = true
	log.Printf("Monitoring scheduler started, interval %d minutes", interval)
	return nil
}

// Stop halts periodic monitoring and waits for an in-flight cycle to
// finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cron.Stop()
	s.cron = nil
	s.job = nil
	s.running = false

	// Wait for any in-flight cycle before reporting stopped
	s.monitor.runMu.Lock()
	s.monitor.runMu.Unlock()
	log.Printf("Monitoring scheduler stopped")
}

// Restart stops the scheduler, waits briefly, and starts it again.
func (s *Scheduler) Restart() error {
	s.Stop()
	time.Sleep(time.Second)
	return s.Start()
}

// Reschedule applies a new interval. When running, the job is replaced
// in place; otherwise the next Start picks the interval up from the
// settings.
func (s *Scheduler) Reschedule(minutes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.cron.Stop()
	cron := gocron.NewScheduler(time.UTC)
	job, err := cron.Every(minutes).Minutes().SingletonMode().Do(func() {
		s.monitor.RunCycle(context.Background())
	})
	if err != nil {
		s.running = false
		s.cron = nil
		s.job = nil
		return fmt.Errorf("failed to reschedule monitoring job: %w", err)
	}

	cron.StartAsync()
	s.cron = cron
	s.job = job
	log.Printf("Monitoring rescheduled to every %d minutes", minutes)
	return nil
}

// RunNow executes one monitoring cycle immediately, outside the
// schedule. The cycle still serializes with any scheduled run.
func (s *Scheduler) RunNow(ctx context.Context) CycleReport {
	return s.monitor.RunCycle(ctx)
}

// Status reports the scheduler state for the API.
func (s *Scheduler) Status() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := map[string]interface{}{
		"running":          s.running,
		"interval_minutes": s.settings.IntervalMinutes(),
	}
	if s.running && s.job != nil {
		status["next_run"] = s.job.NextRun().UTC().Format(time.RFC3339)
		if last := s.job.LastRun(); !last.IsZero() {
			status["last_run"] = last.UTC().Format(time.RFC3339)
		}
	}
	return status
}
