package config

import (
	"fmt"
	"sync"
)

// RuntimeSettings holds monitoring parameters that can be changed at
// runtime through the settings API without restarting the service.
type RuntimeSettings struct {
	mu              sync.RWMutex
	intervalMinutes int
	cooldownHours   float64
	whatsappEnabled bool
}

// RuntimeSnapshot is a consistent point-in-time view of the settings.
type RuntimeSnapshot struct {
	IntervalMinutes int     `json:"monitoring_interval_minutes"`
	CooldownHours   float64 `json:"cooldown_hours"`
	WhatsAppEnabled bool    `json:"whatsapp_enabled"`
}

func NewRuntimeSettings(cfg *Config) *RuntimeSettings {
	interval := cfg.MonitoringIntervalMinutes
	if interval < 1 || interval > 60 {
		interval = 5
	}
	cooldown := cfg.CooldownHours
	if cooldown < 0 {
		cooldown = 1.0
	}
	return &RuntimeSettings{
		intervalMinutes: interval,
		cooldownHours:   cooldown,
		whatsappEnabled: cfg.EnableWhatsApp,
	}
}

func (r *RuntimeSettings) Snapshot() RuntimeSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return RuntimeSnapshot{
		IntervalMinutes: r.intervalMinutes,
		CooldownHours:   r.cooldownHours,
		WhatsAppEnabled: r.whatsappEnabled,
	}
}

func (r *RuntimeSettings) IntervalMinutes() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.intervalMinutes
}

func (r *RuntimeSettings) CooldownHours() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cooldownHours
}

func (r *RuntimeSettings) WhatsAppEnabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.whatsappEnabled
}

// SetIntervalMinutes validates and updates the monitoring interval.
// The interval must be between 1 and 60 minutes.
func (r *RuntimeSettings) SetIntervalMinutes(minutes int) error {
	if minutes < 1 || minutes > 60 {
		return fmt.Errorf("monitoring interval must be between 1 and 60 minutes, got %d", minutes)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intervalMinutes = minutes
	return nil
}

func (r *RuntimeSettings) SetCooldownHours(hours float64) error {
	if hours < 0 {
		return fmt.Errorf("cooldown hours must not be negative, got %v", hours)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cooldownHours = hours
	return nil
}

func (r *RuntimeSettings) SetWhatsAppEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.whatsappEnabled = enabled
}
