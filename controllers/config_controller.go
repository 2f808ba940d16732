package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"price_alert_backend/config"
	"price_alert_backend/scheduler"
)

// ConfigController exposes the runtime monitoring settings.
type ConfigController struct {
	Settings  *config.RuntimeSettings
	Scheduler *scheduler.Scheduler
}

func NewConfigController(settings *config.RuntimeSettings, sched *scheduler.Scheduler) *ConfigController {
	return &ConfigController{Settings: settings, Scheduler: sched}
}

type updateSettingsRequest struct {
	IntervalMinutes *int     `json:"monitoring_interval_minutes"`
	CooldownHours   *float64 `json:"cooldown_hours"`
	WhatsAppEnabled *bool    `json:"whatsapp_enabled"`
}

// GetSettings handles GET /api/config
func (ctl *ConfigController) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, ctl.Settings.Snapshot())
}

// UpdateSettings handles PUT /api/config. Interval changes are applied
// to the running scheduler immediately.
func (ctl *ConfigController) UpdateSettings(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.IntervalMinutes != nil {
		if err := ctl.Settings.SetIntervalMinutes(*req.IntervalMinutes); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := ctl.Scheduler.Reschedule(*req.IntervalMinutes); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	if req.CooldownHours != nil {
		if err := ctl.Settings.SetCooldownHours(*req.CooldownHours); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.WhatsAppEnabled != nil {
		ctl.Settings.SetWhatsAppEnabled(*req.WhatsAppEnabled)
	}

	c.JSON(http.StatusOK, ctl.Settings.Snapshot())
}
