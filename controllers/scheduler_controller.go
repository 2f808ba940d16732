package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"price_alert_backend/scheduler"
)

// SchedulerController exposes scheduler control and monitoring stats.
type SchedulerController struct {
	Scheduler *scheduler.Scheduler
	Monitor   *scheduler.Monitor
}

func NewSchedulerController(s *scheduler.Scheduler, m *scheduler.Monitor) *SchedulerController {
	return &SchedulerController{Scheduler: s, Monitor: m}
}

// GetStatus handles GET /api/scheduler/status
func (ctl *SchedulerController) GetStatus(c *gin.Context) {
	status := ctl.Scheduler.Status()
	status["stats"] = ctl.Monitor.Stats().Snapshot()
	c.JSON(http.StatusOK, status)
}

// Start handles POST /api/scheduler/start
func (ctl *SchedulerController) Start(c *gin.Context) {
	if err := ctl.Scheduler.Start(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ctl.Scheduler.Status())
}

// Stop handles POST /api/scheduler/stop
func (ctl *SchedulerController) Stop(c *gin.Context) {
	ctl.Scheduler.Stop()
	c.JSON(http.StatusOK, ctl.Scheduler.Status())
}

// Restart handles POST /api/scheduler/restart
func (ctl *SchedulerController) Restart(c *gin.Context) {
	if err := ctl.Scheduler.Restart(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ctl.Scheduler.Status())
}

// RunNow handles POST /api/scheduler/run-now and executes one cycle
// synchronously, returning its report.
func (ctl *SchedulerController) RunNow(c *gin.Context) {
	report := ctl.Scheduler.RunNow(c.Request.Context())
	status := http.StatusOK
	if report.Failed {
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{
		"alerts_checked":   report.AlertsChecked,
		"advanced_checked": report.AdvancedChecked,
		"triggers_fired":   report.TriggersFired,
		"triggered":        report.Triggered,
		"errors":           report.Errors,
		"failed":           report.Failed,
		"duration":         report.Duration.String(),
	})
}

// GetStats handles GET /api/scheduler/stats
func (ctl *SchedulerController) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, ctl.Monitor.Stats().Snapshot())
}
