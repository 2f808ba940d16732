package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"price_alert_backend/controllers"
)

// Controllers bundles everything the router mounts.
type Controllers struct {
	Alerts         *controllers.AlertController
	AdvancedAlerts *controllers.AdvancedAlertController
	Scheduler      *controllers.SchedulerController
	Config         *controllers.ConfigController
	Notifications  *controllers.NotificationController
	Prices         *controllers.PriceController
	CacheStats     func() map[string]interface{}
}

// SetupRoutes registers all API routes.
func SetupRoutes(router *gin.Engine, ctl Controllers) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"price_cache": ctl.CacheStats(),
		})
	})

	api := router.Group("/api")
	{
		alerts := api.Group("/alerts")
		{
			alerts.POST("", ctl.Alerts.CreateAlert)
			alerts.GET("", ctl.Alerts.ListAlerts)
			alerts.GET("/:id", ctl.Alerts.GetAlert)
			alerts.PUT("/:id", ctl.Alerts.UpdateAlert)
			alerts.DELETE("/:id", ctl.Alerts.DeleteAlert)
			alerts.POST("/:id/toggle", ctl.Alerts.ToggleAlert)
			alerts.GET("/:id/history", ctl.Alerts.GetAlertHistory)
		}

		advanced := api.Group("/advanced-alerts")
		{
			advanced.GET("/kinds", ctl.AdvancedAlerts.ListKinds)
			advanced.POST("", ctl.AdvancedAlerts.CreateAdvancedAlert)
			advanced.GET("", ctl.AdvancedAlerts.ListAdvancedAlerts)
			advanced.GET("/:id", ctl.AdvancedAlerts.GetAdvancedAlert)
			advanced.PUT("/:id", ctl.AdvancedAlerts.UpdateAdvancedAlert)
			advanced.DELETE("/:id", ctl.AdvancedAlerts.DeleteAdvancedAlert)
			advanced.POST("/:id/toggle", ctl.AdvancedAlerts.ToggleAdvancedAlert)
			advanced.GET("/:id/history", ctl.AdvancedAlerts.GetAdvancedAlertHistory)
		}

		sched := api.Group("/scheduler")
		{
			sched.GET("/status", ctl.Scheduler.GetStatus)
			sched.POST("/start", ctl.Scheduler.Start)
			sched.POST("/stop", ctl.Scheduler.Stop)
			sched.POST("/restart", ctl.Scheduler.Restart)
			sched.POST("/run-now", ctl.Scheduler.RunNow)
			sched.GET("/stats", ctl.Scheduler.GetStats)
		}

		api.GET("/config", ctl.Config.GetSettings)
		api.PUT("/config", ctl.Config.UpdateSettings)

		notifications := api.Group("/notifications")
		{
			notifications.POST("/test", ctl.Notifications.SendTest)
			notifications.GET("/attempts", ctl.Notifications.ListAttempts)
		}

		prices := api.Group("/prices")
		{
			prices.DELETE("/cache", ctl.Prices.InvalidateCache)
			prices.GET("/:symbol", ctl.Prices.GetPrice)
		}
	}
}
