package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"price_alert_backend/services/whatsapp"
	"price_alert_backend/store"
)

// NotificationController exposes the notification channel: a test
// endpoint and the delivery attempt log.
type NotificationController struct {
	Store    *store.Store
	WhatsApp *whatsapp.Service
}

func NewNotificationController(s *store.Store, w *whatsapp.Service) *NotificationController {
	return &NotificationController{Store: s, WhatsApp: w}
}

// SendTest handles POST /api/notifications/test
func (ctl *NotificationController) SendTest(c *gin.Context) {
	if !ctl.WhatsApp.Configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "whatsapp channel is not configured"})
		return
	}

	message := "✅ *Prueba de notificación*\n\nEl canal de alertas está funcionando correctamente."
	if err := ctl.WhatsApp.Send(c.Request.Context(), message); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "test notification sent"})
}

// ListAttempts handles GET /api/notifications/attempts
func (ctl *NotificationController) ListAttempts(c *gin.Context) {
	alertID, _ := strconv.ParseUint(c.DefaultQuery("alert_id", "0"), 10, 32)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	attempts, err := ctl.Store.ListNotificationAttempts(uint(alertID), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notification attempts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempts": attempts, "count": len(attempts)})
}
