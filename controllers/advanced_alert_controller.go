package controllers

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"price_alert_backend/models"
	"price_alert_backend/store"
)

// AdvancedAlertController handles CRUD for condition-driven alerts.
type AdvancedAlertController struct {
	Store *store.Store
	Kinds []string
}

func NewAdvancedAlertController(s *store.Store, kinds []string) *AdvancedAlertController {
	return &AdvancedAlertController{Store: s, Kinds: kinds}
}

type createAdvancedAlertRequest struct {
	Symbol      string                 `json:"symbol" binding:"required"`
	AssetType   string                 `json:"asset_type"`
	AlertKind   string                 `json:"alert_kind" binding:"required"`
	Conditions  map[string]interface{} `json:"conditions" binding:"required"`
	Timeframe   string                 `json:"timeframe"`
	MaxTriggers int                    `json:"max_triggers"`
	ExpiresAt   *time.Time             `json:"expires_at"`
}

type updateAdvancedAlertRequest struct {
	Conditions  map[string]interface{} `json:"conditions"`
	Active      *bool                  `json:"active"`
	MaxTriggers *int                   `json:"max_triggers"`
	ExpiresAt   *time.Time             `json:"expires_at"`
}

// ListKinds handles GET /api/advanced-alerts/kinds
func (ctl *AdvancedAlertController) ListKinds(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"kinds": ctl.Kinds})
}

// CreateAdvancedAlert handles POST /api/advanced-alerts
func (ctl *AdvancedAlertController) CreateAdvancedAlert(c *gin.Context) {
	var req createAdvancedAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	assetType := req.AssetType
	if assetType == "" {
		assetType = models.AssetTypeAuto
	}
	if !validAssetType(assetType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "asset_type must be stock, crypto or auto"})
		return
	}
	if req.MaxTriggers < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "max_triggers must not be negative"})
		return
	}

	alert := &models.AdvancedAlert{
		Symbol:      strings.ToUpper(strings.TrimSpace(req.Symbol)),
		AssetType:   assetType,
		AlertKind:   req.AlertKind,
		Conditions:  datatypes.JSONMap(req.Conditions),
		Timeframe:   req.Timeframe,
		Active:      true,
		MaxTriggers: req.MaxTriggers,
		ExpiresAt:   req.ExpiresAt,
	}

	// Unknown kinds and inconsistent conditions are stored anyway; the
	// evaluator reports them as non-triggering reasons. Surface the
	// problem here as a warning so the caller can fix the alert.
	var warning string
	if err := alert.ValidateConditions(); err != nil {
		warning = err.Error()
		log.Printf("Advanced alert created with condition warning: %v", err)
	}

	if err := ctl.Store.CreateAdvancedAlert(alert); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create advanced alert"})
		return
	}
	if warning != "" {
		c.JSON(http.StatusCreated, gin.H{"alert": alert, "warning": warning})
		return
	}
	c.JSON(http.StatusCreated, alert)
}

// ListAdvancedAlerts handles GET /api/advanced-alerts?active=true
func (ctl *AdvancedAlertController) ListAdvancedAlerts(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	alerts, err := ctl.Store.ListAdvancedAlerts(activeOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list advanced alerts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts, "count": len(alerts)})
}

// GetAdvancedAlert handles GET /api/advanced-alerts/:id
func (ctl *AdvancedAlertController) GetAdvancedAlert(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	alert, err := ctl.Store.GetAdvancedAlert(id)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

// UpdateAdvancedAlert handles PUT /api/advanced-alerts/:id
func (ctl *AdvancedAlertController) UpdateAdvancedAlert(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req updateAdvancedAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	alert, err := ctl.Store.GetAdvancedAlert(id)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	var warning string
	if req.Conditions != nil {
		alert.Conditions = datatypes.JSONMap(req.Conditions)
		if err := alert.ValidateConditions(); err != nil {
			warning = err.Error()
			log.Printf("Advanced alert %d updated with condition warning: %v", alert.ID, err)
		}
	}
	if req.Active != nil {
		alert.Active = *req.Active
	}
	if req.MaxTriggers != nil {
		if *req.MaxTriggers < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "max_triggers must not be negative"})
			return
		}
		alert.MaxTriggers = *req.MaxTriggers
	}
	if req.ExpiresAt != nil {
		alert.ExpiresAt = req.ExpiresAt
	}

	if err := ctl.Store.UpdateAdvancedAlert(alert); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update advanced alert"})
		return
	}
	if warning != "" {
		c.JSON(http.StatusOK, gin.H{"alert": alert, "warning": warning})
		return
	}
	c.JSON(http.StatusOK, alert)
}

// DeleteAdvancedAlert handles DELETE /api/advanced-alerts/:id
func (ctl *AdvancedAlertController) DeleteAdvancedAlert(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := ctl.Store.DeleteAdvancedAlert(id); err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "advanced alert deleted"})
}

// ToggleAdvancedAlert handles POST /api/advanced-alerts/:id/toggle
func (ctl *AdvancedAlertController) ToggleAdvancedAlert(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	alert, err := ctl.Store.ToggleAdvancedAlert(id)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

// GetAdvancedAlertHistory handles GET /api/advanced-alerts/:id/history
func (ctl *AdvancedAlertController) GetAdvancedAlertHistory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	entries, err := ctl.Store.ListTriggerHistory(id, "advanced", limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries, "count": len(entries)})
}
