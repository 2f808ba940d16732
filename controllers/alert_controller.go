package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"price_alert_backend/models"
	"price_alert_backend/store"
)

// AlertController handles CRUD for simple threshold alerts.
type AlertController struct {
	Store *store.Store
}

func NewAlertController(s *store.Store) *AlertController {
	return &AlertController{Store: s}
}

type createAlertRequest struct {
	Symbol         string  `json:"symbol" binding:"required"`
	AssetType      string  `json:"asset_type"`
	ThresholdPrice float64 `json:"threshold_price" binding:"required,gt=0"`
	Direction      string  `json:"direction" binding:"required,oneof=above below"`
}

type updateAlertRequest struct {
	ThresholdPrice *float64 `json:"threshold_price"`
	Direction      *string  `json:"direction"`
	Active         *bool    `json:"active"`
}

func validAssetType(t string) bool {
	switch t {
	case models.AssetTypeStock, models.AssetTypeCrypto, models.AssetTypeAuto:
		return true
	}
	return false
}

// CreateAlert handles POST /api/alerts
func (ctl *AlertController) CreateAlert(c *gin.Context) {
	var req createAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	assetType := req.AssetType
	if assetType == "" {
		assetType = models.AssetTypeStock
	}
	if !validAssetType(assetType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "asset_type must be stock, crypto or auto"})
		return
	}

	alert := &models.Alert{
		Symbol:         strings.ToUpper(strings.TrimSpace(req.Symbol)),
		AssetType:      assetType,
		ThresholdPrice: decimal.NewFromFloat(req.ThresholdPrice),
		Direction:      req.Direction,
		Active:         true,
	}
	if err := ctl.Store.CreateAlert(alert); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create alert"})
		return
	}
	c.JSON(http.StatusCreated, alert)
}

// ListAlerts handles GET /api/alerts?active=true
func (ctl *AlertController) ListAlerts(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	alerts, err := ctl.Store.ListAlerts(activeOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list alerts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts, "count": len(alerts)})
}

// GetAlert handles GET /api/alerts/:id
func (ctl *AlertController) GetAlert(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	alert, err := ctl.Store.GetAlert(id)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

// UpdateAlert handles PUT /api/alerts/:id
func (ctl *AlertController) UpdateAlert(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req updateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	alert, err := ctl.Store.GetAlert(id)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	if req.ThresholdPrice != nil {
		if *req.ThresholdPrice <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "threshold_price must be positive"})
			return
		}
		alert.ThresholdPrice = decimal.NewFromFloat(*req.ThresholdPrice)
	}
	if req.Direction != nil {
		if *req.Direction != models.DirectionAbove && *req.Direction != models.DirectionBelow {
			c.JSON(http.StatusBadRequest, gin.H{"error": "direction must be above or below"})
			return
		}
		alert.Direction = *req.Direction
	}
	if req.Active != nil {
		alert.Active = *req.Active
	}

	if err := ctl.Store.UpdateAlert(alert); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update alert"})
		return
	}
	c.JSON(http.StatusOK, alert)
}

// DeleteAlert handles DELETE /api/alerts/:id
func (ctl *AlertController) DeleteAlert(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := ctl.Store.DeleteAlert(id); err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "alert deleted"})
}

// ToggleAlert handles POST /api/alerts/:id/toggle
func (ctl *AlertController) ToggleAlert(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	alert, err := ctl.Store.ToggleAlert(id)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

// GetAlertHistory handles GET /api/alerts/:id/history
func (ctl *AlertController) GetAlertHistory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	entries, err := ctl.Store.ListTriggerHistory(id, "simple", limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries, "count": len(entries)})
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

func respondStoreError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
}
