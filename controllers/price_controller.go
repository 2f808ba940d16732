package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"price_alert_backend/services/pricing"
)

// PriceController exposes ad-hoc price lookups and cache controls.
type PriceController struct {
	Prices *pricing.PriceService
}

func NewPriceController(p *pricing.PriceService) *PriceController {
	return &PriceController{Prices: p}
}

// GetPrice handles GET /api/prices/:symbol?asset_type=auto
func (ctl *PriceController) GetPrice(c *gin.Context) {
	symbol := c.Param("symbol")
	assetType := c.DefaultQuery("asset_type", "auto")

	quote, err := ctl.Prices.GetQuote(c.Request.Context(), symbol, assetType)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, quote)
}

// InvalidateCache handles DELETE /api/prices/cache?symbol=BTC
func (ctl *PriceController) InvalidateCache(c *gin.Context) {
	symbol := c.Query("symbol")
	assetType := c.DefaultQuery("asset_type", "auto")
	ctl.Prices.InvalidateCache(symbol, assetType)
	c.JSON(http.StatusOK, gin.H{"message": "cache invalidated"})
}
