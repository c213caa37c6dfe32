package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/tcg-scanner/internal/models"
	"github.com/codyseavey/tcg-scanner/internal/services"
)

type PriceHandler struct {
	prices      services.PriceFetcher
	priceWorker *services.PriceWorker
}

// NewPriceHandler creates a handler over a price source. priceWorker is nil when
// prices come from the sample catalog.
func NewPriceHandler(prices services.PriceFetcher, priceWorker *services.PriceWorker) *PriceHandler {
	return &PriceHandler{
		prices:      prices,
		priceWorker: priceWorker,
	}
}

// GetPrices looks up market prices for a card by name and set number
// GET /api/prices?name=Charizard&set_number=4/102
func (h *PriceHandler) GetPrices(c *gin.Context) {
	info := models.CardInfo{
		Name:      strings.TrimSpace(c.Query("name")),
		SetNumber: strings.TrimSpace(c.Query("set_number")),
		SetName:   strings.TrimSpace(c.Query("set_name")),
	}
	if info.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	prices, err := h.prices.GetPrices(c.Request.Context(), info)
	if err != nil {
		if errors.Is(err, services.ErrMissingCardName) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
			return
		}
		log.Printf("Price handler: lookup for %s failed: %v", info.Name, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "price lookup failed"})
		return
	}
	if prices == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no prices found for card"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"prices":        prices,
		"price_summary": services.NormalizePrices(prices),
	})
}

// GetPriceStatus returns the refresh worker's state and the remaining API quota
// GET /api/prices/status
func (h *PriceHandler) GetPriceStatus(c *gin.Context) {
	if h.priceWorker == nil {
		c.JSON(http.StatusOK, gin.H{"mode": "sample"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"mode":   "live",
		"worker": h.priceWorker.GetStatus(),
	})
}

// RefreshPrices runs one refresh batch in the background
// POST /api/prices/refresh
func (h *PriceHandler) RefreshPrices(c *gin.Context) {
	if h.priceWorker == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "price refresh is not available with sample data"})
		return
	}

	// The request context ends when we return 202
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := h.priceWorker.UpdateBatch(ctx); err != nil {
			log.Printf("Price handler: manual refresh failed: %v", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Price refresh started",
		"status":  "running",
	})
}
