package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/tcg-scanner/internal/services"
)

type AdminHandler struct {
	pipeline    *services.ScanPipeline
	priceWorker *services.PriceWorker
	components  map[string]string
}

// NewAdminHandler creates the admin handler. components names the backend chosen for each
// collaborator, e.g. {"ocr": "gemini", "validator": "pokemontcg"}.
func NewAdminHandler(pipeline *services.ScanPipeline, priceWorker *services.PriceWorker, components map[string]string) *AdminHandler {
	return &AdminHandler{
		pipeline:    pipeline,
		priceWorker: priceWorker,
		components:  components,
	}
}

// GetStatus reports which backends are wired and what the pipeline and worker are doing
// GET /api/admin/status
func (h *AdminHandler) GetStatus(c *gin.Context) {
	resp := gin.H{
		"components": h.components,
		"scan":       h.pipeline.Status(),
	}
	if h.priceWorker != nil {
		resp["prices"] = h.priceWorker.GetStatus()
	}
	c.JSON(http.StatusOK, resp)
}
