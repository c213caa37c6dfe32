package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/tcg-scanner/internal/models"
	"github.com/codyseavey/tcg-scanner/internal/services"
)

// ScanRequest is the body of POST /api/scans
type ScanRequest struct {
	ImageBase64 string `json:"image_base64"`
	URI         string `json:"uri"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

// ScanResponse is returned for a finished scan
type ScanResponse struct {
	ScanID   string                `json:"scan_id,omitempty"`
	Result   *models.ScanResult    `json:"result"`
	Summary  services.PriceSummary `json:"price_summary"`
	Progress []models.ScanProgress `json:"progress,omitempty"`
}

type ScanHandler struct {
	pipeline       *services.ScanPipeline
	history        *services.ScanHistoryService
	requestTimeout time.Duration
	keepImages     bool
}

func NewScanHandler(pipeline *services.ScanPipeline, history *services.ScanHistoryService, requestTimeout time.Duration, keepImages bool) *ScanHandler {
	return &ScanHandler{
		pipeline:       pipeline,
		history:        history,
		requestTimeout: requestTimeout,
		keepImages:     keepImages,
	}
}

// CreateScan runs the scan pipeline over an uploaded image
// POST /api/scans[?stream=true]
func (h *ScanHandler) CreateScan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error(), "code": "INVALID_REQUEST"})
		return
	}
	img := models.ScanImage{URI: req.URI, Base64: req.ImageBase64, Width: req.Width, Height: req.Height}

	ctx := c.Request.Context()
	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}

	if c.Query("stream") == "true" {
		h.streamScan(ctx, c, img)
		return
	}

	var progress []models.ScanProgress
	result, err := h.pipeline.RunScan(ctx, img, func(p models.ScanProgress) {
		progress = append(progress, p)
	})
	if err != nil {
		status, body := scanErrorResponse(err)
		c.JSON(status, body)
		return
	}

	resp := h.record(ctx, result, req.ImageBase64)
	resp.Progress = progress
	c.JSON(http.StatusCreated, resp)
}

// streamScan sends progress events as they happen, then a single result or error event
func (h *ScanHandler) streamScan(ctx context.Context, c *gin.Context, img models.ScanImage) {
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	result, err := h.pipeline.RunScan(ctx, img, func(p models.ScanProgress) {
		c.SSEvent("progress", p)
		c.Writer.Flush()
	})
	if err != nil {
		_, body := scanErrorResponse(err)
		c.SSEvent("error", body)
		c.Writer.Flush()
		return
	}

	c.SSEvent("result", h.record(ctx, result, img.Base64))
	c.Writer.Flush()
}

// record persists a finished scan. A storage failure is logged and the scan is still returned.
func (h *ScanHandler) record(ctx context.Context, result *models.ScanResult, imageBase64 string) ScanResponse {
	resp := ScanResponse{Result: result, Summary: services.NormalizePrices(result.Prices)}
	if h.history == nil {
		return resp
	}

	var imageData []byte
	if h.keepImages {
		imageData, _ = services.DecodeBase64Image(imageBase64)
	}
	record, err := h.history.Record(context.WithoutCancel(ctx), result, imageData)
	if err != nil {
		log.Printf("Scan handler: failed to record scan of %s: %v", result.CardInfo.Name, err)
		return resp
	}
	resp.ScanID = record.ID
	return resp
}

// GetStatus returns the pipeline's current stage
// GET /api/scans/status
func (h *ScanHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.pipeline.Status())
}

// ListScans returns recent scans, newest first
// GET /api/scans?limit=N
func (h *ScanHandler) ListScans(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	records, err := h.history.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list scans"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scans": records, "count": len(records)})
}

// GetScan returns one scan with its full result
// GET /api/scans/:id
func (h *ScanHandler) GetScan(c *gin.Context) {
	record, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"scan":          record,
		"price_summary": services.NormalizePrices(record.Result.Prices),
	})
}

// GetScanImage serves the stored capture of a scan
// GET /api/scans/:id/image
func (h *ScanHandler) GetScanImage(c *gin.Context) {
	record, ok := h.lookup(c)
	if !ok {
		return
	}
	path, err := h.history.ImagePath(record)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no image stored for this scan"})
		return
	}
	c.File(path)
}

// DeleteScan removes a scan and its image
// DELETE /api/scans/:id
func (h *ScanHandler) DeleteScan(c *gin.Context) {
	if err := h.history.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, services.ErrScanNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "scan not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete scan"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ScanHandler) lookup(c *gin.Context) (*models.ScanRecord, bool) {
	record, err := h.history.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrScanNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "scan not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load scan"})
		}
		return nil, false
	}
	return record, true
}

// scanErrorResponse maps a pipeline failure to an HTTP status and a {error, code} body
func scanErrorResponse(err error) (int, gin.H) {
	var scanErr *services.ScanError
	if !errors.As(err, &scanErr) {
		return http.StatusInternalServerError, gin.H{"error": services.MsgScanFailed, "code": "SCAN_FAILED"}
	}

	switch scanErr.Kind {
	case services.ScanErrorInput:
		return http.StatusBadRequest, gin.H{"error": scanErr.Message, "code": "NO_IMAGE_DATA"}
	case services.ScanErrorOCR:
		return http.StatusUnprocessableEntity, gin.H{"error": scanErr.Message, "code": "OCR_FAILED"}
	case services.ScanErrorBusy:
		return http.StatusConflict, gin.H{"error": scanErr.Message, "code": "SCAN_BUSY"}
	case services.ScanErrorCanceled:
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout, gin.H{"error": scanErr.Message, "code": "SCAN_TIMEOUT"}
		}
		return http.StatusRequestTimeout, gin.H{"error": scanErr.Message, "code": "SCAN_CANCELED"}
	}
	return http.StatusInternalServerError, gin.H{"error": scanErr.Message, "code": "SCAN_FAILED"}
}
