package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codyseavey/tcg-scanner/internal/api/handlers"
	"github.com/codyseavey/tcg-scanner/internal/metrics"
	"github.com/codyseavey/tcg-scanner/internal/middleware"
	"github.com/codyseavey/tcg-scanner/internal/services"
)

// Deps are the services the HTTP layer is built from
type Deps struct {
	Pipeline    *services.ScanPipeline
	History     *services.ScanHistoryService
	Prices      services.PriceFetcher
	PriceWorker *services.PriceWorker // nil when prices come from the sample catalog
	Auth        *middleware.AdminAuth
	Components  map[string]string

	CORSOrigins    []string
	RequestTimeout time.Duration
	KeepImages     bool
}

// NewRouter wires the scan, price and admin handlers onto a gin engine
func NewRouter(deps Deps) *gin.Engine {
	if deps.Auth == nil {
		deps.Auth = middleware.NewAdminAuth("")
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(metrics.HTTPMetrics("/metrics", "/health"))
	r.Use(cors.New(corsConfig(deps.CORSOrigins)))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	scanHandler := handlers.NewScanHandler(deps.Pipeline, deps.History, deps.RequestTimeout, deps.KeepImages)
	priceHandler := handlers.NewPriceHandler(deps.Prices, deps.PriceWorker)
	adminHandler := handlers.NewAdminHandler(deps.Pipeline, deps.PriceWorker, deps.Components)
	admin := deps.Auth.Require()

	api := r.Group("/api")
	{
		api.GET("/auth/status", deps.Auth.Status)
		api.GET("/auth/verify", deps.Auth.Verify)

		scans := api.Group("/scans")
		scans.POST("", scanHandler.CreateScan)
		scans.GET("", scanHandler.ListScans)
		scans.GET("/status", scanHandler.GetStatus)
		scans.GET("/:id", scanHandler.GetScan)
		scans.GET("/:id/image", scanHandler.GetScanImage)
		scans.DELETE("/:id", admin, scanHandler.DeleteScan)

		prices := api.Group("/prices")
		prices.GET("", priceHandler.GetPrices)
		prices.GET("/status", priceHandler.GetPriceStatus)
		prices.POST("/refresh", admin, priceHandler.RefreshPrices)

		api.GET("/admin/status", admin, adminHandler.GetStatus)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization")
	cfg.MaxAge = 12 * time.Hour

	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
