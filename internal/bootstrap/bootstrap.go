// Package bootstrap builds the scanner's services from a loaded configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/codyseavey/tcg-scanner/internal/api"
	"github.com/codyseavey/tcg-scanner/internal/config"
	"github.com/codyseavey/tcg-scanner/internal/database"
	"github.com/codyseavey/tcg-scanner/internal/metrics"
	"github.com/codyseavey/tcg-scanner/internal/middleware"
	"github.com/codyseavey/tcg-scanner/internal/services"
)

const componentSample = "sample"

// App holds every long-lived service. Close releases the database and OCR client.
type App struct {
	Config *config.Config
	DB     *gorm.DB

	Extractor   services.TextExtractor
	Validator   services.CardValidator
	Prices      services.PriceFetcher
	PriceWorker *services.PriceWorker // nil with sample pricing
	Pipeline    *services.ScanPipeline
	History     *services.ScanHistoryService
	Auth        *middleware.AdminAuth

	// Components names the backend picked for each collaborator
	Components map[string]string

	closers []func() error
}

// New wires the application. On error, anything already opened is closed.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config is required")
	}
	services.SetDebugLogging(cfg.Scan.Debug)

	app := &App{
		Config:     cfg,
		Auth:       middleware.NewAdminAuth(cfg.Server.AdminKey),
		Components: make(map[string]string),
	}
	if err := app.build(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}

	metrics.UpdateScanMetrics(app.DB)
	log.Printf("Bootstrap: ocr=%s validator=%s prices=%s", app.Components["ocr"], app.Components["validator"], app.Components["prices"])
	return app, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config

	db, err := database.Open(cfg.Storage.DBPath, cfg.Scan.Debug)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, func() error { return database.Close(db) })

	if err := a.buildExtractor(ctx); err != nil {
		return err
	}
	a.buildCatalog()

	var images *services.ImageStorageService
	if cfg.Storage.KeepImages {
		images, err = services.NewImageStorageService(cfg.Storage.ImageDir)
		if err != nil {
			return err
		}
	}
	a.History = services.NewScanHistoryService(db, images)
	a.Pipeline = services.NewScanPipeline(a.Extractor, a.Validator, a.Prices, cfg.StageTimeout())
	return nil
}

func (a *App) buildExtractor(ctx context.Context) error {
	cfg := a.Config
	if cfg.UseGemini() {
		gemini, err := services.NewGeminiExtractor(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			return fmt.Errorf("init gemini: %w", err)
		}
		a.Extractor = gemini
		a.closers = append(a.closers, gemini.Close)
		a.Components["ocr"] = config.OCRProviderGemini
		return nil
	}

	tesseract := services.NewTesseractExtractor(cfg.Tesseract.Path, cfg.Tesseract.Language)
	if !tesseract.IsAvailable(ctx) {
		log.Printf("Bootstrap: tesseract is not installed, scans will fail until it is")
	}
	a.Extractor = tesseract
	a.Components["ocr"] = config.OCRProviderTesseract
	return nil
}

// buildCatalog picks the card validator and price source. The sample catalog serves
// whichever of the two is not live.
func (a *App) buildCatalog() {
	cfg := a.Config
	sample := services.NewSampleCatalog()

	var cards *services.PokemonTCGService
	if !cfg.PokemonTCG.UseSampleData || !cfg.Pricing.UseSampleData {
		cards = services.NewPokemonTCGService(cfg.PokemonTCG.BaseURL, cfg.PokemonTCG.APIKey)
	}

	if cfg.PokemonTCG.UseSampleData {
		a.Validator = sample
		a.Components["validator"] = componentSample
	} else {
		a.Validator = cards
		a.Components["validator"] = "pokemontcg"
	}

	if cfg.Pricing.UseSampleData {
		a.Prices = sample
		a.Components["prices"] = componentSample
		return
	}

	providers := []services.PriceProvider{services.NewTCGPlayerProvider(cards)}
	if cfg.Pricing.JustTCGAPIKey != "" {
		justTCG := services.NewJustTCGService(cfg.Pricing.JustTCGAPIKey, cfg.Pricing.JustTCGDailyLimit).
			WithBaseURL(cfg.Pricing.JustTCGBaseURL)
		providers = append(providers, justTCG)
	}
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, strings.ToLower(p.Name()))
	}

	priceService := services.NewPriceService(a.DB, cfg.PriceCacheTTL(), providers...)
	a.Prices = priceService
	a.PriceWorker = services.NewPriceWorker(priceService, cfg.PriceRefreshInterval(), cfg.Pricing.RefreshBatchSize)
	a.Components["prices"] = strings.Join(names, ",")
}

// Handler returns the HTTP API for this app
func (a *App) Handler() http.Handler {
	return api.NewRouter(api.Deps{
		Pipeline:       a.Pipeline,
		History:        a.History,
		Prices:         a.Prices,
		PriceWorker:    a.PriceWorker,
		Auth:           a.Auth,
		Components:     a.Components,
		CORSOrigins:    a.Config.Server.CORSOrigins,
		RequestTimeout: a.Config.RequestTimeout(),
		KeepImages:     a.Config.Storage.KeepImages,
	})
}

// Close releases resources in reverse order of acquisition
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
