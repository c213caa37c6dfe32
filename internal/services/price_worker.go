package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/codyseavey/tcg-scanner/internal/metrics"
	"github.com/codyseavey/tcg-scanner/internal/models"
)

// Constants for price worker configuration
const (
	// defaultBatchSize is the number of cached cards to refresh per batch
	defaultBatchSize = 20
	// apiRequestDelay is the delay between provider requests
	apiRequestDelay = 100 * time.Millisecond
)

// PriceWorker keeps the price cache warm by refreshing the least recently checked entries
type PriceWorker struct {
	priceService   *PriceService
	updateInterval time.Duration
	requestDelay   time.Duration
	mu             sync.RWMutex

	// Batch config
	batchSize int

	// Stats
	pricesUpdatedToday int
	statsDay           string
	lastUpdateTime     time.Time
}

type PriceStatus struct {
	LastUpdateTime     time.Time      `json:"last_update_time"`
	NextUpdateTime     time.Time      `json:"next_update_time"`
	PricesUpdatedToday int            `json:"prices_updated_today"`
	BatchSize          int            `json:"batch_size"`
	CacheEntries       int64          `json:"cache_entries"`
	CacheHits          int64          `json:"cache_hits"`
	RequestsRemaining  map[string]int `json:"requests_remaining"`
}

// NewPriceWorker creates a worker. Zero values use an hourly interval and defaultBatchSize.
func NewPriceWorker(priceService *PriceService, interval time.Duration, batchSize int) *PriceWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &PriceWorker{
		priceService:   priceService,
		batchSize:      batchSize,
		updateInterval: interval,
		requestDelay:   apiRequestDelay,
	}
}

// Start runs the refresh loop until ctx is canceled
func (w *PriceWorker) Start(ctx context.Context) {
	log.Printf("Price worker started: will refresh %d cached cards every %s", w.batchSize, w.updateInterval)

	// Run immediately on startup
	if updated, err := w.UpdateBatch(ctx); err != nil {
		log.Printf("Price worker: initial batch update failed: %v", err)
	} else {
		log.Printf("Price worker: initial batch refreshed %d cards", updated)
	}

	ticker := time.NewTicker(w.updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Price worker stopping...")
			return
		case <-ticker.C:
			if updated, err := w.UpdateBatch(ctx); err != nil {
				log.Printf("Price worker: batch update failed: %v", err)
			} else if updated > 0 {
				log.Printf("Price worker: batch refreshed %d cards", updated)
			}
		}
	}
}

// UpdateBatch refreshes the cache entries that were checked longest ago
func (w *PriceWorker) UpdateBatch(ctx context.Context) (updated int, err error) {
	entries, err := w.priceService.StalestEntries(w.batchSize)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		debugLog("Price worker: no cached cards to refresh")
		return 0, nil
	}

	debugLog("Price worker: refreshing prices for %d cards", len(entries))

	for i, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if i > 0 {
			// Small delay between requests to be nice to the APIs
			select {
			case <-ctx.Done():
			case <-time.After(w.requestDelay):
			}
		}

		prices, err := w.priceService.RefreshPrices(ctx, cachedCardInfo(entry))
		if err != nil {
			log.Printf("Price worker: failed to refresh %s: %v", entry.CardName, err)
			continue
		}
		if prices != nil {
			updated++
			metrics.PriceRefreshesTotal.Inc()
		}
	}

	w.recordUpdates(updated, true)
	total, _ := w.priceService.GetStats()
	metrics.CachedPricesTotal.Set(float64(total))
	return updated, ctx.Err()
}

// UpdateCard refreshes a single card's prices (for manual refresh)
func (w *PriceWorker) UpdateCard(ctx context.Context, info models.CardInfo) (*models.CardPrices, error) {
	prices, err := w.priceService.RefreshPrices(ctx, info)
	if err != nil {
		return nil, err
	}
	if prices != nil {
		w.recordUpdates(1, false)
		log.Printf("Price worker: manually refreshed %d sources for %s", len(prices.Sources), info.Name)
	}
	return prices, nil
}

func (w *PriceWorker) recordUpdates(n int, batch bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	if day := now.Format("2006-01-02"); day != w.statsDay {
		w.statsDay = day
		w.pricesUpdatedToday = 0
	}
	w.pricesUpdatedToday += n
	if batch {
		w.lastUpdateTime = now
	}
}

// GetStatus returns the current status
func (w *PriceWorker) GetStatus() PriceStatus {
	w.mu.RLock()
	status := PriceStatus{
		LastUpdateTime:     w.lastUpdateTime,
		PricesUpdatedToday: w.pricesUpdatedToday,
		BatchSize:          w.batchSize,
	}
	w.mu.RUnlock()

	if status.LastUpdateTime.IsZero() {
		status.NextUpdateTime = time.Now().Add(w.updateInterval)
	} else {
		status.NextUpdateTime = status.LastUpdateTime.Add(w.updateInterval)
	}
	status.CacheEntries, status.CacheHits = w.priceService.GetStats()
	status.RequestsRemaining = w.priceService.RequestsRemaining()
	return status
}

func cachedCardInfo(entry models.CachedCardPrices) models.CardInfo {
	return models.CardInfo{
		Name:      entry.CardName,
		SetNumber: entry.SetNumber,
		SetName:   entry.SetName,
	}
}
