package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/tcg-scanner/internal/metrics"
	"github.com/codyseavey/tcg-scanner/internal/models"
)

const (
	// PriceStalenessThreshold is how old cached prices can be before the providers are asked again
	PriceStalenessThreshold = 24 * time.Hour
)

var ErrMissingCardName = errors.New("card name is required for a price lookup")

// PriceProvider is a single marketplace the price service can ask for quotes
type PriceProvider interface {
	Name() string
	FetchPrices(ctx context.Context, info models.CardInfo) ([]models.PriceSource, error)
}

// quotaReporter is implemented by providers with a daily request budget
type quotaReporter interface {
	GetRequestsRemaining() int
}

// PriceService gathers quotes from every provider and caches the answer per card.
// Lookup order: fresh cache -> providers -> stale cache.
type PriceService struct {
	providers []PriceProvider
	db        *gorm.DB
	ttl       time.Duration
	now       func() time.Time
}

// NewPriceService creates a price service. db may be nil to disable caching; a ttl of zero
// uses PriceStalenessThreshold.
func NewPriceService(db *gorm.DB, ttl time.Duration, providers ...PriceProvider) *PriceService {
	if ttl <= 0 {
		ttl = PriceStalenessThreshold
	}
	return &PriceService{
		providers: providers,
		db:        db,
		ttl:       ttl,
		now:       time.Now,
	}
}

// GetPrices implements PriceFetcher. Returns nil without error when no provider has a quote.
func (s *PriceService) GetPrices(ctx context.Context, info models.CardInfo) (*models.CardPrices, error) {
	name := strings.TrimSpace(info.Name)
	if name == "" {
		return nil, ErrMissingCardName
	}
	hash := priceLookupHash(name, info.SetNumber)

	cached := s.getCached(hash)
	if cached != nil && s.isFresh(cached) {
		prices, err := decodeCachedPrices(cached)
		if err == nil {
			metrics.PriceCacheHits.Inc()
			_ = s.db.Model(&models.CachedCardPrices{}).Where("id = ?", cached.ID).
				UpdateColumn("hit_count", gorm.Expr("hit_count + 1")).Error
			debugLog("Price cache hit for %s %s", name, info.SetNumber)
			return prices, nil
		}
		log.Printf("Price cache: dropping unreadable entry for %s: %v", name, err)
	}
	metrics.PriceCacheMisses.Inc()

	prices, err := s.fetch(ctx, info)
	if err == nil {
		if prices != nil {
			s.save(hash, info, prices)
		}
		return prices, nil
	}

	if cached != nil && ctx.Err() == nil {
		if stale, decodeErr := decodeCachedPrices(cached); decodeErr == nil {
			metrics.PriceStaleServedTotal.Inc()
			log.Printf("Price service: serving stale prices for %s (updated %s): %v",
				name, cached.PriceUpdatedAt.Format(time.RFC3339), err)
			return stale, nil
		}
	}
	return nil, err
}

// RefreshPrices asks the providers again regardless of cache freshness
func (s *PriceService) RefreshPrices(ctx context.Context, info models.CardInfo) (*models.CardPrices, error) {
	name := strings.TrimSpace(info.Name)
	if name == "" {
		return nil, ErrMissingCardName
	}

	hash := priceLookupHash(name, info.SetNumber)
	prices, err := s.fetch(ctx, info)
	if err != nil || prices == nil {
		s.touch(hash)
		return nil, err
	}
	s.save(hash, info, prices)
	return prices, nil
}

// StalestEntries returns up to limit cache entries, least recently checked first
func (s *PriceService) StalestEntries(limit int) ([]models.CachedCardPrices, error) {
	if s.db == nil {
		return nil, nil
	}
	var entries []models.CachedCardPrices
	err := s.db.Order("last_checked_at ASC").Limit(limit).Find(&entries).Error
	return entries, err
}

// GetStats returns cache statistics
func (s *PriceService) GetStats() (totalEntries int64, totalHits int64) {
	if s.db == nil {
		return 0, 0
	}

	s.db.Model(&models.CachedCardPrices{}).Count(&totalEntries)

	var result struct {
		TotalHits int64
	}
	s.db.Model(&models.CachedCardPrices{}).Select("COALESCE(SUM(hit_count), 0) as total_hits").Scan(&result)
	return totalEntries, result.TotalHits
}

// RequestsRemaining reports the daily budget left for each provider that has one
func (s *PriceService) RequestsRemaining() map[string]int {
	remaining := make(map[string]int)
	for _, p := range s.providers {
		if q, ok := p.(quotaReporter); ok {
			remaining[p.Name()] = q.GetRequestsRemaining()
		}
	}
	return remaining
}

// fetch asks every provider in order. Provider failures only fail the lookup when no provider
// returned anything.
func (s *PriceService) fetch(ctx context.Context, info models.CardInfo) (*models.CardPrices, error) {
	var sources []models.PriceSource
	var errs []error

	for _, p := range s.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		found, err := p.FetchPrices(ctx, info)
		if err != nil {
			metrics.PriceSourceErrorsTotal.WithLabelValues(p.Name()).Inc()
			log.Printf("Price service: %s failed for %s: %v", p.Name(), info.Name, err)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		sources = append(sources, found...)
	}

	if len(sources) == 0 {
		if len(errs) > 0 {
			return nil, errors.Join(errs...)
		}
		return nil, nil
	}

	prices := &models.CardPrices{
		CardName:  info.Name,
		SetNumber: info.SetNumber,
		Sources:   sources,
		FetchedAt: s.now(),
	}
	if avg, ok := BestMarketPrice(prices); ok {
		prices.AveragePrice = floatPtr(avg)
	}
	return prices, nil
}

func (s *PriceService) getCached(hash string) *models.CachedCardPrices {
	if s.db == nil {
		return nil
	}
	var cached models.CachedCardPrices
	if err := s.db.Where("lookup_hash = ?", hash).First(&cached).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Price cache: lookup failed: %v", err)
		}
		return nil
	}
	return &cached
}

func (s *PriceService) isFresh(cached *models.CachedCardPrices) bool {
	return s.now().Sub(cached.PriceUpdatedAt) < s.ttl
}

func (s *PriceService) save(hash string, info models.CardInfo, prices *models.CardPrices) {
	if s.db == nil {
		return
	}
	data, err := json.Marshal(prices)
	if err != nil {
		log.Printf("Price cache: encoding prices for %s: %v", info.Name, err)
		return
	}

	now := s.now()
	entry := models.CachedCardPrices{
		LookupHash:     hash,
		CardName:       strings.TrimSpace(info.Name),
		SetNumber:      info.SetNumber,
		SetName:        info.SetName,
		PricesJSON:     string(data),
		SourceCount:    len(prices.Sources),
		PriceUpdatedAt: now,
		LastCheckedAt:  now,
	}
	if prices.AveragePrice != nil {
		entry.AveragePrice = *prices.AveragePrice
	}

	err = s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "lookup_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"card_name", "set_number", "set_name", "prices_json", "source_count",
			"average_price", "price_updated_at", "last_checked_at", "updated_at",
		}),
	}).Create(&entry).Error
	if err != nil {
		log.Printf("Price cache: saving prices for %s: %v", info.Name, err)
	}
}

// touch marks an entry as checked so the worker moves on to other cards
func (s *PriceService) touch(hash string) {
	if s.db == nil {
		return
	}
	_ = s.db.Model(&models.CachedCardPrices{}).Where("lookup_hash = ?", hash).
		UpdateColumn("last_checked_at", s.now()).Error
}

func decodeCachedPrices(cached *models.CachedCardPrices) (*models.CardPrices, error) {
	var prices models.CardPrices
	if err := json.Unmarshal([]byte(cached.PricesJSON), &prices); err != nil {
		return nil, err
	}
	return &prices, nil
}

// priceLookupHash keys the cache on the card name and set number, ignoring case and padding
func priceLookupHash(name, setNumber string) string {
	key := strings.ToLower(strings.TrimSpace(name)) + "|" + strings.ToLower(strings.TrimSpace(setNumber))
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}
