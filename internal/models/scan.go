package models

import (
	"time"
)

// ScanStage is a step of the scan pipeline
type ScanStage string

const (
	ScanStageIdle                 ScanStage = "idle"
	ScanStageExtractingText       ScanStage = "extracting_text"
	ScanStageValidatingCard       ScanStage = "validating_card"
	ScanStageCheckingAuthenticity ScanStage = "checking_authenticity"
	ScanStageFetchingPrices       ScanStage = "fetching_prices"
	ScanStageComplete             ScanStage = "complete"
	ScanStageFailed               ScanStage = "failed"
)

// ScanProgress is emitted before each pipeline stage starts its work
type ScanProgress struct {
	Stage    ScanStage `json:"stage"`
	Fraction float64   `json:"fraction"`
	Label    string    `json:"label"`
}

// ScanResult is the terminal artifact of a successful scan
type ScanResult struct {
	CardInfo      CardInfo           `json:"cardInfo"`
	ValidatedCard *ValidatedCard     `json:"validatedCard"`
	Authenticity  AuthenticityResult `json:"authenticity"`
	Prices        *CardPrices        `json:"prices"`
	ScanTime      time.Time          `json:"scanTime"`
}

// ScanRecord is a persisted scan. The full result is kept as JSON alongside a few
// columns used for listing and metrics.
type ScanRecord struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	CardName    string    `json:"card_name" gorm:"not null;index"`
	SetNumber   string    `json:"set_number"`
	ValidatedID string    `json:"validated_id,omitempty"`
	IsAuthentic bool      `json:"is_authentic" gorm:"index"`
	Confidence  float64   `json:"confidence"`
	MarketPrice *float64  `json:"market_price"`
	ImagePath   string    `json:"image_path,omitempty"`
	ResultJSON  string    `json:"-" gorm:"type:text;not null"`
	ScannedAt   time.Time `json:"scanned_at" gorm:"index"`
	CreatedAt   time.Time `json:"created_at"`

	// Transient, decoded from ResultJSON
	Result *ScanResult `json:"result,omitempty" gorm:"-"`
}

// CachedCardPrices stores a pricing answer keyed by a hash of card name and set number.
type CachedCardPrices struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	LookupHash     string    `json:"lookup_hash" gorm:"uniqueIndex;not null;size:64"`
	CardName       string    `json:"card_name" gorm:"not null"`
	SetNumber      string    `json:"set_number"`
	SetName        string    `json:"set_name"`
	PricesJSON     string    `json:"-" gorm:"type:text;not null"`
	SourceCount    int       `json:"source_count"`
	AveragePrice   float64   `json:"average_price"`
	PriceUpdatedAt time.Time `json:"price_updated_at" gorm:"index"`
	LastCheckedAt  time.Time `json:"last_checked_at"`
	HitCount       int       `json:"hit_count" gorm:"default:0"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsFresh returns true if the prices were fetched within maxAge
func (c *CachedCardPrices) IsFresh(maxAge time.Duration) bool {
	return time.Since(c.PriceUpdatedAt) < maxAge
}
