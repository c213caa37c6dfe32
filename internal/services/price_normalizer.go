package services

import (
	"math"

	"github.com/codyseavey/tcg-scanner/internal/models"
)

const (
	priceBandLow  = 0.8
	priceBandHigh = 1.2
)

// PriceSummary is the normalized view of a CardPrices answer. Nil fields are absent, never zero.
type PriceSummary struct {
	MarketPrice     *float64 `json:"marketPrice"`
	Low             *float64 `json:"low"`
	High            *float64 `json:"high"`
	TCGPlayerPrice  *float64 `json:"tcgplayerPrice"`
	AlternatePrice  *float64 `json:"alternatePrice"`
	AlternateSource string   `json:"alternateSource,omitempty"`
}

// priceExtractor pulls one representative price out of a source
type priceExtractor func(models.PriceSource) (float64, bool)

// sourceExtractors is keyed by normalized source tag. Unknown tags use genericExtractor.
var sourceExtractors = map[string]priceExtractor{
	models.NormalizeSourceTag(models.SourceTCGPlayer):   keyExtractor(models.PriceKeyMarket),
	models.NormalizeSourceTag(models.SourceCardKingdom): keyExtractor(models.PriceConditionNM.Key()),
}

var genericExtractor = keyExtractor(
	models.PriceKeyMarket,
	models.PriceKeyMid,
	models.PriceKeyAverage,
	models.PriceConditionNM.Key(),
)

// keyExtractor returns the first positive value among keys
func keyExtractor(keys ...string) priceExtractor {
	return func(s models.PriceSource) (float64, bool) {
		for _, k := range keys {
			if v, ok := s.Price(k); ok {
				return v, true
			}
		}
		return 0, false
	}
}

// ExtractSourcePrice returns the representative price for a single source using the rule for its tag
func ExtractSourcePrice(s models.PriceSource) (float64, bool) {
	if extract, ok := sourceExtractors[models.NormalizeSourceTag(s.Source)]; ok {
		return extract(s)
	}
	return genericExtractor(s)
}

// BestMarketPrice prefers a positive AveragePrice, else averages every source that yields a price
func BestMarketPrice(prices *models.CardPrices) (float64, bool) {
	if prices == nil {
		return 0, false
	}
	if prices.AveragePrice != nil && *prices.AveragePrice > 0 {
		return *prices.AveragePrice, true
	}

	var sum float64
	var n int
	for _, s := range prices.Sources {
		if v, ok := ExtractSourcePrice(s); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// NormalizePrices reduces a CardPrices answer to a market price, a ±20% band and the
// TCGPlayer and alternate marketplace figures.
func NormalizePrices(prices *models.CardPrices) PriceSummary {
	var summary PriceSummary
	if prices == nil {
		return summary
	}

	if market, ok := BestMarketPrice(prices); ok {
		summary.MarketPrice = floatPtr(market)
		summary.Low = floatPtr(round2(market * priceBandLow))
		summary.High = floatPtr(round2(market * priceBandHigh))
	}

	for _, s := range prices.Sources {
		if s.Is(models.SourceTCGPlayer) {
			if v, ok := s.Price(models.PriceKeyMarket); ok {
				summary.TCGPlayerPrice = floatPtr(v)
			}
			break
		}
	}

	for _, s := range prices.Sources {
		if s.Is(models.SourceTCGPlayer) {
			continue
		}
		if v, ok := ExtractSourcePrice(s); ok {
			summary.AlternatePrice = floatPtr(v)
			summary.AlternateSource = s.Source
		}
		break
	}

	return summary
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func floatPtr(v float64) *float64 {
	return &v
}
