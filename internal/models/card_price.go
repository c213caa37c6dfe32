package models

import (
	"strings"
	"time"
)

// Source tags for the marketplaces with a known price shape.
// Any other tag is a generic source read through its Prices map.
const (
	SourceTCGPlayer   = "TCGPlayer"
	SourceCardKingdom = "Card Kingdom"
	SourceJustTCG     = "JustTCG"
)

// Price keys used inside PriceSource.Prices
const (
	PriceKeyLow     = "low"
	PriceKeyMid     = "mid"
	PriceKeyHigh    = "high"
	PriceKeyMarket  = "market"
	PriceKeyAverage = "average"
)

// PriceCondition represents the condition for pricing purposes
type PriceCondition string

const (
	PriceConditionNM  PriceCondition = "NM"  // Near Mint
	PriceConditionLP  PriceCondition = "LP"  // Lightly Played
	PriceConditionMP  PriceCondition = "MP"  // Moderately Played
	PriceConditionHP  PriceCondition = "HP"  // Heavily Played
	PriceConditionDMG PriceCondition = "DMG" // Damaged
)

// Key returns the Prices map key for a condition, e.g. "nm"
func (c PriceCondition) Key() string {
	return strings.ToLower(string(c))
}

// AllPriceConditions returns all valid price conditions
func AllPriceConditions() []PriceCondition {
	return []PriceCondition{
		PriceConditionNM,
		PriceConditionLP,
		PriceConditionMP,
		PriceConditionHP,
		PriceConditionDMG,
	}
}

// TCGPlayerPrices is the low/mid/high/market shape TCGPlayer quotes use
type TCGPlayerPrices struct {
	Low    float64 `json:"low"`
	Mid    float64 `json:"mid"`
	High   float64 `json:"high"`
	Market float64 `json:"market"`
}

// CardKingdomPrices is the condition-graded shape Card Kingdom quotes use
type CardKingdomPrices struct {
	NM float64 `json:"nm"`
	LP float64 `json:"lp"`
	MP float64 `json:"mp"`
	HP float64 `json:"hp"`
}

// PriceSource is a single marketplace quote. The Source tag decides how Prices is read;
// see services.ExtractSourcePrice.
type PriceSource struct {
	Source   string             `json:"source"`
	CardName string             `json:"cardName"`
	URL      string             `json:"url,omitempty"`
	Prices   map[string]float64 `json:"prices"`
	Metadata map[string]string  `json:"metadata,omitempty"`
}

func NewTCGPlayerSource(cardName, url string, p TCGPlayerPrices) PriceSource {
	return PriceSource{
		Source:   SourceTCGPlayer,
		CardName: cardName,
		URL:      url,
		Prices: nonZero(map[string]float64{
			PriceKeyLow:    p.Low,
			PriceKeyMid:    p.Mid,
			PriceKeyHigh:   p.High,
			PriceKeyMarket: p.Market,
		}),
	}
}

func NewCardKingdomSource(cardName, url string, p CardKingdomPrices) PriceSource {
	return PriceSource{
		Source:   SourceCardKingdom,
		CardName: cardName,
		URL:      url,
		Prices: nonZero(map[string]float64{
			PriceConditionNM.Key(): p.NM,
			PriceConditionLP.Key(): p.LP,
			PriceConditionMP.Key(): p.MP,
			PriceConditionHP.Key(): p.HP,
		}),
	}
}

func NewGenericSource(source, cardName, url string, prices map[string]float64, metadata map[string]string) PriceSource {
	return PriceSource{
		Source:   source,
		CardName: cardName,
		URL:      url,
		Prices:   nonZero(prices),
		Metadata: metadata,
	}
}

// Is reports whether the source carries the given tag. Tags compare without case or spaces,
// so "Card Kingdom" and "cardkingdom" are the same marketplace.
func (s PriceSource) Is(tag string) bool {
	return NormalizeSourceTag(s.Source) == NormalizeSourceTag(tag)
}

// Price returns a single key from the Prices map, treating zero and negative values as absent
func (s PriceSource) Price(key string) (float64, bool) {
	v, ok := s.Prices[key]
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}

// TCGPlayerPrices returns the typed view of a TCGPlayer-tagged source
func (s PriceSource) TCGPlayerPrices() (TCGPlayerPrices, bool) {
	if !s.Is(SourceTCGPlayer) {
		return TCGPlayerPrices{}, false
	}
	return TCGPlayerPrices{
		Low:    s.Prices[PriceKeyLow],
		Mid:    s.Prices[PriceKeyMid],
		High:   s.Prices[PriceKeyHigh],
		Market: s.Prices[PriceKeyMarket],
	}, true
}

// CardKingdomPrices returns the typed view of a Card Kingdom-tagged source
func (s PriceSource) CardKingdomPrices() (CardKingdomPrices, bool) {
	if !s.Is(SourceCardKingdom) {
		return CardKingdomPrices{}, false
	}
	return CardKingdomPrices{
		NM: s.Prices[PriceConditionNM.Key()],
		LP: s.Prices[PriceConditionLP.Key()],
		MP: s.Prices[PriceConditionMP.Key()],
		HP: s.Prices[PriceConditionHP.Key()],
	}, true
}

// NormalizeSourceTag lowercases a tag and drops spaces, dashes and underscores
func NormalizeSourceTag(tag string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(tag)))
}

// CardPrices is the pricing collaborator's answer for one card.
// AveragePrice, when present and positive, is authoritative over Sources.
type CardPrices struct {
	CardName     string             `json:"cardName"`
	SetNumber    string             `json:"setNumber"`
	Sources      []PriceSource      `json:"sources"`
	AveragePrice *float64           `json:"averagePrice,omitempty"`
	GradedPrices map[string]float64 `json:"gradedPrices,omitempty"`
	FetchedAt    time.Time          `json:"fetchedAt"`
}

func nonZero(prices map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(prices))
	for k, v := range prices {
		if v > 0 {
			out[k] = v
		}
	}
	return out
}
