package models

import "strconv"

// ValidatedCard is a record returned by the card database for a scanned card
type ValidatedCard struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Number    string            `json:"number"`
	Rarity    string            `json:"rarity"`
	Supertype string            `json:"supertype"`
	HP        string            `json:"hp,omitempty"`
	Types     []string          `json:"types,omitempty"`
	Artist    string            `json:"artist,omitempty"`
	Set       CardSet           `json:"set"`
	Images    CardImages        `json:"images"`
	TCGPlayer *TCGPlayerListing `json:"tcgplayer,omitempty"`
}

type CardSet struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Series       string `json:"series"`
	PrintedTotal int    `json:"printedTotal"`
}

type CardImages struct {
	Small string `json:"small"`
	Large string `json:"large"`
}

// TCGPlayerListing is the TCGPlayer price block the card database embeds in card records.
// Prices is keyed by printing ("normal", "holofoil", "reverseHolofoil", ...).
type TCGPlayerListing struct {
	URL       string                     `json:"url"`
	UpdatedAt string                     `json:"updatedAt"`
	Prices    map[string]TCGPlayerPrices `json:"prices"`
}

// preferredPrintings is the order printings are tried when a listing carries several
var preferredPrintings = []string{"holofoil", "normal", "reverseHolofoil", "1stEditionHolofoil", "1stEditionNormal", "unlimitedHolofoil"}

// PrimaryPrices returns the price block for the most representative printing
func (l *TCGPlayerListing) PrimaryPrices() (TCGPlayerPrices, bool) {
	if l == nil || len(l.Prices) == 0 {
		return TCGPlayerPrices{}, false
	}
	for _, printing := range preferredPrintings {
		if p, ok := l.Prices[printing]; ok && p.Market > 0 {
			return p, true
		}
	}
	for _, printing := range preferredPrintings {
		if p, ok := l.Prices[printing]; ok {
			return p, true
		}
	}
	return TCGPlayerPrices{}, false
}

// SetNumber formats the card number against the set's printed total, e.g. "25/102"
func (c *ValidatedCard) SetNumber() string {
	if c == nil || c.Number == "" {
		return ""
	}
	if c.Set.PrintedTotal <= 0 {
		return c.Number
	}
	return c.Number + "/" + strconv.Itoa(c.Set.PrintedTotal)
}
