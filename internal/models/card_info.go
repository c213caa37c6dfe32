package models

// CardInfo contains the facts the text parser could read off a card photo.
// Fields the parser could not locate are left empty; FullText always holds the raw OCR text.
type CardInfo struct {
	Name        string   `json:"name"`
	SetNumber   string   `json:"setNumber"` // e.g. "25/102"
	HP          string   `json:"hp"`
	Type        string   `json:"type"`
	Rarity      string   `json:"rarity"`
	FullText    string   `json:"fullText"`
	SetName     string   `json:"setName,omitempty"`
	SetCode     string   `json:"setCode,omitempty"`
	Attacks     []Attack `json:"attacks,omitempty"`
	Weakness    string   `json:"weakness,omitempty"`
	Resistance  string   `json:"resistance,omitempty"`
	RetreatCost string   `json:"retreatCost,omitempty"`
	Artist      string   `json:"artist,omitempty"`
	CardNumber  string   `json:"cardNumber,omitempty"` // e.g. "25" from "25/102"
	TotalCards  string   `json:"totalCards,omitempty"` // e.g. "102" from "25/102"
}

type Attack struct {
	Name   string `json:"name"`
	Damage string `json:"damage,omitempty"`
}

// WithValidatedCard returns a copy enriched with the card database's name and set name.
// The receiver is left untouched.
func (c CardInfo) WithValidatedCard(v *ValidatedCard) CardInfo {
	enriched := c
	if len(c.Attacks) > 0 {
		enriched.Attacks = append([]Attack(nil), c.Attacks...)
	}
	if v == nil {
		return enriched
	}
	if v.Name != "" {
		enriched.Name = v.Name
	}
	if v.Set.Name != "" {
		enriched.SetName = v.Set.Name
	}
	return enriched
}

// ScanImage is what the capture collaborator hands to the scan pipeline
type ScanImage struct {
	URI    string `json:"uri"`
	Base64 string `json:"base64"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}
