package services

import (
	"context"
	"strings"
	"time"

	"github.com/codyseavey/tcg-scanner/internal/models"
)

// sampleCard is one entry of the offline catalog
type sampleCard struct {
	card        models.ValidatedCard
	tcgplayer   models.TCGPlayerPrices
	cardKingdom models.CardKingdomPrices
	graded      map[string]float64
}

// SampleCatalog answers card lookups and price requests from a fixed in-memory catalog.
// It is used when no live card database or pricing API is configured.
type SampleCatalog struct {
	cards []sampleCard
	now   func() time.Time
}

func NewSampleCatalog() *SampleCatalog {
	return &SampleCatalog{cards: sampleCards(), now: time.Now}
}

// ValidateCard matches on name (ignoring case) and, when given, the collector number
func (c *SampleCatalog) ValidateCard(ctx context.Context, name, setNumber string) (*models.ValidatedCard, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entry := c.lookup(name, setNumber)
	if entry == nil {
		return nil, nil
	}
	card := entry.card
	return &card, nil
}

// GetPrices returns TCGPlayer and Card Kingdom quotes plus graded prices for a catalog card
func (c *SampleCatalog) GetPrices(ctx context.Context, info models.CardInfo) (*models.CardPrices, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entry := c.lookup(info.Name, info.SetNumber)
	if entry == nil {
		return nil, nil
	}

	graded := make(map[string]float64, len(entry.graded))
	for k, v := range entry.graded {
		graded[k] = v
	}
	return &models.CardPrices{
		CardName:  entry.card.Name,
		SetNumber: entry.card.SetNumber(),
		Sources: []models.PriceSource{
			models.NewTCGPlayerSource(entry.card.Name, "https://www.tcgplayer.com/search/pokemon/product?q="+strings.ReplaceAll(entry.card.Name, " ", "+"), entry.tcgplayer),
			models.NewCardKingdomSource(entry.card.Name, "https://www.cardkingdom.com/catalog/search?search=header&filter%5Bname%5D="+strings.ReplaceAll(entry.card.Name, " ", "+"), entry.cardKingdom),
		},
		GradedPrices: graded,
		FetchedAt:    c.now(),
	}, nil
}

func (c *SampleCatalog) lookup(name, setNumber string) *sampleCard {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil
	}
	number, _ := splitSetNumber(setNumber)

	var byName *sampleCard
	for i := range c.cards {
		entry := &c.cards[i]
		if strings.ToLower(entry.card.Name) != name {
			continue
		}
		if number == "" || trimZeros(entry.card.Number) == number {
			return entry
		}
		if byName == nil {
			byName = entry
		}
	}
	return byName
}

func sampleCards() []sampleCard {
	base := models.CardSet{ID: "base1", Name: "Base", Series: "Base", PrintedTotal: 102}
	vivid := models.CardSet{ID: "swsh4", Name: "Vivid Voltage", Series: "Sword & Shield", PrintedTotal: 185}
	evolving := models.CardSet{ID: "swsh7", Name: "Evolving Skies", Series: "Sword & Shield", PrintedTotal: 203}

	images := func(set, number string) models.CardImages {
		return models.CardImages{
			Small: "https://images.pokemontcg.io/" + set + "/" + number + ".png",
			Large: "https://images.pokemontcg.io/" + set + "/" + number + "_hires.png",
		}
	}

	return []sampleCard{
		{
			card: models.ValidatedCard{
				ID: "base1-58", Name: "Pikachu", Number: "58", Rarity: "Common", Supertype: "Pokémon",
				HP: "40", Types: []string{"Lightning"}, Artist: "Mitsuhiro Arita", Set: base, Images: images("base1", "58"),
			},
			tcgplayer:   models.TCGPlayerPrices{Low: 1.5, Mid: 3.25, High: 12, Market: 2.75},
			cardKingdom: models.CardKingdomPrices{NM: 3.49, LP: 2.79, MP: 2.09, HP: 1.39},
			graded:      map[string]float64{"PSA 9": 65, "PSA 10": 310},
		},
		{
			card: models.ValidatedCard{
				ID: "base1-4", Name: "Charizard", Number: "4", Rarity: "Rare Holo", Supertype: "Pokémon",
				HP: "120", Types: []string{"Fire"}, Artist: "Mitsuhiro Arita", Set: base, Images: images("base1", "4"),
			},
			tcgplayer:   models.TCGPlayerPrices{Low: 240, Mid: 385, High: 1200, Market: 360},
			cardKingdom: models.CardKingdomPrices{NM: 399.99, LP: 319.99, MP: 239.99, HP: 159.99},
			graded:      map[string]float64{"PSA 8": 1150, "PSA 9": 2600, "PSA 10": 18500},
		},
		{
			card: models.ValidatedCard{
				ID: "base1-2", Name: "Blastoise", Number: "2", Rarity: "Rare Holo", Supertype: "Pokémon",
				HP: "100", Types: []string{"Water"}, Artist: "Ken Sugimori", Set: base, Images: images("base1", "2"),
			},
			tcgplayer:   models.TCGPlayerPrices{Low: 85, Mid: 130, High: 400, Market: 120},
			cardKingdom: models.CardKingdomPrices{NM: 139.99, LP: 111.99, MP: 83.99},
			graded:      map[string]float64{"PSA 9": 780, "PSA 10": 5200},
		},
		{
			card: models.ValidatedCard{
				ID: "swsh4-44", Name: "Pikachu VMAX", Number: "44", Rarity: "Rare Holo VMAX", Supertype: "Pokémon",
				HP: "310", Types: []string{"Lightning"}, Artist: "aky CG Works", Set: vivid, Images: images("swsh4", "44"),
			},
			tcgplayer:   models.TCGPlayerPrices{Low: 4.5, Mid: 7, High: 20, Market: 6.1},
			cardKingdom: models.CardKingdomPrices{NM: 7.99, LP: 6.39},
			graded:      map[string]float64{"PSA 10": 95},
		},
		{
			card: models.ValidatedCard{
				ID: "swsh7-215", Name: "Umbreon VMAX", Number: "215", Rarity: "Rare Secret", Supertype: "Pokémon",
				HP: "310", Types: []string{"Darkness"}, Artist: "KEIICHIRO ITO", Set: evolving, Images: images("swsh7", "215"),
			},
			tcgplayer:   models.TCGPlayerPrices{Low: 1350, Mid: 1525, High: 2400, Market: 1480},
			cardKingdom: models.CardKingdomPrices{NM: 1599.99, LP: 1279.99},
			graded:      map[string]float64{"PSA 9": 1900, "PSA 10": 3800},
		},
	}
}
