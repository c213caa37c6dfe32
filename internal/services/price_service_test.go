package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/codyseavey/tcg-scanner/internal/database"
	"github.com/codyseavey/tcg-scanner/internal/models"
)

type stubProvider struct {
	name    string
	calls   int
	sources []models.PriceSource
	err     error
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) FetchPrices(context.Context, models.CardInfo) ([]models.PriceSource, error) {
	p.calls++
	return p.sources, p.err
}

type quotaProvider struct {
	stubProvider
	remaining int
}

func (p *quotaProvider) GetRequestsRemaining() int { return p.remaining }

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func tcgSource(market float64) models.PriceSource {
	return models.NewTCGPlayerSource("Pikachu", "", models.TCGPlayerPrices{Market: market})
}

func TestPriceServiceFetchesAndCaches(t *testing.T) {
	db := openTestDB(t)
	tcg := &stubProvider{name: models.SourceTCGPlayer, sources: []models.PriceSource{tcgSource(10)}}
	ck := &stubProvider{name: models.SourceCardKingdom, sources: []models.PriceSource{
		models.NewCardKingdomSource("Pikachu", "", models.CardKingdomPrices{NM: 14}),
	}}
	svc := NewPriceService(db, time.Hour, tcg, ck)
	info := models.CardInfo{Name: "Pikachu", SetNumber: "58/102"}

	prices, err := svc.GetPrices(context.Background(), info)
	require.NoError(t, err)
	require.NotNil(t, prices)
	assert.Len(t, prices.Sources, 2)
	require.NotNil(t, prices.AveragePrice)
	assert.InDelta(t, 12.0, *prices.AveragePrice, 0.001)

	// Same card, different case and padding: served from cache
	again, err := svc.GetPrices(context.Background(), models.CardInfo{Name: " pikachu ", SetNumber: "58/102"})
	require.NoError(t, err)
	assert.Equal(t, 1, tcg.calls)
	assert.Equal(t, 1, ck.calls)
	assert.Len(t, again.Sources, 2)

	entries, hits := svc.GetStats()
	assert.Equal(t, int64(1), entries)
	assert.Equal(t, int64(1), hits)
}

func TestPriceServiceRefetchesStaleEntries(t *testing.T) {
	db := openTestDB(t)
	tcg := &stubProvider{name: models.SourceTCGPlayer, sources: []models.PriceSource{tcgSource(10)}}
	svc := NewPriceService(db, time.Hour, tcg)
	info := models.CardInfo{Name: "Pikachu", SetNumber: "58/102"}

	now := time.Now()
	svc.now = func() time.Time { return now }
	_, err := svc.GetPrices(context.Background(), info)
	require.NoError(t, err)

	svc.now = func() time.Time { return now.Add(2 * time.Hour) }
	tcg.sources = []models.PriceSource{tcgSource(20)}
	prices, err := svc.GetPrices(context.Background(), info)
	require.NoError(t, err)
	assert.Equal(t, 2, tcg.calls)
	assert.InDelta(t, 20.0, *prices.AveragePrice, 0.001)
}

func TestPriceServiceServesStaleWhenProvidersFail(t *testing.T) {
	db := openTestDB(t)
	tcg := &stubProvider{name: models.SourceTCGPlayer, sources: []models.PriceSource{tcgSource(10)}}
	svc := NewPriceService(db, time.Hour, tcg)
	info := models.CardInfo{Name: "Pikachu", SetNumber: "58/102"}

	now := time.Now()
	svc.now = func() time.Time { return now }
	_, err := svc.GetPrices(context.Background(), info)
	require.NoError(t, err)

	svc.now = func() time.Time { return now.Add(48 * time.Hour) }
	tcg.sources = nil
	tcg.err = errors.New("upstream down")

	prices, err := svc.GetPrices(context.Background(), info)
	require.NoError(t, err)
	require.NotNil(t, prices)
	assert.InDelta(t, 10.0, *prices.AveragePrice, 0.001)
}

func TestPriceServiceProviderErrors(t *testing.T) {
	failing := &stubProvider{name: "JustTCG", err: errors.New("quota")}
	working := &stubProvider{name: models.SourceTCGPlayer, sources: []models.PriceSource{tcgSource(5)}}

	t.Run("one provider failing is tolerated", func(t *testing.T) {
		svc := NewPriceService(nil, 0, failing, working)
		prices, err := svc.GetPrices(context.Background(), models.CardInfo{Name: "Pikachu"})
		require.NoError(t, err)
		assert.Len(t, prices.Sources, 1)
	})

	t.Run("every provider failing is an error", func(t *testing.T) {
		svc := NewPriceService(nil, 0, failing)
		_, err := svc.GetPrices(context.Background(), models.CardInfo{Name: "Pikachu"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JustTCG: quota")
	})

	t.Run("no quotes is not an error", func(t *testing.T) {
		svc := NewPriceService(nil, 0, &stubProvider{name: "empty"})
		prices, err := svc.GetPrices(context.Background(), models.CardInfo{Name: "Pikachu"})
		require.NoError(t, err)
		assert.Nil(t, prices)
	})
}

func TestPriceServiceRequiresName(t *testing.T) {
	svc := NewPriceService(nil, 0)
	_, err := svc.GetPrices(context.Background(), models.CardInfo{Name: "   "})
	assert.ErrorIs(t, err, ErrMissingCardName)
}

func TestPriceServiceRequestsRemaining(t *testing.T) {
	svc := NewPriceService(nil, 0,
		&stubProvider{name: models.SourceTCGPlayer},
		&quotaProvider{stubProvider: stubProvider{name: models.SourceJustTCG}, remaining: 42},
	)
	assert.Equal(t, map[string]int{models.SourceJustTCG: 42}, svc.RequestsRemaining())
}

func TestPriceLookupHashIgnoresCaseAndPadding(t *testing.T) {
	assert.Equal(t, priceLookupHash("Pikachu", "58/102"), priceLookupHash("  PIKACHU", "58/102 "))
	assert.NotEqual(t, priceLookupHash("Pikachu", "58/102"), priceLookupHash("Pikachu", "60/102"))
	assert.Len(t, priceLookupHash("Pikachu", ""), 64)
}

func TestPriceWorkerRefreshesStalestEntries(t *testing.T) {
	db := openTestDB(t)
	tcg := &stubProvider{name: models.SourceTCGPlayer, sources: []models.PriceSource{tcgSource(10)}}
	svc := NewPriceService(db, time.Hour, tcg)

	for _, name := range []string{"Pikachu", "Charizard", "Blastoise"} {
		_, err := svc.GetPrices(context.Background(), models.CardInfo{Name: name, SetNumber: "1/102"})
		require.NoError(t, err)
	}
	require.Equal(t, 3, tcg.calls)

	worker := NewPriceWorker(svc, time.Hour, 2)
	worker.requestDelay = 0

	updated, err := worker.UpdateBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, updated)
	assert.Equal(t, 5, tcg.calls)

	status := worker.GetStatus()
	assert.Equal(t, 2, status.PricesUpdatedToday)
	assert.Equal(t, 2, status.BatchSize)
	assert.Equal(t, int64(3), status.CacheEntries)
	assert.False(t, status.LastUpdateTime.IsZero())
	assert.Equal(t, status.LastUpdateTime.Add(time.Hour), status.NextUpdateTime)
}

func TestPriceWorkerUpdateCard(t *testing.T) {
	tcg := &stubProvider{name: models.SourceTCGPlayer, sources: []models.PriceSource{tcgSource(7)}}
	worker := NewPriceWorker(NewPriceService(nil, 0, tcg), 0, 0)

	prices, err := worker.UpdateCard(context.Background(), models.CardInfo{Name: "Pikachu"})
	require.NoError(t, err)
	require.NotNil(t, prices)
	assert.Equal(t, 1, worker.GetStatus().PricesUpdatedToday)
	assert.Equal(t, defaultBatchSize, worker.GetStatus().BatchSize)
}
