package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/tcg-scanner/internal/models"
)

type fakeExtractor struct {
	calls int
	fn    func(ctx context.Context, base64Image string) (*models.CardInfo, error)
}

func (f *fakeExtractor) ExtractText(ctx context.Context, base64Image string) (*models.CardInfo, error) {
	f.calls++
	return f.fn(ctx, base64Image)
}

type fakeValidator struct {
	calls int
	fn    func(ctx context.Context, name, setNumber string) (*models.ValidatedCard, error)
}

func (f *fakeValidator) ValidateCard(ctx context.Context, name, setNumber string) (*models.ValidatedCard, error) {
	f.calls++
	return f.fn(ctx, name, setNumber)
}

type fakePriceFetcher struct {
	calls int
	got   models.CardInfo
	fn    func(ctx context.Context, info models.CardInfo) (*models.CardPrices, error)
}

func (f *fakePriceFetcher) GetPrices(ctx context.Context, info models.CardInfo) (*models.CardPrices, error) {
	f.calls++
	f.got = info
	return f.fn(ctx, info)
}

var pikachuInfo = models.CardInfo{Name: "Pikachv", SetNumber: "58/102", HP: "60", FullText: "Pikachv 60 HP\n58/102"}

var pikachuCard = &models.ValidatedCard{
	ID:     "base1-58",
	Name:   "Pikachu",
	Number: "58",
	Rarity: "Common",
	Set:    models.CardSet{ID: "base1", Name: "Base", PrintedTotal: 102},
}

func extractorReturning(info *models.CardInfo, err error) *fakeExtractor {
	return &fakeExtractor{fn: func(context.Context, string) (*models.CardInfo, error) {
		if info == nil {
			return nil, err
		}
		copied := *info
		return &copied, err
	}}
}

func validatorReturning(card *models.ValidatedCard, err error) *fakeValidator {
	return &fakeValidator{fn: func(context.Context, string, string) (*models.ValidatedCard, error) {
		return card, err
	}}
}

func pricesReturning(prices *models.CardPrices, err error) *fakePriceFetcher {
	return &fakePriceFetcher{fn: func(context.Context, models.CardInfo) (*models.CardPrices, error) {
		return prices, err
	}}
}

func collectProgress() (*[]models.ScanProgress, ProgressFunc) {
	var events []models.ScanProgress
	return &events, func(p models.ScanProgress) { events = append(events, p) }
}

var testImage = models.ScanImage{URI: "file:///card.jpg", Base64: "aGVsbG8="}

func TestRunScanSuccess(t *testing.T) {
	avg := 2.5
	extractor := extractorReturning(&pikachuInfo, nil)
	validator := validatorReturning(pikachuCard, nil)
	prices := pricesReturning(&models.CardPrices{CardName: "Pikachu", AveragePrice: &avg}, nil)
	pipeline := NewScanPipeline(extractor, validator, prices, time.Second)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	pipeline.now = func() time.Time { return fixed }

	events, onProgress := collectProgress()
	result, err := pipeline.RunScan(context.Background(), testImage, onProgress)

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "Pikachv", result.CardInfo.Name, "result keeps the OCR card info")
	assert.Equal(t, pikachuCard, result.ValidatedCard)
	assert.True(t, result.Authenticity.IsAuthentic)
	assert.Equal(t, 1.0, result.Authenticity.Confidence)
	require.NotNil(t, result.Prices)
	assert.Equal(t, 2.5, *result.Prices.AveragePrice)
	assert.Equal(t, fixed, result.ScanTime)

	assert.Equal(t, []models.ScanProgress{
		{Stage: models.ScanStageExtractingText, Fraction: 0.25, Label: "Extracting text from image…"},
		{Stage: models.ScanStageValidatingCard, Fraction: 0.50, Label: "Validating card information…"},
		{Stage: models.ScanStageCheckingAuthenticity, Fraction: 0.75, Label: "Checking authenticity…"},
		{Stage: models.ScanStageFetchingPrices, Fraction: 0.90, Label: "Fetching market prices…"},
	}, *events)

	assert.Equal(t, ScanStatus{Stage: models.ScanStageIdle}, pipeline.Status())
}

func TestRunScanEnrichesPriceLookup(t *testing.T) {
	prices := pricesReturning(&models.CardPrices{}, nil)
	pipeline := NewScanPipeline(extractorReturning(&pikachuInfo, nil), validatorReturning(pikachuCard, nil), prices, time.Second)

	_, err := pipeline.RunScan(context.Background(), testImage, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, prices.calls)
	assert.Equal(t, "Pikachu", prices.got.Name)
	assert.Equal(t, "Base", prices.got.SetName)
	assert.Equal(t, "58/102", prices.got.SetNumber)
}

func TestRunScanValidatorReceivesOCRFields(t *testing.T) {
	var gotName, gotSet string
	validator := &fakeValidator{fn: func(_ context.Context, name, setNumber string) (*models.ValidatedCard, error) {
		gotName, gotSet = name, setNumber
		return nil, nil
	}}
	pipeline := NewScanPipeline(extractorReturning(&pikachuInfo, nil), validator, nil, time.Second)

	_, err := pipeline.RunScan(context.Background(), testImage, nil)

	require.NoError(t, err)
	assert.Equal(t, "Pikachv", gotName)
	assert.Equal(t, "58/102", gotSet)
}

func TestRunScanMissingImageData(t *testing.T) {
	extractor := extractorReturning(&pikachuInfo, nil)
	pipeline := NewScanPipeline(extractor, validatorReturning(pikachuCard, nil), nil, time.Second)
	events, onProgress := collectProgress()

	result, err := pipeline.RunScan(context.Background(), models.ScanImage{URI: "file:///card.jpg"}, onProgress)

	assert.Nil(t, result)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoImageData)
	assert.Equal(t, MsgNoImageData, err.Error())
	var scanErr *ScanError
	require.ErrorAs(t, err, &scanErr)
	assert.Equal(t, ScanErrorInput, scanErr.Kind)
	assert.Equal(t, 0, extractor.calls, "OCR must not be called without image data")
	assert.Empty(t, *events)
	assert.Equal(t, models.ScanStageIdle, pipeline.Status().Stage)
}

func TestRunScanOCRFailures(t *testing.T) {
	tests := []struct {
		name      string
		extractor *fakeExtractor
		wantMsg   string
	}{
		{"nil result", extractorReturning(nil, nil), MsgOCRFailed},
		{"empty name", extractorReturning(&models.CardInfo{SetNumber: "58/102"}, nil), MsgOCRFailed},
		{"blank name", extractorReturning(&models.CardInfo{Name: "  "}, nil), MsgOCRFailed},
		{"collaborator error", extractorReturning(nil, errors.New("vision API returned status 500")), "vision API returned status 500"},
		{"collaborator timeout", extractorReturning(nil, context.DeadlineExceeded), MsgOCRTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := validatorReturning(pikachuCard, nil)
			pipeline := NewScanPipeline(tt.extractor, validator, nil, time.Second)
			events, onProgress := collectProgress()

			result, err := pipeline.RunScan(context.Background(), testImage, onProgress)

			assert.Nil(t, result)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrTextExtraction)
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.Equal(t, 0, validator.calls)
			assert.Len(t, *events, 1)
			assert.Equal(t, ScanStatus{Stage: models.ScanStageIdle}, pipeline.Status())
		})
	}
}

func TestRunScanNotFoundSkipsPricing(t *testing.T) {
	prices := pricesReturning(&models.CardPrices{}, nil)
	pipeline := NewScanPipeline(extractorReturning(&pikachuInfo, nil), validatorReturning(nil, nil), prices, time.Second)
	events, onProgress := collectProgress()

	result, err := pipeline.RunScan(context.Background(), testImage, onProgress)

	require.NoError(t, err)
	assert.Nil(t, result.ValidatedCard)
	assert.False(t, result.Authenticity.IsAuthentic)
	assert.Equal(t, 0.4, result.Authenticity.Confidence)
	assert.Nil(t, result.Prices)
	assert.Equal(t, 0, prices.calls, "pricing must not be invoked for an unauthenticated card")
	require.Len(t, *events, 3)
	assert.Equal(t, models.ScanStageCheckingAuthenticity, (*events)[2].Stage)
}

func TestRunScanValidationErrorIsNotFatal(t *testing.T) {
	prices := pricesReturning(&models.CardPrices{}, nil)
	pipeline := NewScanPipeline(extractorReturning(&pikachuInfo, nil), validatorReturning(nil, errors.New("card database unavailable")), prices, time.Second)

	result, err := pipeline.RunScan(context.Background(), testImage, nil)

	require.NoError(t, err)
	assert.Nil(t, result.ValidatedCard)
	assert.Equal(t, []string{IssueNotFound}, result.Authenticity.Issues)
	assert.Equal(t, 0, prices.calls)
}

func TestRunScanMissingSetNumberSkipsPricing(t *testing.T) {
	prices := pricesReturning(&models.CardPrices{}, nil)
	info := models.CardInfo{Name: "Pikachu", HP: "60"}
	pipeline := NewScanPipeline(extractorReturning(&info, nil), validatorReturning(pikachuCard, nil), prices, time.Second)

	result, err := pipeline.RunScan(context.Background(), testImage, nil)

	require.NoError(t, err)
	assert.Equal(t, 0.3, result.Authenticity.Confidence)
	assert.Nil(t, result.Prices)
	assert.Equal(t, 0, prices.calls)
}

func TestRunScanPricingErrorIsSwallowed(t *testing.T) {
	prices := pricesReturning(nil, errors.New("pricing API down"))
	pipeline := NewScanPipeline(extractorReturning(&pikachuInfo, nil), validatorReturning(pikachuCard, nil), prices, time.Second)

	result, err := pipeline.RunScan(context.Background(), testImage, nil)

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Authenticity.IsAuthentic)
	assert.Nil(t, result.Prices)
	assert.Equal(t, 1, prices.calls)
}

func TestRunScanPricingPanicIsSwallowed(t *testing.T) {
	prices := &fakePriceFetcher{fn: func(context.Context, models.CardInfo) (*models.CardPrices, error) {
		panic("pricing exploded")
	}}
	pipeline := NewScanPipeline(extractorReturning(&pikachuInfo, nil), validatorReturning(pikachuCard, nil), prices, time.Second)

	result, err := pipeline.RunScan(context.Background(), testImage, nil)

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Nil(t, result.Prices)
}

func TestRunScanExtractorPanic(t *testing.T) {
	extractor := &fakeExtractor{fn: func(context.Context, string) (*models.CardInfo, error) {
		panic("boom")
	}}
	pipeline := NewScanPipeline(extractor, nil, nil, time.Second)

	result, err := pipeline.RunScan(context.Background(), testImage, nil)

	assert.Nil(t, result)
	require.Error(t, err)
	assert.Equal(t, "boom", err.Error())
	assert.ErrorIs(t, err, ErrScanFailed)
	var scanErr *ScanError
	require.ErrorAs(t, err, &scanErr)
	assert.Equal(t, ScanErrorUnexpected, scanErr.Kind)
	assert.Equal(t, ScanStatus{Stage: models.ScanStageIdle}, pipeline.Status())
}

func TestRunScanPanicWithoutMessageUsesGenericMessage(t *testing.T) {
	validator := &fakeValidator{fn: func(context.Context, string, string) (*models.ValidatedCard, error) {
		panic(errors.New(""))
	}}
	pipeline := NewScanPipeline(extractorReturning(&pikachuInfo, nil), validator, nil, time.Second)

	_, err := pipeline.RunScan(context.Background(), testImage, nil)

	require.Error(t, err)
	assert.Equal(t, MsgScanFailed, err.Error())
}

func TestRunScanValidationTimeout(t *testing.T) {
	validator := &fakeValidator{fn: func(ctx context.Context, _, _ string) (*models.ValidatedCard, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	prices := pricesReturning(&models.CardPrices{}, nil)
	pipeline := NewScanPipeline(extractorReturning(&pikachuInfo, nil), validator, prices, 20*time.Millisecond)

	result, err := pipeline.RunScan(context.Background(), testImage, nil)

	require.NoError(t, err)
	assert.Nil(t, result.ValidatedCard)
	assert.Equal(t, 0.4, result.Authenticity.Confidence)
	assert.Equal(t, 0, prices.calls)
}

func TestRunScanCanceledMidScan(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	extractor := &fakeExtractor{fn: func(context.Context, string) (*models.CardInfo, error) {
		cancel()
		info := pikachuInfo
		return &info, nil
	}}
	validator := validatorReturning(pikachuCard, nil)
	pipeline := NewScanPipeline(extractor, validator, nil, time.Second)
	events, onProgress := collectProgress()

	result, err := pipeline.RunScan(ctx, testImage, onProgress)

	assert.Nil(t, result)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, MsgScanCanceled, err.Error())
	assert.Equal(t, 0, validator.calls)
	assert.Len(t, *events, 1, "no progress after cancellation")
	assert.Equal(t, models.ScanStageIdle, pipeline.Status().Stage)
}

func TestRunScanAlreadyCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	extractor := extractorReturning(&pikachuInfo, nil)
	pipeline := NewScanPipeline(extractor, nil, nil, time.Second)

	_, err := pipeline.RunScan(ctx, testImage, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, extractor.calls)
}

func TestRunScanRejectsConcurrentScan(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	extractor := &fakeExtractor{fn: func(context.Context, string) (*models.CardInfo, error) {
		close(entered)
		<-release
		info := pikachuInfo
		return &info, nil
	}}
	pipeline := NewScanPipeline(extractor, validatorReturning(pikachuCard, nil), nil, time.Second)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = pipeline.RunScan(context.Background(), testImage, nil)
	}()

	<-entered
	status := pipeline.Status()
	assert.True(t, status.Running)
	assert.Equal(t, models.ScanStageExtractingText, status.Stage)
	assert.Equal(t, 0.25, status.Progress)

	_, err := pipeline.RunScan(context.Background(), testImage, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrScanInProgress)
	var scanErr *ScanError
	require.ErrorAs(t, err, &scanErr)
	assert.Equal(t, ScanErrorBusy, scanErr.Kind)

	close(release)
	wg.Wait()
	require.NoError(t, firstErr)

	// idle again, a new scan is accepted
	extractor.fn = func(context.Context, string) (*models.CardInfo, error) {
		info := pikachuInfo
		return &info, nil
	}
	_, err = pipeline.RunScan(context.Background(), testImage, nil)
	assert.NoError(t, err)
}

func TestRunScanStatusDuringValidation(t *testing.T) {
	var pipeline *ScanPipeline
	var during ScanStatus
	validator := &fakeValidator{fn: func(context.Context, string, string) (*models.ValidatedCard, error) {
		during = pipeline.Status()
		return pikachuCard, nil
	}}
	pipeline = NewScanPipeline(extractorReturning(&pikachuInfo, nil), validator, nil, time.Second)

	_, err := pipeline.RunScan(context.Background(), testImage, nil)

	require.NoError(t, err)
	assert.Equal(t, ScanStatus{Running: true, Stage: models.ScanStageValidatingCard, Progress: 0.5}, during)
}

func TestNewScanPipelineDefaultTimeout(t *testing.T) {
	pipeline := NewScanPipeline(extractorReturning(&pikachuInfo, nil), nil, nil, 0)
	assert.Equal(t, DefaultStageTimeout, pipeline.stageTimeout)
}
