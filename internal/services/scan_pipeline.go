package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/codyseavey/tcg-scanner/internal/metrics"
	"github.com/codyseavey/tcg-scanner/internal/models"
)

// DefaultStageTimeout bounds each collaborator call made by the pipeline
const DefaultStageTimeout = 30 * time.Second

var (
	ErrNoImageData    = errors.New("no image data provided")
	ErrTextExtraction = errors.New("text extraction failed")
	ErrScanInProgress = errors.New("scan already in progress")
	ErrScanFailed     = errors.New("scan failed")
)

// User-facing scan failure messages
const (
	MsgNoImageData  = "No image data provided"
	MsgOCRFailed    = "Could not extract card information from image"
	MsgOCRTimeout   = "Timed out reading text from image"
	MsgScanBusy     = "A scan is already in progress"
	MsgScanCanceled = "Scan was canceled"
	MsgScanFailed   = "Failed to scan card. Please try again."
)

// TextExtractor reads a card photo and returns the parsed card text.
// A nil result with a nil error means nothing usable was found.
type TextExtractor interface {
	ExtractText(ctx context.Context, base64Image string) (*models.CardInfo, error)
}

// CardValidator looks a card up in the card database. A nil result means not found.
type CardValidator interface {
	ValidateCard(ctx context.Context, name, setNumber string) (*models.ValidatedCard, error)
}

// PriceFetcher returns market prices for a card
type PriceFetcher interface {
	GetPrices(ctx context.Context, info models.CardInfo) (*models.CardPrices, error)
}

// ProgressFunc receives a progress event before each stage starts
type ProgressFunc func(models.ScanProgress)

// ScanErrorKind categorizes a failed scan
type ScanErrorKind string

const (
	ScanErrorInput      ScanErrorKind = "input"
	ScanErrorOCR        ScanErrorKind = "ocr"
	ScanErrorBusy       ScanErrorKind = "busy"
	ScanErrorCanceled   ScanErrorKind = "canceled"
	ScanErrorUnexpected ScanErrorKind = "unexpected"
)

// ScanError is returned by RunScan. Error() is the message shown to the user;
// the wrapped error carries the sentinel and the underlying cause.
type ScanError struct {
	Kind    ScanErrorKind
	Message string
	Err     error
}

func (e *ScanError) Error() string { return e.Message }

func (e *ScanError) Unwrap() error { return e.Err }

var stageProgress = map[models.ScanStage]models.ScanProgress{
	models.ScanStageExtractingText:       {Stage: models.ScanStageExtractingText, Fraction: 0.25, Label: "Extracting text from image…"},
	models.ScanStageValidatingCard:       {Stage: models.ScanStageValidatingCard, Fraction: 0.50, Label: "Validating card information…"},
	models.ScanStageCheckingAuthenticity: {Stage: models.ScanStageCheckingAuthenticity, Fraction: 0.75, Label: "Checking authenticity…"},
	models.ScanStageFetchingPrices:       {Stage: models.ScanStageFetchingPrices, Fraction: 0.90, Label: "Fetching market prices…"},
}

// ScanStatus is a snapshot of a pipeline's state
type ScanStatus struct {
	Running  bool             `json:"running"`
	Stage    models.ScanStage `json:"stage"`
	Progress float64          `json:"progress"`
}

// ScanPipeline runs OCR extraction, card validation, authenticity scoring and price
// lookup in sequence. An instance runs one scan at a time.
type ScanPipeline struct {
	extractor    TextExtractor
	validator    CardValidator
	prices       PriceFetcher
	stageTimeout time.Duration
	now          func() time.Time

	mu       sync.Mutex
	running  bool
	stage    models.ScanStage
	progress float64
}

// NewScanPipeline creates a pipeline around the given collaborators. validator and prices may
// be nil, in which case validation always misses and pricing is skipped.
func NewScanPipeline(extractor TextExtractor, validator CardValidator, prices PriceFetcher, stageTimeout time.Duration) *ScanPipeline {
	if stageTimeout <= 0 {
		stageTimeout = DefaultStageTimeout
	}
	return &ScanPipeline{
		extractor:    extractor,
		validator:    validator,
		prices:       prices,
		stageTimeout: stageTimeout,
		now:          time.Now,
		stage:        models.ScanStageIdle,
	}
}

// Status returns the current stage and progress
func (p *ScanPipeline) Status() ScanStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ScanStatus{Running: p.running, Stage: p.stage, Progress: p.progress}
}

// RunScan scans a single card image. It fails only when the image has no data, when text
// extraction yields no card name, on cancellation, or on an unexpected panic. Validation and
// pricing failures degrade the result instead.
func (p *ScanPipeline) RunScan(ctx context.Context, img models.ScanImage, onProgress ProgressFunc) (result *models.ScanResult, err error) {
	if !p.begin() {
		metrics.ScanRequestsTotal.WithLabelValues("busy").Inc()
		return nil, &ScanError{Kind: ScanErrorBusy, Message: MsgScanBusy, Err: ErrScanInProgress}
	}
	defer p.reset()
	defer func() {
		if r := recover(); r != nil {
			infoLog("Scan panicked: %v", r)
			result = nil
			err = &ScanError{
				Kind:    ScanErrorUnexpected,
				Message: panicMessage(r),
				Err:     fmt.Errorf("%w: panic: %v", ErrScanFailed, r),
			}
		}
		p.finish(err)
	}()

	return p.run(ctx, img, onProgress)
}

func (p *ScanPipeline) run(ctx context.Context, img models.ScanImage, onProgress ProgressFunc) (*models.ScanResult, error) {
	if strings.TrimSpace(img.Base64) == "" {
		return nil, &ScanError{Kind: ScanErrorInput, Message: MsgNoImageData, Err: ErrNoImageData}
	}

	if err := p.enter(ctx, models.ScanStageExtractingText, onProgress); err != nil {
		return nil, err
	}
	info, err := p.extract(ctx, img.Base64)
	if err != nil {
		return nil, err
	}
	debugLog("Extracted card: name=%q set=%q hp=%q", info.Name, info.SetNumber, info.HP)

	if err := p.enter(ctx, models.ScanStageValidatingCard, onProgress); err != nil {
		return nil, err
	}
	validated := p.validate(ctx, *info)

	if err := p.enter(ctx, models.ScanStageCheckingAuthenticity, onProgress); err != nil {
		return nil, err
	}
	start := time.Now()
	authenticity := ScoreAuthenticity(*info, validated != nil)
	observeStage(models.ScanStageCheckingAuthenticity, start)

	var prices *models.CardPrices
	if authenticity.IsAuthentic {
		if err := p.enter(ctx, models.ScanStageFetchingPrices, onProgress); err != nil {
			return nil, err
		}
		prices = p.fetchPrices(ctx, info.WithValidatedCard(validated))
	} else {
		debugLog("Skipping price lookup for %q: not authentic (confidence=%.2f)", info.Name, authenticity.Confidence)
	}

	if err := ctx.Err(); err != nil {
		return nil, canceledError(err)
	}

	p.setStage(models.ScanStageComplete, 1.0)
	return &models.ScanResult{
		CardInfo:      *info,
		ValidatedCard: validated,
		Authenticity:  authenticity,
		Prices:        prices,
		ScanTime:      p.now(),
	}, nil
}

// enter moves to stage and reports it, unless the scan has been canceled
func (p *ScanPipeline) enter(ctx context.Context, stage models.ScanStage, onProgress ProgressFunc) error {
	if err := ctx.Err(); err != nil {
		return canceledError(err)
	}
	progress := stageProgress[stage]
	p.setStage(stage, progress.Fraction)
	if onProgress != nil {
		onProgress(progress)
	}
	return nil
}

func (p *ScanPipeline) extract(ctx context.Context, base64Image string) (*models.CardInfo, error) {
	stageCtx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()

	start := time.Now()
	info, err := p.extractor.ExtractText(stageCtx, base64Image)
	observeStage(models.ScanStageExtractingText, start)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, canceledError(ctxErr)
	}
	if err != nil {
		infoLog("Text extraction failed: %v", err)
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			msg = MsgOCRTimeout
		}
		if msg == "" {
			msg = MsgScanFailed
		}
		return nil, &ScanError{Kind: ScanErrorOCR, Message: msg, Err: fmt.Errorf("%w: %w", ErrTextExtraction, err)}
	}
	if info == nil || strings.TrimSpace(info.Name) == "" {
		infoLog("Text extraction returned no card name")
		return nil, &ScanError{Kind: ScanErrorOCR, Message: MsgOCRFailed, Err: ErrTextExtraction}
	}
	return info, nil
}

// validate returns nil on a miss; errors and timeouts are logged and treated as a miss
func (p *ScanPipeline) validate(ctx context.Context, info models.CardInfo) *models.ValidatedCard {
	if p.validator == nil {
		return nil
	}
	stageCtx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()

	start := time.Now()
	card, err := p.validator.ValidateCard(stageCtx, info.Name, info.SetNumber)
	observeStage(models.ScanStageValidatingCard, start)

	if err != nil {
		infoLog("Card validation failed for %q (%s), continuing with OCR name: %v", info.Name, info.SetNumber, err)
		metrics.ScanDegradedTotal.WithLabelValues(string(models.ScanStageValidatingCard)).Inc()
		return nil
	}
	if card == nil {
		debugLog("Card %q (%s) not found in card database", info.Name, info.SetNumber)
	}
	return card
}

// fetchPrices never fails the scan: errors and panics leave prices nil
func (p *ScanPipeline) fetchPrices(ctx context.Context, info models.CardInfo) (prices *models.CardPrices) {
	if p.prices == nil {
		return nil
	}
	start := time.Now()
	defer func() {
		observeStage(models.ScanStageFetchingPrices, start)
		if r := recover(); r != nil {
			infoLog("Price lookup panicked for %q: %v", info.Name, r)
			metrics.ScanDegradedTotal.WithLabelValues(string(models.ScanStageFetchingPrices)).Inc()
			prices = nil
		}
	}()

	stageCtx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()

	got, err := p.prices.GetPrices(stageCtx, info)
	if err != nil {
		infoLog("Price lookup failed for %q: %v", info.Name, err)
		metrics.ScanDegradedTotal.WithLabelValues(string(models.ScanStageFetchingPrices)).Inc()
		return nil
	}
	return got
}

func (p *ScanPipeline) begin() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return false
	}
	p.running = true
	return true
}

func (p *ScanPipeline) setStage(stage models.ScanStage, progress float64) {
	p.mu.Lock()
	p.stage = stage
	p.progress = progress
	p.mu.Unlock()
}

// finish records the outcome of a scan
func (p *ScanPipeline) finish(err error) {
	if err == nil {
		metrics.ScanRequestsTotal.WithLabelValues("success").Inc()
		return
	}
	p.setStage(models.ScanStageFailed, 0)

	outcome := "error"
	var scanErr *ScanError
	if errors.As(err, &scanErr) {
		switch scanErr.Kind {
		case ScanErrorInput:
			outcome = "input_error"
		case ScanErrorOCR:
			outcome = "ocr_error"
		case ScanErrorCanceled:
			outcome = "canceled"
		}
	}
	metrics.ScanRequestsTotal.WithLabelValues(outcome).Inc()
}

// reset returns the pipeline to idle. Runs on every exit path of RunScan.
func (p *ScanPipeline) reset() {
	p.mu.Lock()
	p.running = false
	p.stage = models.ScanStageIdle
	p.progress = 0
	p.mu.Unlock()
}

func canceledError(err error) error {
	return &ScanError{Kind: ScanErrorCanceled, Message: MsgScanCanceled, Err: fmt.Errorf("%w: %w", ErrScanFailed, err)}
}

func panicMessage(r interface{}) string {
	switch v := r.(type) {
	case error:
		if v.Error() != "" {
			return v.Error()
		}
	case string:
		if v != "" {
			return v
		}
	}
	return MsgScanFailed
}

func observeStage(stage models.ScanStage, start time.Time) {
	metrics.ScanStageDuration.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())
}
