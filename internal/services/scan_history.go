package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/codyseavey/tcg-scanner/internal/metrics"
	"github.com/codyseavey/tcg-scanner/internal/models"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

var ErrScanNotFound = errors.New("scan not found")

// ScanHistoryService persists finished scans and their captures
type ScanHistoryService struct {
	db     *gorm.DB
	images *ImageStorageService
}

// NewScanHistoryService creates a history store. images may be nil to skip keeping captures.
func NewScanHistoryService(db *gorm.DB, images *ImageStorageService) *ScanHistoryService {
	return &ScanHistoryService{db: db, images: images}
}

// Record stores a scan result. imageData is the decoded capture and may be empty.
func (s *ScanHistoryService) Record(ctx context.Context, result *models.ScanResult, imageData []byte) (*models.ScanRecord, error) {
	if result == nil {
		return nil, fmt.Errorf("nil scan result")
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encoding scan result: %w", err)
	}

	record := &models.ScanRecord{
		ID:          uuid.New().String(),
		CardName:    result.CardInfo.Name,
		SetNumber:   result.CardInfo.SetNumber,
		IsAuthentic: result.Authenticity.IsAuthentic,
		Confidence:  result.Authenticity.Confidence,
		ResultJSON:  string(data),
		ScannedAt:   result.ScanTime,
		Result:      result,
	}
	if result.ValidatedCard != nil {
		record.ValidatedID = result.ValidatedCard.ID
	}
	if market, ok := BestMarketPrice(result.Prices); ok {
		record.MarketPrice = floatPtr(round2(market))
	}

	if s.images != nil && len(imageData) > 0 {
		filename, err := s.images.SaveImage(imageData)
		if err != nil {
			log.Printf("Scan history: keeping scan %s without image: %v", record.ID, err)
		} else {
			record.ImagePath = filename
		}
	}

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		if record.ImagePath != "" {
			_ = s.images.DeleteImage(record.ImagePath)
		}
		return nil, fmt.Errorf("saving scan: %w", err)
	}

	metrics.UpdateScanMetrics(s.db)
	return record, nil
}

// List returns the most recent scans first. The full result is not decoded.
func (s *ScanHistoryService) List(ctx context.Context, limit int) ([]models.ScanRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	var records []models.ScanRecord
	err := s.db.WithContext(ctx).Order("scanned_at DESC").Limit(limit).Find(&records).Error
	return records, err
}

// Get returns one scan with its decoded result
func (s *ScanHistoryService) Get(ctx context.Context, id string) (*models.ScanRecord, error) {
	var record models.ScanRecord
	if err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScanNotFound
		}
		return nil, err
	}

	var result models.ScanResult
	if err := json.Unmarshal([]byte(record.ResultJSON), &result); err != nil {
		return nil, fmt.Errorf("decoding scan %s: %w", id, err)
	}
	record.Result = &result
	return &record, nil
}

// Delete removes a scan and its stored capture
func (s *ScanHistoryService) Delete(ctx context.Context, id string) error {
	var record models.ScanRecord
	if err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrScanNotFound
		}
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&record).Error; err != nil {
		return err
	}
	if s.images != nil && record.ImagePath != "" {
		if err := s.images.DeleteImage(record.ImagePath); err != nil {
			log.Printf("Scan history: failed to delete image for %s: %v", id, err)
		}
	}

	metrics.UpdateScanMetrics(s.db)
	return nil
}

// ImagePath resolves the stored capture of a scan
func (s *ScanHistoryService) ImagePath(record *models.ScanRecord) (string, error) {
	if s.images == nil || record.ImagePath == "" {
		return "", ErrScanNotFound
	}
	return s.images.GetImagePath(record.ImagePath)
}
