package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/codyseavey/tcg-scanner/internal/metrics"
	"github.com/codyseavey/tcg-scanner/internal/models"
)

// TesseractExtractor runs a local tesseract binary over the card image
type TesseractExtractor struct {
	tesseractPath string
	language      string
}

// NewTesseractExtractor creates a tesseract-backed text extractor. An empty path is looked up
// in PATH; an empty language defaults to English.
func NewTesseractExtractor(path, language string) *TesseractExtractor {
	if path == "" {
		if found, err := exec.LookPath("tesseract"); err == nil {
			path = found
		} else {
			path = "tesseract" // fails at scan time if missing
		}
	}
	if language == "" {
		language = "eng"
	}
	return &TesseractExtractor{tesseractPath: path, language: language}
}

// IsAvailable checks if tesseract can be executed
func (s *TesseractExtractor) IsAvailable(ctx context.Context) bool {
	return exec.CommandContext(ctx, s.tesseractPath, "--version").Run() == nil
}

// ExtractText runs OCR over the image and parses the output.
// Returns nil without error when tesseract read no text.
func (s *TesseractExtractor) ExtractText(ctx context.Context, base64Image string) (*models.CardInfo, error) {
	raw, err := DecodeBase64Image(base64Image)
	if err != nil {
		metrics.OCRErrorsTotal.WithLabelValues("tesseract", categorizeOCRError(err)).Inc()
		return nil, err
	}
	// tesseract reads PNG from stdin reliably; HEIC not at all
	pngData, err := ToPNG(raw)
	if err != nil {
		metrics.OCRErrorsTotal.WithLabelValues("tesseract", categorizeOCRError(err)).Inc()
		return nil, err
	}

	start := time.Now()
	text, err := s.run(ctx, pngData)
	metrics.OCRLatency.WithLabelValues("tesseract").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.OCRErrorsTotal.WithLabelValues("tesseract", categorizeOCRError(err)).Inc()
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		metrics.OCRErrorsTotal.WithLabelValues("tesseract", "no_text").Inc()
		return nil, nil
	}
	debugLog("Tesseract output (%d chars):\n%s", len(text), text)

	info := ParseCardText(text)
	return &info, nil
}

func (s *TesseractExtractor) run(ctx context.Context, imageData []byte) (string, error) {
	cmd := exec.CommandContext(ctx,
		s.tesseractPath,
		"stdin",
		"stdout",
		"-l", s.language,
		"--psm", "3", // fully automatic page segmentation
		"--oem", "3", // LSTM + legacy
	)
	cmd.Stdin = bytes.NewReader(imageData)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("tesseract: %w", ctxErr)
		}
		return "", fmt.Errorf("tesseract error: %w - %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// categorizeOCRError maps an extraction error to a metrics reason label
func categorizeOCRError(err error) string {
	if err == nil {
		return "none"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, ErrInvalidImage) || errors.Is(err, ErrNoImageData) {
		return "invalid_image"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "deadline exceeded") || strings.Contains(msg, "timeout"):
		return "timeout"
	case strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "resource exhausted"):
		return "rate_limited"
	case strings.Contains(msg, "api returned status") ||
		strings.Contains(msg, "request failed") ||
		strings.Contains(msg, "generating content") ||
		strings.Contains(msg, "tesseract error"):
		return "api_error"
	}
	return "other"
}
