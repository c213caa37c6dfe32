package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateScan(); err != nil {
		return err
	}
	return c.validatePricing()
}

func (c *Config) validateServer() error {
	if strings.TrimSpace(c.Server.Listen) == "" {
		return errors.New("server.listen must be set")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return errors.New("server.request_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateStorage() error {
	if strings.TrimSpace(c.Storage.DBPath) == "" || c.Storage.DBPath == "." {
		return errors.New("storage.db_path must be set")
	}
	if c.Storage.KeepImages && (c.Storage.ImageDir == "" || c.Storage.ImageDir == ".") {
		return errors.New("storage.image_dir must be set when storage.keep_images is true")
	}
	return nil
}

func (c *Config) validateScan() error {
	switch c.Scan.OCRProvider {
	case OCRProviderGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("gemini.api_key is required when scan.ocr_provider is %q. Set %s or edit the config file", OCRProviderGemini, EnvGoogleAPIKey)
		}
	case OCRProviderTesseract, OCRProviderAuto:
	default:
		return fmt.Errorf("scan.ocr_provider must be one of %q, %q or %q, got %q",
			OCRProviderGemini, OCRProviderTesseract, OCRProviderAuto, c.Scan.OCRProvider)
	}
	if c.Scan.StageTimeoutSeconds <= 0 {
		return errors.New("scan.stage_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validatePricing() error {
	if c.Pricing.CacheTTLHours <= 0 {
		return errors.New("pricing.cache_ttl_hours must be positive")
	}
	if c.Pricing.RefreshIntervalMinutes <= 0 {
		return errors.New("pricing.refresh_interval_minutes must be positive")
	}
	if c.Pricing.RefreshBatchSize <= 0 {
		return errors.New("pricing.refresh_batch_size must be positive")
	}
	if c.Pricing.JustTCGDailyLimit < 0 {
		return errors.New("pricing.justtcg_daily_limit cannot be negative")
	}
	return nil
}
