package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Server contains the HTTP listener and access settings.
type Server struct {
	Listen                string   `toml:"listen"`
	CORSOrigins           []string `toml:"cors_origins"`
	AdminKey              string   `toml:"admin_key"`
	RequestTimeoutSeconds int      `toml:"request_timeout_seconds"`
}

// Storage contains the database and scan image locations.
type Storage struct {
	DBPath     string `toml:"db_path"`
	ImageDir   string `toml:"image_dir"`
	KeepImages bool   `toml:"keep_images"`
}

// Scan contains pipeline settings.
type Scan struct {
	// OCRProvider is "gemini", "tesseract" or "auto" (Gemini when a key is set, else tesseract).
	OCRProvider         string `toml:"ocr_provider"`
	StageTimeoutSeconds int    `toml:"stage_timeout_seconds"`
	Debug               bool   `toml:"debug"`
}

// Gemini contains the vision model used for OCR.
type Gemini struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// Tesseract contains the local OCR binary settings.
type Tesseract struct {
	Path     string `toml:"path"`
	Language string `toml:"language"`
}

// PokemonTCG contains the card database client settings.
type PokemonTCG struct {
	APIKey        string `toml:"api_key"`
	BaseURL       string `toml:"base_url"`
	UseSampleData bool   `toml:"use_sample_data"`
}

// Pricing contains the price cache, refresh worker and JustTCG settings.
type Pricing struct {
	UseSampleData          bool   `toml:"use_sample_data"`
	CacheTTLHours          int    `toml:"cache_ttl_hours"`
	RefreshIntervalMinutes int    `toml:"refresh_interval_minutes"`
	RefreshBatchSize       int    `toml:"refresh_batch_size"`
	JustTCGAPIKey          string `toml:"justtcg_api_key"`
	JustTCGBaseURL         string `toml:"justtcg_base_url"`
	JustTCGDailyLimit      int    `toml:"justtcg_daily_limit"`
}

// Config encapsulates all configuration values for the scanner service.
type Config struct {
	Server     Server     `toml:"server"`
	Storage    Storage    `toml:"storage"`
	Scan       Scan       `toml:"scan"`
	Gemini     Gemini     `toml:"gemini"`
	Tesseract  Tesseract  `toml:"tesseract"`
	PokemonTCG PokemonTCG `toml:"pokemontcg"`
	Pricing    Pricing    `toml:"pricing"`
}

// Secrets read from the environment. They override the file so keys never need to be committed.
const (
	EnvGoogleAPIKey     = "GOOGLE_API_KEY"
	EnvPokemonTCGAPIKey = "POKEMONTCG_API_KEY"
	EnvJustTCGAPIKey    = "JUSTTCG_API_KEY"
	EnvAdminKey         = "ADMIN_KEY"
)

// Load reads the TOML file at path over Default(), applies environment secrets and validates
// the result. A missing file is not an error; exists reports whether it was found.
func Load(path string) (cfg *Config, exists bool, err error) {
	c := Default()

	if path != "" {
		file, openErr := os.Open(path)
		switch {
		case openErr == nil:
			defer file.Close()
			exists = true
			if err := toml.NewDecoder(file).Decode(&c); err != nil {
				return nil, true, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(openErr, fs.ErrNotExist):
		default:
			return nil, false, fmt.Errorf("open config: %w", openErr)
		}
	}

	c.applyEnv()
	c.normalize()

	if err := c.Validate(); err != nil {
		return nil, exists, err
	}
	return &c, exists, nil
}

func (c *Config) applyEnv() {
	for env, field := range map[string]*string{
		EnvGoogleAPIKey:     &c.Gemini.APIKey,
		EnvPokemonTCGAPIKey: &c.PokemonTCG.APIKey,
		EnvJustTCGAPIKey:    &c.Pricing.JustTCGAPIKey,
		EnvAdminKey:         &c.Server.AdminKey,
	} {
		if v, ok := os.LookupEnv(env); ok && strings.TrimSpace(v) != "" {
			*field = strings.TrimSpace(v)
		}
	}
}

func (c *Config) normalize() {
	c.Scan.OCRProvider = strings.ToLower(strings.TrimSpace(c.Scan.OCRProvider))
	if c.Storage.DBPath != ":memory:" {
		c.Storage.DBPath = filepath.Clean(c.Storage.DBPath)
	}
	c.Storage.ImageDir = filepath.Clean(c.Storage.ImageDir)
}

// UseGemini reports whether scans should be read by the Gemini vision model
func (c *Config) UseGemini() bool {
	switch c.Scan.OCRProvider {
	case OCRProviderGemini:
		return true
	case OCRProviderAuto:
		return c.Gemini.APIKey != ""
	}
	return false
}

func (c *Config) StageTimeout() time.Duration {
	return time.Duration(c.Scan.StageTimeoutSeconds) * time.Second
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

func (c *Config) PriceCacheTTL() time.Duration {
	return time.Duration(c.Pricing.CacheTTLHours) * time.Hour
}

func (c *Config) PriceRefreshInterval() time.Duration {
	return time.Duration(c.Pricing.RefreshIntervalMinutes) * time.Minute
}

// Marshal renders the configuration as TOML, with secrets blanked
func (c Config) Marshal() ([]byte, error) {
	for _, secret := range []*string{&c.Gemini.APIKey, &c.PokemonTCG.APIKey, &c.Pricing.JustTCGAPIKey, &c.Server.AdminKey} {
		if *secret != "" {
			*secret = "<redacted>"
		}
	}
	return toml.Marshal(c)
}
