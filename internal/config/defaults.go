package config

const (
	OCRProviderGemini    = "gemini"
	OCRProviderTesseract = "tesseract"
	OCRProviderAuto      = "auto"
)

const (
	defaultListen                 = ":8080"
	defaultRequestTimeoutSeconds  = 120
	defaultDBPath                 = "./data/scanner.db"
	defaultImageDir               = "./data/scan_images"
	defaultStageTimeoutSeconds    = 30
	defaultGeminiModel            = "gemini-2.5-flash"
	defaultTesseractLanguage      = "eng"
	defaultPokemonTCGBaseURL      = "https://api.pokemontcg.io/v2"
	defaultCacheTTLHours          = 24
	defaultRefreshIntervalMinutes = 60
	defaultRefreshBatchSize       = 20
	defaultJustTCGBaseURL         = "https://api.justtcg.com/v1"
	defaultJustTCGDailyLimit      = 100
)

// Default returns a configuration that runs entirely offline: tesseract OCR and the sample
// catalog for card lookups and prices.
func Default() Config {
	return Config{
		Server: Server{
			Listen:                defaultListen,
			CORSOrigins:           []string{"http://localhost:3000", "http://localhost:5173"},
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
		},
		Storage: Storage{
			DBPath:     defaultDBPath,
			ImageDir:   defaultImageDir,
			KeepImages: true,
		},
		Scan: Scan{
			OCRProvider:         OCRProviderAuto,
			StageTimeoutSeconds: defaultStageTimeoutSeconds,
		},
		Gemini: Gemini{
			Model: defaultGeminiModel,
		},
		Tesseract: Tesseract{
			Language: defaultTesseractLanguage,
		},
		PokemonTCG: PokemonTCG{
			BaseURL:       defaultPokemonTCGBaseURL,
			UseSampleData: true,
		},
		Pricing: Pricing{
			UseSampleData:          true,
			CacheTTLHours:          defaultCacheTTLHours,
			RefreshIntervalMinutes: defaultRefreshIntervalMinutes,
			RefreshBatchSize:       defaultRefreshBatchSize,
			JustTCGBaseURL:         defaultJustTCGBaseURL,
			JustTCGDailyLimit:      defaultJustTCGDailyLimit,
		},
	}
}
