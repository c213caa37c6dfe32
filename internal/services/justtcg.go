package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/codyseavey/tcg-scanner/internal/models"
)

const (
	DefaultJustTCGBaseURL    = "https://api.justtcg.com/v1"
	defaultJustTCGDailyCap   = 100
	justTCGRequestTimeout    = 30 * time.Second
	justTCGPreferredPrinting = "Normal"
)

// JustTCGService fetches condition-graded prices from JustTCG. The free tier caps requests per
// day, so every call is counted against dailyLimit.
type JustTCGService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter

	mu           sync.Mutex
	dailyLimit   int
	requestCount int
	countDay     string
}

type justTCGResponse struct {
	Data []justTCGCard `json:"data"`
}

type justTCGCard struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Game     string           `json:"game"`
	Set      string           `json:"set"`
	Number   string           `json:"number"`
	Rarity   string           `json:"rarity"`
	Variants []justTCGVariant `json:"variants"`
}

type justTCGVariant struct {
	ID        string  `json:"id"`
	Condition string  `json:"condition"`
	Printing  string  `json:"printing"`
	Price     float64 `json:"price"`
}

// NewJustTCGService creates a JustTCG client. A dailyLimit of zero or less uses the free tier cap.
func NewJustTCGService(apiKey string, dailyLimit int) *JustTCGService {
	if dailyLimit <= 0 {
		dailyLimit = defaultJustTCGDailyCap
	}
	return &JustTCGService{
		baseURL:    DefaultJustTCGBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: justTCGRequestTimeout},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
		dailyLimit: dailyLimit,
	}
}

// WithBaseURL points the client at a different API root
func (s *JustTCGService) WithBaseURL(baseURL string) *JustTCGService {
	if baseURL != "" {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
	return s
}

func (s *JustTCGService) Name() string { return models.SourceJustTCG }

// FetchPrices implements PriceProvider
func (s *JustTCGService) FetchPrices(ctx context.Context, info models.CardInfo) ([]models.PriceSource, error) {
	source, err := s.GetCardPrices(ctx, info.Name, info.SetNumber)
	if err != nil || source == nil {
		return nil, err
	}
	return []models.PriceSource{*source}, nil
}

// GetCardPrices looks a Pokemon card up by name and returns its per-condition prices as a
// JustTCG source. Returns nil when JustTCG has no priced match.
func (s *JustTCGService) GetCardPrices(ctx context.Context, name, setNumber string) (*models.PriceSource, error) {
	if s.apiKey == "" {
		return nil, nil
	}
	if !s.checkDailyLimit() {
		return nil, fmt.Errorf("justtcg daily limit of %d requests reached", s.dailyLimit)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("justtcg rate limiter: %w", err)
	}

	params := url.Values{}
	params.Set("q", name)
	params.Set("game", "pokemon")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/cards?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building justtcg request: %w", err)
	}
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("justtcg request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("justtcg API returned status %d", resp.StatusCode)
	}

	var result justTCGResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding justtcg response: %w", err)
	}

	card := pickJustTCGCard(result.Data, setNumber)
	if card == nil {
		return nil, nil
	}

	prices, printing := justTCGConditionPrices(card.Variants)
	if len(prices) == 0 {
		return nil, nil
	}
	debugLog("JustTCG: %s (%s) priced from %s printing", card.Name, card.Number, printing)

	source := models.NewGenericSource(models.SourceJustTCG, card.Name, "", prices, map[string]string{
		"justtcg_id": card.ID,
		"set":        card.Set,
		"printing":   printing,
	})
	return &source, nil
}

// pickJustTCGCard prefers the result whose collector number matches the scanned one
func pickJustTCGCard(cards []justTCGCard, setNumber string) *justTCGCard {
	if len(cards) == 0 {
		return nil
	}
	number, _ := splitSetNumber(setNumber)
	if number != "" {
		for i := range cards {
			cardNumber, _ := splitSetNumber(cards[i].Number)
			if cardNumber == number {
				return &cards[i]
			}
		}
	}
	return &cards[0]
}

// justTCGConditionPrices collects one price per condition, preferring the normal printing and
// falling back to whichever printing is listed first
func justTCGConditionPrices(variants []justTCGVariant) (map[string]float64, string) {
	printing := ""
	for _, v := range variants {
		if v.Price <= 0 || mapJustTCGCondition(v.Condition) == "" {
			continue
		}
		if printing == "" || strings.EqualFold(v.Printing, justTCGPreferredPrinting) {
			printing = v.Printing
		}
		if strings.EqualFold(printing, justTCGPreferredPrinting) {
			break
		}
	}

	prices := make(map[string]float64)
	for _, v := range variants {
		if v.Printing != printing || v.Price <= 0 {
			continue
		}
		if cond := mapJustTCGCondition(v.Condition); cond != "" {
			if _, seen := prices[cond.Key()]; !seen {
				prices[cond.Key()] = v.Price
			}
		}
	}
	return prices, printing
}

// checkDailyLimit counts a request against today's quota, returning false once it is spent
func (s *JustTCGService) checkDailyLimit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := time.Now().UTC().Format("2006-01-02")
	if s.countDay != today {
		s.countDay = today
		s.requestCount = 0
	}
	if s.requestCount >= s.dailyLimit {
		return false
	}
	s.requestCount++
	return true
}

// GetRequestsRemaining returns how many requests are left in today's quota
func (s *JustTCGService) GetRequestsRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.countDay != time.Now().UTC().Format("2006-01-02") {
		return s.dailyLimit
	}
	return s.dailyLimit - s.requestCount
}

func mapJustTCGCondition(condition string) models.PriceCondition {
	switch strings.ToUpper(strings.TrimSpace(condition)) {
	case "NM", "NEAR MINT":
		return models.PriceConditionNM
	case "LP", "LIGHTLY PLAYED":
		return models.PriceConditionLP
	case "MP", "MODERATELY PLAYED":
		return models.PriceConditionMP
	case "HP", "HEAVILY PLAYED":
		return models.PriceConditionHP
	case "DMG", "DAMAGED":
		return models.PriceConditionDMG
	}
	return ""
}
