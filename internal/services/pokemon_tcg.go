package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/codyseavey/tcg-scanner/internal/metrics"
	"github.com/codyseavey/tcg-scanner/internal/models"
)

const (
	DefaultPokemonTCGBaseURL = "https://api.pokemontcg.io/v2"
	pokemonTCGTimeout        = 30 * time.Second
)

// PokemonTCGService looks cards up in the pokemontcg.io card database
type PokemonTCGService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type pokemonTCGSearchResponse struct {
	Data       []models.ValidatedCard `json:"data"`
	TotalCount int                    `json:"totalCount"`
}

type pokemonTCGCardResponse struct {
	Data models.ValidatedCard `json:"data"`
}

// NewPokemonTCGService creates a card database client. Without an API key the service is
// rate limited much harder upstream, so requests are paced accordingly.
func NewPokemonTCGService(baseURL, apiKey string) *PokemonTCGService {
	if baseURL == "" {
		baseURL = DefaultPokemonTCGBaseURL
	}

	limiter := rate.NewLimiter(rate.Every(2*time.Second), 3)
	if apiKey != "" {
		limiter = rate.NewLimiter(rate.Limit(5), 5)
	}

	return &PokemonTCGService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: pokemonTCGTimeout},
		limiter:    limiter,
	}
}

// ValidateCard finds the card matching an OCR name and "N/M" set number. It tries name plus
// number (and printed total when known) first, then name alone. Returns nil when nothing matches.
func (s *PokemonTCGService) ValidateCard(ctx context.Context, name, setNumber string) (*models.ValidatedCard, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	number, total := splitSetNumber(setNumber)
	quotedName := `name:"` + strings.ReplaceAll(name, `"`, "") + `"`

	if number != "" {
		q := quotedName + " number:" + number
		if total != "" {
			q += " set.printedTotal:" + total
		}
		cards, err := s.search(ctx, q, 5)
		if err != nil {
			metrics.CardLookupsTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		if len(cards) > 0 {
			metrics.CardLookupsTotal.WithLabelValues("found").Inc()
			return &cards[0], nil
		}
		debugLog("No exact match for %s, falling back to name search", q)
	}

	cards, err := s.search(ctx, quotedName, 20)
	if err != nil {
		metrics.CardLookupsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if len(cards) == 0 {
		metrics.CardLookupsTotal.WithLabelValues("not_found").Inc()
		return nil, nil
	}

	metrics.CardLookupsTotal.WithLabelValues("found").Inc()
	for i := range cards {
		if number != "" && strings.TrimLeft(cards[i].Number, "0") == number {
			return &cards[i], nil
		}
	}
	return &cards[0], nil
}

// GetCard fetches a single card by its pokemontcg.io ID, e.g. "base1-58"
func (s *PokemonTCGService) GetCard(ctx context.Context, id string) (*models.ValidatedCard, error) {
	var resp pokemonTCGCardResponse
	status, err := s.get(ctx, "/cards/"+url.PathEscape(id), nil, &resp)
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (s *PokemonTCGService) search(ctx context.Context, q string, pageSize int) ([]models.ValidatedCard, error) {
	params := url.Values{}
	params.Set("q", q)
	params.Set("pageSize", fmt.Sprintf("%d", pageSize))
	params.Set("orderBy", "-set.releaseDate")

	debugLog("pokemontcg search: %s", q)
	var resp pokemonTCGSearchResponse
	if _, err := s.get(ctx, "/cards", params, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (s *PokemonTCGService) get(ctx context.Context, path string, params url.Values, out interface{}) (int, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("pokemontcg rate limiter: %w", err)
	}

	reqURL := s.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("building pokemontcg request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("X-Api-Key", s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("pokemontcg request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, fmt.Errorf("pokemontcg API returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decoding pokemontcg response: %w", err)
	}
	return resp.StatusCode, nil
}

// splitSetNumber turns "043/185" into ("43", "185"). Either part may be empty.
func splitSetNumber(setNumber string) (number, total string) {
	parts := strings.SplitN(strings.TrimSpace(setNumber), "/", 2)
	number = trimZeros(parts[0])
	if len(parts) == 2 {
		total = trimZeros(parts[1])
	}
	return number, total
}

func trimZeros(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if t := strings.TrimLeft(s, "0"); t != "" {
		return t
	}
	return "0"
}

// TCGPlayerProvider prices cards from the TCGPlayer block pokemontcg.io embeds in card records
type TCGPlayerProvider struct {
	cards *PokemonTCGService
}

func NewTCGPlayerProvider(cards *PokemonTCGService) *TCGPlayerProvider {
	return &TCGPlayerProvider{cards: cards}
}

func (p *TCGPlayerProvider) Name() string { return models.SourceTCGPlayer }

// FetchPrices returns the card's TCGPlayer quote, or nothing if the card has none
func (p *TCGPlayerProvider) FetchPrices(ctx context.Context, info models.CardInfo) ([]models.PriceSource, error) {
	card, err := p.cards.ValidateCard(ctx, info.Name, info.SetNumber)
	if err != nil {
		return nil, err
	}
	if card == nil || card.TCGPlayer == nil {
		return nil, nil
	}
	prices, ok := card.TCGPlayer.PrimaryPrices()
	if !ok {
		return nil, nil
	}
	return []models.PriceSource{models.NewTCGPlayerSource(card.Name, card.TCGPlayer.URL, prices)}, nil
}
