package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/seenimoa/investez/pkg/models"
)

// Groww wraps the Groww trade API for stock holdings. Groww's holdings
// endpoint does not carry market prices, so each holding is priced from
// (in order of preference) a caller-supplied price map, the Groww quote
// API, or the holding's own average price.
type Groww struct {
	accessToken string
	baseURL     string
	httpClient  *http.Client
}

// GrowwConfig holds Groww API settings.
type GrowwConfig struct {
	AccessToken string
	BaseURL     string        // defaults to "https://api.groww.in"
	Timeout     time.Duration // HTTP client timeout (default: 30s)
}

// NewGroww creates a Groww broker instance.
func NewGroww(cfg GrowwConfig) *Groww {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.groww.in"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Groww{
		accessToken: cfg.AccessToken,
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// Name returns "groww".
func (g *Groww) Name() string { return "groww" }

// IsConnected reports whether an access token is configured.
func (g *Groww) IsConnected() bool { return g.accessToken != "" }

// --- Portfolio data ---

// Holdings returns stock holdings priced via the Groww quote API.
func (g *Groww) Holdings(ctx context.Context) ([]models.Holding, error) {
	return g.HoldingsWithPrices(ctx, nil)
}

// HoldingsWithPrices returns stock holdings, using priceMap (symbol to last
// price) for any symbol it covers before falling back to the quote API and
// finally to average price.
func (g *Groww) HoldingsWithPrices(ctx context.Context, priceMap map[string]float64) ([]models.Holding, error) {
	if !g.IsConnected() {
		return nil, ErrNotConfigured
	}

	var resp struct {
		Payload struct {
			Holdings []struct {
				ISIN          string  `json:"isin"`
				TradingSymbol string  `json:"trading_symbol"`
				Quantity      float64 `json:"quantity"`
				AveragePrice  float64 `json:"average_price"`
			} `json:"holdings"`
		} `json:"payload"`
	}
	if err := g.doGet(ctx, "/v1/holdings/user", &resp); err != nil {
		return nil, err
	}

	holdings := make([]models.Holding, 0, len(resp.Payload.Holdings))
	for _, h := range resp.Payload.Holdings {
		lastPrice := h.AveragePrice
		var dayChange, dayChangePct float64

		if p, ok := priceMap[h.TradingSymbol]; ok {
			lastPrice = p
		} else if q, err := g.quote(ctx, h.TradingSymbol); err == nil && q.LastPrice > 0 {
			lastPrice = q.LastPrice
			dayChange = q.DayChange
			dayChangePct = q.DayChangePerc
		}

		holdings = append(holdings, models.Holding{
			Symbol:           h.TradingSymbol,
			Exchange:         "NSE",
			ISIN:             h.ISIN,
			Quantity:         h.Quantity,
			AvgPrice:         h.AveragePrice,
			CurrentPrice:     lastPrice,
			PnL:              (lastPrice - h.AveragePrice) * h.Quantity,
			DayChange:        dayChange,
			DayChangePercent: dayChangePct,
			Broker:           g.Name(),
		})
	}
	return holdings, nil
}

// MFHoldings returns an empty slice; the Groww trade API does not expose
// mutual fund holdings.
func (g *Groww) MFHoldings(ctx context.Context) ([]models.MFHolding, error) {
	return []models.MFHolding{}, nil
}

// --- Internal helpers ---

type growwQuote struct {
	LastPrice     float64 `json:"last_price"`
	DayChange     float64 `json:"day_change"`
	DayChangePerc float64 `json:"day_change_perc"`
}

func (g *Groww) quote(ctx context.Context, symbol string) (*growwQuote, error) {
	params := url.Values{}
	params.Set("exchange", "NSE")
	params.Set("segment", "CASH")
	params.Set("trading_symbol", symbol)

	var resp struct {
		Payload growwQuote `json:"payload"`
	}
	if err := g.doGet(ctx, "/v1/live-data/quote?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp.Payload, nil
}

func (g *Groww) doGet(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("groww request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &TokenExpiredError{Broker: "groww"}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("groww api error (HTTP %d): %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse groww response: %w", err)
	}
	return nil
}
