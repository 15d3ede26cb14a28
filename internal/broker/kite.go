package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"github.com/seenimoa/investez/pkg/models"
)

// Kite wraps the Zerodha Kite Connect API for holdings, MF holdings, and
// quotes. Sessions are persisted to disk; Kite access tokens expire at
// 6 AM IST the next day.
type Kite struct {
	mu sync.RWMutex

	client    *kiteconnect.Client
	apiKey    string
	apiSecret string
	tokenPath string
	connected bool
}

// KiteConfig holds Kite Connect credentials and session storage location.
type KiteConfig struct {
	APIKey    string
	APISecret string
	TokenPath string
}

// NewKite creates a Kite broker and loads any saved session from disk.
func NewKite(cfg KiteConfig) *Kite {
	tokenPath := cfg.TokenPath
	if tokenPath == "" {
		home, _ := os.UserHomeDir()
		tokenPath = filepath.Join(home, ".investez", "kite_session.json")
	}

	k := &Kite{
		client:    kiteconnect.New(cfg.APIKey),
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		tokenPath: tokenPath,
	}
	_ = k.loadSession()
	return k
}

// Name returns "kite".
func (k *Kite) Name() string { return "kite" }

// --- Authentication ---

// kiteSession is the persisted session payload.
type kiteSession struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// LoginURL returns the Kite Connect login URL for the OAuth flow.
func (k *Kite) LoginURL() string {
	return k.client.GetLoginURL()
}

// CompleteLogin exchanges a request token for an access token and persists
// the session.
func (k *Kite) CompleteLogin(requestToken string) error {
	if k.apiKey == "" || k.apiSecret == "" {
		return ErrNotConfigured
	}

	session, err := k.client.GenerateSession(requestToken, k.apiSecret)
	if err != nil {
		return fmt.Errorf("generate kite session: %w", err)
	}

	k.mu.Lock()
	k.client.SetAccessToken(session.AccessToken)
	k.connected = true
	k.mu.Unlock()

	return k.saveSession(session.AccessToken)
}

// IsConnected reports whether a session token is loaded.
func (k *Kite) IsConnected() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.connected
}

func (k *Kite) loadSession() error {
	data, err := os.ReadFile(k.tokenPath)
	if err != nil {
		return err
	}

	var session kiteSession
	if err := json.Unmarshal(data, &session); err != nil {
		return err
	}

	if time.Now().After(session.ExpiresAt) {
		return &TokenExpiredError{Broker: "kite"}
	}

	k.mu.Lock()
	k.client.SetAccessToken(session.AccessToken)
	k.connected = true
	k.mu.Unlock()
	return nil
}

func (k *Kite) saveSession(accessToken string) error {
	if err := os.MkdirAll(filepath.Dir(k.tokenPath), 0o700); err != nil {
		return err
	}

	session := kiteSession{
		AccessToken: accessToken,
		ExpiresAt:   kiteSessionExpiry(time.Now()),
	}

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return os.WriteFile(k.tokenPath, data, 0o600)
}

// kiteSessionExpiry returns the next 6 AM IST after now, which is when
// Zerodha invalidates access tokens.
func kiteSessionExpiry(now time.Time) time.Time {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		loc = time.FixedZone("IST", 5*3600+1800)
	}
	now = now.In(loc)

	expiry := time.Date(now.Year(), now.Month(), now.Day(), 6, 0, 0, 0, loc)
	if !now.Before(expiry) {
		expiry = expiry.AddDate(0, 0, 1)
	}
	return expiry
}

// --- Portfolio data ---

// Holdings returns delivery equity holdings in canonical form.
func (k *Kite) Holdings(ctx context.Context) ([]models.Holding, error) {
	if !k.IsConnected() {
		return nil, &TokenExpiredError{Broker: "kite"}
	}

	raw, err := k.client.GetHoldings()
	if err != nil {
		return nil, k.wrapErr("get holdings", err)
	}

	holdings := make([]models.Holding, 0, len(raw))
	for _, h := range raw {
		holdings = append(holdings, models.Holding{
			Symbol:           h.Tradingsymbol,
			Exchange:         h.Exchange,
			ISIN:             h.ISIN,
			Quantity:         float64(h.Quantity),
			AvgPrice:         h.AveragePrice,
			CurrentPrice:     h.LastPrice,
			PnL:              h.PnL,
			DayChange:        h.DayChange,
			DayChangePercent: h.DayChangePercentage,
			Broker:           k.Name(),
		})
	}
	return holdings, nil
}

// MFHoldings returns mutual fund holdings in canonical form.
func (k *Kite) MFHoldings(ctx context.Context) ([]models.MFHolding, error) {
	if !k.IsConnected() {
		return nil, &TokenExpiredError{Broker: "kite"}
	}

	raw, err := k.client.GetMFHoldings()
	if err != nil {
		return nil, k.wrapErr("get mf holdings", err)
	}

	holdings := make([]models.MFHolding, 0, len(raw))
	for _, h := range raw {
		name := h.Fund
		if name == "" {
			name = h.Tradingsymbol
		}
		holdings = append(holdings, models.MFHolding{
			SchemeCode: h.Tradingsymbol,
			SchemeName: name,
			Folio:      h.Folio,
			Units:      h.Quantity,
			AvgNAV:     h.AveragePrice,
			CurrentNAV: h.LastPrice,
			Broker:     k.Name(),
		})
	}
	return holdings, nil
}

// Quote returns a live quote for an NSE symbol.
func (k *Kite) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	if !k.IsConnected() {
		return nil, &TokenExpiredError{Broker: "kite"}
	}

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	instrument := "NSE:" + symbol

	quotes, err := k.client.GetQuote(instrument)
	if err != nil {
		return nil, k.wrapErr("get quote", err)
	}

	q, ok := quotes[instrument]
	if !ok {
		return nil, fmt.Errorf("no quote data for %s", instrument)
	}

	changePercent := 0.0
	if q.OHLC.Close > 0 {
		changePercent = q.NetChange / q.OHLC.Close * 100
	}

	return &models.Quote{
		Symbol:        symbol,
		Price:         q.LastPrice,
		Change:        q.NetChange,
		ChangePercent: changePercent,
		Volume:        int64(q.Volume),
		Timestamp:     time.Now(),
	}, nil
}

// wrapErr converts Kite token exceptions into TokenExpiredError so callers
// can prompt for re-authentication.
func (k *Kite) wrapErr(op string, err error) error {
	if strings.Contains(err.Error(), "TokenException") {
		k.mu.Lock()
		k.connected = false
		k.mu.Unlock()
		return &TokenExpiredError{Broker: "kite"}
	}
	return fmt.Errorf("kite %s: %w", op, err)
}
