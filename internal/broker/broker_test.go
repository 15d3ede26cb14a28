package broker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTokenExpiredError(t *testing.T) {
	err := error(&TokenExpiredError{Broker: "kite"})
	if err.Error() != "kite_token_expired" {
		t.Fatalf("error = %q, want kite_token_expired", err.Error())
	}

	var te *TokenExpiredError
	if !errors.As(err, &te) {
		t.Fatal("errors.As should match TokenExpiredError")
	}
	if te.Broker != "kite" {
		t.Fatalf("broker = %q, want kite", te.Broker)
	}
}

func TestKiteSessionExpiry(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Skip("Asia/Kolkata tzdata not available")
	}

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "before 6 AM expires same day",
			now:  time.Date(2026, 8, 25, 2, 30, 0, 0, loc),
			want: time.Date(2026, 8, 25, 6, 0, 0, 0, loc),
		},
		{
			name: "after 6 AM expires next day",
			now:  time.Date(2026, 8, 25, 10, 0, 0, 0, loc),
			want: time.Date(2026, 8, 26, 6, 0, 0, 0, loc),
		},
		{
			name: "exactly 6 AM rolls to next day",
			now:  time.Date(2026, 8, 25, 6, 0, 0, 0, loc),
			want: time.Date(2026, 8, 26, 6, 0, 0, 0, loc),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := kiteSessionExpiry(tc.now)
			if !got.Equal(tc.want) {
				t.Fatalf("expiry = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestKiteNotConnected(t *testing.T) {
	k := NewKite(KiteConfig{APIKey: "key", TokenPath: "/nonexistent/session.json"})

	_, err := k.Holdings(context.Background())
	var te *TokenExpiredError
	if !errors.As(err, &te) {
		t.Fatalf("expected TokenExpiredError, got %v", err)
	}
}

func TestGrowwHoldingsPriceMapPriority(t *testing.T) {
	var quoteCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/holdings/user":
			w.Write([]byte(`{"payload": {"holdings": [
				{"isin": "INE002A01018", "trading_symbol": "RELIANCE", "quantity": 10, "average_price": 2400},
				{"isin": "INE467B01029", "trading_symbol": "TCS", "quantity": 5, "average_price": 3200}
			]}}`))
		case "/v1/live-data/quote":
			quoteCalls++
			w.Write([]byte(`{"payload": {"last_price": 3500, "day_change": 25, "day_change_perc": 0.72}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	g := NewGroww(GrowwConfig{AccessToken: "token", BaseURL: srv.URL})

	priceMap := map[string]float64{"RELIANCE": 2550}
	holdings, err := g.HoldingsWithPrices(context.Background(), priceMap)
	if err != nil {
		t.Fatalf("HoldingsWithPrices: %v", err)
	}
	if len(holdings) != 2 {
		t.Fatalf("got %d holdings, want 2", len(holdings))
	}

	// RELIANCE was in the price map; no quote call, PnL from map price.
	rel := holdings[0]
	if rel.CurrentPrice != 2550 {
		t.Errorf("RELIANCE price = %v, want 2550 from price map", rel.CurrentPrice)
	}
	if rel.PnL != 1500 {
		t.Errorf("RELIANCE pnl = %v, want 1500", rel.PnL)
	}

	// TCS was not; quote API supplies price and day change.
	tcs := holdings[1]
	if tcs.CurrentPrice != 3500 {
		t.Errorf("TCS price = %v, want 3500 from quote", tcs.CurrentPrice)
	}
	if tcs.DayChange != 25 {
		t.Errorf("TCS day change = %v, want 25", tcs.DayChange)
	}
	if quoteCalls != 1 {
		t.Errorf("quote API called %d times, want 1", quoteCalls)
	}
}

func TestGrowwQuoteFailureFallsBackToAvgPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/holdings/user" {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"payload": {"holdings": [
				{"isin": "X", "trading_symbol": "WIPRO", "quantity": 8, "average_price": 450}
			]}}`))
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewGroww(GrowwConfig{AccessToken: "token", BaseURL: srv.URL})
	holdings, err := g.Holdings(context.Background())
	if err != nil {
		t.Fatalf("Holdings: %v", err)
	}

	w := holdings[0]
	if w.CurrentPrice != 450 {
		t.Errorf("price = %v, want average price fallback 450", w.CurrentPrice)
	}
	if w.PnL != 0 {
		t.Errorf("pnl = %v, want 0 at average price", w.PnL)
	}
}

func TestGrowwTokenExpired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	g := NewGroww(GrowwConfig{AccessToken: "stale", BaseURL: srv.URL})
	_, err := g.Holdings(context.Background())

	var te *TokenExpiredError
	if !errors.As(err, &te) {
		t.Fatalf("expected TokenExpiredError, got %v", err)
	}
	if te.Broker != "groww" {
		t.Errorf("broker = %q, want groww", te.Broker)
	}
}

func TestGrowwNotConfigured(t *testing.T) {
	g := NewGroww(GrowwConfig{})
	if _, err := g.Holdings(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
