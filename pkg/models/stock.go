// Package models defines the canonical domain types shared across the
// application: stock fundamentals and quotes, mutual fund records, portfolio
// holdings and summaries, news items, and conversation history.
package models

import "time"

// StockFundamentals holds the fundamental profile of a listed company,
// as assembled from Screener.in. Monetary figures are in ₹ unless noted;
// MarketCap is in ₹ crores.
type StockFundamentals struct {
	Symbol            string  `json:"symbol"`
	Name              string  `json:"name"`
	Sector            string  `json:"sector,omitempty"`
	MarketCap         float64 `json:"market_cap"` // ₹ crores
	MarketCapCategory string  `json:"market_cap_category,omitempty"`
	CurrentPrice      float64 `json:"current_price"`
	HighLow52W        string  `json:"high_low_52w,omitempty"`
	PE                float64 `json:"pe"`
	IndustryPE        float64 `json:"industry_pe"`
	PB                float64 `json:"pb"`
	BookValue         float64 `json:"book_value"`
	DividendYield     float64 `json:"dividend_yield"`
	ROE               float64 `json:"roe"`
	ROCE              float64 `json:"roce"`
	DebtToEquity      float64 `json:"debt_to_equity"`
	SalesGrowth3Y     float64 `json:"sales_growth_3y"`
	ProfitGrowth3Y    float64 `json:"profit_growth_3y"`
	PromoterHolding   float64 `json:"promoter_holding"`
	FIIHolding        float64 `json:"fii_holding"`
	DIIHolding        float64 `json:"dii_holding"`
}

// Quote is a point-in-time price snapshot for a stock.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Volume        int64     `json:"volume"`
	Timestamp     time.Time `json:"timestamp"`
}

// StockMatch is a search result from symbol lookup.
type StockMatch struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// StockAnalysis aggregates everything fetched for one stock. An analysis
// with neither fundamentals nor a quote is treated as "not found" by the
// routing layer.
type StockAnalysis struct {
	Symbol       string             `json:"symbol"`
	Fundamentals *StockFundamentals `json:"fundamentals,omitempty"`
	Quote        *Quote             `json:"quote,omitempty"`
	News         []NewsItem         `json:"news,omitempty"`
	FetchedAt    time.Time          `json:"fetched_at"`
}

// Empty reports whether the analysis carries no usable data at all.
func (a *StockAnalysis) Empty() bool {
	return a == nil || (a.Fundamentals == nil && a.Quote == nil)
}
