package models

import "time"

// Holding is one equity position, normalized across brokers.
// Value, Invested, PnL and the percentage fields are derived at aggregation
// time; CurrentPrice may be zero when a broker does not supply live quotes,
// in which case Value falls back to the average price.
type Holding struct {
	Symbol            string  `json:"symbol"`
	Exchange          string  `json:"exchange"`
	ISIN              string  `json:"isin,omitempty"`
	Quantity          float64 `json:"quantity"`
	AvgPrice          float64 `json:"avg_price"`
	CurrentPrice      float64 `json:"current_price"`
	Value             float64 `json:"value"`
	Invested          float64 `json:"invested"`
	PnL               float64 `json:"pnl"`
	PnLPercent        float64 `json:"pnl_percent"`
	DayChange         float64 `json:"day_change"`
	DayChangePercent  float64 `json:"day_change_percent"`
	MarketCapCategory string  `json:"market_cap_category,omitempty"`
	Broker            string  `json:"broker"`
}

// MFHolding is one mutual fund position. Scheme identifiers are
// broker-specific; never assume global uniqueness across brokers.
type MFHolding struct {
	SchemeCode        string  `json:"scheme_code"`
	SchemeName        string  `json:"scheme_name"`
	FundHouse         string  `json:"fund_house,omitempty"`
	Folio             string  `json:"folio,omitempty"`
	Units             float64 `json:"units"`
	AvgNAV            float64 `json:"avg_nav"`
	CurrentNAV        float64 `json:"current_nav"`
	Value             float64 `json:"value"`
	Invested          float64 `json:"invested"`
	PnL               float64 `json:"pnl"`
	PnLPercent        float64 `json:"pnl_percent"`
	DayChange         float64 `json:"day_change"`
	DayChangePercent  float64 `json:"day_change_percent"`
	MarketCapCategory string  `json:"market_cap_category"`
	Broker            string  `json:"broker"`
}

// PortfolioSummary holds the aggregate totals across both asset classes.
// Invariants: TotalValue == StocksValue + MFValue and
// TotalPnL == StocksPnL + MFPnL; percentage fields are 0 when their
// denominator is zero or negative.
type PortfolioSummary struct {
	TotalValue      float64 `json:"total_value"`
	TotalInvested   float64 `json:"total_invested"`
	TotalPnL        float64 `json:"total_pnl"`
	TotalPnLPercent float64 `json:"total_pnl_percent"`
	DayPnL          float64 `json:"day_pnl"`
	DayPnLPercent   float64 `json:"day_pnl_percent"`
	StocksValue     float64 `json:"stocks_value"`
	MFValue         float64 `json:"mf_value"`
	StocksInvested  float64 `json:"stocks_invested"`
	MFInvested      float64 `json:"mf_invested"`
	StocksPnL       float64 `json:"stocks_pnl"`
	MFPnL           float64 `json:"mf_pnl"`
	StocksDayChange float64 `json:"stocks_day_change"`
	MFDayChange     float64 `json:"mf_day_change"`
	HoldingsCount   int     `json:"holdings_count"`
	MFCount         int     `json:"mf_count"`
}

// AllocationBreakdown holds percentage distributions of the portfolio.
// MarketCap percentages are computed over known buckets only: holdings with
// no category are excluded from the denominator rather than diluting the
// real buckets as "Unknown".
type AllocationBreakdown struct {
	MarketCap map[string]float64 `json:"market_cap"`
	AssetType map[string]float64 `json:"asset_type"`
}

// Portfolio is the full merged snapshot returned by the aggregator.
type Portfolio struct {
	Summary    PortfolioSummary    `json:"summary"`
	Holdings   []Holding           `json:"holdings"`
	MFHoldings []MFHolding         `json:"mf_holdings"`
	Allocation AllocationBreakdown `json:"allocation"`
	FetchedAt  time.Time           `json:"fetched_at"`
}
