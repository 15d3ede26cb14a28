// Package portfolio merges holdings from multiple brokers into a single
// enriched snapshot: totals, per-holding P&L, and market-cap/asset-type
// allocations. Kite is the primary source; its prices seed a price map so
// overlapping Groww holdings avoid redundant quote calls.
package portfolio

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/investez/internal/broker"
	"github.com/seenimoa/investez/pkg/models"
)

// StockHoldingsSource supplies equity and MF holdings (Kite).
type StockHoldingsSource interface {
	Holdings(ctx context.Context) ([]models.Holding, error)
	MFHoldings(ctx context.Context) ([]models.MFHolding, error)
}

// PricedHoldingsSource supplies equity holdings priced against an external
// price map (Groww).
type PricedHoldingsSource interface {
	HoldingsWithPrices(ctx context.Context, priceMap map[string]float64) ([]models.Holding, error)
}

// FundamentalsSource supplies market-cap categories for stock enrichment.
type FundamentalsSource interface {
	GetFundamentals(ctx context.Context, symbol string) (*models.StockFundamentals, error)
}

// Aggregator builds merged portfolio snapshots.
type Aggregator struct {
	kite         StockHoldingsSource
	groww        PricedHoldingsSource
	fundamentals FundamentalsSource
	concurrency  int
	logger       zerolog.Logger
}

// Config holds aggregator dependencies. Groww and Fundamentals are optional.
type Config struct {
	Kite         StockHoldingsSource
	Groww        PricedHoldingsSource
	Fundamentals FundamentalsSource
	Concurrency  int // parallel fundamentals lookups (default 4)
	Logger       zerolog.Logger
}

// New creates a portfolio aggregator.
func New(cfg Config) *Aggregator {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Aggregator{
		kite:         cfg.Kite,
		groww:        cfg.Groww,
		fundamentals: cfg.Fundamentals,
		concurrency:  concurrency,
		logger:       cfg.Logger,
	}
}

// Build fetches holdings from all configured brokers and returns the merged,
// enriched snapshot. A TokenExpiredError from any broker is propagated so
// the caller can prompt for re-authentication; other per-broker failures
// degrade to a partial portfolio.
func (a *Aggregator) Build(ctx context.Context) (*models.Portfolio, error) {
	holdings, err := a.kite.Holdings(ctx)
	if err != nil {
		return nil, err
	}

	mfHoldings, err := a.kite.MFHoldings(ctx)
	if err != nil {
		return nil, err
	}

	// Kite prices seed the map so overlapping Groww holdings skip quote calls.
	priceMap := make(map[string]float64, len(holdings))
	for _, h := range holdings {
		if h.CurrentPrice > 0 {
			priceMap[h.Symbol] = h.CurrentPrice
		}
	}

	if a.groww != nil {
		growwHoldings, err := a.groww.HoldingsWithPrices(ctx, priceMap)
		switch {
		case err == nil:
			holdings = append(holdings, growwHoldings...)
		case isTokenExpired(err):
			return nil, err
		case errors.Is(err, broker.ErrNotConfigured):
			// Secondary broker not set up; nothing to merge.
		default:
			a.logger.Warn().Err(err).Msg("groww holdings fetch failed, continuing with kite only")
		}
	}

	a.enrichHoldings(ctx, holdings)

	mfs := make([]models.MFHolding, len(mfHoldings))
	for i, mf := range mfHoldings {
		mfs[i] = processMFHolding(mf)
	}

	summary := buildSummary(holdings, mfs)
	allocation := calculateAllocation(holdings, mfs, summary.StocksValue, summary.MFValue)

	return &models.Portfolio{
		Summary:    summary,
		Holdings:   holdings,
		MFHoldings: mfs,
		Allocation: allocation,
		FetchedAt:  time.Now(),
	}, nil
}

// HoldingsOnly returns enriched stock holdings without MF data.
func (a *Aggregator) HoldingsOnly(ctx context.Context) ([]models.Holding, error) {
	holdings, err := a.kite.Holdings(ctx)
	if err != nil {
		return nil, err
	}
	a.enrichHoldings(ctx, holdings)
	return holdings, nil
}

// MFOnly returns processed mutual fund holdings only.
func (a *Aggregator) MFOnly(ctx context.Context) ([]models.MFHolding, error) {
	mfHoldings, err := a.kite.MFHoldings(ctx)
	if err != nil {
		return nil, err
	}

	mfs := make([]models.MFHolding, len(mfHoldings))
	for i, mf := range mfHoldings {
		mfs[i] = processMFHolding(mf)
	}
	return mfs, nil
}

// --- Enrichment ---

// enrichHoldings computes derived fields in place and tags each holding
// with its market-cap category. Fundamentals lookups run concurrently;
// a failed lookup leaves the category empty rather than failing the build.
func (a *Aggregator) enrichHoldings(ctx context.Context, holdings []models.Holding) {
	for i := range holdings {
		h := &holdings[i]

		h.Value = round2(h.Quantity * h.CurrentPrice)
		h.Invested = round2(h.Quantity * h.AvgPrice)

		pnl := h.PnL
		if pnl == 0 {
			pnl = h.Value - h.Invested
		}
		h.PnL = round2(pnl)
		h.PnLPercent = round2(pct(h.PnL, h.Invested))
	}

	if a.fundamentals == nil {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i := range holdings {
		i := i
		g.Go(func() error {
			h := &holdings[i]
			f, err := a.fundamentals.GetFundamentals(gctx, h.Symbol)
			if err != nil {
				a.logger.Debug().Err(err).Str("symbol", h.Symbol).Msg("fundamentals lookup failed")
				return nil
			}
			h.MarketCapCategory = f.MarketCapCategory
			return nil
		})
	}
	_ = g.Wait()
}

// processMFHolding derives value, invested and P&L for an MF position.
// Broker-reported MF P&L is ignored; it is always recomputed from
// value minus invested.
func processMFHolding(mf models.MFHolding) models.MFHolding {
	mf.Value = round2(mf.Units * mf.CurrentNAV)
	mf.Invested = round2(mf.Units * mf.AvgNAV)
	mf.PnL = round2(mf.Value - mf.Invested)
	mf.PnLPercent = round2(pct(mf.PnL, mf.Invested))
	mf.MarketCapCategory = MFMarketCap(mf.SchemeName)
	return mf
}

// MFMarketCap infers a market-cap bucket from a scheme name. Combined
// mandates ("Large and Mid Cap") and uncategorized funds (ELSS, flexi cap)
// land in Multi Cap.
func MFMarketCap(schemeName string) string {
	upper := strings.ToUpper(schemeName)

	if strings.Contains(upper, "SMALL CAP") || strings.Contains(upper, "SMALLCAP") {
		return "Small Cap"
	}
	if strings.Contains(upper, "MID CAP") || strings.Contains(upper, "MIDCAP") {
		if strings.Contains(upper, "LARGE") {
			return "Multi Cap"
		}
		return "Mid Cap"
	}
	if strings.Contains(upper, "LARGE CAP") || strings.Contains(upper, "LARGECAP") {
		if strings.Contains(upper, "MID") {
			return "Multi Cap"
		}
		return "Large Cap"
	}
	return "Multi Cap"
}

// --- Summary & allocation ---

func buildSummary(holdings []models.Holding, mfs []models.MFHolding) models.PortfolioSummary {
	var stocksValue, stocksInvested, stocksPnL, stocksDayChange float64
	for _, h := range holdings {
		stocksValue += h.Value
		stocksInvested += h.Invested
		stocksPnL += h.PnL
		stocksDayChange += h.DayChange * h.Quantity
	}

	var mfValue, mfInvested, mfPnL, mfDayChange float64
	for _, mf := range mfs {
		mfValue += mf.Value
		mfInvested += mf.Invested
		mfPnL += mf.PnL
		mfDayChange += mf.DayChange
	}

	totalValue := stocksValue + mfValue
	totalInvested := stocksInvested + mfInvested
	totalPnL := stocksPnL + mfPnL
	dayPnL := stocksDayChange + mfDayChange

	return models.PortfolioSummary{
		TotalValue:      round2(totalValue),
		TotalInvested:   round2(totalInvested),
		TotalPnL:        round2(totalPnL),
		TotalPnLPercent: round2(pct(totalPnL, totalInvested)),
		DayPnL:          round2(dayPnL),
		DayPnLPercent:   round2(pct(dayPnL, totalValue)),
		StocksValue:     round2(stocksValue),
		MFValue:         round2(mfValue),
		StocksInvested:  round2(stocksInvested),
		MFInvested:      round2(mfInvested),
		StocksPnL:       round2(stocksPnL),
		MFPnL:           round2(mfPnL),
		StocksDayChange: round2(stocksDayChange),
		MFDayChange:     round2(mfDayChange),
		HoldingsCount:   len(holdings),
		MFCount:         len(mfs),
	}
}

// calculateAllocation computes market-cap and asset-type percentage splits.
// Holdings without a market-cap category are excluded from the market-cap
// denominator so the known buckets still sum to 100.
func calculateAllocation(holdings []models.Holding, mfs []models.MFHolding, stocksValue, mfValue float64) models.AllocationBreakdown {
	mcapValues := make(map[string]float64)
	for _, h := range holdings {
		if h.MarketCapCategory == "" {
			continue
		}
		mcapValues[h.MarketCapCategory] += h.Value
	}
	for _, mf := range mfs {
		if mf.MarketCapCategory == "" {
			continue
		}
		mcapValues[mf.MarketCapCategory] += mf.Value
	}

	var knownTotal float64
	for _, v := range mcapValues {
		knownTotal += v
	}

	mcapPct := make(map[string]float64, len(mcapValues))
	for k, v := range mcapValues {
		mcapPct[k] = round2(pct(v, knownTotal))
	}

	assetPct := make(map[string]float64)
	if total := stocksValue + mfValue; total > 0 {
		assetPct["Stocks"] = round2(stocksValue / total * 100)
		assetPct["Mutual Funds"] = round2(mfValue / total * 100)
	}

	return models.AllocationBreakdown{
		MarketCap: mcapPct,
		AssetType: assetPct,
	}
}

// --- Helpers ---

// pct returns part/whole*100, or 0 when the denominator is not positive.
func pct(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole * 100
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func isTokenExpired(err error) bool {
	var te *broker.TokenExpiredError
	return errors.As(err, &te)
}
