package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/investez/internal/datasource"
	"github.com/seenimoa/investez/pkg/models"
	"github.com/seenimoa/investez/pkg/utils"
)

// StockAgent researches individual stocks: fundamentals from Screener.in,
// a live quote when the broker session is active, and recent headlines.
type StockAgent struct {
	stocks datasource.StockSource
	quotes QuoteSource
	news   NewsProvider
	logger zerolog.Logger
}

// NewStockAgent creates a stock research agent. quotes and news are optional.
func NewStockAgent(stocks datasource.StockSource, quotes QuoteSource, news NewsProvider, logger zerolog.Logger) *StockAgent {
	return &StockAgent{stocks: stocks, quotes: quotes, news: news, logger: logger}
}

// Analyze gathers everything available for a symbol. Each source failure is
// tolerated independently; the result is Empty() only when neither
// fundamentals nor a quote could be fetched.
func (a *StockAgent) Analyze(ctx context.Context, symbol string, includeNews bool) *models.StockAnalysis {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	analysis := &models.StockAnalysis{Symbol: symbol, FetchedAt: time.Now()}

	fundamentals, err := a.stocks.GetFundamentals(ctx, symbol)
	if err != nil {
		a.logger.Debug().Err(err).Str("symbol", symbol).Msg("fundamentals fetch failed")
	} else {
		analysis.Fundamentals = fundamentals
	}

	if a.quotes != nil {
		quote, err := a.quotes.Quote(ctx, symbol)
		if err != nil {
			a.logger.Debug().Err(err).Str("symbol", symbol).Msg("quote fetch failed")
		} else {
			analysis.Quote = quote
		}
	}

	if includeNews && a.news != nil && !analysis.Empty() {
		companyName := symbol
		if analysis.Fundamentals != nil && analysis.Fundamentals.Name != "" {
			companyName = analysis.Fundamentals.Name
		}
		news, err := a.news.StockNews(ctx, symbol, companyName)
		if err != nil {
			a.logger.Debug().Err(err).Str("symbol", symbol).Msg("news fetch failed")
		} else {
			analysis.News = news
		}
	}

	return analysis
}

// Format renders a stock analysis as plain text with metric takeaways.
func (a *StockAgent) Format(analysis *models.StockAnalysis) string {
	if analysis.Empty() {
		return "No analysis data available."
	}

	var lines []string
	f := analysis.Fundamentals
	q := analysis.Quote

	name := analysis.Symbol
	if f != nil && f.Name != "" {
		name = f.Name
	}
	lines = append(lines, fmt.Sprintf("\n%s (%s)", name, analysis.Symbol))
	lines = append(lines, strings.Repeat("=", 50))

	if f != nil {
		if f.Sector != "" {
			lines = append(lines, "\nSector: "+f.Sector)
		}
		if f.MarketCap > 0 {
			lines = append(lines, fmt.Sprintf("Market Cap: %s | %s", f.MarketCapCategory, utils.FormatMarketCapCr(f.MarketCap)))
		}
	}

	switch {
	case q != nil:
		lines = append(lines, fmt.Sprintf("Current Price: %s (%s)", utils.FormatINR(q.Price), utils.FormatChange(q.ChangePercent)))
	case f != nil && f.CurrentPrice > 0:
		lines = append(lines, "Current Price: "+utils.FormatINR(f.CurrentPrice))
	}

	if f != nil {
		lines = append(lines, formatKeyMetrics(f)...)
	}

	if len(analysis.News) > 0 {
		lines = append(lines, "\nRECENT NEWS")
		lines = append(lines, strings.Repeat("=", 20))
		for _, item := range headlines(analysis.News, 3) {
			lines = append(lines, "* "+utils.Truncate(item.Title, 63))
			lines = append(lines, "  - "+newsAttribution(item))
		}
	}

	lines = append(lines, "\n"+strings.Repeat("-", 50))
	lines = append(lines, "Sources: Screener.in, Kite Connect")

	return strings.Join(lines, "\n")
}

// formatKeyMetrics renders fundamentals with plain-language takeaways.
func formatKeyMetrics(f *models.StockFundamentals) []string {
	var lines []string

	lines = append(lines, "\nKEY METRICS")
	lines = append(lines, strings.Repeat("=", 20))

	if f.PE > 0 {
		lines = append(lines, fmt.Sprintf("\nP/E Ratio: %.1f", f.PE))
		if f.IndustryPE > 0 {
			lines = append(lines, fmt.Sprintf("Industry Avg: %.1f", f.IndustryPE))
			diff := f.PE - f.IndustryPE
			switch {
			case diff > 5:
				lines = append(lines, fmt.Sprintf("-> Trading at premium (%.1fx above industry). Market expects higher growth.", diff))
			case diff < -5:
				lines = append(lines, fmt.Sprintf("-> Trading at discount (%.1fx below industry). Could be undervalued or facing challenges.", -diff))
			default:
				lines = append(lines, "-> In line with industry average.")
			}
		}
	}

	if f.PB > 0 {
		lines = append(lines, fmt.Sprintf("\nP/B Ratio: %.2f", f.PB))
		if f.BookValue > 0 {
			lines = append(lines, fmt.Sprintf("Book Value: %s", utils.FormatINR(f.BookValue)))
		}
	}

	if f.ROE != 0 {
		lines = append(lines, fmt.Sprintf("\nROE: %.1f%%", f.ROE))
		switch {
		case f.ROE >= 15:
			lines = append(lines, "-> Strong return on equity. Efficient use of shareholder capital.")
		case f.ROE >= 10:
			lines = append(lines, "-> Moderate ROE. Reasonable efficiency.")
		default:
			lines = append(lines, "-> Below average ROE. Capital may not be working efficiently.")
		}
	}

	if f.ROCE != 0 {
		lines = append(lines, fmt.Sprintf("\nROCE: %.1f%%", f.ROCE))
	}

	if f.DebtToEquity > 0 {
		lines = append(lines, fmt.Sprintf("\nDebt/Equity: %.2f", f.DebtToEquity))
		switch {
		case f.DebtToEquity < 0.3:
			lines = append(lines, "-> Low debt. Conservative financing, lower risk.")
		case f.DebtToEquity < 1.0:
			lines = append(lines, "-> Moderate debt levels. Generally manageable.")
		default:
			lines = append(lines, "-> High debt. Higher financial risk, especially in downturns.")
		}
	}

	if f.SalesGrowth3Y != 0 || f.ProfitGrowth3Y != 0 {
		lines = append(lines, "\nGROWTH (3Y CAGR)")
		if f.SalesGrowth3Y != 0 {
			lines = append(lines, fmt.Sprintf("Sales: %s", utils.FormatChange(f.SalesGrowth3Y)))
		}
		if f.ProfitGrowth3Y != 0 {
			lines = append(lines, fmt.Sprintf("Profit: %s", utils.FormatChange(f.ProfitGrowth3Y)))
		}
	}

	if f.PromoterHolding > 0 {
		lines = append(lines, "\nOWNERSHIP")
		lines = append(lines, fmt.Sprintf("Promoter: %.1f%%", f.PromoterHolding))
		if f.FIIHolding > 0 {
			lines = append(lines, fmt.Sprintf("FII: %.1f%%", f.FIIHolding))
		}
		if f.DIIHolding > 0 {
			lines = append(lines, fmt.Sprintf("DII: %.1f%%", f.DIIHolding))
		}

		if f.PromoterHolding >= 50 {
			lines = append(lines, "-> High promoter holding indicates confidence in business.")
		} else if f.PromoterHolding < 25 {
			lines = append(lines, "-> Low promoter holding. May indicate less skin in the game.")
		}
	}

	return lines
}

// Compare renders up to five stocks side by side. Symbols that cannot be
// resolved are dropped from the table.
func (a *StockAgent) Compare(ctx context.Context, symbols []string) string {
	if len(symbols) > 5 {
		symbols = symbols[:5]
	}

	var analyses []*models.StockAnalysis
	for _, symbol := range symbols {
		analysis := a.Analyze(ctx, symbol, false)
		if analysis.Fundamentals != nil {
			analyses = append(analyses, analysis)
		}
	}

	if len(analyses) == 0 {
		return "Could not fetch data for any of the specified stocks."
	}

	headers := []string{"Metric"}
	for _, an := range analyses {
		headers = append(headers, an.Symbol)
	}

	metrics := []struct {
		name    string
		extract func(f *models.StockFundamentals) string
	}{
		{"Market Cap", func(f *models.StockFundamentals) string {
			if f.MarketCap > 0 {
				return utils.FormatMarketCapCr(f.MarketCap)
			}
			return "N/A"
		}},
		{"P/E", func(f *models.StockFundamentals) string { return fmtMetric(f.PE, "%.1f") }},
		{"P/B", func(f *models.StockFundamentals) string { return fmtMetric(f.PB, "%.2f") }},
		{"ROE %", func(f *models.StockFundamentals) string { return fmtMetric(f.ROE, "%.1f") }},
		{"ROCE %", func(f *models.StockFundamentals) string { return fmtMetric(f.ROCE, "%.1f") }},
		{"D/E", func(f *models.StockFundamentals) string { return fmtMetric(f.DebtToEquity, "%.2f") }},
		{"Div Yield %", func(f *models.StockFundamentals) string { return fmtMetric(f.DividendYield, "%.2f") }},
	}

	rows := make([][]string, 0, len(metrics))
	for _, m := range metrics {
		row := []string{m.name}
		for _, an := range analyses {
			row = append(row, m.extract(an.Fundamentals))
		}
		rows = append(rows, row)
	}

	var b strings.Builder
	b.WriteString("\nSTOCK COMPARISON\n")
	b.WriteString(strings.Repeat("=", 60))
	b.WriteString("\n")
	b.WriteString(utils.Table(headers, rows))
	b.WriteString("\n\n")
	b.WriteString(strings.Repeat("-", 60))
	b.WriteString("\nSource: Screener.in")
	return b.String()
}

func fmtMetric(v float64, format string) string {
	if v == 0 {
		return "N/A"
	}
	return fmt.Sprintf(format, v)
}

// headlines returns at most n items.
func headlines(items []models.NewsItem, n int) []models.NewsItem {
	if len(items) > n {
		return items[:n]
	}
	return items
}

// newsAttribution formats "Source, 02 Jan 2006" with missing parts elided.
func newsAttribution(item models.NewsItem) string {
	parts := make([]string, 0, 2)
	if item.Source != "" {
		parts = append(parts, item.Source)
	}
	if !item.PublishedAt.IsZero() {
		parts = append(parts, item.PublishedAt.Format("02 Jan 2006"))
	}
	return strings.Join(parts, ", ")
}
