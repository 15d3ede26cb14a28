package agent

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/seenimoa/investez/pkg/models"
)

// NewsAgent fetches and formats news about stocks, funds, and the market.
type NewsAgent struct {
	news   NewsProvider
	logger zerolog.Logger
}

// NewNewsAgent creates a news agent.
func NewNewsAgent(news NewsProvider, logger zerolog.Logger) *NewsAgent {
	return &NewsAgent{news: news, logger: logger}
}

// NewsData is a topical batch of headlines ready for formatting.
type NewsData struct {
	Symbol      string
	CompanyName string
	FundName    string
	Topic       string
	Items       []models.NewsItem
}

// StockNews fetches headlines for a stock. Returns nil when nothing is found.
func (a *NewsAgent) StockNews(ctx context.Context, symbol, companyName string) *NewsData {
	items, err := a.news.StockNews(ctx, symbol, companyName)
	if err != nil {
		a.logger.Debug().Err(err).Str("symbol", symbol).Msg("stock news fetch failed")
		return nil
	}
	if len(items) == 0 {
		return nil
	}
	return &NewsData{Symbol: symbol, CompanyName: companyName, Items: items}
}

// FundNews fetches headlines for a mutual fund.
func (a *NewsAgent) FundNews(ctx context.Context, fundName string) *NewsData {
	items, err := a.news.FundNews(ctx, fundName)
	if err != nil {
		a.logger.Debug().Err(err).Str("fund", fundName).Msg("fund news fetch failed")
		return nil
	}
	if len(items) == 0 {
		return nil
	}
	return &NewsData{FundName: fundName, Items: items}
}

// MarketNews fetches general Indian market headlines.
func (a *NewsAgent) MarketNews(ctx context.Context) *NewsData {
	items, err := a.news.MarketNews(ctx)
	if err != nil {
		a.logger.Debug().Err(err).Msg("market news fetch failed")
		return nil
	}
	if len(items) == 0 {
		return nil
	}
	return &NewsData{Topic: "Indian Stock Market", Items: items}
}

// Format renders a news batch for display.
func (a *NewsAgent) Format(data *NewsData) string {
	var lines []string

	switch {
	case data.Symbol != "":
		display := data.CompanyName
		if display == "" {
			display = data.Symbol
		}
		lines = append(lines, "\nNEWS: "+display)
	case data.FundName != "":
		lines = append(lines, "\nNEWS: "+data.FundName)
	default:
		lines = append(lines, "\nMARKET NEWS")
	}

	lines = append(lines, strings.Repeat("━", 40))
	lines = append(lines, "Recent Headlines:")

	for _, item := range headlines(data.Items, 5) {
		lines = append(lines, "\n• "+item.Title)
		if attribution := newsAttribution(item); attribution != "" {
			lines = append(lines, "  - "+attribution)
		}
	}

	return strings.Join(lines, "\n")
}
