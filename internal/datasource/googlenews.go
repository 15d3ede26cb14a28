package datasource

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/seenimoa/investez/internal/infra"
	"github.com/seenimoa/investez/pkg/models"
)

// googleNewsSearchURL is the RSS search endpoint, region-pinned to India.
const googleNewsSearchURL = "https://news.google.com/rss/search?q=%s&hl=en-IN&gl=IN&ceid=IN:en"

// GoogleNews fetches news via the Google News RSS search feed.
type GoogleNews struct {
	cache   *infra.Cache
	limiter *infra.RateLimiter
	parser  *gofeed.Parser
}

// NewGoogleNews creates a new Google News data source.
func NewGoogleNews() *GoogleNews {
	p := gofeed.NewParser()
	p.UserAgent = infra.DefaultUserAgent
	return &GoogleNews{
		cache:   infra.NewCache(10 * time.Minute),
		limiter: infra.NewRateLimiter(2, time.Second), // conservative: 2 req/s
		parser:  p,
	}
}

// Name returns the data source name.
func (g *GoogleNews) Name() string { return "Google News" }

// --- Public methods ---

// SearchNews returns up to limit recent articles for a free-text query.
func (g *GoogleNews) SearchNews(ctx context.Context, query string, limit int) ([]models.NewsItem, error) {
	if limit <= 0 {
		limit = 5
	}

	cacheKey := fmt.Sprintf("gnews:%s:%d", strings.ToLower(query), limit)
	if cached, ok := g.cache.Get(cacheKey); ok {
		return cached.([]models.NewsItem), nil
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	feedURL := fmt.Sprintf(googleNewsSearchURL, url.QueryEscape(query))
	feed, err := g.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("google news %q: %w", query, err)
	}

	items := make([]models.NewsItem, 0, limit)
	for _, item := range feed.Items {
		if len(items) >= limit {
			break
		}
		title, source := splitTitleSource(item.Title)
		n := models.NewsItem{
			Title:  title,
			Link:   strings.TrimSpace(item.Link),
			Source: source,
		}
		if item.PublishedParsed != nil {
			n.PublishedAt = *item.PublishedParsed
		}
		items = append(items, n)
	}

	sortNewsByDate(items)

	g.cache.Set(cacheKey, items)
	return items, nil
}

// StockNews returns recent articles about a stock. The company name gives
// better search results than the bare symbol when available.
func (g *GoogleNews) StockNews(ctx context.Context, symbol, companyName string) ([]models.NewsItem, error) {
	var query string
	if companyName != "" {
		query = companyName + " stock news"
	} else {
		query = symbol + " stock news India"
	}
	return g.SearchNews(ctx, query, 5)
}

// FundNews returns recent articles about a mutual fund.
func (g *GoogleNews) FundNews(ctx context.Context, fundName string) ([]models.NewsItem, error) {
	return g.SearchNews(ctx, fundName+" mutual fund", 5)
}

// MarketNews returns general Indian market news.
func (g *GoogleNews) MarketNews(ctx context.Context) ([]models.NewsItem, error) {
	return g.SearchNews(ctx, "Indian stock market NSE BSE", 10)
}

// splitTitleSource separates the publisher name Google News appends to item
// titles ("Headline - Publisher"). Falls back to "Unknown" when absent.
func splitTitleSource(raw string) (title, source string) {
	raw = strings.TrimSpace(raw)
	if idx := strings.LastIndex(raw, " - "); idx > 0 {
		return strings.TrimSpace(raw[:idx]), strings.TrimSpace(raw[idx+3:])
	}
	return raw, "Unknown"
}

// sortNewsByDate sorts items by published date, newest first.
// Simple insertion sort — fine for small slices.
func sortNewsByDate(items []models.NewsItem) {
	for i := 1; i < len(items); i++ {
		key := items[i]
		j := i - 1
		for j >= 0 && items[j].PublishedAt.Before(key.PublishedAt) {
			items[j+1] = items[j]
			j--
		}
		items[j+1] = key
	}
}
