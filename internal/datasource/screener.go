package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sony/gobreaker/v2"

	"github.com/seenimoa/investez/internal/infra"
	"github.com/seenimoa/investez/pkg/models"
)

const screenerBaseURL = "https://www.screener.in"

// Market-cap category thresholds, in ₹ crores.
const (
	largeCapThresholdCr = 20000
	midCapThresholdCr   = 5000
)

// Screener scrapes stock fundamentals from Screener.in company pages.
type Screener struct {
	cache   *infra.Cache
	limiter *infra.RateLimiter
	breaker *gobreaker.CircuitBreaker[*goquery.Document]
}

// NewScreener creates a new Screener.in data source.
func NewScreener() *Screener {
	return &Screener{
		cache:   infra.NewCache(30 * time.Minute),
		limiter: infra.NewRateLimiter(1, time.Second), // conservative: 1 req/s
		breaker: gobreaker.NewCircuitBreaker[*goquery.Document](gobreaker.Settings{
			Name:    "screener.in",
			Timeout: 2 * time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// Name returns the data source name.
func (s *Screener) Name() string { return "Screener.in" }

// --- Public methods ---

// GetFundamentals returns the fundamental profile scraped from the company page.
func (s *Screener) GetFundamentals(ctx context.Context, symbol string) (*models.StockFundamentals, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	cacheKey := "scr:fund:" + symbol
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.(*models.StockFundamentals), nil
	}

	doc, err := s.fetchPage(ctx, symbol)
	if err != nil {
		return nil, err
	}

	f := &models.StockFundamentals{Symbol: symbol}

	f.Name = strings.TrimSpace(doc.Find("h1.h2").First().Text())
	if f.Name == "" {
		f.Name = symbol
	}

	// Top ratios list carries the headline numbers.
	ratios := map[string]float64{}
	doc.Find("#top-ratios li").Each(func(_ int, sel *goquery.Selection) {
		name := strings.TrimSpace(sel.Find(".name").Text())
		valStr := strings.TrimSpace(sel.Find(".value, .number").Text())
		if name == "" {
			return
		}
		if name == "High / Low" {
			f.HighLow52W = valStr
			return
		}
		ratios[name] = parseScreenerNumber(valStr)
	})

	f.MarketCap = lookupRatio(ratios, "Market Cap")
	f.CurrentPrice = lookupRatio(ratios, "Current Price")
	f.PE = lookupRatio(ratios, "Stock P/E")
	f.BookValue = lookupRatio(ratios, "Book Value")
	f.DividendYield = lookupRatio(ratios, "Dividend Yield")
	f.ROCE = lookupRatio(ratios, "ROCE")
	f.ROE = lookupRatio(ratios, "ROE")
	f.DebtToEquity = lookupRatio(ratios, "Debt to equity")

	if f.BookValue > 0 && f.CurrentPrice > 0 {
		f.PB = round2(f.CurrentPrice / f.BookValue)
	}

	f.MarketCapCategory = marketCapCategory(f.MarketCap)
	f.IndustryPE = parseIndustryPE(doc)
	f.PromoterHolding, f.FIIHolding, f.DIIHolding = parseShareholding(doc)
	f.SalesGrowth3Y, f.ProfitGrowth3Y = parseGrowthTables(doc)

	if f.MarketCap == 0 && f.PE == 0 && f.CurrentPrice == 0 {
		return nil, fmt.Errorf("screener.in %s: %w", symbol, ErrTickerNotFound)
	}

	s.cache.SetWithTTL(cacheKey, f, 1*time.Hour)
	return f, nil
}

// SearchStock queries the Screener.in company search API.
func (s *Screener) SearchStock(ctx context.Context, query string) ([]models.StockMatch, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/api/company/search/?q=%s", screenerBaseURL, url.QueryEscape(query))
	body, _, err := infra.DoGet(ctx, u, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, fmt.Errorf("screener search %q: %w", query, err)
	}
	defer body.Close()

	var raw []struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse screener search response: %w", err)
	}

	var matches []models.StockMatch
	for _, r := range raw {
		// URL form: /company/SYMBOL/ or /company/SYMBOL/consolidated/
		parts := strings.Split(strings.Trim(r.URL, "/"), "/")
		if len(parts) < 2 {
			continue
		}
		matches = append(matches, models.StockMatch{Symbol: parts[1], Name: r.Name})
	}
	return matches, nil
}

// --- Internal helpers ---

// fetchPage downloads and parses a Screener.in company page through the
// circuit breaker. Tries the consolidated view first, then standalone.
func (s *Screener) fetchPage(ctx context.Context, symbol string) (*goquery.Document, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	return s.breaker.Execute(func() (*goquery.Document, error) {
		u := fmt.Sprintf("%s/company/%s/consolidated/", screenerBaseURL, symbol)
		body, _, err := infra.DoGet(ctx, u, map[string]string{"Accept": "text/html"})
		if err != nil {
			u = fmt.Sprintf("%s/company/%s/", screenerBaseURL, symbol)
			body, _, err = infra.DoGet(ctx, u, map[string]string{"Accept": "text/html"})
			if err != nil {
				return nil, fmt.Errorf("screener.in %s: %w", symbol, err)
			}
		}
		defer body.Close()

		doc, err := goquery.NewDocumentFromReader(body)
		if err != nil {
			return nil, fmt.Errorf("parse screener HTML: %w", err)
		}
		return doc, nil
	})
}

func lookupRatio(ratios map[string]float64, name string) float64 {
	// Exact match first; Screener occasionally varies label suffixes.
	if v, ok := ratios[name]; ok {
		return v
	}
	for k, v := range ratios {
		if strings.Contains(k, name) {
			return v
		}
	}
	return 0
}

// marketCapCategory buckets a market cap in crores into SEBI-style bands.
func marketCapCategory(capCr float64) string {
	switch {
	case capCr <= 0:
		return ""
	case capCr >= largeCapThresholdCr:
		return "Large Cap"
	case capCr >= midCapThresholdCr:
		return "Mid Cap"
	default:
		return "Small Cap"
	}
}

// parseIndustryPE reads the median row of the peers table. The first numeric
// cell in a plausible P/E range is taken as the industry median.
func parseIndustryPE(doc *goquery.Document) float64 {
	var industryPE float64
	doc.Find("#peers tr.median td").EachWithBreak(func(i int, cell *goquery.Selection) bool {
		if i == 0 {
			return true // name column
		}
		val := parseScreenerNumber(strings.TrimSpace(cell.Text()))
		if val > 0 && val < 1000 {
			industryPE = val
			return false
		}
		return true
	})
	return industryPE
}

// parseShareholding reads the latest quarter's promoter/FII/DII percentages.
func parseShareholding(doc *goquery.Document) (promoter, fii, dii float64) {
	doc.Find("#shareholding tr").Each(func(_ int, row *goquery.Selection) {
		label := strings.TrimSpace(row.Find("td").First().Text())
		val, ok := lastNumericCell(row)
		if !ok {
			return
		}
		switch {
		case strings.Contains(label, "Promoter"):
			promoter = val
		case strings.Contains(label, "FII"):
			fii = val
		case strings.Contains(label, "DII"):
			dii = val
		}
	})
	return promoter, fii, dii
}

// lastNumericCell returns the rightmost parseable number in a table row,
// which on Screener is the most recent quarter.
func lastNumericCell(row *goquery.Selection) (float64, bool) {
	var val float64
	var found bool
	row.Find("td").Each(func(i int, cell *goquery.Selection) {
		if i == 0 {
			return
		}
		text := strings.TrimSpace(cell.Text())
		if text == "" {
			return
		}
		if v, err := strconv.ParseFloat(strings.TrimSuffix(strings.Replace(text, ",", "", -1), "%"), 64); err == nil {
			val = v
			found = true
		}
	})
	return val, found
}

// parseGrowthTables reads 3-year compounded sales and profit growth from the
// small ranges tables on the profit & loss section.
func parseGrowthTables(doc *goquery.Document) (sales3y, profit3y float64) {
	doc.Find("table.ranges-table").Each(func(_ int, table *goquery.Selection) {
		header := strings.TrimSpace(table.Find("th").First().Text())

		var isSales, isProfit bool
		switch {
		case strings.Contains(header, "Compounded Sales Growth"):
			isSales = true
		case strings.Contains(header, "Compounded Profit Growth"):
			isProfit = true
		default:
			return
		}

		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() < 2 {
				return
			}
			label := strings.TrimSpace(cells.First().Text())
			if !strings.HasPrefix(label, "3 Years") {
				return
			}
			val := parseScreenerNumber(strings.TrimSpace(cells.Eq(1).Text()))
			if isSales {
				sales3y = val
			} else if isProfit {
				profit3y = val
			}
		})
	})
	return sales3y, profit3y
}

// parseScreenerNumber parses a number from Screener.in display format.
// Commas, the rupee sign, percent signs, and Cr./Lakh suffixes are stripped;
// crore values stay denominated in crores.
func parseScreenerNumber(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.Replace(s, ",", "", -1)
	s = strings.Replace(s, "%", "", -1)
	s = strings.Replace(s, "₹", "", -1)
	s = strings.TrimSpace(s)

	for _, suffix := range []string{"Cr.", "Cr", "Lakh", "L"} {
		if strings.HasSuffix(s, suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
			break
		}
	}

	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return val
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
