// Package datasource provides data fetching from the public sources InvestEz
// relies on: Screener.in for stock fundamentals, AMFI and MFApi.in for mutual
// fund NAVs, and Google News RSS for news. Each source owns its cache and
// rate limiter; callers receive domain models from pkg/models.
package datasource

import (
	"context"
	"fmt"

	"github.com/seenimoa/investez/pkg/models"
)

// StockSource supplies stock fundamentals and symbol search.
type StockSource interface {
	Name() string
	GetFundamentals(ctx context.Context, symbol string) (*models.StockFundamentals, error)
	SearchStock(ctx context.Context, query string) ([]models.StockMatch, error)
}

// FundSource supplies mutual fund NAVs and fund search.
type FundSource interface {
	Name() string
	GetNAV(ctx context.Context, schemeCode string) (*models.NAVRecord, error)
	GetFundByName(ctx context.Context, name string) (*models.NAVRecord, error)
	SearchFunds(ctx context.Context, query string, limit int) ([]models.NAVRecord, error)
}

// NewsSource supplies news articles by free-text query.
type NewsSource interface {
	Name() string
	SearchNews(ctx context.Context, query string, limit int) ([]models.NewsItem, error)
}

// --- Sentinel errors ---

// ErrNotSupported is returned when a data source does not support a method.
var ErrNotSupported = fmt.Errorf("operation not supported by this data source")

// ErrTickerNotFound is returned when a symbol cannot be resolved.
var ErrTickerNotFound = fmt.Errorf("ticker not found")

// ErrFundNotFound is returned when no mutual fund matches the query.
var ErrFundNotFound = fmt.Errorf("fund not found")

// ErrRateLimited is returned when a source rate-limits the request.
var ErrRateLimited = fmt.Errorf("rate limited by data source")
