// Package agent implements the conversational layer: an orchestrator that
// classifies each query and routes it to a specialist agent (stock research,
// mutual funds, news, or general conversation). Agents are rule-driven and
// compose data from internal/datasource and internal/broker into formatted
// plain-text responses.
package agent

import (
	"context"

	"github.com/seenimoa/investez/internal/datasource"
	"github.com/seenimoa/investez/pkg/models"
)

// Agent identifiers reported in responses and persisted with each message.
const (
	AgentSystem       = "system"
	AgentStock        = "stock_research"
	AgentMF           = "mf_research"
	AgentNews         = "news"
	AgentConversation = "conversation"
)

// Response is the outcome of processing one user query.
type Response struct {
	Text  string   `json:"text"`
	Agent string   `json:"agent"`
	Tools []string `json:"tools"`
}

// QuoteSource supplies live price quotes (Kite, when a session is active).
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (*models.Quote, error)
}

// NewsProvider supplies topical news feeds.
type NewsProvider interface {
	StockNews(ctx context.Context, symbol, companyName string) ([]models.NewsItem, error)
	FundNews(ctx context.Context, fundName string) ([]models.NewsItem, error)
	MarketNews(ctx context.Context) ([]models.NewsItem, error)
}

// FundCatalog supplies scheme lookup over the AMFI NAV universe.
type FundCatalog interface {
	GetFundByName(ctx context.Context, name string) (*models.NAVRecord, error)
	GetDirectPlan(ctx context.Context, name string) (*models.NAVRecord, error)
	SearchFunds(ctx context.Context, query string, limit int) ([]models.NAVRecord, error)
}

// DayChangeSource supplies scheme-level NAV day changes (mfapi.in).
type DayChangeSource interface {
	GetDayChange(ctx context.Context, schemeCode string) (*datasource.DayChange, error)
}
