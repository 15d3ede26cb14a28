package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/investez/pkg/models"
)

// MFAgent researches mutual funds: scheme resolution over the AMFI NAV
// universe, NAV day change via mfapi.in, and recent fund news.
type MFAgent struct {
	funds      FundCatalog
	dayChanges DayChangeSource
	news       NewsProvider
	logger     zerolog.Logger
}

// NewMFAgent creates a mutual fund research agent. dayChanges and news are
// optional.
func NewMFAgent(funds FundCatalog, dayChanges DayChangeSource, news NewsProvider, logger zerolog.Logger) *MFAgent {
	return &MFAgent{funds: funds, dayChanges: dayChanges, news: news, logger: logger}
}

// Analyze resolves a fund name (exact match, then Direct Plan variant) and
// gathers NAV, day change and news. Returns nil when no scheme matches.
func (a *MFAgent) Analyze(ctx context.Context, fundName string, includeNews bool) *models.MFAnalysis {
	nav, err := a.funds.GetFundByName(ctx, fundName)
	if err != nil {
		nav, err = a.funds.GetDirectPlan(ctx, fundName)
	}
	if err != nil || nav == nil {
		return nil
	}

	analysis := &models.MFAnalysis{
		NAV:       nav,
		Category:  FundCategory(nav.SchemeName),
		FetchedAt: time.Now(),
	}

	if a.dayChanges != nil && nav.SchemeCode != "" {
		dc, err := a.dayChanges.GetDayChange(ctx, nav.SchemeCode)
		if err != nil {
			a.logger.Debug().Err(err).Str("scheme", nav.SchemeCode).Msg("day change fetch failed")
		} else {
			analysis.DayChange = dc.Change
			analysis.DayChangePercent = dc.ChangePercent
			analysis.HasDayChange = true
		}
	}

	if includeNews && a.news != nil {
		news, err := a.news.FundNews(ctx, nav.SchemeName)
		if err != nil {
			a.logger.Debug().Err(err).Str("fund", nav.SchemeName).Msg("fund news fetch failed")
		} else {
			analysis.News = news
		}
	}

	return analysis
}

// Search returns up to limit scheme matches for a partial name.
func (a *MFAgent) Search(ctx context.Context, query string, limit int) []models.NAVRecord {
	funds, err := a.funds.SearchFunds(ctx, query, limit)
	if err != nil {
		return nil
	}
	return funds
}

// Format renders a mutual fund analysis as plain text.
func (a *MFAgent) Format(analysis *models.MFAnalysis) string {
	if analysis == nil || analysis.NAV == nil {
		return "No analysis data available."
	}

	var lines []string
	nav := analysis.NAV

	lines = append(lines, "\n"+nav.SchemeName)
	lines = append(lines, strings.Repeat("━", 50))

	if nav.FundHouse != "" {
		lines = append(lines, "\nFund House: "+nav.FundHouse)
	}
	if analysis.Category != "" {
		lines = append(lines, "Category: "+analysis.Category)
	}

	lines = append(lines, fmt.Sprintf("\nNAV: ₹%.4f", nav.NAV))
	if analysis.HasDayChange {
		lines = append(lines, fmt.Sprintf("Day Change: %+.4f (%+.2f%%)", analysis.DayChange, analysis.DayChangePercent))
	}
	lines = append(lines, "As of: "+nav.Date.Format("02 Jan 2006"))

	if nav.SchemeType != "" {
		lines = append(lines, "Type: "+nav.SchemeType)
	}

	if strings.Contains(strings.ToLower(nav.SchemeName), "direct") {
		lines = append(lines, "\n✓ This is a Direct Plan (lower expense ratio)")
	} else {
		lines = append(lines, "\n⚠ This appears to be a Regular Plan. Consider Direct Plan for lower fees.")
	}

	if len(analysis.News) > 0 {
		lines = append(lines, "\nRECENT NEWS")
		lines = append(lines, strings.Repeat("━", 20))
		for _, item := range headlines(analysis.News, 3) {
			lines = append(lines, "• "+item.Title)
			if attribution := newsAttribution(item); attribution != "" {
				lines = append(lines, "  - "+attribution)
			}
		}
	}

	lines = append(lines, "\n"+strings.Repeat("─", 50))
	lines = append(lines, "Note: For detailed performance data, check Value Research or Morningstar.")
	lines = append(lines, "Source: AMFI India")

	return strings.Join(lines, "\n")
}

// fundCategories maps scheme-name keywords to display categories. Checked in
// order; the first match wins, so the more specific entries come first.
var fundCategories = []struct {
	keyword  string
	category string
}{
	{"flexi cap", "Flexi Cap"},
	{"large cap", "Large Cap"},
	{"mid cap", "Mid Cap"},
	{"small cap", "Small Cap"},
	{"multi cap", "Multi Cap"},
	{"elss", "ELSS (Tax Saving)"},
	{"tax", "Tax Saving"},
	{"liquid", "Liquid"},
	{"overnight", "Overnight"},
	{"money market", "Money Market"},
	{"short duration", "Short Duration"},
	{"medium duration", "Medium Duration"},
	{"corporate bond", "Corporate Bond"},
	{"banking", "Banking & PSU"},
	{"gilt", "Gilt"},
	{"hybrid", "Hybrid"},
	{"balanced", "Balanced"},
	{"aggressive", "Aggressive Hybrid"},
	{"conservative", "Conservative Hybrid"},
	{"arbitrage", "Arbitrage"},
	{"index", "Index Fund"},
	{"nifty", "Index Fund"},
	{"sensex", "Index Fund"},
	{"international", "International"},
	{"global", "International"},
	{"us ", "International"},
}

// FundCategory infers a fund's display category from its scheme name.
func FundCategory(schemeName string) string {
	lower := strings.ToLower(schemeName)
	for _, c := range fundCategories {
		if strings.Contains(lower, c.keyword) {
			return c.category
		}
	}
	if strings.Contains(lower, "equity") || strings.Contains(lower, "growth") {
		return "Equity"
	}
	return ""
}
