package datasource

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/seenimoa/investez/internal/infra"
	"github.com/seenimoa/investez/pkg/models"
)

const amfiNAVURL = "https://www.amfiindia.com/spages/NAVAll.txt"

// AMFI fetches the daily NAV dump published by the Association of Mutual
// Funds in India. The full file (~10k schemes) is parsed once per calendar
// day and indexed by scheme code and lowercase scheme name.
type AMFI struct {
	mu        sync.RWMutex
	byCode    map[string]*models.NAVRecord
	byName    map[string]*models.NAVRecord
	ordered   []*models.NAVRecord
	cacheDate string
}

// NewAMFI creates a new AMFI data source.
func NewAMFI() *AMFI {
	return &AMFI{
		byCode: make(map[string]*models.NAVRecord),
		byName: make(map[string]*models.NAVRecord),
	}
}

// Name returns the data source name.
func (a *AMFI) Name() string { return "AMFI" }

// --- Public methods ---

// GetNAV returns the NAV record for a scheme code.
func (a *AMFI) GetNAV(ctx context.Context, schemeCode string) (*models.NAVRecord, error) {
	if err := a.refresh(ctx); err != nil {
		return nil, err
	}

	a.mu.RLock()
	rec, ok := a.byCode[strings.TrimSpace(schemeCode)]
	a.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("scheme %s: %w", schemeCode, ErrFundNotFound)
	}
	return rec, nil
}

// GetFundByName finds a fund by exact name match first, falling back to the
// first partial match.
func (a *AMFI) GetFundByName(ctx context.Context, name string) (*models.NAVRecord, error) {
	if err := a.refresh(ctx); err != nil {
		return nil, err
	}

	a.mu.RLock()
	rec, ok := a.byName[strings.ToLower(strings.TrimSpace(name))]
	a.mu.RUnlock()
	if ok {
		return rec, nil
	}

	results, err := a.SearchFunds(ctx, name, 5)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("fund %q: %w", name, ErrFundNotFound)
	}

	nameLower := strings.ToLower(name)
	for i := range results {
		if strings.ToLower(results[i].SchemeName) == nameLower {
			return &results[i], nil
		}
	}
	return &results[0], nil
}

// GetDirectPlan finds the Direct plan variant of a fund.
func (a *AMFI) GetDirectPlan(ctx context.Context, fundName string) (*models.NAVRecord, error) {
	if !strings.Contains(strings.ToLower(fundName), "direct") {
		fundName = fundName + " Direct"
	}
	return a.GetFundByName(ctx, fundName)
}

// SearchFunds returns up to limit schemes whose names contain the query
// (case-insensitive substring match).
func (a *AMFI) SearchFunds(ctx context.Context, query string, limit int) ([]models.NAVRecord, error) {
	if err := a.refresh(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	queryLower := strings.ToLower(query)

	a.mu.RLock()
	defer a.mu.RUnlock()

	var results []models.NAVRecord
	for _, rec := range a.ordered {
		if len(results) >= limit {
			break
		}
		if strings.Contains(strings.ToLower(rec.SchemeName), queryLower) {
			results = append(results, *rec)
		}
	}
	return results, nil
}

// FundsByHouse returns all schemes whose fund house matches the query.
func (a *AMFI) FundsByHouse(ctx context.Context, fundHouse string) ([]models.NAVRecord, error) {
	if err := a.refresh(ctx); err != nil {
		return nil, err
	}

	houseLower := strings.ToLower(fundHouse)

	a.mu.RLock()
	defer a.mu.RUnlock()

	var results []models.NAVRecord
	for _, rec := range a.ordered {
		if strings.Contains(strings.ToLower(rec.FundHouse), houseLower) {
			results = append(results, *rec)
		}
	}
	return results, nil
}

// --- Internal helpers ---

// refresh downloads and re-parses the NAV dump if the cached copy is not
// from today.
func (a *AMFI) refresh(ctx context.Context) error {
	today := time.Now().Format("2006-01-02")

	a.mu.RLock()
	fresh := a.cacheDate == today && len(a.byCode) > 0
	a.mu.RUnlock()
	if fresh {
		return nil
	}

	body, _, err := infra.DoGet(ctx, amfiNAVURL, map[string]string{"Accept": "text/plain"})
	if err != nil {
		return fmt.Errorf("fetch AMFI NAV data: %w", err)
	}
	defer body.Close()

	byCode, byName, ordered := parseNAVAll(bufio.NewScanner(body))

	a.mu.Lock()
	a.byCode = byCode
	a.byName = byName
	a.ordered = ordered
	a.cacheDate = today
	a.mu.Unlock()

	return nil
}

// parseNAVAll parses the semicolon-delimited NAVAll.txt format:
//
//	Scheme Code;ISIN Div Payout/ISIN Growth;ISIN Div Reinvestment;Scheme Name;Net Asset Value;Date
//
// Fund house headers end with "Mutual Fund"; scheme type sections start with
// "Open Ended", "Close Ended" or "Interval Fund". Schemes with "N.A." NAVs
// are skipped.
func parseNAVAll(scanner *bufio.Scanner) (map[string]*models.NAVRecord, map[string]*models.NAVRecord, []*models.NAVRecord) {
	byCode := make(map[string]*models.NAVRecord)
	byName := make(map[string]*models.NAVRecord)
	var ordered []*models.NAVRecord

	var fundHouse, schemeType string

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasSuffix(line, "Mutual Fund") && !strings.Contains(line, ";") {
			fundHouse = line
			continue
		}
		if strings.HasPrefix(line, "Open Ended") || strings.HasPrefix(line, "Close Ended") ||
			strings.HasPrefix(line, "Interval Fund") {
			schemeType = line
			continue
		}

		parts := strings.Split(line, ";")
		if len(parts) < 5 {
			continue
		}

		schemeCode := strings.TrimSpace(parts[0])
		schemeName := strings.TrimSpace(parts[3])
		navStr := strings.TrimSpace(parts[4])

		if schemeCode == "" || schemeName == "" || navStr == "" {
			continue
		}
		if strings.EqualFold(navStr, "N.A.") {
			continue
		}

		nav, err := strconv.ParseFloat(navStr, 64)
		if err != nil {
			continue
		}

		rec := &models.NAVRecord{
			SchemeCode: schemeCode,
			ISINGrowth: strings.TrimSpace(parts[1]),
			ISINReinv:  strings.TrimSpace(parts[2]),
			SchemeName: schemeName,
			FundHouse:  fundHouse,
			SchemeType: schemeType,
			NAV:        nav,
		}

		if len(parts) > 5 {
			if d, err := time.Parse("02-Jan-2006", strings.TrimSpace(parts[5])); err == nil {
				rec.Date = d
			}
		}
		if rec.Date.IsZero() {
			rec.Date = time.Now()
		}

		byCode[schemeCode] = rec
		byName[strings.ToLower(schemeName)] = rec
		ordered = append(ordered, rec)
	}

	return byCode, byName, ordered
}
