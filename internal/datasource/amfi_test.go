package datasource

import (
	"bufio"
	"context"
	"strings"
	"testing"
)

const sampleNAVAll = `Scheme Code;ISIN Div Payout/ ISIN Growth;ISIN Div Reinvestment;Scheme Name;Net Asset Value;Date

Open Ended Schemes ( Equity Scheme - Flexi Cap Fund )

PPFAS Mutual Fund

122639;INF879O01027;-;Parag Parikh Flexi Cap Fund - Regular Plan - Growth;77.5390;22-Aug-2026
122640;INF879O01035;-;Parag Parikh Flexi Cap Fund - Direct Plan - Growth;82.1480;22-Aug-2026

HDFC Mutual Fund

118989;INF179K01UT0;-;HDFC Mid-Cap Opportunities Fund - Growth Option - Direct Plan;182.4830;22-Aug-2026
119018;INF179K01VC4;-;HDFC Flexi Cap Fund - Growth Plan;1745.2210;22-Aug-2026
100119;INF179K01AB1;-;HDFC Stale Scheme;N.A.;22-Aug-2026
`

func parseSample(t *testing.T) *AMFI {
	t.Helper()
	a := NewAMFI()
	byCode, byName, ordered := parseNAVAll(bufio.NewScanner(strings.NewReader(sampleNAVAll)))
	a.byCode = byCode
	a.byName = byName
	a.ordered = ordered
	a.cacheDate = "2099-01-01" // never refresh during tests
	return a
}

func TestParseNAVAll(t *testing.T) {
	byCode, _, ordered := parseNAVAll(bufio.NewScanner(strings.NewReader(sampleNAVAll)))

	if len(ordered) != 4 {
		t.Fatalf("parsed %d schemes, want 4 (N.A. entries skipped)", len(ordered))
	}

	rec, ok := byCode["122639"]
	if !ok {
		t.Fatal("scheme 122639 not indexed by code")
	}
	if rec.SchemeName != "Parag Parikh Flexi Cap Fund - Regular Plan - Growth" {
		t.Errorf("scheme name = %q", rec.SchemeName)
	}
	if rec.NAV != 77.5390 {
		t.Errorf("NAV = %v, want 77.5390", rec.NAV)
	}
	if rec.FundHouse != "PPFAS Mutual Fund" {
		t.Errorf("fund house = %q, want PPFAS Mutual Fund", rec.FundHouse)
	}
	if !strings.HasPrefix(rec.SchemeType, "Open Ended") {
		t.Errorf("scheme type = %q, want Open Ended prefix", rec.SchemeType)
	}
	if rec.Date.Format("02-Jan-2006") != "22-Aug-2026" {
		t.Errorf("date = %v, want 22-Aug-2026", rec.Date)
	}
	if rec.ISINGrowth != "INF879O01027" {
		t.Errorf("ISIN = %q", rec.ISINGrowth)
	}
}

func TestParseNAVAllSkipsNA(t *testing.T) {
	byCode, _, _ := parseNAVAll(bufio.NewScanner(strings.NewReader(sampleNAVAll)))
	if _, ok := byCode["100119"]; ok {
		t.Fatal("N.A. scheme should be skipped")
	}
}

func TestSearchFunds(t *testing.T) {
	a := parseSample(t)

	results, err := a.SearchFunds(context.Background(), "flexi cap", 10)
	if err != nil {
		t.Fatalf("SearchFunds: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	// Limit is honored.
	results, err = a.SearchFunds(context.Background(), "flexi cap", 2)
	if err != nil {
		t.Fatalf("SearchFunds: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
}

func TestGetFundByName(t *testing.T) {
	a := parseSample(t)

	// Exact match.
	rec, err := a.GetFundByName(context.Background(), "HDFC Flexi Cap Fund - Growth Plan")
	if err != nil {
		t.Fatalf("GetFundByName: %v", err)
	}
	if rec.SchemeCode != "119018" {
		t.Errorf("scheme code = %q, want 119018", rec.SchemeCode)
	}

	// Partial match falls back to first hit.
	rec, err = a.GetFundByName(context.Background(), "Parag Parikh")
	if err != nil {
		t.Fatalf("GetFundByName partial: %v", err)
	}
	if !strings.Contains(rec.SchemeName, "Parag Parikh") {
		t.Errorf("unexpected fund %q", rec.SchemeName)
	}

	if _, err := a.GetFundByName(context.Background(), "Nonexistent Fund"); err == nil {
		t.Error("expected error for unknown fund")
	}
}

func TestGetDirectPlan(t *testing.T) {
	a := parseSample(t)

	rec, err := a.GetDirectPlan(context.Background(), "Parag Parikh Flexi Cap Fund")
	if err != nil {
		t.Fatalf("GetDirectPlan: %v", err)
	}
	if !strings.Contains(rec.SchemeName, "Direct") {
		t.Errorf("got %q, want a Direct plan", rec.SchemeName)
	}
}

func TestGetNAV(t *testing.T) {
	a := parseSample(t)

	rec, err := a.GetNAV(context.Background(), "118989")
	if err != nil {
		t.Fatalf("GetNAV: %v", err)
	}
	if rec.NAV != 182.4830 {
		t.Errorf("NAV = %v, want 182.4830", rec.NAV)
	}

	if _, err := a.GetNAV(context.Background(), "000000"); err == nil {
		t.Error("expected error for unknown scheme code")
	}
}

func TestFundsByHouse(t *testing.T) {
	a := parseSample(t)

	results, err := a.FundsByHouse(context.Background(), "hdfc")
	if err != nil {
		t.Fatalf("FundsByHouse: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d HDFC funds, want 2", len(results))
	}
}
