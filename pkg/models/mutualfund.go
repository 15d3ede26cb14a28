package models

import "time"

// NAVRecord is one scheme entry from the AMFI daily NAV dump.
type NAVRecord struct {
	SchemeCode  string    `json:"scheme_code"`
	ISINGrowth  string    `json:"isin_growth,omitempty"`
	ISINReinv   string    `json:"isin_reinvestment,omitempty"`
	SchemeName  string    `json:"scheme_name"`
	FundHouse   string    `json:"fund_house,omitempty"`
	SchemeType  string    `json:"scheme_type,omitempty"`
	NAV         float64   `json:"nav"`
	Date        time.Time `json:"date"`
}

// SchemeMeta is a scheme as listed by the mfapi.in search endpoint.
type SchemeMeta struct {
	SchemeCode int    `json:"schemeCode"`
	SchemeName string `json:"schemeName"`
}

// NAVPoint is one dated NAV observation from a scheme's history.
type NAVPoint struct {
	Date string `json:"date"` // DD-MM-YYYY as served by mfapi.in
	NAV  string `json:"nav"`
}

// MFAnalysis aggregates everything fetched for one mutual fund scheme.
type MFAnalysis struct {
	NAV              *NAVRecord `json:"nav,omitempty"`
	Category         string     `json:"category,omitempty"`
	DayChange        float64    `json:"day_change"`
	DayChangePercent float64    `json:"day_change_percent"`
	HasDayChange     bool       `json:"has_day_change"`
	News             []NewsItem `json:"news,omitempty"`
	FetchedAt        time.Time  `json:"fetched_at"`
}
