package datasource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/seenimoa/investez/pkg/models"
)

func TestComputeDayChange(t *testing.T) {
	current := models.NAVPoint{Date: "22-08-2026", NAV: "82.1480"}
	previous := models.NAVPoint{Date: "21-08-2026", NAV: "81.5000"}

	dc, err := computeDayChange(current, previous)
	if err != nil {
		t.Fatalf("computeDayChange: %v", err)
	}

	if dc.CurrentNAV != 82.1480 {
		t.Errorf("current NAV = %v, want 82.1480", dc.CurrentNAV)
	}
	if dc.Change != 0.65 {
		t.Errorf("change = %v, want 0.65", dc.Change)
	}
	if dc.ChangePercent != 0.80 {
		t.Errorf("change percent = %v, want 0.80", dc.ChangePercent)
	}
	if dc.Date != "22-08-2026" {
		t.Errorf("date = %q, want 22-08-2026", dc.Date)
	}
}

func TestComputeDayChangeZeroPrevious(t *testing.T) {
	dc, err := computeDayChange(
		models.NAVPoint{Date: "22-08-2026", NAV: "10.0"},
		models.NAVPoint{Date: "21-08-2026", NAV: "0"},
	)
	if err != nil {
		t.Fatalf("computeDayChange: %v", err)
	}
	if dc.ChangePercent != 0 {
		t.Errorf("change percent = %v, want 0 when previous NAV is 0", dc.ChangePercent)
	}
}

func TestComputeDayChangeBadNAV(t *testing.T) {
	_, err := computeDayChange(
		models.NAVPoint{NAV: "not-a-number"},
		models.NAVPoint{NAV: "81.5"},
	)
	if err == nil {
		t.Fatal("expected parse error")
	}
}

func TestGetDayChange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mf/122640" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"meta": {"scheme_code": 122640, "scheme_name": "Parag Parikh Flexi Cap Fund - Direct Plan"},
			"data": [
				{"date": "22-08-2026", "nav": "82.14800"},
				{"date": "21-08-2026", "nav": "81.50000"},
				{"date": "20-08-2026", "nav": "81.00000"}
			],
			"status": "SUCCESS"
		}`))
	}))
	defer srv.Close()

	m := NewMFAPI()
	m.baseURL = srv.URL

	dc, err := m.GetDayChange(context.Background(), "122640")
	if err != nil {
		t.Fatalf("GetDayChange: %v", err)
	}
	if dc.CurrentNAV != 82.148 {
		t.Errorf("current NAV = %v, want 82.148", dc.CurrentNAV)
	}
	if dc.PreviousNAV != 81.5 {
		t.Errorf("previous NAV = %v, want 81.5", dc.PreviousNAV)
	}

	// Second call is served from cache; shut the server to prove it.
	srv.Close()
	if _, err := m.GetDayChange(context.Background(), "122640"); err != nil {
		t.Fatalf("cached GetDayChange: %v", err)
	}
}

func TestGetSchemeFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "FAIL", "data": []}`))
	}))
	defer srv.Close()

	m := NewMFAPI()
	m.baseURL = srv.URL

	if _, _, err := m.GetScheme(context.Background(), "999999"); err == nil {
		t.Fatal("expected error for FAIL status")
	}
}
