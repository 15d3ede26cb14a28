package utils

import (
	"strings"
	"testing"
)

func TestFormatINR(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{1234567.89, "₹12,34,567.89"},
		{1000, "₹1,000.00"},
		{999, "₹999.00"},
		{-45000.5, "-₹45,000.50"},
		{0, "₹0.00"},
	}
	for _, tt := range tests {
		if got := FormatINR(tt.amount); got != tt.want {
			t.Errorf("FormatINR(%v) = %q, want %q", tt.amount, got, tt.want)
		}
	}
}

func TestFormatINRCompact(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{25000000, "₹2.50 Cr"},
		{250000, "₹2.50 L"},
		{2500, "₹2.5K"},
		{250, "₹250.00"},
		{-25000000, "-₹2.50 Cr"},
	}
	for _, tt := range tests {
		if got := FormatINRCompact(tt.amount); got != tt.want {
			t.Errorf("FormatINRCompact(%v) = %q, want %q", tt.amount, got, tt.want)
		}
	}
}

func TestFormatMarketCapCr(t *testing.T) {
	tests := []struct {
		cap  float64
		want string
	}{
		{250000, "₹2.50L Cr"},
		{4567, "₹4.6K Cr"},
		{890, "₹890 Cr"},
	}
	for _, tt := range tests {
		if got := FormatMarketCapCr(tt.cap); got != tt.want {
			t.Errorf("FormatMarketCapCr(%v) = %q, want %q", tt.cap, got, tt.want)
		}
	}
}

func TestFormatChange(t *testing.T) {
	if got := FormatChange(2.456); got != "+2.46%" {
		t.Errorf("FormatChange(2.456) = %q", got)
	}
	if got := FormatChange(-1.2); got != "-1.20%" {
		t.Errorf("FormatChange(-1.2) = %q", got)
	}
	if got := FormatChange(0); got != "+0.00%" {
		t.Errorf("FormatChange(0) = %q", got)
	}
}

func TestTable(t *testing.T) {
	out := Table([]string{"Metric", "TCS"}, [][]string{
		{"P/E", "28.5"},
		{"ROE %", "45.2"},
	})
	if !strings.Contains(out, "Metric") || !strings.Contains(out, "28.5") {
		t.Fatalf("table missing content:\n%s", out)
	}
	lines := strings.Split(out, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[1], "---") {
		t.Errorf("expected dashed rule under header, got %q", lines[1])
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 50); got != "short" {
		t.Errorf("Truncate(short) = %q", got)
	}
	got := Truncate("a very long sentence that keeps going", 10)
	if got != "a very ..." {
		t.Errorf("Truncate = %q", got)
	}
}
