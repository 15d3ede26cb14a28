// Package utils provides formatting helpers for console and chat output.
// Currency and volume formatting follow the Indian numbering system
// (lakhs and crores).
package utils

import (
	"fmt"
	"math"
	"strings"
)

// FormatINR formats a number in Indian Rupee format (₹12,34,567.89).
// Uses the Indian numbering system: last 3 digits, then groups of 2.
func FormatINR(amount float64) string {
	negative := amount < 0
	amount = math.Abs(amount)

	intPart := int64(amount)
	decPart := amount - float64(intPart)

	formatted := formatIndianNumber(intPart)

	if decPart > 0 {
		decStr := fmt.Sprintf("%.2f", decPart)
		formatted += decStr[1:] // skip the leading "0"
	} else {
		formatted += ".00"
	}

	if negative {
		return "-₹" + formatted
	}
	return "₹" + formatted
}

// FormatINRCompact formats a number in compact Indian notation.
// e.g., 1927345 → "₹19.27 L", 192734500000 → "₹19,273.45 Cr"
func FormatINRCompact(amount float64) string {
	negative := amount < 0
	amount = math.Abs(amount)

	prefix := "₹"
	if negative {
		prefix = "-₹"
	}

	switch {
	case amount >= 1e7:
		return fmt.Sprintf("%s%.2f Cr", prefix, amount/1e7)
	case amount >= 1e5:
		return fmt.Sprintf("%s%.2f L", prefix, amount/1e5)
	case amount >= 1e3:
		return fmt.Sprintf("%s%.1fK", prefix, amount/1e3)
	default:
		return fmt.Sprintf("%s%.2f", prefix, amount)
	}
}

// FormatMarketCapCr formats a market cap given in crores.
// e.g., 123456 → "₹1.23L Cr", 4567 → "₹4.6K Cr", 890 → "₹890 Cr"
func FormatMarketCapCr(capCrores float64) string {
	switch {
	case capCrores >= 1e5:
		return fmt.Sprintf("₹%.2fL Cr", capCrores/1e5)
	case capCrores >= 1e3:
		return fmt.Sprintf("₹%.1fK Cr", capCrores/1e3)
	default:
		return fmt.Sprintf("₹%.0f Cr", capCrores)
	}
}

// FormatChange formats a change value with an explicit sign.
// e.g., 2.45 → "+2.45%", -1.23 → "-1.23%"
func FormatChange(value float64) string {
	if value >= 0 {
		return fmt.Sprintf("+%.2f%%", value)
	}
	return fmt.Sprintf("%.2f%%", value)
}

// FormatVolume formats trade volume in human-readable Indian notation.
func FormatVolume(volume int64) string {
	v := float64(volume)
	switch {
	case v >= 1e7:
		return fmt.Sprintf("%.2f Cr", v/1e7)
	case v >= 1e5:
		return fmt.Sprintf("%.2f L", v/1e5)
	case v >= 1e3:
		return fmt.Sprintf("%.2f K", v/1e3)
	default:
		return fmt.Sprintf("%d", volume)
	}
}

// Table renders headers and rows as a plain-text table with a dashed rule
// under the header. Column widths are sized to the widest cell.
func Table(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	for i, h := range headers {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(pad(h, widths[i]+2))
	}
	headerLine := b.String()
	b.WriteString("\n")
	b.WriteString(strings.Repeat("-", len([]rune(headerLine))))
	for _, row := range rows {
		b.WriteString("\n")
		for i := range headers {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(pad(cell, widths[i]+2))
		}
	}
	return b.String()
}

// Truncate shortens text to maxLen runes, appending "..." when cut.
func Truncate(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// BulletList formats items as a bullet list.
func BulletList(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "• " + item
	}
	return strings.Join(lines, "\n")
}

// formatIndianNumber formats an integer with Indian grouping (last 3, then 2s).
func formatIndianNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	s := fmt.Sprintf("%d", n)
	length := len(s)

	result := s[length-3:]
	remaining := s[:length-3]

	for len(remaining) > 0 {
		if len(remaining) > 2 {
			result = remaining[len(remaining)-2:] + "," + result
			remaining = remaining[:len(remaining)-2]
		} else {
			result = remaining + "," + result
			remaining = ""
		}
	}

	return result
}

// pad left-justifies s in a field of the given width.
func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
