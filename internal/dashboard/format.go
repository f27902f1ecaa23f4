// Package dashboard renders positions and step summaries as plain-text
// tables for the CLI tools.
package dashboard

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	start := len(s) % 3
	if start > 0 {
		b.WriteString(s[:start])
	}
	for i := start; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatPrice formats a price with two decimal places, or "-" for zero.
func FormatPrice(p decimal.Decimal) string {
	if p.IsZero() {
		return "-"
	}
	return p.StringFixed(2)
}

// FormatQty formats a quantity, trimming trailing zeros.
func FormatQty(q decimal.Decimal) string {
	return q.String()
}

// FormatGain formats a signed fractional gain as "+X.X%" / "-X.X%", or "-"
// for zero. Drops the decimal for magnitudes >= 100% to keep width compact.
func FormatGain(g decimal.Decimal) string {
	if g.IsZero() {
		return "-"
	}
	pct := g.Mul(decimal.NewFromInt(100))
	if pct.Abs().GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return signed(pct.StringFixed(0)) + "%"
	}
	return signed(pct.StringFixed(1)) + "%"
}

func signed(s string) string {
	if strings.HasPrefix(s, "-") {
		return s
	}
	return "+" + s
}
