package paper

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AnchorMode selects the reference price for the sideways band once a
// position has scaled out.
type AnchorMode string

const (
	// AnchorEntry keeps the band centered on the entry price in every state.
	AnchorEntry AnchorMode = "entry"
	// AnchorScaleOut re-centers the band on the close recorded when the
	// take-profit fired.
	AnchorScaleOut AnchorMode = "scale_out"
)

// Config holds the numeric parameters of the lifecycle engine. All values
// are explicit; the engine has no hidden defaults and must be constructible
// with arbitrary values for testing.
type Config struct {
	// TakeProfitPct is the fractional gain over the entry price that
	// triggers the scale-out (0.15 = 15%).
	TakeProfitPct decimal.Decimal
	// ScaleOutFraction is the fraction of qty_total sold at take-profit.
	ScaleOutFraction decimal.Decimal
	// TrailDrawdownPct is the fractional drop from the high-water mark that
	// triggers a full exit while trailing.
	TrailDrawdownPct decimal.Decimal
	// SidewaysDaysLimit is the consecutive no-event day count at which a
	// time-decay exit fires.
	SidewaysDaysLimit int
	// SidewaysBandPct is the fractional band around the anchor price within
	// which a day counts as sideways.
	SidewaysBandPct decimal.Decimal
	// LotSize is the minimum tradable unit; the scale-out quantity is
	// rounded down to a multiple of it.
	LotSize decimal.Decimal
	// SidewaysAnchor picks the band anchor after a scale-out.
	SidewaysAnchor AnchorMode
}

// Validate checks that every parameter is in its legal range.
func (c Config) Validate() error {
	one := decimal.NewFromInt(1)
	if !c.TakeProfitPct.IsPositive() {
		return fmt.Errorf("take_profit_pct must be > 0, got %s", c.TakeProfitPct)
	}
	if !c.ScaleOutFraction.IsPositive() || c.ScaleOutFraction.GreaterThan(one) {
		return fmt.Errorf("scale_out_fraction must be in (0, 1], got %s", c.ScaleOutFraction)
	}
	if c.TrailDrawdownPct.IsNegative() || c.TrailDrawdownPct.GreaterThanOrEqual(one) {
		return fmt.Errorf("trail_drawdown_pct must be in [0, 1), got %s", c.TrailDrawdownPct)
	}
	if c.SidewaysDaysLimit <= 0 {
		return fmt.Errorf("sideways_days_limit must be > 0, got %d", c.SidewaysDaysLimit)
	}
	if c.SidewaysBandPct.IsNegative() || c.SidewaysBandPct.GreaterThanOrEqual(one) {
		return fmt.Errorf("sideways_band_pct must be in [0, 1), got %s", c.SidewaysBandPct)
	}
	if !c.LotSize.IsPositive() {
		return fmt.Errorf("lot_size must be > 0, got %s", c.LotSize)
	}
	switch c.SidewaysAnchor {
	case AnchorEntry, AnchorScaleOut:
	default:
		return fmt.Errorf("sideways_anchor must be %q or %q, got %q",
			AnchorEntry, AnchorScaleOut, c.SidewaysAnchor)
	}
	return nil
}
