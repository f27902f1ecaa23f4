package dashboard

import (
	"fmt"

	"github.com/shopspring/decimal"

	"stockotter/internal/domain"
)

// PnL holds the book-level profit and loss split into realized (from sell
// events against each position's entry price) and unrealized (remaining
// quantity marked at the last close).
type PnL struct {
	Realized   decimal.Decimal
	Unrealized decimal.Decimal
}

// Total returns realized plus unrealized P&L.
func (p PnL) Total() decimal.Decimal {
	return p.Realized.Add(p.Unrealized)
}

// ComputePnL totals P&L across the book. Events for tickers without a
// position row are skipped; a ticker's events are matched against its
// current entry price, so a re-opened ticker should be judged from its
// event log directly.
func ComputePnL(positions []domain.Position, events []domain.PositionEvent) PnL {
	entry := make(map[string]decimal.Decimal, len(positions))
	for i := range positions {
		entry[positions[i].Ticker] = positions[i].EntryPrice
	}

	var pnl PnL
	for i := range events {
		e := &events[i]
		entryPrice, ok := entry[e.Ticker]
		if !ok {
			continue
		}
		pnl.Realized = pnl.Realized.Add(e.Price.Sub(entryPrice).Mul(e.Quantity))
	}

	for i := range positions {
		p := &positions[i]
		if p.QtyRemaining.IsZero() {
			continue
		}
		pnl.Unrealized = pnl.Unrealized.Add(p.LastClose.Sub(p.EntryPrice).Mul(p.QtyRemaining))
	}
	return pnl
}

// RenderPnL renders the book P&L as a one-line footer.
func RenderPnL(p PnL) string {
	return fmt.Sprintf("pnl realized=%s unrealized=%s total=%s\n",
		p.Realized.StringFixed(2), p.Unrealized.StringFixed(2), p.Total().StringFixed(2))
}
