package dashboard

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"stockotter/internal/domain"
	"stockotter/internal/engine"
)

// RenderPositions renders positions as an aligned text table. Gain is the
// fractional move of the last close against the entry price.
func RenderPositions(positions []domain.Position) string {
	rows := [][]string{
		{"TICKER", "STATE", "ENTRY", "LAST", "GAIN", "QTY", "SIDEWAYS", "ENTERED"},
	}
	for i := range positions {
		p := &positions[i]
		gain := decimal.Zero
		if p.EntryPrice.IsPositive() {
			gain = p.LastClose.Sub(p.EntryPrice).Div(p.EntryPrice)
		}
		last := p.LastClose
		if p.Exit != nil {
			last = p.Exit.Price
		}
		rows = append(rows, []string{
			p.Ticker,
			string(p.State),
			FormatPrice(p.EntryPrice),
			FormatPrice(last),
			FormatGain(gain),
			FormatQty(p.QtyRemaining),
			fmt.Sprintf("%d", p.SidewaysDays),
			p.EntryDate.Format("2006-01-02"),
		})
	}
	return renderTable(rows)
}

// RenderEvents renders lifecycle events as an aligned text table, oldest
// first.
func RenderEvents(events []domain.PositionEvent) string {
	rows := [][]string{
		{"DATE", "TICKER", "EVENT", "PRICE", "QTY", "TRANSITION", "NOTE"},
	}
	for i := range events {
		e := &events[i]
		rows = append(rows, []string{
			e.EventDate.Format("2006-01-02"),
			e.Ticker,
			string(e.Type),
			FormatPrice(e.Price),
			FormatQty(e.Quantity),
			fmt.Sprintf("%s->%s", e.StateBefore, e.StateAfter),
			e.Note,
		})
	}
	return renderTable(rows)
}

// SummaryLine renders the one-line machine-readable step result.
func SummaryLine(s *engine.Summary) string {
	return fmt.Sprintf(
		"asof=%s open=%d stepped=%d take_profit=%d stop_exit=%d time_decay_exit=%d noops=%d missing=%d errors=%d",
		s.AsOf.Format("2006-01-02"),
		s.Open, s.Stepped, s.TakeProfits, s.StopExits, s.TimeDecays,
		s.NoOps, s.Missing, len(s.Errors),
	)
}

func renderTable(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(cell)
			// Last column stays ragged.
			if i < len(row)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-len(cell)))
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
