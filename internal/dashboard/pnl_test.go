package dashboard

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stockotter/internal/domain"
)

func TestComputePnL(t *testing.T) {
	entered, err := domain.NewPosition("AAA", d("100"), d("100"),
		time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), time.Now())
	if err != nil {
		t.Fatalf("NewPosition: %v", err)
	}
	entered.LastClose = d("110")

	trailing, err := domain.NewPosition("BBB", d("1000"), d("100"),
		time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), time.Now())
	if err != nil {
		t.Fatalf("NewPosition: %v", err)
	}
	trailing.State = domain.StatePartialExit
	trailing.QtyRemaining = d("50")
	trailing.LastClose = d("1200")
	trailing.Trailing = &domain.TrailingState{HighestClose: d("1200"), ScaleOutClose: d("1150")}

	events := []domain.PositionEvent{
		// BBB sold 50 at 1150 against entry 1000: realized 7500.
		{Ticker: "BBB", Type: domain.EventTakeProfit, Price: d("1150"), Quantity: d("50")},
		// Event for a ticker with no position row is skipped.
		{Ticker: "GONE", Type: domain.EventStopExit, Price: d("5"), Quantity: d("10")},
	}

	pnl := ComputePnL([]domain.Position{*entered, *trailing}, events)

	if !pnl.Realized.Equal(d("7500")) {
		t.Errorf("Realized = %s, want 7500", pnl.Realized)
	}
	// AAA: (110-100)*100 = 1000; BBB: (1200-1000)*50 = 10000.
	if !pnl.Unrealized.Equal(d("11000")) {
		t.Errorf("Unrealized = %s, want 11000", pnl.Unrealized)
	}
	if !pnl.Total().Equal(d("18500")) {
		t.Errorf("Total = %s, want 18500", pnl.Total())
	}
}

func TestRenderPnL(t *testing.T) {
	out := RenderPnL(PnL{Realized: d("7500"), Unrealized: decimal.Zero})
	want := "pnl realized=7500.00 unrealized=0.00 total=7500.00\n"
	if out != want {
		t.Errorf("RenderPnL = %q, want %q", out, want)
	}
}
