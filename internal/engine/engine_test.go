package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stockotter/internal/domain"
	"stockotter/internal/paper"
	"stockotter/internal/store"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func testEngine(t *testing.T) *paper.Engine {
	t.Helper()
	eng, err := paper.New(paper.Config{
		TakeProfitPct:     d("0.15"),
		ScaleOutFraction:  d("0.5"),
		TrailDrawdownPct:  d("0.1"),
		SidewaysDaysLimit: 10,
		SidewaysBandPct:   d("0.02"),
		LotSize:           d("1"),
		SidewaysAnchor:    paper.AnchorScaleOut,
	})
	if err != nil {
		t.Fatalf("paper.New: %v", err)
	}
	return eng
}

func testStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedPosition(t *testing.T, s *store.SQLiteStore, ticker, entry string) {
	t.Helper()
	pos, err := domain.NewPosition(ticker, d(entry), d("100"),
		time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewPosition(%s): %v", ticker, err)
	}
	if err := s.CreatePosition(context.Background(), pos); err != nil {
		t.Fatalf("CreatePosition(%s): %v", ticker, err)
	}
}

// seedTrailing seeds a position already past its scale-out with half the
// quantity remaining.
func seedTrailing(t *testing.T, s *store.SQLiteStore, ticker, entry, highest string) {
	t.Helper()
	pos, err := domain.NewPosition(ticker, d(entry), d("100"),
		time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewPosition(%s): %v", ticker, err)
	}
	pos.State = domain.StatePartialExit
	pos.QtyRemaining = d("50")
	pos.Trailing = &domain.TrailingState{HighestClose: d(highest), ScaleOutClose: d(highest)}
	if err := s.CreatePosition(context.Background(), pos); err != nil {
		t.Fatalf("CreatePosition(%s): %v", ticker, err)
	}
}

var stepDay = time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)

func TestRunStepNoOp(t *testing.T) {
	s := testStore(t)
	seedPosition(t, s, "AAA", "1000")
	r := NewRunner(testEngine(t), s, nil)

	summary, err := r.RunStep(context.Background(),
		stepDay, map[string]decimal.Decimal{"AAA": d("1010")})
	if err != nil {
		t.Fatalf("RunStep: %v", err)
	}

	if summary.Open != 1 || summary.Stepped != 1 || summary.NoOps != 1 {
		t.Errorf("summary = open %d stepped %d noops %d, want 1/1/1",
			summary.Open, summary.Stepped, summary.NoOps)
	}
	if len(summary.Events) != 0 || summary.HasErrors() {
		t.Errorf("noop step produced events %v errors %v", summary.Events, summary.Errors)
	}

	// 1010 sits inside the entry band, so the sideways counter moved.
	pos, _ := s.GetPosition(context.Background(), "AAA")
	if pos.SidewaysDays != 1 {
		t.Errorf("sideways_days = %d, want 1", pos.SidewaysDays)
	}
	if !pos.LastClose.Equal(d("1010")) {
		t.Errorf("last_close = %s, want 1010", pos.LastClose)
	}
}

func TestRunStepConsecutiveDays(t *testing.T) {
	// Historical dates step one after another regardless of when the run
	// actually executes; only the as-of dates have to advance.
	s := testStore(t)
	seedPosition(t, s, "AAA", "1000")
	r := NewRunner(testEngine(t), s, nil)

	for i, px := range []string{"1010", "1015"} {
		asof := stepDay.AddDate(0, 0, i)
		summary, err := r.RunStep(context.Background(), asof,
			map[string]decimal.Decimal{"AAA": d(px)})
		if err != nil {
			t.Fatalf("RunStep(%s): %v", asof.Format("2006-01-02"), err)
		}
		if summary.HasErrors() {
			t.Fatalf("RunStep(%s) errors: %v", asof.Format("2006-01-02"), summary.Errors)
		}
		if summary.Stepped != 1 {
			t.Fatalf("RunStep(%s) stepped = %d, want 1", asof.Format("2006-01-02"), summary.Stepped)
		}
	}

	pos, _ := s.GetPosition(context.Background(), "AAA")
	if pos.SidewaysDays != 2 {
		t.Errorf("sideways_days = %d, want 2", pos.SidewaysDays)
	}
	if !pos.LastAsOf.Equal(stepDay.AddDate(0, 0, 1)) {
		t.Errorf("last as-of = %v, want %v", pos.LastAsOf, stepDay.AddDate(0, 0, 1))
	}
}

func TestRunStepMissingPriceLeavesPositionUntouched(t *testing.T) {
	s := testStore(t)
	seedPosition(t, s, "AAA", "1000")
	before, _ := s.GetPosition(context.Background(), "AAA")
	r := NewRunner(testEngine(t), s, nil)

	summary, err := r.RunStep(context.Background(), stepDay, nil)
	if err != nil {
		t.Fatalf("RunStep: %v", err)
	}

	if summary.Missing != 1 || summary.Stepped != 0 {
		t.Errorf("summary = missing %d stepped %d, want 1/0", summary.Missing, summary.Stepped)
	}
	if len(summary.Warnings) != 1 || summary.Warnings[0].Ticker != "AAA" {
		t.Errorf("warnings = %v", summary.Warnings)
	}
	if summary.HasErrors() {
		t.Errorf("missing price must not be an error: %v", summary.Errors)
	}

	after, _ := s.GetPosition(context.Background(), "AAA")
	if !after.UpdatedAt.Equal(before.UpdatedAt) || !after.LastClose.Equal(before.LastClose) {
		t.Errorf("untouched position changed: %+v", after)
	}
}

func TestRunStepAggregatesEvents(t *testing.T) {
	s := testStore(t)
	seedPosition(t, s, "AAA", "1000")       // will hit take-profit at 1150
	seedTrailing(t, s, "BBB", "500", "600") // stop at 540
	seedPosition(t, s, "CCC", "2000")       // drifts, no event
	r := NewRunner(testEngine(t), s, nil)

	summary, err := r.RunStep(context.Background(), stepDay, map[string]decimal.Decimal{
		"AAA": d("1200"),
		"BBB": d("535"),
		"CCC": d("2100"),
	})
	if err != nil {
		t.Fatalf("RunStep: %v", err)
	}

	if summary.Stepped != 3 || summary.NoOps != 1 {
		t.Errorf("summary = stepped %d noops %d, want 3/1", summary.Stepped, summary.NoOps)
	}
	if summary.TakeProfits != 1 || summary.StopExits != 1 || summary.TimeDecays != 0 {
		t.Errorf("summary counts = tp %d stop %d decay %d, want 1/1/0",
			summary.TakeProfits, summary.StopExits, summary.TimeDecays)
	}
	if len(summary.Events) != 2 {
		t.Fatalf("got %d events, want 2", len(summary.Events))
	}

	bbb, _ := s.GetPosition(context.Background(), "BBB")
	if bbb.State != domain.StateExited {
		t.Errorf("BBB state = %s, want EXITED", bbb.State)
	}
	open, _ := s.ListOpenPositions(context.Background())
	if len(open) != 2 {
		t.Errorf("got %d open positions after step, want 2", len(open))
	}
}

func TestRunStepCollectsPerTickerErrors(t *testing.T) {
	s := testStore(t)
	seedPosition(t, s, "AAA", "1000")
	// BBB entered on the step date itself, so its last as-of date already
	// sits there and stepping the same date is rejected.
	pos, err := domain.NewPosition("BBB", d("500"), d("10"), stepDay,
		stepDay.Add(7*time.Hour))
	if err != nil {
		t.Fatalf("NewPosition: %v", err)
	}
	if err := s.CreatePosition(context.Background(), pos); err != nil {
		t.Fatalf("CreatePosition: %v", err)
	}
	r := NewRunner(testEngine(t), s, nil)

	summary, err := r.RunStep(context.Background(), stepDay, map[string]decimal.Decimal{
		"AAA": d("1050"),
		"BBB": d("510"),
	})
	if err != nil {
		t.Fatalf("RunStep: %v", err)
	}

	if !summary.HasErrors() || len(summary.Errors) != 1 {
		t.Fatalf("errors = %v, want exactly one", summary.Errors)
	}
	if summary.Errors[0].Ticker != "BBB" {
		t.Errorf("failed ticker = %s, want BBB", summary.Errors[0].Ticker)
	}
	var nonMonotonic *paper.NonMonotonicDateError
	if !errors.As(summary.Errors[0], &nonMonotonic) {
		t.Errorf("error type = %T, want NonMonotonicDateError", summary.Errors[0].Err)
	}
	if !IsRejectedStep(summary.Errors[0]) {
		t.Error("IsRejectedStep = false for a rejected date")
	}

	// The healthy ticker still stepped.
	if summary.Stepped != 1 {
		t.Errorf("stepped = %d, want 1", summary.Stepped)
	}
	bbb, _ := s.GetPosition(context.Background(), "BBB")
	if !bbb.LastClose.Equal(d("500")) {
		t.Errorf("rejected position changed: last_close = %s", bbb.LastClose)
	}
}
