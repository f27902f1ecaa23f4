package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestNewPosition(t *testing.T) {
	entry := time.Date(2025, 6, 2, 15, 30, 0, 0, time.UTC)
	now := time.Date(2025, 6, 2, 16, 0, 0, 0, time.UTC)

	pos, err := NewPosition("005930", d("1000"), d("100"), entry, now)
	if err != nil {
		t.Fatalf("NewPosition: %v", err)
	}
	if pos.State != StateEntered {
		t.Errorf("State = %s, want %s", pos.State, StateEntered)
	}
	if !pos.QtyRemaining.Equal(pos.QtyTotal) {
		t.Errorf("QtyRemaining = %s, want %s", pos.QtyRemaining, pos.QtyTotal)
	}
	if !pos.LastClose.Equal(d("1000")) {
		t.Errorf("LastClose = %s, want 1000", pos.LastClose)
	}
	if pos.SidewaysDays != 0 {
		t.Errorf("SidewaysDays = %d, want 0", pos.SidewaysDays)
	}
	// Entry date is truncated to a calendar date.
	want := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	if !pos.EntryDate.Equal(want) {
		t.Errorf("EntryDate = %v, want %v", pos.EntryDate, want)
	}
	if err := pos.Validate(); err != nil {
		t.Errorf("Validate on fresh position: %v", err)
	}
}

func TestNewPositionRejectsBadInputs(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name   string
		ticker string
		price  decimal.Decimal
		qty    decimal.Decimal
	}{
		{"empty ticker", "", d("10"), d("1")},
		{"zero price", "AAA", d("0"), d("1")},
		{"negative price", "AAA", d("-5"), d("1")},
		{"zero qty", "AAA", d("10"), d("0")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewPosition(tc.ticker, tc.price, tc.qty, now, now); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestValidateStatePayloads(t *testing.T) {
	now := time.Now()
	base := func() *Position {
		pos, err := NewPosition("AAA", d("1000"), d("100"), now, now)
		if err != nil {
			t.Fatalf("NewPosition: %v", err)
		}
		return pos
	}

	// ENTERED with trailing payload is invalid.
	pos := base()
	pos.Trailing = &TrailingState{HighestClose: d("1100"), ScaleOutClose: d("1100")}
	if err := pos.Validate(); err == nil {
		t.Error("ENTERED with trailing payload should fail validation")
	}

	// PARTIAL_EXIT without trailing payload is invalid.
	pos = base()
	pos.State = StatePartialExit
	pos.QtyRemaining = d("50")
	if err := pos.Validate(); err == nil {
		t.Error("PARTIAL_EXIT without trailing payload should fail validation")
	}

	// PARTIAL_EXIT with high-water mark below the scale-out close is invalid.
	pos = base()
	pos.State = StatePartialExit
	pos.QtyRemaining = d("50")
	pos.Trailing = &TrailingState{HighestClose: d("1100"), ScaleOutClose: d("1150")}
	if err := pos.Validate(); err == nil {
		t.Error("high-water mark below scale-out close should fail validation")
	}

	// EXITED requires zero remaining and an exit payload.
	pos = base()
	pos.State = StateExited
	pos.QtyRemaining = d("0")
	if err := pos.Validate(); err == nil {
		t.Error("EXITED without exit payload should fail validation")
	}
	pos.Exit = &ExitState{Price: d("900"), Date: now}
	if err := pos.Validate(); err != nil {
		t.Errorf("valid EXITED position: %v", err)
	}

	// Non-zero remaining with EXITED is invalid.
	pos.QtyRemaining = d("10")
	if err := pos.Validate(); err == nil {
		t.Error("EXITED with qty_remaining > 0 should fail validation")
	}

	// qty_remaining above qty_total is invalid in any state.
	pos = base()
	pos.QtyRemaining = d("150")
	if err := pos.Validate(); err == nil {
		t.Error("qty_remaining > qty_total should fail validation")
	}
}

func TestCloneIsDeep(t *testing.T) {
	now := time.Now()
	pos, err := NewPosition("AAA", d("1000"), d("100"), now, now)
	if err != nil {
		t.Fatalf("NewPosition: %v", err)
	}
	pos.State = StatePartialExit
	pos.QtyRemaining = d("50")
	pos.Trailing = &TrailingState{HighestClose: d("1200"), ScaleOutClose: d("1150")}

	cp := pos.Clone()
	cp.Trailing.HighestClose = d("1300")
	if !pos.Trailing.HighestClose.Equal(d("1200")) {
		t.Errorf("mutating clone changed original: %s", pos.Trailing.HighestClose)
	}
}

func TestDateHelpers(t *testing.T) {
	loc := time.FixedZone("KST", 9*3600)
	a := time.Date(2025, 6, 3, 1, 0, 0, 0, loc) // 2025-06-02 16:00 UTC
	b := time.Date(2025, 6, 2, 23, 0, 0, 0, time.UTC)
	if !SameDate(a, b) {
		t.Errorf("SameDate(%v, %v) = false, want true", a, b)
	}
	if got := DateOf(a); got.Hour() != 0 || got.Day() != 2 {
		t.Errorf("DateOf(%v) = %v", a, got)
	}
}
