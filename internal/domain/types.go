// Package domain defines the core types shared across the stockotter
// paper-trading system: positions, lifecycle events, and daily closes.
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PositionState is the lifecycle state of a paper position.
type PositionState string

const (
	// StateEntered is the initial state after an open action.
	StateEntered PositionState = "ENTERED"
	// StatePartialExit means the take-profit scale-out has fired and the
	// trailing stop is armed.
	StatePartialExit PositionState = "PARTIAL_EXIT"
	// StateExited is terminal. The row is kept for history but excluded
	// from active stepping.
	StateExited PositionState = "EXITED"
)

// EventType identifies which transition rule produced a PositionEvent.
type EventType string

const (
	EventTakeProfit    EventType = "TAKE_PROFIT"
	EventStopExit      EventType = "STOP_EXIT"
	EventTimeDecayExit EventType = "TIME_DECAY_EXIT"
)

// TrailingState carries the fields that only exist while a position is in
// PARTIAL_EXIT: the high-water mark since the scale-out and the close at
// which the scale-out fired (the sideways band anchor).
type TrailingState struct {
	HighestClose  decimal.Decimal
	ScaleOutClose decimal.Decimal
}

// ExitState carries the fields that only exist once a position is EXITED.
type ExitState struct {
	Price decimal.Decimal
	Date  time.Time
}

// Position is one live paper position per ticker. Entry fields are immutable
// after creation; the position is mutated exclusively by the lifecycle
// engine, once per as-of date, and becomes immutable once EXITED.
//
// Trailing is set if and only if State == PARTIAL_EXIT; Exit is set if and
// only if State == EXITED. The flat nullable-column layout exists only in
// the persistence layer.
type Position struct {
	Ticker       string
	State        PositionState
	EntryPrice   decimal.Decimal
	EntryDate    time.Time
	QtyTotal     decimal.Decimal
	QtyRemaining decimal.Decimal
	LastClose    decimal.Decimal
	LastAsOf     time.Time
	UpdatedAt    time.Time
	SidewaysDays int

	Trailing *TrailingState
	Exit     *ExitState
}

// NewPosition creates an ENTERED position with the full quantity remaining.
// The last close starts at the entry price, the last as-of date at the entry
// date, and the sideways counter at zero.
func NewPosition(ticker string, entryPrice, qtyTotal decimal.Decimal, entryDate time.Time, now time.Time) (*Position, error) {
	if ticker == "" {
		return nil, fmt.Errorf("ticker must not be empty")
	}
	if !entryPrice.IsPositive() {
		return nil, fmt.Errorf("entry price must be > 0, got %s", entryPrice)
	}
	if !qtyTotal.IsPositive() {
		return nil, fmt.Errorf("qty total must be > 0, got %s", qtyTotal)
	}
	return &Position{
		Ticker:       ticker,
		State:        StateEntered,
		EntryPrice:   entryPrice,
		EntryDate:    DateOf(entryDate),
		QtyTotal:     qtyTotal,
		QtyRemaining: qtyTotal,
		LastClose:    entryPrice,
		LastAsOf:     DateOf(entryDate),
		UpdatedAt:    now.UTC(),
	}, nil
}

// Validate checks the structural invariants that must hold for every
// position at every point in time.
func (p *Position) Validate() error {
	switch p.State {
	case StateEntered, StatePartialExit, StateExited:
	default:
		return fmt.Errorf("position %s: unknown state %q", p.Ticker, p.State)
	}
	if p.QtyRemaining.IsNegative() || p.QtyRemaining.GreaterThan(p.QtyTotal) {
		return fmt.Errorf("position %s: qty_remaining %s outside [0, %s]",
			p.Ticker, p.QtyRemaining, p.QtyTotal)
	}
	if (p.State == StateExited) != p.QtyRemaining.IsZero() {
		return fmt.Errorf("position %s: state %s inconsistent with qty_remaining %s",
			p.Ticker, p.State, p.QtyRemaining)
	}
	if (p.State == StatePartialExit) != (p.Trailing != nil) {
		return fmt.Errorf("position %s: trailing payload inconsistent with state %s",
			p.Ticker, p.State)
	}
	if (p.State == StateExited) != (p.Exit != nil) {
		return fmt.Errorf("position %s: exit payload inconsistent with state %s",
			p.Ticker, p.State)
	}
	if p.Trailing != nil && p.Trailing.HighestClose.LessThan(p.Trailing.ScaleOutClose) {
		return fmt.Errorf("position %s: highest close %s below scale-out close %s",
			p.Ticker, p.Trailing.HighestClose, p.Trailing.ScaleOutClose)
	}
	if p.LastAsOf.Before(p.EntryDate) {
		return fmt.Errorf("position %s: last_asof %s before entry_date %s",
			p.Ticker, p.LastAsOf.Format("2006-01-02"), p.EntryDate.Format("2006-01-02"))
	}
	if p.SidewaysDays < 0 {
		return fmt.Errorf("position %s: negative sideways_days %d", p.Ticker, p.SidewaysDays)
	}
	return nil
}

// Open reports whether the position is still actively stepped.
func (p *Position) Open() bool {
	return p.State != StateExited
}

// Clone returns a deep copy. The engine steps a copy so that a failed
// persist leaves the caller's position untouched.
func (p *Position) Clone() *Position {
	cp := *p
	if p.Trailing != nil {
		t := *p.Trailing
		cp.Trailing = &t
	}
	if p.Exit != nil {
		e := *p.Exit
		cp.Exit = &e
	}
	return &cp
}

// PositionEvent is one append-only row in the lifecycle event log. It is
// immutable once written; StateBefore/StateAfter must match the position's
// state around the step that produced it. Quantity is signed, positive for
// a sell.
type PositionEvent struct {
	Ticker      string
	EventDate   time.Time
	Type        EventType
	Price       decimal.Decimal
	Quantity    decimal.Decimal
	StateBefore PositionState
	StateAfter  PositionState
	Note        string
	CreatedAt   time.Time
}

// DailyClose is a single closing price observation for a ticker.
type DailyClose struct {
	Ticker string
	Date   time.Time
	Close  decimal.Decimal
}

// DateOf truncates t to a calendar date in UTC. Date-valued fields
// (entry_date, event_date, as-of dates) are always stored this way.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDate reports whether a and b fall on the same UTC calendar date.
func SameDate(a, b time.Time) bool {
	return DateOf(a).Equal(DateOf(b))
}
