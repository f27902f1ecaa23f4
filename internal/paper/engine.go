// Package paper implements the position lifecycle engine: a pure function
// of (position, daily close, as-of date, config) that advances a paper
// position through its scripted exit strategy and emits at most one
// lifecycle event per step.
package paper

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"stockotter/internal/domain"
)

var one = decimal.NewFromInt(1)

// InvalidTransitionError is returned when the engine is asked to step a
// position that is already terminal. Callers are expected to filter EXITED
// positions out before stepping.
type InvalidTransitionError struct {
	Ticker string
	State  domain.PositionState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: position %s is %s", e.Ticker, e.State)
}

// NonMonotonicDateError is returned when the as-of date does not advance
// past the position's last stepped as-of date. Duplicate dates are rejected
// rather than silently reprocessed.
type NonMonotonicDateError struct {
	Ticker      string
	AsOf        time.Time
	LastStepped time.Time
}

func (e *NonMonotonicDateError) Error() string {
	return fmt.Sprintf("non-monotonic as-of date for %s: %s does not advance past %s",
		e.Ticker, e.AsOf.Format("2006-01-02"), e.LastStepped.Format("2006-01-02"))
}

// Engine applies the transition rules to one position at a time. It holds
// no mutable state; Step never touches storage.
type Engine struct {
	cfg Config
	now func() time.Time
}

// New creates an Engine after validating the configuration.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("paper engine config: %w", err)
	}
	return &Engine{cfg: cfg, now: time.Now}, nil
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config { return e.cfg }

// Step advances pos by one trading day. The rules are evaluated in priority
// order and the first match wins, so a single step emits at most one event:
//
//  1. trailing stop (PARTIAL_EXIT only)
//  2. take-profit scale-out (ENTERED only)
//  3. silent high-water update (PARTIAL_EXIT, no event)
//  4. sideways accounting, possibly ending in a time-decay exit
//
// The as-of date must advance strictly past the position's last stepped
// as-of date; the wall clock plays no part, so historical dates can be
// replayed in order long after the fact.
//
// The input position is never mutated; the returned position always has
// last_close, last_asof and updated_at refreshed, even when no event fires.
func (e *Engine) Step(pos *domain.Position, close decimal.Decimal, asof time.Time) (*domain.Position, []domain.PositionEvent, error) {
	if pos.State == domain.StateExited {
		return nil, nil, &InvalidTransitionError{Ticker: pos.Ticker, State: pos.State}
	}
	if !close.IsPositive() {
		return nil, nil, fmt.Errorf("close must be > 0 for %s, got %s", pos.Ticker, close)
	}
	asofDate := domain.DateOf(asof)
	if !asofDate.After(pos.LastAsOf) {
		return nil, nil, &NonMonotonicDateError{Ticker: pos.Ticker, AsOf: asofDate, LastStepped: pos.LastAsOf}
	}

	next := pos.Clone()
	next.LastClose = close
	next.LastAsOf = asofDate
	next.UpdatedAt = e.now().UTC()

	// Rule 1: trailing stop.
	if next.State == domain.StatePartialExit {
		stop := next.Trailing.HighestClose.Mul(one.Sub(e.cfg.TrailDrawdownPct))
		if close.LessThanOrEqual(stop) {
			note := fmt.Sprintf("highest=%s stop=%s", next.Trailing.HighestClose, stop)
			ev := e.exitAll(next, close, asofDate, domain.EventStopExit, note)
			return next, []domain.PositionEvent{ev}, nil
		}
	}

	// Rule 2: take-profit scale-out.
	if next.State == domain.StateEntered {
		target := next.EntryPrice.Mul(one.Add(e.cfg.TakeProfitPct))
		if close.GreaterThanOrEqual(target) {
			qtySell := floorToLot(next.QtyTotal.Mul(e.cfg.ScaleOutFraction), e.cfg.LotSize)
			note := fmt.Sprintf("entry=%s target=%s", next.EntryPrice, target)
			if qtySell.GreaterThanOrEqual(next.QtyRemaining) {
				// The scale-out would empty the position: full exit, still
				// attributed to the take-profit trigger.
				ev := e.exitAll(next, close, asofDate, domain.EventTakeProfit, note+" full_exit")
				return next, []domain.PositionEvent{ev}, nil
			}
			stateBefore := next.State
			next.QtyRemaining = next.QtyRemaining.Sub(qtySell)
			next.State = domain.StatePartialExit
			next.Trailing = &domain.TrailingState{HighestClose: close, ScaleOutClose: close}
			next.SidewaysDays = 0
			ev := domain.PositionEvent{
				Ticker:      next.Ticker,
				EventDate:   asofDate,
				Type:        domain.EventTakeProfit,
				Price:       close,
				Quantity:    qtySell,
				StateBefore: stateBefore,
				StateAfter:  next.State,
				Note:        note,
				CreatedAt:   next.UpdatedAt,
			}
			return next, []domain.PositionEvent{ev}, nil
		}
	}

	// Rule 3: silent high-water update. Not an event, and the sideways
	// accounting below still runs for the day.
	if next.State == domain.StatePartialExit && close.GreaterThan(next.Trailing.HighestClose) {
		next.Trailing.HighestClose = close
	}

	// Rule 4: sideways accounting. In-band days advance the counter; a day
	// outside the band is neutral (no increment, no reset).
	anchor := e.sidewaysAnchor(next)
	band := anchor.Mul(e.cfg.SidewaysBandPct)
	lower, upper := anchor.Sub(band), anchor.Add(band)
	if close.GreaterThanOrEqual(lower) && close.LessThanOrEqual(upper) {
		next.SidewaysDays++
		if next.SidewaysDays >= e.cfg.SidewaysDaysLimit {
			note := fmt.Sprintf("range=[%s, %s] days=%d", lower, upper, next.SidewaysDays)
			ev := e.exitAll(next, close, asofDate, domain.EventTimeDecayExit, note)
			return next, []domain.PositionEvent{ev}, nil
		}
	}

	return next, nil, nil
}

// exitAll sells the full remaining quantity and moves the position to its
// terminal state.
func (e *Engine) exitAll(pos *domain.Position, close decimal.Decimal, asofDate time.Time, kind domain.EventType, note string) domain.PositionEvent {
	qty := pos.QtyRemaining
	stateBefore := pos.State

	pos.State = domain.StateExited
	pos.QtyRemaining = decimal.Zero
	pos.Trailing = nil
	pos.Exit = &domain.ExitState{Price: close, Date: asofDate}
	pos.SidewaysDays = 0

	return domain.PositionEvent{
		Ticker:      pos.Ticker,
		EventDate:   asofDate,
		Type:        kind,
		Price:       close,
		Quantity:    qty,
		StateBefore: stateBefore,
		StateAfter:  domain.StateExited,
		Note:        note,
		CreatedAt:   pos.UpdatedAt,
	}
}

// sidewaysAnchor returns the band reference price for the position's state.
func (e *Engine) sidewaysAnchor(pos *domain.Position) decimal.Decimal {
	if pos.State == domain.StatePartialExit && e.cfg.SidewaysAnchor == AnchorScaleOut {
		return pos.Trailing.ScaleOutClose
	}
	return pos.EntryPrice
}

// floorToLot rounds qty down to a multiple of lot. Residual dust stays with
// the position.
func floorToLot(qty, lot decimal.Decimal) decimal.Decimal {
	return qty.Div(lot).Floor().Mul(lot)
}
