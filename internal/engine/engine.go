// Package engine coordinates one daily step of the paper portfolio: it
// loads open positions, applies the closing-price rules to each, and
// persists every outcome through the position store.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"stockotter/internal/domain"
	"stockotter/internal/paper"
	"stockotter/internal/store"
)

// Runner steps every open position for a trading day. Positions are
// processed independently: one ticker failing never blocks the rest.
type Runner struct {
	engine    *paper.Engine
	positions store.PositionStore
	logger    *slog.Logger
}

// NewRunner creates a Runner wired with the given rule engine and store.
func NewRunner(engine *paper.Engine, positions store.PositionStore, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		engine:    engine,
		positions: positions,
		logger:    logger,
	}
}

// Summary aggregates the outcome of one portfolio step.
type Summary struct {
	AsOf time.Time

	Open        int // open positions at the start of the step
	Stepped     int // positions that consumed a close
	NoOps       int // stepped positions with no transition
	Missing     int // open positions with no close for the date
	TakeProfits int
	StopExits   int
	TimeDecays  int

	Events   []domain.PositionEvent
	Warnings []MissingPriceWarning
	Errors   []StepError
}

// HasErrors reports whether any position failed to step. Missing prices
// are warnings, not errors.
func (s *Summary) HasErrors() bool {
	return len(s.Errors) > 0
}

// MissingPriceWarning records an open position that was left untouched
// because the price feed had no close for it on the step date.
type MissingPriceWarning struct {
	Ticker string
	AsOf   time.Time
}

func (w MissingPriceWarning) String() string {
	return fmt.Sprintf("no close for %s on %s", w.Ticker, w.AsOf.Format("2006-01-02"))
}

// StepError records a position whose step failed. The stored position is
// unchanged.
type StepError struct {
	Ticker string
	Err    error
}

func (e StepError) Error() string {
	return fmt.Sprintf("stepping %s: %v", e.Ticker, e.Err)
}

func (e StepError) Unwrap() error {
	return e.Err
}

// RunStep advances every open position using the closes for asof. A ticker
// absent from prices produces a warning and its position is left exactly as
// it was. Rule or persistence failures are collected per ticker; the run
// keeps going.
func (r *Runner) RunStep(ctx context.Context, asof time.Time, prices map[string]decimal.Decimal) (*Summary, error) {
	open, err := r.positions.ListOpenPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing open positions: %w", err)
	}

	summary := &Summary{AsOf: domain.DateOf(asof), Open: len(open)}

	for i := range open {
		pos := &open[i]

		px, ok := prices[pos.Ticker]
		if !ok {
			w := MissingPriceWarning{Ticker: pos.Ticker, AsOf: summary.AsOf}
			summary.Warnings = append(summary.Warnings, w)
			summary.Missing++
			r.logger.Warn("missing close, position untouched",
				"ticker", pos.Ticker, "asof", summary.AsOf.Format("2006-01-02"))
			continue
		}

		stepped, events, err := r.engine.Step(pos, px, asof)
		if err != nil {
			summary.Errors = append(summary.Errors, StepError{Ticker: pos.Ticker, Err: err})
			r.logger.Error("step failed", "ticker", pos.Ticker, "error", err)
			continue
		}

		if err := r.positions.ApplyStep(ctx, stepped, events); err != nil {
			summary.Errors = append(summary.Errors, StepError{Ticker: pos.Ticker, Err: err})
			r.logger.Error("persisting step failed", "ticker", pos.Ticker, "error", err)
			continue
		}

		summary.Stepped++
		if len(events) == 0 {
			summary.NoOps++
		}
		for _, ev := range events {
			summary.Events = append(summary.Events, ev)
			switch ev.Type {
			case domain.EventTakeProfit:
				summary.TakeProfits++
			case domain.EventStopExit:
				summary.StopExits++
			case domain.EventTimeDecayExit:
				summary.TimeDecays++
			}
			r.logger.Info("position event",
				"ticker", ev.Ticker,
				"type", string(ev.Type),
				"price", ev.Price.String(),
				"quantity", ev.Quantity.String(),
				"state", fmt.Sprintf("%s->%s", ev.StateBefore, ev.StateAfter))
		}
	}

	return summary, nil
}

// IsRejectedStep reports whether err is a per-ticker rule rejection (a
// transition from EXITED or an out-of-order date) rather than an
// infrastructure failure.
func IsRejectedStep(err error) bool {
	var invalid *paper.InvalidTransitionError
	var nonMonotonic *paper.NonMonotonicDateError
	return errors.As(err, &invalid) || errors.As(err, &nonMonotonic)
}
