// Package store defines storage interfaces for persisting and retrieving
// paper positions, lifecycle events, and daily closing prices.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"stockotter/internal/domain"
)

// PositionStore persists the one-row-per-ticker position table. Exited rows
// are retained for history and excluded from ListOpenPositions.
type PositionStore interface {
	// CreatePosition inserts a fresh position. It fails if the ticker
	// already has a live (non-EXITED) row; an exited row is replaced.
	CreatePosition(ctx context.Context, pos *domain.Position) error

	// GetPosition retrieves the current position for a ticker, or nil if
	// the ticker has no row.
	GetPosition(ctx context.Context, ticker string) (*domain.Position, error)

	// ListPositions returns every position row, open and exited.
	ListPositions(ctx context.Context) ([]domain.Position, error)

	// ListOpenPositions returns all non-EXITED positions, ordered by ticker.
	ListOpenPositions(ctx context.Context) ([]domain.Position, error)

	// ApplyStep persists the outcome of one engine step: the position
	// update and the event-log appends commit together or not at all.
	ApplyStep(ctx context.Context, pos *domain.Position, events []domain.PositionEvent) error
}

// EventStore reads the append-only lifecycle event log. Events are never
// updated or deleted.
type EventStore interface {
	// ListEvents returns events ordered by event date then insertion order.
	// An empty ticker selects all tickers; limit <= 0 means no limit.
	ListEvents(ctx context.Context, ticker string, limit int) ([]domain.PositionEvent, error)
}

// CloseStore persists daily closing prices.
type CloseStore interface {
	// WriteCloses persists a batch of daily closes, merging with any
	// already-stored observations.
	WriteCloses(ctx context.Context, closes []domain.DailyClose) error

	// ClosesForDate returns the close for each requested ticker on the
	// given date. Tickers with no observation for that date are absent
	// from the result.
	ClosesForDate(ctx context.Context, tickers []string, date time.Time) (map[string]decimal.Decimal, error)

	// ListTickers returns all tickers with stored closes.
	ListTickers(ctx context.Context) ([]string, error)
}
