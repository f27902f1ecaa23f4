package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"stockotter/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ PositionStore = (*SQLiteStore)(nil)
var _ EventStore = (*SQLiteStore)(nil)

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339Nano
)

// SQLiteStore implements PositionStore and EventStore backed by a SQLite
// database. Money and quantity columns are stored as exact decimal text,
// never as floating point.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, creates
// the schema if needed, and returns a ready-to-use store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Single writer; the orchestrator serializes per-ticker transactions.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) init() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS paper_positions (
			ticker                 TEXT PRIMARY KEY,
			state                  TEXT NOT NULL,
			entry_price            TEXT NOT NULL,
			entry_date             TEXT NOT NULL,
			qty_total              TEXT NOT NULL,
			qty_remaining          TEXT NOT NULL,
			last_close             TEXT NOT NULL,
			last_asof              TEXT NOT NULL,
			updated_at             TEXT NOT NULL,
			highest_close_since_tp TEXT,
			scale_out_close        TEXT,
			exit_price             TEXT,
			exit_date              TEXT,
			sideways_days          INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS paper_events (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			ticker       TEXT NOT NULL,
			event_date   TEXT NOT NULL,
			event_type   TEXT NOT NULL,
			price        TEXT NOT NULL,
			quantity     TEXT NOT NULL,
			state_before TEXT NOT NULL,
			state_after  TEXT NOT NULL,
			note         TEXT NOT NULL DEFAULT '',
			created_at   TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_paper_events_ticker
			ON paper_events(ticker, event_date);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// PositionStore implementation
// ---------------------------------------------------------------------------

// CreatePosition inserts a fresh position, replacing a previous exited row
// for the same ticker. A live row is never overwritten.
func (s *SQLiteStore) CreatePosition(ctx context.Context, pos *domain.Position) error {
	if err := pos.Validate(); err != nil {
		return err
	}

	var state string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM paper_positions WHERE ticker = ?`, pos.Ticker).Scan(&state)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return fmt.Errorf("checking existing position for %s: %w", pos.Ticker, err)
	case state != string(domain.StateExited):
		return fmt.Errorf("position for %s already open (state %s)", pos.Ticker, state)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO paper_positions (
			ticker, state, entry_price, entry_date, qty_total, qty_remaining,
			last_close, last_asof, updated_at, highest_close_since_tp,
			scale_out_close, exit_price, exit_date, sideways_days
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		positionArgs(pos)...)
	if err != nil {
		return fmt.Errorf("inserting position for %s: %w", pos.Ticker, err)
	}
	return nil
}

// GetPosition retrieves the current position for a ticker, or nil if absent.
func (s *SQLiteStore) GetPosition(ctx context.Context, ticker string) (*domain.Position, error) {
	row := s.db.QueryRowContext(ctx, selectPositionSQL+` WHERE ticker = ?`, ticker)
	pos, err := scanPosition(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading position for %s: %w", ticker, err)
	}
	return pos, nil
}

// ListPositions returns every position row ordered by ticker.
func (s *SQLiteStore) ListPositions(ctx context.Context) ([]domain.Position, error) {
	return s.listPositions(ctx, selectPositionSQL+` ORDER BY ticker ASC`)
}

// ListOpenPositions returns all non-EXITED positions ordered by ticker.
func (s *SQLiteStore) ListOpenPositions(ctx context.Context) ([]domain.Position, error) {
	return s.listPositions(ctx,
		selectPositionSQL+` WHERE state != ? ORDER BY ticker ASC`,
		string(domain.StateExited))
}

func (s *SQLiteStore) listPositions(ctx context.Context, query string, args ...any) ([]domain.Position, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning position: %w", err)
		}
		positions = append(positions, *pos)
	}
	return positions, rows.Err()
}

// ApplyStep writes the stepped position and appends its events in a single
// transaction scoped to the ticker.
func (s *SQLiteStore) ApplyStep(ctx context.Context, pos *domain.Position, events []domain.PositionEvent) error {
	if err := pos.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin step transaction for %s: %w", pos.Ticker, err)
	}
	defer tx.Rollback()

	args := positionArgs(pos)
	res, err := tx.ExecContext(ctx, `
		UPDATE paper_positions SET
			state = ?2, entry_price = ?3, entry_date = ?4, qty_total = ?5,
			qty_remaining = ?6, last_close = ?7, last_asof = ?8,
			updated_at = ?9, highest_close_since_tp = ?10,
			scale_out_close = ?11, exit_price = ?12, exit_date = ?13,
			sideways_days = ?14
		WHERE ticker = ?1`,
		args...)
	if err != nil {
		return fmt.Errorf("updating position for %s: %w", pos.Ticker, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating position for %s: %w", pos.Ticker, err)
	}
	if n != 1 {
		return fmt.Errorf("updating position for %s: no row to update", pos.Ticker)
	}

	for _, ev := range events {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO paper_events (
				ticker, event_date, event_type, price, quantity,
				state_before, state_after, note, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ev.Ticker,
			ev.EventDate.Format(dateLayout),
			string(ev.Type),
			ev.Price.String(),
			ev.Quantity.String(),
			string(ev.StateBefore),
			string(ev.StateAfter),
			ev.Note,
			ev.CreatedAt.UTC().Format(timeLayout),
		); err != nil {
			return fmt.Errorf("appending event for %s: %w", ev.Ticker, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing step for %s: %w", pos.Ticker, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// EventStore implementation
// ---------------------------------------------------------------------------

// ListEvents returns events ordered by event date then insertion order.
func (s *SQLiteStore) ListEvents(ctx context.Context, ticker string, limit int) ([]domain.PositionEvent, error) {
	query := `
		SELECT ticker, event_date, event_type, price, quantity,
		       state_before, state_after, note, created_at
		FROM paper_events`
	var args []any
	if ticker != "" {
		query += ` WHERE ticker = ?`
		args = append(args, ticker)
	}
	query += ` ORDER BY event_date ASC, id ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []domain.PositionEvent
	for rows.Next() {
		var (
			ev                        domain.PositionEvent
			eventDate, createdAt      string
			evType, before, after     string
			price, quantity           string
		)
		if err := rows.Scan(&ev.Ticker, &eventDate, &evType, &price, &quantity,
			&before, &after, &ev.Note, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		if ev.EventDate, err = time.ParseInLocation(dateLayout, eventDate, time.UTC); err != nil {
			return nil, fmt.Errorf("parsing event date %q: %w", eventDate, err)
		}
		if ev.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parsing event created_at %q: %w", createdAt, err)
		}
		if ev.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parsing event price %q: %w", price, err)
		}
		if ev.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, fmt.Errorf("parsing event quantity %q: %w", quantity, err)
		}
		ev.Type = domain.EventType(evType)
		ev.StateBefore = domain.PositionState(before)
		ev.StateAfter = domain.PositionState(after)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// ---------------------------------------------------------------------------
// Row mapping
// ---------------------------------------------------------------------------

const selectPositionSQL = `
	SELECT ticker, state, entry_price, entry_date, qty_total, qty_remaining,
	       last_close, last_asof, updated_at, highest_close_since_tp,
	       scale_out_close, exit_price, exit_date, sideways_days
	FROM paper_positions`

// positionArgs flattens a Position into the column order used by the
// insert/update statements. State-specific payloads become nullable columns.
func positionArgs(pos *domain.Position) []any {
	var highest, scaleOut, exitPrice, exitDate any
	if pos.Trailing != nil {
		highest = pos.Trailing.HighestClose.String()
		scaleOut = pos.Trailing.ScaleOutClose.String()
	}
	if pos.Exit != nil {
		exitPrice = pos.Exit.Price.String()
		exitDate = pos.Exit.Date.Format(dateLayout)
	}
	return []any{
		pos.Ticker,
		string(pos.State),
		pos.EntryPrice.String(),
		pos.EntryDate.Format(dateLayout),
		pos.QtyTotal.String(),
		pos.QtyRemaining.String(),
		pos.LastClose.String(),
		pos.LastAsOf.Format(dateLayout),
		pos.UpdatedAt.UTC().Format(timeLayout),
		highest,
		scaleOut,
		exitPrice,
		exitDate,
		pos.SidewaysDays,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosition(row rowScanner) (*domain.Position, error) {
	var (
		pos                     domain.Position
		state                   string
		entryPrice, qtyTotal    string
		qtyRemaining, lastClose string
		entryDate, lastAsOf     string
		updatedAt               string
		highest, scaleOut       sql.NullString
		exitPrice, exitDate     sql.NullString
	)
	if err := row.Scan(&pos.Ticker, &state, &entryPrice, &entryDate, &qtyTotal,
		&qtyRemaining, &lastClose, &lastAsOf, &updatedAt, &highest, &scaleOut,
		&exitPrice, &exitDate, &pos.SidewaysDays); err != nil {
		return nil, err
	}

	pos.State = domain.PositionState(state)

	var err error
	if pos.EntryPrice, err = decimal.NewFromString(entryPrice); err != nil {
		return nil, fmt.Errorf("parsing entry_price %q: %w", entryPrice, err)
	}
	if pos.QtyTotal, err = decimal.NewFromString(qtyTotal); err != nil {
		return nil, fmt.Errorf("parsing qty_total %q: %w", qtyTotal, err)
	}
	if pos.QtyRemaining, err = decimal.NewFromString(qtyRemaining); err != nil {
		return nil, fmt.Errorf("parsing qty_remaining %q: %w", qtyRemaining, err)
	}
	if pos.LastClose, err = decimal.NewFromString(lastClose); err != nil {
		return nil, fmt.Errorf("parsing last_close %q: %w", lastClose, err)
	}
	if pos.EntryDate, err = time.ParseInLocation(dateLayout, entryDate, time.UTC); err != nil {
		return nil, fmt.Errorf("parsing entry_date %q: %w", entryDate, err)
	}
	if pos.LastAsOf, err = time.ParseInLocation(dateLayout, lastAsOf, time.UTC); err != nil {
		return nil, fmt.Errorf("parsing last_asof %q: %w", lastAsOf, err)
	}
	if pos.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at %q: %w", updatedAt, err)
	}

	// Both trailing columns are written together; one without the other is a
	// corrupt row, not a zero value.
	if highest.Valid != scaleOut.Valid {
		return nil, fmt.Errorf("position %s: trailing payload half-present (highest=%t scale_out=%t)",
			pos.Ticker, highest.Valid, scaleOut.Valid)
	}
	if highest.Valid {
		t := &domain.TrailingState{}
		if t.HighestClose, err = decimal.NewFromString(highest.String); err != nil {
			return nil, fmt.Errorf("parsing highest_close_since_tp %q: %w", highest.String, err)
		}
		if t.ScaleOutClose, err = decimal.NewFromString(scaleOut.String); err != nil {
			return nil, fmt.Errorf("parsing scale_out_close %q: %w", scaleOut.String, err)
		}
		pos.Trailing = t
	}

	if exitPrice.Valid && exitDate.Valid {
		e := &domain.ExitState{}
		if e.Price, err = decimal.NewFromString(exitPrice.String); err != nil {
			return nil, fmt.Errorf("parsing exit_price %q: %w", exitPrice.String, err)
		}
		if e.Date, err = time.ParseInLocation(dateLayout, exitDate.String, time.UTC); err != nil {
			return nil, fmt.Errorf("parsing exit_date %q: %w", exitDate.String, err)
		}
		pos.Exit = e
	}

	if err := pos.Validate(); err != nil {
		return nil, fmt.Errorf("stored position violates invariants: %w", err)
	}
	return &pos, nil
}
