// Package prices loads daily closing prices for one as-of date, either from
// a CSV file or from the Parquet close store.
package prices

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockotter/internal/domain"
	"stockotter/internal/store"
)

// LoadCSV reads closes for asof from a CSV with header columns ticker,
// date, close. Rows for other dates are skipped. A ticker appearing twice
// for the same date is an error, as is a non-positive close.
func LoadCSV(r io.Reader, asof time.Time) (map[string]decimal.Decimal, error) {
	want := domain.DateOf(asof)

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading price header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"ticker", "date", "close"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("price file missing column %q", required)
		}
	}

	out := make(map[string]decimal.Decimal)
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading price line %d: %w", line, err)
		}

		date, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(record[col["date"]]), time.UTC)
		if err != nil {
			return nil, fmt.Errorf("price line %d: bad date %q", line, record[col["date"]])
		}
		if !date.Equal(want) {
			continue
		}

		ticker := strings.ToUpper(strings.TrimSpace(record[col["ticker"]]))
		if ticker == "" {
			return nil, fmt.Errorf("price line %d: empty ticker", line)
		}
		if _, dup := out[ticker]; dup {
			return nil, fmt.Errorf("price line %d: duplicate close for %s on %s",
				line, ticker, want.Format("2006-01-02"))
		}

		px, err := decimal.NewFromString(strings.TrimSpace(record[col["close"]]))
		if err != nil {
			return nil, fmt.Errorf("price line %d: bad close %q", line, record[col["close"]])
		}
		if !px.IsPositive() {
			return nil, fmt.Errorf("price line %d: close must be > 0 for %s, got %s", line, ticker, px)
		}

		out[ticker] = px
	}
	return out, nil
}

// LoadCSVFile opens path and loads closes for asof from it.
func LoadCSVFile(path string, asof time.Time) (map[string]decimal.Decimal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadCSV(f, asof)
}

// LoadStore reads closes for asof for the given tickers from the close
// store. Tickers without an observation are absent from the result.
func LoadStore(ctx context.Context, s store.CloseStore, tickers []string, asof time.Time) (map[string]decimal.Decimal, error) {
	return s.ClosesForDate(ctx, tickers, domain.DateOf(asof))
}
