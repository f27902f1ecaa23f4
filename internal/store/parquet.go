package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"

	"stockotter/internal/domain"
)

// Compile-time interface check.
var _ CloseStore = (*ParquetCloseStore)(nil)

// ParquetCloseStore implements CloseStore using Parquet files on disk, one
// file per ticker per year:
//
//	<DataDir>/us/daily/<TICKER>/<YYYY>.parquet
type ParquetCloseStore struct {
	DataDir string
}

// NewParquetCloseStore creates a ParquetCloseStore rooted at dataDir.
func NewParquetCloseStore(dataDir string) *ParquetCloseStore {
	return &ParquetCloseStore{DataDir: dataDir}
}

// CloseRecord is the Parquet schema for a daily close observation. The
// close is stored as decimal text so the value survives round-trips without
// binary floating point drift.
type CloseRecord struct {
	Ticker string `parquet:"ticker"`
	Date   int64  `parquet:"date,timestamp(millisecond)"` // UTC midnight, Unix ms
	Close  string `parquet:"close"`
}

// WriteCloses writes closes grouped by ticker and year, merging with any
// existing observations. A new observation for an already-stored date wins.
func (s *ParquetCloseStore) WriteCloses(_ context.Context, closes []domain.DailyClose) error {
	if len(closes) == 0 {
		return nil
	}

	type key struct {
		ticker string
		year   int
	}
	groups := make(map[key][]CloseRecord)
	for _, c := range closes {
		date := domain.DateOf(c.Date)
		k := key{ticker: strings.ToUpper(c.Ticker), year: date.Year()}
		groups[k] = append(groups[k], CloseRecord{
			Ticker: k.ticker,
			Date:   date.UnixMilli(),
			Close:  c.Close.String(),
		})
	}

	for k, records := range groups {
		path := s.closePath(k.ticker, k.year)

		existing, _ := readParquetFile[CloseRecord](path)
		merged := mergeCloseRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing closes for %s/%d: %w", k.ticker, k.year, err)
		}
	}
	return nil
}

// ClosesForDate reads the stored close for each requested ticker on the
// given date. Missing tickers or dates are simply absent from the result.
func (s *ParquetCloseStore) ClosesForDate(_ context.Context, tickers []string, date time.Time) (map[string]decimal.Decimal, error) {
	want := domain.DateOf(date).UnixMilli()
	year := domain.DateOf(date).Year()

	out := make(map[string]decimal.Decimal, len(tickers))
	for _, ticker := range tickers {
		records, err := readParquetFile[CloseRecord](s.closePath(strings.ToUpper(ticker), year))
		if err != nil {
			// No file for this ticker/year.
			continue
		}
		for _, r := range records {
			if r.Date != want {
				continue
			}
			v, err := decimal.NewFromString(r.Close)
			if err != nil {
				return nil, fmt.Errorf("parsing stored close %q for %s: %w", r.Close, ticker, err)
			}
			out[ticker] = v
			break
		}
	}
	return out, nil
}

// ListTickers lists all tickers with stored close data.
func (s *ParquetCloseStore) ListTickers(_ context.Context) ([]string, error) {
	dir := filepath.Join(s.DataDir, "us", "daily")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var tickers []string
	for _, e := range entries {
		if e.IsDir() {
			tickers = append(tickers, e.Name())
		}
	}
	sort.Strings(tickers)
	return tickers, nil
}

// closePath returns the filesystem path for a ticker-year close file.
func (s *ParquetCloseStore) closePath(ticker string, year int) string {
	return filepath.Join(s.DataDir, "us", "daily", ticker, fmt.Sprintf("%d.parquet", year))
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	return parquet.ReadFile[T](path)
}

// mergeCloseRecords deduplicates close records by (ticker, date), preferring
// incoming over existing. Results are sorted by date.
func mergeCloseRecords(existing, incoming []CloseRecord) []CloseRecord {
	type key struct {
		ticker string
		date   int64
	}
	seen := make(map[key]CloseRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Ticker, r.Date}] = r
	}
	for _, r := range incoming {
		seen[key{r.Ticker, r.Date}] = r
	}

	merged := make([]CloseRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Date < merged[j].Date
	})
	return merged
}
