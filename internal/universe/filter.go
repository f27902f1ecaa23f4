// Package universe filters the tradable ticker set from a daily market
// snapshot before any position is opened.
package universe

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Criteria holds the eligibility thresholds. Zero-valued bounds are
// disabled.
type Criteria struct {
	MinPrice            decimal.Decimal
	MaxPrice            decimal.Decimal
	MinValueTraded5dAvg decimal.Decimal
	ExcludeManaged      bool
}

// Row is one ticker's snapshot from the market data file.
type Row struct {
	Ticker           string
	Price            decimal.Decimal
	ValueTraded5dAvg decimal.Decimal
	Managed          bool
}

// Result summarizes one filter run.
type Result struct {
	Eligible []string
	// Excluded counts rows per rejection reason: "price_low", "price_high",
	// "value_traded", "managed".
	Excluded  map[string]int
	TotalRows int
}

// Filter applies the criteria to every row and returns the sorted eligible
// ticker list. Rows are judged independently; the first failing criterion
// is the one counted.
func Filter(rows []Row, c Criteria) Result {
	res := Result{
		Excluded:  make(map[string]int),
		TotalRows: len(rows),
	}

	for _, r := range rows {
		switch {
		case !c.MinPrice.IsZero() && r.Price.LessThan(c.MinPrice):
			res.Excluded["price_low"]++
		case !c.MaxPrice.IsZero() && r.Price.GreaterThan(c.MaxPrice):
			res.Excluded["price_high"]++
		case !c.MinValueTraded5dAvg.IsZero() && r.ValueTraded5dAvg.LessThan(c.MinValueTraded5dAvg):
			res.Excluded["value_traded"]++
		case c.ExcludeManaged && r.Managed:
			res.Excluded["managed"]++
		default:
			res.Eligible = append(res.Eligible, r.Ticker)
		}
	}

	sort.Strings(res.Eligible)
	return res
}

// ReadSnapshot parses a snapshot CSV with header columns ticker, price,
// value_traded_5d_avg, is_managed. Column order is free; extra columns are
// ignored.
func ReadSnapshot(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading snapshot header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"ticker", "price", "value_traded_5d_avg"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("snapshot missing column %q", required)
		}
	}

	var rows []Row
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading snapshot line %d: %w", line, err)
		}

		row := Row{Ticker: strings.ToUpper(strings.TrimSpace(record[col["ticker"]]))}
		if row.Ticker == "" {
			return nil, fmt.Errorf("snapshot line %d: empty ticker", line)
		}
		if row.Price, err = decimal.NewFromString(record[col["price"]]); err != nil {
			return nil, fmt.Errorf("snapshot line %d: bad price %q", line, record[col["price"]])
		}
		if row.ValueTraded5dAvg, err = decimal.NewFromString(record[col["value_traded_5d_avg"]]); err != nil {
			return nil, fmt.Errorf("snapshot line %d: bad value_traded_5d_avg %q",
				line, record[col["value_traded_5d_avg"]])
		}
		if i, ok := col["is_managed"]; ok {
			row.Managed, err = strconv.ParseBool(strings.TrimSpace(record[i]))
			if err != nil {
				return nil, fmt.Errorf("snapshot line %d: bad is_managed %q", line, record[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
