// Package us gathers US equity closing prices from the Alpaca market-data
// API into the Parquet close store.
package us

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"stockotter/internal/domain"
	"stockotter/internal/gather"
	"stockotter/internal/store"
	"stockotter/internal/util"
)

var _ gather.Gatherer = (*DailyCloseGatherer)(nil)

// barClient is the slice of the Alpaca market-data client the gatherer uses.
type barClient interface {
	GetMultiBars(symbols []string, req marketdata.GetBarsRequest) (map[string][]marketdata.Bar, error)
}

// DailyCloseGatherer fetches daily closing prices for a fixed ticker list
// and writes them to the close store. Batches run concurrently up to
// maxWorkers, throttled by a shared rate limiter.
type DailyCloseGatherer struct {
	client     barClient
	store      store.CloseStore
	tickers    []string
	startDate  string
	batchSize  int
	maxWorkers int
	limiter    *util.RateLimiter
	apiKey     string
	apiSecret  string
	baseURL    string // trading API, used for the calendar
	log        *slog.Logger
}

// NewDailyCloseGatherer creates a DailyCloseGatherer configured with the
// given Alpaca credentials, target store, ticker list, and batch parameters.
func NewDailyCloseGatherer(apiKey, apiSecret, dataURL, baseURL string, s store.CloseStore,
	tickers []string, startDate string, batchSize, maxWorkers, rateLimitPerMin int) *DailyCloseGatherer {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}

	if batchSize <= 0 {
		batchSize = 200
	}
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	if rateLimitPerMin <= 0 {
		rateLimitPerMin = 200
	}

	return &DailyCloseGatherer{
		client:     marketdata.NewClient(opts),
		store:      s,
		tickers:    tickers,
		startDate:  startDate,
		batchSize:  batchSize,
		maxWorkers: maxWorkers,
		limiter:    util.NewRateLimiter(rateLimitPerMin),
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		baseURL:    baseURL,
		log:        slog.Default().With("gatherer", "us-daily-close"),
	}
}

// Name returns the gatherer identifier.
func (g *DailyCloseGatherer) Name() string { return "us-daily-close" }

// Run fetches closes from startDate through the latest finished trading day
// and merges them into the store. Rerunning for an overlapping range simply
// rewrites the same observations.
func (g *DailyCloseGatherer) Run(ctx context.Context) error {
	start, err := time.Parse("2006-01-02", g.startDate)
	if err != nil {
		return fmt.Errorf("parsing start date %q: %w", g.startDate, err)
	}

	end, err := LatestFinishedTradingDay(g.apiKey, g.apiSecret, g.baseURL)
	if err != nil {
		return fmt.Errorf("determining end date: %w", err)
	}
	if end.Before(start) {
		return fmt.Errorf("end date %s before start date %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	tickers := normalizeTickers(g.tickers)
	if len(tickers) == 0 {
		return fmt.Errorf("no tickers to gather")
	}

	var batches [][]string
	for i := 0; i < len(tickers); i += g.batchSize {
		j := min(i+g.batchSize, len(tickers))
		batches = append(batches, tickers[i:j])
	}

	g.log.Info("starting",
		"tickers", len(tickers),
		"batches", len(batches),
		"start", start.Format("2006-01-02"),
		"end", end.Format("2006-01-02"),
	)

	runStart := time.Now()
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.maxWorkers)

	for i, batch := range batches {
		eg.Go(func() error {
			if err := g.limiter.Wait(egCtx); err != nil {
				return err
			}

			var closes []domain.DailyClose
			err := util.Retry(egCtx, 3, time.Second, func() error {
				var ferr error
				closes, ferr = g.fetchCloses(batch, start, end)
				return ferr
			})
			if err != nil {
				return fmt.Errorf("batch %d/%d: %w", i+1, len(batches), err)
			}

			if err := g.store.WriteCloses(egCtx, closes); err != nil {
				return fmt.Errorf("writing batch %d/%d: %w", i+1, len(batches), err)
			}

			g.log.Info("batch done",
				"batch", fmt.Sprintf("%d/%d", i+1, len(batches)),
				"closes", len(closes),
				"elapsed", time.Since(runStart).Round(time.Second),
			)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return err
	}

	g.log.Info("complete", "elapsed", time.Since(runStart).Round(time.Second))
	return nil
}

// fetchCloses fetches daily bars for a batch of tickers and keeps only the
// closing price of each bar.
func (g *DailyCloseGatherer) fetchCloses(tickers []string, start, end time.Time) ([]domain.DailyClose, error) {
	multiBars, err := g.client.GetMultiBars(tickers, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end,
		Feed:      "sip",
	})
	if err != nil {
		return nil, fmt.Errorf("GetMultiBars: %w", err)
	}

	var closes []domain.DailyClose
	for ticker, bars := range multiBars {
		for _, b := range bars {
			closes = append(closes, domain.DailyClose{
				Ticker: strings.ToUpper(ticker),
				Date:   domain.DateOf(b.Timestamp),
				Close:  decimal.NewFromFloat(b.Close),
			})
		}
	}
	return closes, nil
}

func normalizeTickers(tickers []string) []string {
	out := make([]string, 0, len(tickers))
	seen := make(map[string]struct{}, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
