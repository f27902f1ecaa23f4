// otter-step advances every open paper position by one trading day.
//
// Closes come from a CSV file (-prices) or, when no file is given, from the
// Parquet close store. The tool prints a one-line machine-readable summary
// and exits non-zero if any position failed to step; missing prices are
// warnings only.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"stockotter/internal/config"
	"stockotter/internal/dashboard"
	"stockotter/internal/domain"
	"stockotter/internal/engine"
	"stockotter/internal/paper"
	"stockotter/internal/prices"
	"stockotter/internal/store"
	"stockotter/internal/util"
)

func main() {
	pricesPath := flag.String("prices", "", "CSV file with ticker,date,close rows (default: Parquet store)")
	asofStr := flag.String("asof", "", "as-of date YYYY-MM-DD (default: previous weekday)")
	flag.Parse()

	cfgPath := "config/stockotter.yaml"
	if p := os.Getenv("STOCKOTTER_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	asof := util.PreviousWeekday(time.Now())
	if *asofStr != "" {
		asof, err = time.ParseInLocation("2006-01-02", *asofStr, time.UTC)
		if err != nil {
			log.Fatalf("bad -asof %q: %v", *asofStr, err)
		}
	}

	engCfg, err := cfg.Paper.EngineConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}
	eng, err := paper.New(engCfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	st, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open position store: %v", err)
	}
	defer st.Close()

	ctx := context.Background()

	closes, err := loadCloses(ctx, cfg, st, *pricesPath, asof)
	if err != nil {
		log.Fatalf("failed to load closes: %v", err)
	}

	runner := engine.NewRunner(eng, st, logger)
	summary, err := runner.RunStep(ctx, asof, closes)
	if err != nil {
		log.Fatalf("step failed: %v", err)
	}

	fmt.Println(dashboard.SummaryLine(summary))

	if summary.HasErrors() {
		for _, e := range summary.Errors {
			fmt.Fprintf(os.Stderr, "error: %v\n", e)
		}
		os.Exit(1)
	}
}

// loadCloses reads the day's closes from the CSV file when one is given,
// otherwise from the Parquet store for the currently open tickers.
func loadCloses(ctx context.Context, cfg *config.Config, st *store.SQLiteStore,
	pricesPath string, asof time.Time) (map[string]decimal.Decimal, error) {
	if pricesPath != "" {
		return prices.LoadCSVFile(pricesPath, asof)
	}

	open, err := st.ListOpenPositions(ctx)
	if err != nil {
		return nil, err
	}
	tickers := make([]string, 0, len(open))
	for i := range open {
		tickers = append(tickers, open[i].Ticker)
	}

	var cs store.CloseStore = store.NewParquetCloseStore(cfg.Storage.DataDir)
	return prices.LoadStore(ctx, cs, tickers, domain.DateOf(asof))
}
