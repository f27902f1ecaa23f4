// otter-universe filters a market snapshot CSV down to the eligible ticker
// list. Eligible tickers go to stdout one per line; the exclusion breakdown
// goes to the log.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/shopspring/decimal"

	"stockotter/internal/config"
	"stockotter/internal/universe"
	"stockotter/internal/util"
)

func main() {
	snapshotPath := flag.String("snapshot", "", "snapshot CSV with ticker,price,value_traded_5d_avg,is_managed (required)")
	flag.Parse()

	if *snapshotPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfgPath := "config/stockotter.yaml"
	if p := os.Getenv("STOCKOTTER_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	util.SetDefault(util.NewLogger(cfg.Logging.Level, cfg.Logging.Format))

	f, err := os.Open(*snapshotPath)
	if err != nil {
		log.Fatalf("failed to open snapshot: %v", err)
	}
	defer f.Close()

	rows, err := universe.ReadSnapshot(f)
	if err != nil {
		log.Fatalf("failed to read snapshot: %v", err)
	}

	res := universe.Filter(rows, universe.Criteria{
		MinPrice:            decimal.NewFromFloat(cfg.Universe.MinPrice),
		MaxPrice:            decimal.NewFromFloat(cfg.Universe.MaxPrice),
		MinValueTraded5dAvg: decimal.NewFromFloat(cfg.Universe.MinValueTraded5dAvg),
		ExcludeManaged:      cfg.Universe.ExcludeManaged,
	})

	for _, t := range res.Eligible {
		fmt.Println(t)
	}

	slog.Info("universe filtered",
		"total", res.TotalRows,
		"eligible", len(res.Eligible),
		"price_low", res.Excluded["price_low"],
		"price_high", res.Excluded["price_high"],
		"value_traded", res.Excluded["value_traded"],
		"managed", res.Excluded["managed"],
	)
}
