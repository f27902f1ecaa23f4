// otter-positions prints the position book, or the event log with -events.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"stockotter/internal/config"
	"stockotter/internal/dashboard"
	"stockotter/internal/store"
	"stockotter/internal/util"
)

func main() {
	openOnly := flag.Bool("open", false, "show only open positions")
	events := flag.Bool("events", false, "show the event log instead of positions")
	ticker := flag.String("ticker", "", "filter events by ticker")
	limit := flag.Int("limit", 0, "max events to show (0 = all)")
	flag.Parse()

	cfgPath := "config/stockotter.yaml"
	if p := os.Getenv("STOCKOTTER_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	util.SetDefault(util.NewLogger(cfg.Logging.Level, cfg.Logging.Format))

	st, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open position store: %v", err)
	}
	defer st.Close()

	ctx := context.Background()

	if *events {
		evs, err := st.ListEvents(ctx, strings.ToUpper(*ticker), *limit)
		if err != nil {
			log.Fatalf("failed to list events: %v", err)
		}
		fmt.Print(dashboard.RenderEvents(evs))
		return
	}

	list := st.ListPositions
	if *openOnly {
		list = st.ListOpenPositions
	}
	positions, err := list(ctx)
	if err != nil {
		log.Fatalf("failed to list positions: %v", err)
	}
	fmt.Print(dashboard.RenderPositions(positions))

	evs, err := st.ListEvents(ctx, "", 0)
	if err != nil {
		log.Fatalf("failed to list events: %v", err)
	}
	fmt.Print(dashboard.RenderPnL(dashboard.ComputePnL(positions, evs)))
}
