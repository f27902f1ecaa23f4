// otter-open creates a new ENTERED paper position for a ticker. It refuses
// to overwrite a live position; a previously exited row is replaced.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockotter/internal/config"
	"stockotter/internal/domain"
	"stockotter/internal/store"
	"stockotter/internal/util"
)

func main() {
	ticker := flag.String("ticker", "", "ticker to open (required)")
	price := flag.String("price", "", "entry price (default: stored close for -date)")
	qty := flag.String("qty", "", "total quantity (required)")
	dateStr := flag.String("date", "", "entry date YYYY-MM-DD (default: today UTC)")
	flag.Parse()

	if *ticker == "" || *qty == "" {
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

	qtyTotal, err := decimal.NewFromString(*qty)
	if err != nil {
		log.Fatalf("bad -qty %q: %v", *qty, err)
	}

	entryDate := domain.DateOf(time.Now())
	if *dateStr != "" {
		entryDate, err = time.ParseInLocation("2006-01-02", *dateStr, time.UTC)
		if err != nil {
			log.Fatalf("bad -date %q: %v", *dateStr, err)
		}
	}

	symbol := strings.ToUpper(*ticker)

	var entryPrice decimal.Decimal
	if *price != "" {
		entryPrice, err = decimal.NewFromString(*price)
		if err != nil {
			log.Fatalf("bad -price %q: %v", *price, err)
		}
	} else {
		// No explicit price: use the stored close for the entry date.
		cs := store.NewParquetCloseStore(cfg.Storage.DataDir)
		closes, err := cs.ClosesForDate(context.Background(), []string{symbol}, entryDate)
		if err != nil {
			log.Fatalf("failed to read stored close: %v", err)
		}
		px, ok := closes[symbol]
		if !ok {
			log.Fatalf("no stored close for %s on %s; pass -price",
				symbol, entryDate.Format("2006-01-02"))
		}
		entryPrice = px
	}

	pos, err := domain.NewPosition(symbol, entryPrice, qtyTotal, entryDate, time.Now())
	if err != nil {
		log.Fatalf("%v", err)
	}

	st, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open position store: %v", err)
	}
	defer st.Close()

	if err := st.CreatePosition(context.Background(), pos); err != nil {
		log.Fatalf("failed to open position: %v", err)
	}

	fmt.Printf("opened %s entry=%s qty=%s date=%s\n",
		pos.Ticker, pos.EntryPrice, pos.QtyTotal, pos.EntryDate.Format("2006-01-02"))
}
