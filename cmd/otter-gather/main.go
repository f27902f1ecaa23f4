// otter-gather fetches daily closing prices from the Alpaca market-data API
// into the Parquet close store. Tickers come from a file (-tickers, one per
// line) or default to every ticker already present in the store.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"stockotter/internal/config"
	"stockotter/internal/gather/us"
	"stockotter/internal/store"
)

func main() {
	tickersPath := flag.String("tickers", "", "file with one ticker per line (default: tickers already in store)")
	flag.Parse()

	cfgPath := "config/stockotter.yaml"
	if p := os.Getenv("STOCKOTTER_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Dual logger: stdout + /tmp log file.
	logFileName := fmt.Sprintf("/tmp/otter-gather-%s.log", time.Now().Format("2006-01-02"))
	logFile, err := os.Create(logFileName)
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()

	w := io.MultiWriter(os.Stdout, logFile)
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	closeStore := store.NewParquetCloseStore(cfg.Storage.DataDir)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tickers, err := loadTickers(ctx, *tickersPath, closeStore)
	if err != nil {
		log.Fatalf("failed to load tickers: %v", err)
	}
	if len(tickers) == 0 {
		log.Fatalf("no tickers to gather; pass -tickers or seed the store")
	}

	gatherer := us.NewDailyCloseGatherer(
		cfg.Alpaca.APIKey,
		cfg.Alpaca.APISecret,
		cfg.Alpaca.DataURL,
		cfg.Alpaca.BaseURL,
		closeStore,
		tickers,
		cfg.Gather.StartDate,
		cfg.Gather.BatchSize,
		cfg.Gather.MaxWorkers,
		cfg.Gather.RateLimitPerMin,
	)

	slog.Info("starting otter-gather", "logFile", logFileName, "tickers", len(tickers))
	if err := gatherer.Run(ctx); err != nil {
		log.Fatalf("gather error: %v", err)
	}
}

func loadTickers(ctx context.Context, path string, closeStore *store.ParquetCloseStore) ([]string, error) {
	if path == "" {
		return closeStore.ListTickers(ctx)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var tickers []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		t := strings.TrimSpace(sc.Text())
		if t == "" || strings.HasPrefix(t, "#") {
			continue
		}
		tickers = append(tickers, t)
	}
	return tickers, sc.Err()
}
