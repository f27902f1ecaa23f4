package config

import (
	"os"
	"testing"

	"stockotter/internal/paper"
)

func TestLoadDefaults(t *testing.T) {
	yamlContent := []byte(`
storage:
  data_dir: "/tmp/stockotter/data"
  sqlite_path: "/tmp/stockotter/stockotter.db"
server:
  host: "0.0.0.0"
  port: 8080
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
  base_url: "https://paper-api.alpaca.markets"
  data_url: "https://data.alpaca.markets"
logging:
  level: "info"
  format: "json"
gather:
  start_date: "2020-01-01"
  batch_size: 500
  max_workers: 4
  rate_limit_per_min: 200
paper:
  take_profit_pct: 0.2
  scale_out_fraction: 0.5
  trail_drawdown_pct: 0.08
  sideways_days_limit: 15
  sideways_band_pct: 0.03
  lot_size: 1
  sideways_anchor: "entry"
universe:
  min_price: 5
  max_price: 500
  min_value_traded_5d_avg: 1000000
  exclude_managed: true
`)

	tmpFile, err := os.CreateTemp("", "stockotter-config-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(yamlContent); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	if err := tmpFile.Close(); err != nil {
		t.Fatalf("failed to close temp file: %v", err)
	}

	// Clear any environment overrides that might interfere.
	os.Unsetenv("ALPACA_API_KEY")
	os.Unsetenv("ALPACA_API_SECRET")
	os.Unsetenv("APCA_API_KEY_ID")
	os.Unsetenv("APCA_API_SECRET_KEY")
	os.Unsetenv("DATA_DIR")
	os.Unsetenv("SQLITE_PATH")

	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Storage.DataDir != "/tmp/stockotter/data" {
		t.Errorf("Storage.DataDir = %q, want %q", cfg.Storage.DataDir, "/tmp/stockotter/data")
	}
	if cfg.Storage.SQLitePath != "/tmp/stockotter/stockotter.db" {
		t.Errorf("Storage.SQLitePath = %q", cfg.Storage.SQLitePath)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 8080 {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Alpaca.APIKey != "test-key" || cfg.Alpaca.APISecret != "test-secret" {
		t.Errorf("Alpaca credentials = %q/%q", cfg.Alpaca.APIKey, cfg.Alpaca.APISecret)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Gather.BatchSize != 500 || cfg.Gather.MaxWorkers != 4 {
		t.Errorf("Gather = %+v", cfg.Gather)
	}
	if cfg.Paper.TakeProfitPct != 0.2 || cfg.Paper.SidewaysDaysLimit != 15 {
		t.Errorf("Paper = %+v", cfg.Paper)
	}
	if cfg.Paper.SidewaysAnchor != "entry" {
		t.Errorf("Paper.SidewaysAnchor = %q, want entry", cfg.Paper.SidewaysAnchor)
	}
	if cfg.Universe.MinPrice != 5 || !cfg.Universe.ExcludeManaged {
		t.Errorf("Universe = %+v", cfg.Universe)
	}
}

func TestLoadPaperDefaults(t *testing.T) {
	yamlContent := []byte(`
storage:
  data_dir: "/tmp/data"
`)

	tmpFile, err := os.CreateTemp("", "stockotter-config-defaults-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())
	if _, err := tmpFile.Write(yamlContent); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	tmpFile.Close()

	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	// With no paper section the default engine parameters apply.
	if cfg.Paper.TakeProfitPct != 0.15 || cfg.Paper.ScaleOutFraction != 0.5 {
		t.Errorf("Paper defaults = %+v", cfg.Paper)
	}
	if cfg.Paper.SidewaysAnchor != string(paper.AnchorScaleOut) {
		t.Errorf("default anchor = %q, want scale_out", cfg.Paper.SidewaysAnchor)
	}

	engCfg, err := cfg.Paper.EngineConfig()
	if err != nil {
		t.Fatalf("EngineConfig on defaults: %v", err)
	}
	if engCfg.SidewaysDaysLimit != 10 {
		t.Errorf("SidewaysDaysLimit = %d, want 10", engCfg.SidewaysDaysLimit)
	}
}

func TestEngineConfigRejectsBadValues(t *testing.T) {
	p := defaultPaper
	p.ScaleOutFraction = 1.5
	if _, err := p.EngineConfig(); err == nil {
		t.Error("EngineConfig accepted scale_out_fraction 1.5")
	}

	p = defaultPaper
	p.SidewaysAnchor = "midpoint"
	if _, err := p.EngineConfig(); err == nil {
		t.Error("EngineConfig accepted unknown anchor")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	yamlContent := []byte(`
alpaca:
  api_key: "yaml-key"
  api_secret: "yaml-secret"
storage:
  data_dir: "/original/data"
`)

	tmpFile, err := os.CreateTemp("", "stockotter-config-env-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(yamlContent); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	tmpFile.Close()

	// Set environment overrides.
	os.Setenv("ALPACA_API_KEY", "env-key")
	os.Setenv("DATA_DIR", "/env/data")
	os.Unsetenv("APCA_API_KEY_ID")
	os.Unsetenv("APCA_API_SECRET_KEY")
	defer os.Unsetenv("ALPACA_API_KEY")
	defer os.Unsetenv("DATA_DIR")

	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Alpaca.APIKey != "env-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q (env override)", cfg.Alpaca.APIKey, "env-key")
	}
	// api_secret should remain from YAML since no env override was set.
	if cfg.Alpaca.APISecret != "yaml-secret" {
		t.Errorf("Alpaca.APISecret = %q, want %q (from YAML)", cfg.Alpaca.APISecret, "yaml-secret")
	}
	if cfg.Storage.DataDir != "/env/data" {
		t.Errorf("Storage.DataDir = %q, want %q (env override)", cfg.Storage.DataDir, "/env/data")
	}
}
