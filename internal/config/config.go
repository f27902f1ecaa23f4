package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"stockotter/internal/paper"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the stockotter platform.
type Config struct {
	Storage  Storage        `yaml:"storage"`
	Server   Server         `yaml:"server"`
	Alpaca   Alpaca         `yaml:"alpaca"`
	Logging  Logging        `yaml:"logging"`
	Gather   GatherConfig   `yaml:"gather"`
	Paper    PaperConfig    `yaml:"paper"`
	Universe UniverseConfig `yaml:"universe"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Alpaca holds credentials and endpoints for the Alpaca market-data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// GatherConfig holds parameters for the daily close gathering job.
type GatherConfig struct {
	StartDate       string `yaml:"start_date"`
	BatchSize       int    `yaml:"batch_size"`
	MaxWorkers      int    `yaml:"max_workers"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// PaperConfig defines the lifecycle engine parameters. Percentages are
// fractions (0.15 = 15%).
type PaperConfig struct {
	TakeProfitPct     float64 `yaml:"take_profit_pct"`
	ScaleOutFraction  float64 `yaml:"scale_out_fraction"`
	TrailDrawdownPct  float64 `yaml:"trail_drawdown_pct"`
	SidewaysDaysLimit int     `yaml:"sideways_days_limit"`
	SidewaysBandPct   float64 `yaml:"sideways_band_pct"`
	LotSize           float64 `yaml:"lot_size"`
	SidewaysAnchor    string  `yaml:"sideways_anchor"`
}

// UniverseConfig filters the tradable universe before positions are opened.
type UniverseConfig struct {
	MinPrice            float64 `yaml:"min_price"`
	MaxPrice            float64 `yaml:"max_price"`
	MinValueTraded5dAvg float64 `yaml:"min_value_traded_5d_avg"`
	ExcludeManaged      bool    `yaml:"exclude_managed"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default engine parameters, applied when the paper section is absent.
var defaultPaper = PaperConfig{
	TakeProfitPct:     0.15,
	ScaleOutFraction:  0.5,
	TrailDrawdownPct:  0.1,
	SidewaysDaysLimit: 10,
	SidewaysBandPct:   0.02,
	LotSize:           1,
	SidewaysAnchor:    string(paper.AnchorScaleOut),
}

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, fills defaults, and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{Paper: defaultPaper}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// EngineConfig converts the YAML-level float parameters into the exact
// decimal configuration the lifecycle engine requires.
func (p PaperConfig) EngineConfig() (paper.Config, error) {
	anchor := paper.AnchorMode(p.SidewaysAnchor)
	if p.SidewaysAnchor == "" {
		anchor = paper.AnchorScaleOut
	}
	cfg := paper.Config{
		TakeProfitPct:     decimal.NewFromFloat(p.TakeProfitPct),
		ScaleOutFraction:  decimal.NewFromFloat(p.ScaleOutFraction),
		TrailDrawdownPct:  decimal.NewFromFloat(p.TrailDrawdownPct),
		SidewaysDaysLimit: p.SidewaysDaysLimit,
		SidewaysBandPct:   decimal.NewFromFloat(p.SidewaysBandPct),
		LotSize:           decimal.NewFromFloat(p.LotSize),
		SidewaysAnchor:    anchor,
	}
	if err := cfg.Validate(); err != nil {
		return paper.Config{}, fmt.Errorf("paper config: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}

	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}

	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority — canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
