package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"solana-ladder-lab/internal/domain"
	"solana-ladder-lab/internal/ladder"
)

// Validation errors
var (
	ErrNoTradeLogPath      = errors.New("trade log path must not be empty")
	ErrNoReportPath        = errors.New("report path must not be empty")
	ErrNonPositiveWindow   = errors.New("log window must be positive")
	ErrNonPositiveInterval = errors.New("run interval must be positive")
)

// Config holds everything one reconstruction run needs. It is read
// once per run; a fresh Load picks up edits between runs.
type Config struct {
	// TradeLogPath is the append-only log written by the trading
	// process.
	TradeLogPath string
	// ReportPath is where the rendered report is written.
	ReportPath string
	// LogWindowSeconds bounds how far back trades are reported.
	LogWindowSeconds int64
	// RunIntervalSeconds is the scheduler period in server mode.
	RunIntervalSeconds int

	// Ladder thresholds, see ladder.Params.
	BaseProfitTargetBps float64
	HardStopBps         float64
	ProfitStepBps       float64
	DrawdownTriggers    []float64
	CapitalSol          float64

	// Variants is the simulation catalog, either the built-ins or the
	// LADDER_VARIANTS override.
	Variants []domain.LadderVariant

	// PostgresDSN enables trade/simulation archival when set.
	PostgresDSN string
	// ClickHouseDSN enables price path archival when set.
	ClickHouseDSN string
	// MetricsAddr is the HTTP listen address in server mode.
	MetricsAddr string
}

// Defaults returns the configuration matching the trading process
// defaults.
func Defaults() Config {
	params := ladder.DefaultParams()
	return Config{
		TradeLogPath:        "trading.log",
		ReportPath:          "ladder_report.txt",
		LogWindowSeconds:    86400,
		RunIntervalSeconds:  300,
		BaseProfitTargetBps: params.BaseProfitTargetBps,
		HardStopBps:         params.HardStopBps,
		ProfitStepBps:       params.ProfitStepBps,
		DrawdownTriggers:    params.DrawdownTriggers,
		CapitalSol:          params.CapitalSol,
		Variants:            ladder.DefaultVariants(),
		MetricsAddr:         ":9090",
	}
}

// Load builds a Config from the environment on top of the defaults.
// A .env file is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()

	setStr(&cfg.TradeLogPath, "TRADELOG_PATH")
	setStr(&cfg.ReportPath, "REPORT_PATH")
	setInt64(&cfg.LogWindowSeconds, "LOG_WINDOW_SECONDS")
	setInt(&cfg.RunIntervalSeconds, "RUN_INTERVAL_SECONDS")
	setFloat64(&cfg.BaseProfitTargetBps, "BASE_PROFIT_TARGET_BPS")
	setFloat64(&cfg.HardStopBps, "HARD_STOP_BPS")
	setFloat64(&cfg.ProfitStepBps, "PROFIT_STEP_BPS")
	setFloatSlice(&cfg.DrawdownTriggers, "DRAWDOWN_TRIGGERS")
	setFloat64(&cfg.CapitalSol, "CAPITAL_SOL")
	setStr(&cfg.PostgresDSN, "POSTGRES_DSN")
	setStr(&cfg.ClickHouseDSN, "CLICKHOUSE_DSN")
	setStr(&cfg.MetricsAddr, "METRICS_ADDR")

	if spec := os.Getenv("LADDER_VARIANTS"); spec != "" {
		variants, err := ladder.ParseVariants(spec)
		if err != nil {
			return nil, fmt.Errorf("LADDER_VARIANTS: %w", err)
		}
		cfg.Variants = variants
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Params assembles the ladder parameter set from the loaded values.
func (c *Config) Params() ladder.Params {
	return ladder.Params{
		BaseProfitTargetBps: c.BaseProfitTargetBps,
		HardStopBps:         c.HardStopBps,
		ProfitStepBps:       c.ProfitStepBps,
		DrawdownTriggers:    c.DrawdownTriggers,
		CapitalSol:          c.CapitalSol,
	}
}

// Validate checks paths, windows and the embedded ladder parameters.
func (c *Config) Validate() error {
	if c.TradeLogPath == "" {
		return ErrNoTradeLogPath
	}
	if c.ReportPath == "" {
		return ErrNoReportPath
	}
	if c.LogWindowSeconds <= 0 {
		return ErrNonPositiveWindow
	}
	if c.RunIntervalSeconds <= 0 {
		return ErrNonPositiveInterval
	}
	if err := c.Params().Validate(); err != nil {
		return err
	}
	for _, v := range c.Variants {
		if err := ladder.ValidateVariant(v); err != nil {
			return fmt.Errorf("variant %q: %w", v.Name, err)
		}
	}
	return nil
}

// Typed env helpers. Each mutates the target only when the variable is
// present, non-empty and parses.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setFloatSlice(dst *[]float64, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []float64
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return
		}
		out = append(out, f)
	}
	if len(out) > 0 {
		*dst = out
	}
}
