package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"solana-ladder-lab/internal/config"
	"solana-ladder-lab/internal/idhash"
	"solana-ladder-lab/internal/storage/memory"
)

const wsol = "So11111111111111111111111111111111111111112"

// canonicalLog is one complete trade as the trading process writes it:
// a balance-bearing sample, the BUY marker, five in-position samples,
// the SELL marker, and the finalizing balance sample.
var canonicalLog = []string{
	"=== token monitor started ===",
	"Time                | Mode | Step | AvgCost | Price | Move% | Size | TradePnL | WalletPnL | SOL",
	"2024-03-15 12:00:00 | monitor | 0 buys | - | 0.000000009 | - | - | - | - | 10.0",
	"2024-03-15 12:00:05 BUY confirmed for " + wsol,
	"2024-03-15 12:00:10 | position | 1 buys | 0.00000001 | 0.00000001 | 0.0 | 1.0 | 0.0 | 0.0 | 9.0",
	"2024-03-15 12:00:15 | position | 1 buys | 0.00000001 | 0.0000000105 | 5.0 | 1.0 | 0.05 | 0.05 | 9.0",
	"2024-03-15 12:00:20 | position | 2 buys | 0.00000001 | 0.000000011 | 10.0 | 1.5 | 0.1 | 0.1 | 8.5",
	"2024-03-15 12:00:25 | position | 2 buys | 0.00000001 | 0.000000009 | -10.0 | 1.5 | -0.1 | -0.1 | 8.5",
	"2024-03-15 12:00:30 | position | 2 buys | 0.00000001 | 0.0000000125 | 25.0 | 1.5 | 0.25 | 0.25 | 8.5",
	"2024-03-15 12:00:35 SELL confirmed for " + wsol,
	"2024-03-15 12:00:40 | monitor | 0 buys | - | - | - | - | - | - | 10.05",
}

func writeLog(t *testing.T, dir string, lines []string) string {
	t.Helper()
	path := filepath.Join(dir, "trading.log")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func testConfig(t *testing.T, lines []string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.TradeLogPath = writeLog(t, dir, lines)
	cfg.ReportPath = filepath.Join(dir, "ladder_report.txt")
	return &cfg
}

// testClock pins the run an hour after the canonical trade closed.
func testClock() time.Time {
	return time.Date(2024, 3, 15, 13, 0, 0, 0, time.UTC)
}

func msAt(hour, min, sec int) int64 {
	return time.Date(2024, 3, 15, hour, min, sec, 0, time.UTC).UnixMilli()
}

func TestRunner_EndToEnd(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, canonicalLog)

	tradeStore := memory.NewTradeStore()
	simulationStore := memory.NewSimulationStore()
	priceSampleStore := memory.NewPriceSampleStore()

	runner := New(Options{
		Config:           cfg,
		TradeStore:       tradeStore,
		SimulationStore:  simulationStore,
		PriceSampleStore: priceSampleStore,
		Clock:            testClock,
		Location:         time.UTC,
	})

	result, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.LinesScanned != len(canonicalLog) {
		t.Errorf("LinesScanned: got %d, want %d", result.LinesScanned, len(canonicalLog))
	}
	// 7 samples + 2 markers
	if result.EventsClassified != 9 {
		t.Errorf("EventsClassified: got %d, want 9", result.EventsClassified)
	}
	if result.TradesReconstructed != 1 {
		t.Errorf("TradesReconstructed: got %d, want 1", result.TradesReconstructed)
	}
	if result.TradesInWindow != 1 {
		t.Errorf("TradesInWindow: got %d, want 1", result.TradesInWindow)
	}
	if result.TradesReported != 1 {
		t.Errorf("TradesReported: got %d, want 1", result.TradesReported)
	}
	if result.SimulationsRun != 4 {
		t.Errorf("SimulationsRun: got %d, want 4", result.SimulationsRun)
	}
	if result.TradesArchived != 1 {
		t.Errorf("TradesArchived: got %d, want 1", result.TradesArchived)
	}
	if len(result.Errors) != 0 {
		t.Errorf("Errors: %v", result.Errors)
	}

	// The archived trade is addressable by its deterministic ID.
	tradeID := idhash.ComputeTradeID(wsol, msAt(12, 0, 5), msAt(12, 0, 40), msAt(12, 0, 35))
	trade, err := tradeStore.GetByTradeID(ctx, tradeID)
	if err != nil {
		t.Fatalf("archived trade not found: %v", err)
	}
	if trade.MaxStepReached != 2 {
		t.Errorf("MaxStepReached: got %d, want 2", trade.MaxStepReached)
	}
	if trade.EntrySolBalance == nil || *trade.EntrySolBalance != 10.0 {
		t.Errorf("EntrySolBalance: got %v, want 10.0", trade.EntrySolBalance)
	}
	if trade.ExitSolBalance != 10.05 {
		t.Errorf("ExitSolBalance: got %f, want 10.05", trade.ExitSolBalance)
	}
	if trade.MintOnCurve == nil {
		t.Error("MintOnCurve: expected non-nil for a valid mint")
	}

	// All four variants take profit at the second sample.
	sims, err := simulationStore.GetByTradeID(ctx, tradeID)
	if err != nil {
		t.Fatalf("archived simulations not found: %v", err)
	}
	if len(sims) != 4 {
		t.Fatalf("Expected 4 simulations, got %d", len(sims))
	}
	wantPnl := map[string]float64{
		"100":         0.05,
		"50/50":       0.025,
		"15/25/60":    0.0075,
		"10/15/25/50": 0.005,
	}
	for _, sim := range sims {
		if sim.ExitKind != "TAKE_PROFIT" {
			t.Errorf("%s: ExitKind %s, want TAKE_PROFIT", sim.VariantName, sim.ExitKind)
		}
		if sim.ExitIndex != 1 {
			t.Errorf("%s: ExitIndex %d, want 1", sim.VariantName, sim.ExitIndex)
		}
		want, ok := wantPnl[sim.VariantName]
		if !ok {
			t.Errorf("unexpected variant %s", sim.VariantName)
			continue
		}
		if diff := sim.RealizedPnlSol - want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("%s: RealizedPnlSol %g, want %g", sim.VariantName, sim.RealizedPnlSol, want)
		}
		if sim.CreatedAtMs != testClock().UnixMilli() {
			t.Errorf("%s: CreatedAtMs %d, want %d", sim.VariantName, sim.CreatedAtMs, testClock().UnixMilli())
		}
	}

	// The five in-position prices form the archived path.
	path, err := priceSampleStore.GetByTradeID(ctx, tradeID)
	if err != nil {
		t.Fatalf("archived price path not found: %v", err)
	}
	if len(path) != 5 {
		t.Errorf("Expected 5 price samples, got %d", len(path))
	}

	// Report on disk.
	report, err := os.ReadFile(cfg.ReportPath)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	text := string(report)
	for _, want := range []string{
		"LADDER STRATEGY REPLAY",
		"Trades in window: 1",
		"Trade 1 | steps 2 | real PnL 0.050000 SOL | duration 35s | samples 5",
		"10/15/25/50",
		"Legend:",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q\n%s", want, text)
		}
	}
}

func TestRunner_RerunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, canonicalLog)

	tradeStore := memory.NewTradeStore()
	simulationStore := memory.NewSimulationStore()
	priceSampleStore := memory.NewPriceSampleStore()

	runner := New(Options{
		Config:           cfg,
		TradeStore:       tradeStore,
		SimulationStore:  simulationStore,
		PriceSampleStore: priceSampleStore,
		Clock:            testClock,
		Location:         time.UTC,
	})

	if _, err := runner.Run(ctx); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	result, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if result.TradesArchived != 0 {
		t.Errorf("second run archived %d trades, want 0", result.TradesArchived)
	}
	if len(result.Errors) != 0 {
		t.Errorf("second run errors: %v", result.Errors)
	}

	count, err := tradeStore.Count(ctx)
	if err != nil {
		t.Fatalf("count trades: %v", err)
	}
	if count != 1 {
		t.Errorf("trade count after rerun: got %d, want 1", count)
	}

	simCount, err := simulationStore.Count(ctx)
	if err != nil {
		t.Fatalf("count simulations: %v", err)
	}
	if simCount != 4 {
		t.Errorf("simulation count after rerun: got %d, want 4", simCount)
	}
}

func TestRunner_MissingLogFails(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.TradeLogPath = filepath.Join(dir, "does-not-exist.log")
	cfg.ReportPath = filepath.Join(dir, "report.txt")

	runner := New(Options{Config: &cfg, Clock: testClock, Location: time.UTC})

	if _, err := runner.Run(ctx); err == nil {
		t.Fatal("expected error for missing log")
	}
}

func TestRunner_WindowFilterExcludesOldTrades(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, canonicalLog)

	// Three days after the trade; the 24h window excludes it.
	lateClock := func() time.Time {
		return time.Date(2024, 3, 18, 13, 0, 0, 0, time.UTC)
	}

	runner := New(Options{Config: cfg, Clock: lateClock, Location: time.UTC})

	result, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.TradesReconstructed != 1 {
		t.Errorf("TradesReconstructed: got %d, want 1", result.TradesReconstructed)
	}
	if result.TradesInWindow != 0 {
		t.Errorf("TradesInWindow: got %d, want 0", result.TradesInWindow)
	}

	report, err := os.ReadFile(cfg.ReportPath)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	if !strings.Contains(string(report), "Trades in window: 0") {
		t.Errorf("report should show zero trades:\n%s", report)
	}
}

func TestRunner_EmptySeriesOmitted(t *testing.T) {
	ctx := context.Background()

	// The open position never logs a usable price.
	lines := []string{
		"2024-03-15 12:00:00 | monitor | 0 buys | - | - | - | - | - | - | 10.0",
		"2024-03-15 12:00:05 BUY confirmed for " + wsol,
		"2024-03-15 12:00:10 | position | 1 buys | - | - | - | - | - | - | -",
		"2024-03-15 12:00:35 SELL confirmed for " + wsol,
		"2024-03-15 12:00:40 | monitor | 0 buys | - | - | - | - | - | - | 10.05",
	}
	cfg := testConfig(t, lines)

	runner := New(Options{Config: cfg, Clock: testClock, Location: time.UTC})

	result, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.TradesInWindow != 1 {
		t.Errorf("TradesInWindow: got %d, want 1", result.TradesInWindow)
	}
	if result.TradesReported != 0 {
		t.Errorf("TradesReported: got %d, want 0", result.TradesReported)
	}
	if result.EmptySeriesSkipped != 1 {
		t.Errorf("EmptySeriesSkipped: got %d, want 1", result.EmptySeriesSkipped)
	}
	if result.SimulationsRun != 0 {
		t.Errorf("SimulationsRun: got %d, want 0", result.SimulationsRun)
	}
}

func TestRunner_DegenerateFirstPriceKeepsSummary(t *testing.T) {
	ctx := context.Background()

	// First in-window price is zero, so no variant can open a position.
	lines := []string{
		"2024-03-15 12:00:00 | monitor | 0 buys | - | - | - | - | - | - | 10.0",
		"2024-03-15 12:00:05 BUY confirmed for " + wsol,
		"2024-03-15 12:00:10 | position | 1 buys | 0 | 0 | - | - | - | - | -",
		"2024-03-15 12:00:15 | position | 1 buys | 0.00000001 | 0.00000001 | - | - | - | - | -",
		"2024-03-15 12:00:35 SELL confirmed for " + wsol,
		"2024-03-15 12:00:40 | monitor | 0 buys | - | - | - | - | - | - | 10.05",
	}
	cfg := testConfig(t, lines)

	runner := New(Options{Config: cfg, Clock: testClock, Location: time.UTC})

	result, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.TradesReported != 1 {
		t.Errorf("TradesReported: got %d, want 1", result.TradesReported)
	}
	if result.DegenerateSkipped != 1 {
		t.Errorf("DegenerateSkipped: got %d, want 1", result.DegenerateSkipped)
	}
	if result.SimulationsRun != 0 {
		t.Errorf("SimulationsRun: got %d, want 0", result.SimulationsRun)
	}

	report, err := os.ReadFile(cfg.ReportPath)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	text := string(report)
	if !strings.Contains(text, "Trades in window: 1") {
		t.Errorf("report should keep the trade summary:\n%s", text)
	}
	// No table rows without simulations.
	if strings.Contains(text, "TAKE_PROFIT") || strings.Contains(text, "FORCED_CLOSE") {
		t.Errorf("report should not contain simulation rows:\n%s", text)
	}
}

func TestRunner_NoStoresSkipsArchival(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, canonicalLog)

	runner := New(Options{Config: cfg, Clock: testClock, Location: time.UTC})

	result, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.TradesReported != 1 {
		t.Errorf("TradesReported: got %d, want 1", result.TradesReported)
	}
	if result.TradesArchived != 0 {
		t.Errorf("TradesArchived: got %d, want 0", result.TradesArchived)
	}
}
