// Package main runs one replay of the trading process log: scan,
// reconstruct completed trades, simulate every ladder variant, write
// the report, and archive the results when databases are configured.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"

	"solana-ladder-lab/internal/config"
	"solana-ladder-lab/internal/pipeline"
	"solana-ladder-lab/internal/reporting"
	"solana-ladder-lab/internal/storage"
	chstore "solana-ladder-lab/internal/storage/clickhouse"
	"solana-ladder-lab/internal/storage/migrations"
	pgstore "solana-ladder-lab/internal/storage/postgres"
)

func main() {
	logger := log.New(os.Stderr, "[replay] ", log.LstdFlags)

	// Environment first, flags override.
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	tradeLog := flag.String("trade-log", cfg.TradeLogPath, "Path to the trading process log")
	reportPath := flag.String("report", cfg.ReportPath, "Report output path")
	windowSeconds := flag.Int64("window-seconds", cfg.LogWindowSeconds, "Report window in seconds")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string (archival)")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickHouseDSN, "ClickHouse connection string (archival)")
	preview := flag.Bool("preview", false, "Print the simulation table to stdout")
	outputJSON := flag.Bool("json", false, "Print the run summary as JSON")
	verbose := flag.Bool("verbose", false, "Log pipeline phases")

	flag.Parse()

	cfg.TradeLogPath = *tradeLog
	cfg.ReportPath = *reportPath
	cfg.LogWindowSeconds = *windowSeconds
	cfg.PostgresDSN = *postgresDSN
	cfg.ClickHouseDSN = *clickhouseDSN

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	// Archival stores; a run without them still writes the report.
	var (
		tradeStore       storage.TradeStore
		simulationStore  storage.SimulationStore
		priceSampleStore storage.PriceSampleStore
	)
	switch {
	case cfg.PostgresDSN != "" && cfg.ClickHouseDSN != "":
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			logger.Fatalf("connect to postgres: %v", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatalf("postgres migrations: %v", err)
		}

		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
		if err != nil {
			logger.Fatalf("clickhouse migrations: %v", err)
		}
		defer conn.Close()

		tradeStore = pgstore.NewTradeStore(pool)
		simulationStore = pgstore.NewSimulationStore(pool)
		priceSampleStore = chstore.NewPriceSampleStore(conn)

	case cfg.PostgresDSN != "" || cfg.ClickHouseDSN != "":
		logger.Println("Archival needs both --postgres-dsn and --clickhouse-dsn; skipping")
	}

	runID := uuid.New().String()
	logger.Printf("Starting run %s (log=%s window=%ds)", runID, cfg.TradeLogPath, cfg.LogWindowSeconds)

	runner := pipeline.New(pipeline.Options{
		Config:           cfg,
		TradeStore:       tradeStore,
		SimulationStore:  simulationStore,
		PriceSampleStore: priceSampleStore,
		Verbose:          *verbose,
	})

	result, err := runner.Run(ctx)
	if err != nil {
		logger.Fatalf("run failed: %v", err)
	}
	for _, e := range result.Errors {
		logger.Printf("archive error: %s", e)
	}

	if *outputJSON {
		out, _ := json.MarshalIndent(newRunSummary(runID, result), "", "  ")
		fmt.Println(string(out))
		return
	}

	printSummary(runID, result)
	if *preview && result.Report != nil {
		printPreview(result.Report)
	}
}

// runSummary is the JSON shape of one run for --json output.
type runSummary struct {
	RunID               string   `json:"run_id"`
	LinesScanned        int      `json:"lines_scanned"`
	EventsClassified    int      `json:"events_classified"`
	TradesReconstructed int      `json:"trades_reconstructed"`
	TradesInWindow      int      `json:"trades_in_window"`
	TradesReported      int      `json:"trades_reported"`
	SimulationsRun      int      `json:"simulations_run"`
	EmptySeriesSkipped  int      `json:"empty_series_skipped"`
	DegenerateSkipped   int      `json:"degenerate_skipped"`
	TradesArchived      int      `json:"trades_archived"`
	ReportPath          string   `json:"report_path"`
	DurationMs          int64    `json:"duration_ms"`
	Errors              []string `json:"errors,omitempty"`
}

func newRunSummary(runID string, r *pipeline.RunResult) runSummary {
	return runSummary{
		RunID:               runID,
		LinesScanned:        r.LinesScanned,
		EventsClassified:    r.EventsClassified,
		TradesReconstructed: r.TradesReconstructed,
		TradesInWindow:      r.TradesInWindow,
		TradesReported:      r.TradesReported,
		SimulationsRun:      r.SimulationsRun,
		EmptySeriesSkipped:  r.EmptySeriesSkipped,
		DegenerateSkipped:   r.DegenerateSkipped,
		TradesArchived:      r.TradesArchived,
		ReportPath:          r.ReportPath,
		DurationMs:          r.DurationMs,
		Errors:              r.Errors,
	}
}

func printSummary(runID string, r *pipeline.RunResult) {
	fmt.Printf("\n=== Run Summary ===\n")
	fmt.Printf("Run ID:               %s\n", runID)
	fmt.Printf("Lines scanned:        %d\n", r.LinesScanned)
	fmt.Printf("Events classified:    %d\n", r.EventsClassified)
	fmt.Printf("Trades reconstructed: %d\n", r.TradesReconstructed)
	fmt.Printf("Trades in window:     %d\n", r.TradesInWindow)
	fmt.Printf("Trades reported:      %d\n", r.TradesReported)
	fmt.Printf("Simulations run:      %d\n", r.SimulationsRun)
	fmt.Printf("Trades archived:      %d\n", r.TradesArchived)
	fmt.Printf("Duration:             %dms\n", r.DurationMs)
	fmt.Printf("Report:               %s\n", r.ReportPath)
}

// printPreview prints the simulation table of the just-written report.
func printPreview(report *reporting.Report) {
	rows := reporting.TableRows(report)
	if len(rows) == 0 {
		fmt.Println("\nNo simulations in window.")
		return
	}

	fmt.Println()
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("#", "ENTRY", "EXIT", "DUR(S)", "STEPS", "REAL PNL", "VARIANT", "SIM PNL", "SIM PNL%")
	for _, row := range rows {
		table.Append(row[0], row[1], row[2], row[3], row[4], row[5], row[6], row[7], row[8])
	}
	table.Render()
}
