// Package main runs the replay on a schedule and serves the
// operational HTTP surface: /health, /metrics, /status and the /ws
// run feed.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"solana-ladder-lab/internal/config"
	"solana-ladder-lab/internal/observability"
	"solana-ladder-lab/internal/pipeline"
	"solana-ladder-lab/internal/runfeed"
	"solana-ladder-lab/internal/storage"
	chstore "solana-ladder-lab/internal/storage/clickhouse"
	"solana-ladder-lab/internal/storage/migrations"
	pgstore "solana-ladder-lab/internal/storage/postgres"
)

// Server schedules replay runs and tracks their outcomes.
type Server struct {
	cfg    *config.Config
	runner *pipeline.Runner
	feed   *runfeed.Hub
	logger *log.Logger

	// State
	mu         sync.Mutex
	running    bool
	lastRun    time.Time
	lastRunID  string
	lastError  string
	runs       int
	failedRuns int
	startedAt  time.Time
}

func main() {
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Environment first, flags override.
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	tradeLog := flag.String("trade-log", cfg.TradeLogPath, "Path to the trading process log")
	reportPath := flag.String("report", cfg.ReportPath, "Report output path")
	windowSeconds := flag.Int64("window-seconds", cfg.LogWindowSeconds, "Report window in seconds")
	intervalSeconds := flag.Int("interval-seconds", cfg.RunIntervalSeconds, "Seconds between scheduled runs")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string (archival)")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickHouseDSN, "ClickHouse connection string (archival)")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "HTTP listen address")
	verbose := flag.Bool("verbose", true, "Log pipeline phases")

	flag.Parse()

	cfg.TradeLogPath = *tradeLog
	cfg.ReportPath = *reportPath
	cfg.LogWindowSeconds = *windowSeconds
	cfg.RunIntervalSeconds = *intervalSeconds
	cfg.PostgresDSN = *postgresDSN
	cfg.ClickHouseDSN = *clickhouseDSN
	cfg.MetricsAddr = *metricsAddr

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	tradeStore, simulationStore, priceSampleStore, cleanup, err := createStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("create stores: %v", err)
	}
	defer cleanup()

	// Run feed hub
	feed := runfeed.NewHub(nil, log.New(os.Stdout, "[runfeed] ", log.LstdFlags))
	go feed.Run(ctx)

	runner := pipeline.New(pipeline.Options{
		Config:           cfg,
		TradeStore:       tradeStore,
		SimulationStore:  simulationStore,
		PriceSampleStore: priceSampleStore,
		Verbose:          *verbose,
	})

	server := &Server{
		cfg:       cfg,
		runner:    runner,
		feed:      feed,
		logger:    logger,
		startedAt: time.Now(),
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Start HTTP server
	go server.startHTTPServer(cfg.MetricsAddr)

	// Run the scheduler
	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores connects the archival stores. With no DSNs configured
// the server runs report-only; a single DSN is a misconfiguration.
func createStores(ctx context.Context, cfg *config.Config, logger *log.Logger) (storage.TradeStore, storage.SimulationStore, storage.PriceSampleStore, func(), error) {
	if cfg.PostgresDSN == "" && cfg.ClickHouseDSN == "" {
		logger.Println("No database DSNs configured, archival disabled")
		return nil, nil, nil, func() {}, nil
	}
	if cfg.PostgresDSN == "" || cfg.ClickHouseDSN == "" {
		return nil, nil, nil, nil, fmt.Errorf("archival needs both POSTGRES_DSN and CLICKHOUSE_DSN")
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	cleanup := func() {
		conn.Close()
		pool.Close()
	}

	return pgstore.NewTradeStore(pool), pgstore.NewSimulationStore(pool), chstore.NewPriceSampleStore(conn), cleanup, nil
}

// Run executes one replay immediately, then on every tick.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Printf("Starting scheduler (interval: %ds)...", s.cfg.RunIntervalSeconds)

	s.runOnce(ctx)

	ticker := time.NewTicker(time.Duration(s.cfg.RunIntervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce executes a single replay run and broadcasts its summary.
func (s *Server) runOnce(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Println("Run already in progress, skipping...")
		return
	}
	s.running = true
	s.mu.Unlock()

	runID := uuid.New().String()
	start := time.Now()
	s.logger.Printf("Starting run %s...", runID)

	result, err := s.runner.Run(ctx)

	s.mu.Lock()
	s.running = false
	s.lastRun = time.Now()
	s.lastRunID = runID
	s.runs++
	if err != nil {
		s.failedRuns++
		s.lastError = err.Error()
	} else {
		s.lastError = ""
	}
	s.mu.Unlock()

	update := runfeed.RunUpdate{
		Type:   runfeed.MessageTypeRunCompleted,
		RunID:  runID,
		Status: "success",
	}
	if err != nil {
		s.logger.Printf("Run %s failed: %v", runID, err)
		update.Status = "error"
		update.Error = err.Error()
		update.DurationMs = time.Since(start).Milliseconds()
	} else {
		s.logger.Printf("Run %s completed in %v: %d trades reported, %d simulations, %d archived",
			runID, time.Since(start), result.TradesReported, result.SimulationsRun, result.TradesArchived)
		for _, e := range result.Errors {
			s.logger.Printf("archive error: %s", e)
		}
		update.GeneratedAtMs = result.GeneratedAtMs
		update.TradesInWindow = result.TradesInWindow
		update.TradesReported = result.TradesReported
		update.SimulationsRun = result.SimulationsRun
		update.TradesArchived = result.TradesArchived
		update.DurationMs = result.DurationMs
	}

	if err := s.feed.Broadcast(update); err != nil {
		s.logger.Printf("feed broadcast: %v", err)
	}
}

// startHTTPServer starts the HTTP server for health/metrics/status/ws.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	// Run feed
	mux.HandleFunc("/ws", s.feed.HandleWS)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status      string    `json:"status"`
	Uptime      string    `json:"uptime"`
	StartedAt   time.Time `json:"started_at"`
	LastRun     time.Time `json:"last_run,omitempty"`
	LastRunID   string    `json:"last_run_id,omitempty"`
	Runs        int       `json:"runs"`
	FailedRuns  int       `json:"failed_runs"`
	Running     bool      `json:"running"`
	FeedClients int       `json:"feed_clients"`
	LastError   string    `json:"last_error,omitempty"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:     "running",
		Uptime:     time.Since(s.startedAt).String(),
		StartedAt:  s.startedAt,
		LastRun:    s.lastRun,
		LastRunID:  s.lastRunID,
		Runs:       s.runs,
		FailedRuns: s.failedRuns,
		Running:    s.running,
		LastError:  s.lastError,
	}
	s.mu.Unlock()

	resp.FeedClients = s.feed.ClientCount()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
