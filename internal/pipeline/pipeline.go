// Package pipeline runs the end-to-end replay: scan the trading
// process log, reconstruct completed trades, simulate every ladder
// variant against each trade's price path, render the report, and
// archive the results when stores are configured.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"solana-ladder-lab/internal/config"
	"solana-ladder-lab/internal/domain"
	"solana-ladder-lab/internal/idhash"
	"solana-ladder-lab/internal/ladder"
	"solana-ladder-lab/internal/logscan"
	"solana-ladder-lab/internal/observability"
	"solana-ladder-lab/internal/reconstruct"
	"solana-ladder-lab/internal/reporting"
	"solana-ladder-lab/internal/series"
	"solana-ladder-lab/internal/solana"
	"solana-ladder-lab/internal/storage"
)

// Runner coordinates one replay run.
type Runner struct {
	cfg *config.Config

	// Optional stores; archival is skipped when nil.
	tradeStore       storage.TradeStore
	simulationStore  storage.SimulationStore
	priceSampleStore storage.PriceSampleStore

	clock    func() time.Time
	location *time.Location
	verbose  bool
}

// Options for creating a Runner.
type Options struct {
	Config *config.Config

	// Optional stores. All three must be set for archival to run;
	// a nil store disables its phase.
	TradeStore       storage.TradeStore
	SimulationStore  storage.SimulationStore
	PriceSampleStore storage.PriceSampleStore

	// Clock overrides time.Now, pinning the report window in tests.
	Clock func() time.Time
	// Location sets the zone for log timestamp parsing and report
	// rendering. Defaults to the local zone, matching how the trading
	// process writes its log.
	Location *time.Location
	Verbose  bool
}

// New creates a new Runner.
func New(opts Options) *Runner {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	return &Runner{
		cfg:              opts.Config,
		tradeStore:       opts.TradeStore,
		simulationStore:  opts.SimulationStore,
		priceSampleStore: opts.PriceSampleStore,
		clock:            clock,
		location:         loc,
		verbose:          opts.Verbose,
	}
}

// RunResult contains counters from one replay run.
type RunResult struct {
	LinesScanned        int
	EventsClassified    int
	TradesReconstructed int
	TradesInWindow      int
	TradesReported      int
	SimulationsRun      int
	EmptySeriesSkipped  int
	DegenerateSkipped   int
	TradesArchived      int
	ReportPath          string
	GeneratedAtMs       int64
	DurationMs          int64
	Errors              []string

	// Report is the rendered report, for console previews.
	Report *reporting.Report
}

// Run executes the full replay.
// Phases:
//  1. Scan and classify the log
//  2. Reconstruct completed trades
//  3. Filter trades to the report window
//  4. Extract price paths and simulate all variants
//  5. Render and write the report
//  6. Archive trades, simulations and price paths
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	start := r.clock()
	result := &RunResult{ReportPath: r.cfg.ReportPath}

	fail := func(err error) (*RunResult, error) {
		observability.RecordRun("error", r.clock().Sub(start).Seconds())
		return nil, err
	}

	// Phase 1: scan
	r.log("Phase 1: Scanning %s...", r.cfg.TradeLogPath)
	events, lines, err := r.scanLog()
	if err != nil {
		observability.RecordScanError()
		return fail(err)
	}
	result.LinesScanned = lines
	result.EventsClassified = len(events)
	observability.RecordLinesScanned(lines)
	for _, ev := range events {
		observability.RecordEventClassified(string(ev.Type))
	}
	r.log("  %d lines, %d events", lines, len(events))

	// Phase 2: reconstruct
	r.log("Phase 2: Reconstructing trades...")
	trades := reconstruct.Reconstruct(events)
	result.TradesReconstructed = len(trades)
	observability.RecordTradesReconstructed(len(trades))
	r.log("  %d completed trades", len(trades))

	// Phase 3: window filter
	now := start.UnixMilli()
	windowStart := now - r.cfg.LogWindowSeconds*1000
	var inWindow []*domain.ReconstructedTrade
	for _, t := range trades {
		if t.EntryTimestampMs >= windowStart && t.ExitTimestampMs <= now {
			inWindow = append(inWindow, t)
		}
	}
	result.TradesInWindow = len(inWindow)
	observability.RecordTradesInWindow(len(inWindow))
	r.log("Phase 3: %d trades in the last %ds", len(inWindow), r.cfg.LogWindowSeconds)

	// Phase 4: price paths and simulations
	r.log("Phase 4: Running simulations...")
	samples := metricSamples(events)
	paramsDigest := idhash.ComputeParamsDigest(
		r.cfg.BaseProfitTargetBps, r.cfg.HardStopBps, r.cfg.ProfitStepBps,
		r.cfg.DrawdownTriggers, r.cfg.CapitalSol,
	)

	var sections []reporting.TradeSection
	paths := make(map[string][]domain.PriceSample)
	for _, t := range inWindow {
		path := series.Extract(t, samples)
		if len(path) == 0 {
			result.EmptySeriesSkipped++
			observability.RecordTradeDiscarded("empty_series")
			continue
		}

		t.TradeID = idhash.ComputeTradeID(t.Mint, t.EntryTimestampMs, t.ExitTimestampMs, t.SellMarkerMs)
		t.MintOnCurve = mintOnCurve(t.Mint)

		results, err := r.simulateVariants(ctx, path)
		if err != nil {
			if errors.Is(err, ladder.ErrNonPositivePrice) {
				// The trade still gets a section, just without
				// simulation rows.
				result.DegenerateSkipped++
				observability.RecordSimulationFailure("non_positive_price")
				results = nil
			} else {
				return fail(fmt.Errorf("simulate trade %s: %w", t.TradeID, err))
			}
		}
		result.SimulationsRun += len(results)

		paths[t.TradeID] = path
		sections = append(sections, reporting.TradeSection{
			Index:       len(sections) + 1,
			Trade:       t,
			Levels:      series.ComputeLevels(path),
			SampleCount: len(path),
			Results:     results,
		})
	}
	result.TradesReported = len(sections)
	r.log("  %d trades reported, %d simulations", len(sections), result.SimulationsRun)

	// Phase 5: render and write
	r.log("Phase 5: Writing report to %s...", r.cfg.ReportPath)
	report := &reporting.Report{
		GeneratedAtMs: now,
		Location:      r.location,
		WindowSeconds: r.cfg.LogWindowSeconds,
		Params:        r.cfg.Params(),
		Variants:      r.cfg.Variants,
		Trades:        sections,
	}
	if err := os.WriteFile(r.cfg.ReportPath, []byte(reporting.Render(report)), 0o644); err != nil {
		return fail(fmt.Errorf("write report: %w", err))
	}
	result.GeneratedAtMs = now
	result.Report = report
	observability.RecordReportWritten()

	// Phase 6: archive
	if r.tradeStore != nil && r.simulationStore != nil && r.priceSampleStore != nil {
		r.log("Phase 6: Archiving...")
		archived, errs := r.archive(ctx, now, paramsDigest, sections, paths)
		result.TradesArchived = archived
		result.Errors = append(result.Errors, errs...)
		r.log("  %d trades archived (%d errors)", archived, len(errs))
	}

	elapsed := r.clock().Sub(start)
	result.DurationMs = elapsed.Milliseconds()
	observability.RecordRun("success", elapsed.Seconds())
	observability.RecordSuccessfulRun(r.clock().Unix())

	r.log("Run completed: %d trades reported, %d simulations, %dms",
		result.TradesReported, result.SimulationsRun, result.DurationMs)

	return result, nil
}

// scanLog reads the whole log snapshot and classifies every line.
func (r *Runner) scanLog() ([]logscan.Event, int, error) {
	f, err := os.Open(r.cfg.TradeLogPath)
	if err != nil {
		return nil, 0, fmt.Errorf("open trade log: %w", err)
	}
	defer f.Close()

	events, lines, err := logscan.NewClassifierInLocation(r.location).ScanAll(f)
	if err != nil {
		return nil, lines, fmt.Errorf("scan trade log: %w", err)
	}
	return events, lines, nil
}

// simulateVariants replays every configured variant against one price
// path. Variants are independent, so they run concurrently.
func (r *Runner) simulateVariants(ctx context.Context, path []domain.PriceSample) ([]*domain.SimulationResult, error) {
	params := r.cfg.Params()
	results := make([]*domain.SimulationResult, len(r.cfg.Variants))

	g, _ := errgroup.WithContext(ctx)
	for i, variant := range r.cfg.Variants {
		i, variant := i, variant
		g.Go(func() error {
			res, err := ladder.Simulate(path, variant, params)
			if err != nil {
				return fmt.Errorf("variant %s: %w", variant.Name, err)
			}
			results[i] = res
			observability.RecordSimulation(variant.Name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// archive persists reported trades, their simulations and price paths.
// A duplicate key means a previous run already archived the trade, so
// it is skipped rather than treated as a failure.
func (r *Runner) archive(ctx context.Context, nowMs int64, paramsDigest string, sections []reporting.TradeSection, paths map[string][]domain.PriceSample) (int, []string) {
	var archived int
	var errs []string

	for _, sec := range sections {
		t := sec.Trade

		begin := time.Now()
		err := r.tradeStore.Insert(ctx, t)
		observability.RecordDBQuery("postgres", "insert_trade", time.Since(begin).Seconds(), ignoreDuplicate(err))
		if errors.Is(err, storage.ErrDuplicateKey) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("archive trade %s: %v", t.TradeID, err))
			continue
		}

		recs := make([]*domain.SimulationRecord, 0, len(sec.Results))
		for _, res := range sec.Results {
			recs = append(recs, &domain.SimulationRecord{
				SimulationID:    idhash.ComputeSimulationID(t.TradeID, res.VariantName, paramsDigest),
				TradeID:         t.TradeID,
				VariantName:     res.VariantName,
				ParamsDigest:    paramsDigest,
				ExitIndex:       res.ExitIndex,
				StepsUsed:       res.StepsUsed,
				RealizedPnlSol:  res.RealizedPnlSol,
				PnlBps:          res.PnlBps,
				TargetBpsAtExit: res.TargetBpsAtExit,
				ExitKind:        res.ExitKind,
				CreatedAtMs:     nowMs,
			})
		}

		begin = time.Now()
		err = r.simulationStore.InsertBulk(ctx, recs)
		observability.RecordDBQuery("postgres", "insert_simulations", time.Since(begin).Seconds(), ignoreDuplicate(err))
		if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			errs = append(errs, fmt.Sprintf("archive simulations for %s: %v", t.TradeID, err))
			continue
		}

		begin = time.Now()
		err = r.priceSampleStore.InsertBulk(ctx, t.TradeID, paths[t.TradeID])
		observability.RecordDBQuery("clickhouse", "insert_price_samples", time.Since(begin).Seconds(), ignoreDuplicate(err))
		if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			errs = append(errs, fmt.Sprintf("archive price path for %s: %v", t.TradeID, err))
			continue
		}

		archived++
	}

	return archived, errs
}

// metricSamples pulls the metric samples out of the event stream, in
// log order.
func metricSamples(events []logscan.Event) []*domain.MetricSample {
	var out []*domain.MetricSample
	for _, ev := range events {
		if ev.Type == logscan.EventTypeMetric && ev.Sample != nil {
			out = append(out, ev.Sample)
		}
	}
	return out
}

// mintOnCurve reports whether the mint decodes to an ed25519 curve
// point, nil when the trade carries no usable mint.
func mintOnCurve(mint string) *bool {
	if mint == "" {
		return nil
	}
	addr, err := solana.ParseAddress(mint)
	if err != nil {
		return nil
	}
	onCurve := addr.IsOnCurve()
	return &onCurve
}

// ignoreDuplicate drops ErrDuplicateKey so reruns don't count as
// query errors.
func ignoreDuplicate(err error) error {
	if errors.Is(err, storage.ErrDuplicateKey) {
		return nil
	}
	return err
}

func (r *Runner) log(format string, args ...interface{}) {
	if r.verbose {
		log.Printf("[pipeline] "+format, args...)
	}
}
