// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Log scan metrics
	LinesScanned     prometheus.Counter
	EventsClassified *prometheus.CounterVec
	ScanErrors       prometheus.Counter

	// Reconstruction metrics
	TradesReconstructed prometheus.Counter
	TradesDiscarded     *prometheus.CounterVec
	TradesInWindow      prometheus.Gauge

	// Simulation metrics
	SimulationsRun    *prometheus.CounterVec
	SimulationsFailed *prometheus.CounterVec

	// Run metrics
	RunsTotal      *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	ReportsWritten prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Run feed metrics
	FeedClientsConnected prometheus.Gauge
	FeedMessagesSent     prometheus.Counter

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
	UptimeSeconds     prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_ladder_lab"
	}

	return &Metrics{
		// Log scan metrics
		LinesScanned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "logscan",
			Name:      "lines_scanned_total",
			Help:      "Total number of log lines scanned",
		}),
		EventsClassified: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "logscan",
			Name:      "events_classified_total",
			Help:      "Total number of classified events by type",
		}, []string{"event_type"}),
		ScanErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "logscan",
			Name:      "scan_errors_total",
			Help:      "Total number of log read failures",
		}),

		// Reconstruction metrics
		TradesReconstructed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconstruct",
			Name:      "trades_total",
			Help:      "Total number of trades reconstructed",
		}),
		TradesDiscarded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconstruct",
			Name:      "trades_discarded_total",
			Help:      "Total number of trades discarded by reason",
		}, []string{"reason"}),
		TradesInWindow: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reconstruct",
			Name:      "trades_in_window",
			Help:      "Trades inside the report window on the last run",
		}),

		// Simulation metrics
		SimulationsRun: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ladder",
			Name:      "simulations_total",
			Help:      "Total number of ladder simulations by variant",
		}, []string{"variant"}),
		SimulationsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ladder",
			Name:      "simulations_failed_total",
			Help:      "Total number of ladder simulations skipped or failed",
		}, []string{"reason"}),

		// Run metrics
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		}, []string{"status"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Pipeline run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),
		ReportsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "reports_written_total",
			Help:      "Total number of reports written",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Run feed metrics
		FeedClientsConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "runfeed",
			Name:      "clients_connected",
			Help:      "Number of connected run feed clients",
		}),
		FeedMessagesSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runfeed",
			Name:      "messages_sent_total",
			Help:      "Total number of run summaries broadcast",
		}),

		// Health metrics
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordLinesScanned adds to the lines scanned counter.
func RecordLinesScanned(n int) {
	DefaultMetrics.LinesScanned.Add(float64(n))
}

// RecordEventClassified increments the classified events counter.
func RecordEventClassified(eventType string) {
	DefaultMetrics.EventsClassified.WithLabelValues(eventType).Inc()
}

// RecordScanError increments the log read failure counter.
func RecordScanError() {
	DefaultMetrics.ScanErrors.Inc()
}

// RecordTradesReconstructed adds to the reconstructed trades counter.
func RecordTradesReconstructed(n int) {
	DefaultMetrics.TradesReconstructed.Add(float64(n))
}

// RecordTradeDiscarded records a discarded trade.
func RecordTradeDiscarded(reason string) {
	DefaultMetrics.TradesDiscarded.WithLabelValues(reason).Inc()
}

// RecordSimulation increments the simulations counter for a variant.
func RecordSimulation(variant string) {
	DefaultMetrics.SimulationsRun.WithLabelValues(variant).Inc()
}

// RecordSimulationFailure records a skipped or failed simulation.
func RecordSimulationFailure(reason string) {
	DefaultMetrics.SimulationsFailed.WithLabelValues(reason).Inc()
}

// RecordRun records a pipeline run.
func RecordRun(status string, durationSeconds float64) {
	DefaultMetrics.RunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.RunDuration.Observe(durationSeconds)
}

// RecordReportWritten increments the reports written counter.
func RecordReportWritten() {
	DefaultMetrics.ReportsWritten.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordTradesInWindow sets the trades-in-window gauge.
func RecordTradesInWindow(n int) {
	DefaultMetrics.TradesInWindow.Set(float64(n))
}

// RecordSuccessfulRun marks the completion time of a successful run.
func RecordSuccessfulRun(unixSeconds int64) {
	DefaultMetrics.LastSuccessfulRun.Set(float64(unixSeconds))
}

// RecordFeedClientConnected increments the run feed client gauge.
func RecordFeedClientConnected() {
	DefaultMetrics.FeedClientsConnected.Inc()
}

// RecordFeedClientDisconnected decrements the run feed client gauge.
func RecordFeedClientDisconnected() {
	DefaultMetrics.FeedClientsConnected.Dec()
}

// RecordFeedMessageSent records one message delivered to a feed client.
func RecordFeedMessageSent() {
	DefaultMetrics.FeedMessagesSent.Inc()
}
