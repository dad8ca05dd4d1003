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
	// Ingestion metrics
	PriceRowsIngested prometheus.Counter
	IngestionErrors   prometheus.Counter

	// Simulation metrics
	SimulationsRun     *prometheus.CounterVec
	SimulationErrors   *prometheus.CounterVec
	BankruptciesTotal  *prometheus.CounterVec
	SimulationDuration prometheus.Histogram
	MonthsSimulated    prometheus.Counter

	// Persistence metrics
	RunsPersisted   prometheus.Counter
	DuplicateRuns   prometheus.Counter
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Reporting metrics
	ReportsGenerated prometheus.Counter
	ChartsRendered   prometheus.Counter

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "clec_backtest"
	}

	return &Metrics{
		// Ingestion metrics
		PriceRowsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "price_rows_ingested_total",
			Help:      "Total number of monthly price rows ingested",
		}),
		IngestionErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "errors_total",
			Help:      "Total number of price ingestion errors",
		}),

		// Simulation metrics
		SimulationsRun: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "runs_total",
			Help:      "Total number of simulations run by strategy",
		}, []string{"strategy"}),
		SimulationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "errors_total",
			Help:      "Total number of failed simulations by strategy",
		}, []string{"strategy"}),
		BankruptciesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "bankruptcies_total",
			Help:      "Total number of simulations ending in forced liquidation",
		}, []string{"strategy"}),
		SimulationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "duration_seconds",
			Help:      "Single simulation execution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		MonthsSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "months_simulated_total",
			Help:      "Total number of portfolio months simulated",
		}),

		// Persistence metrics
		RunsPersisted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "runs_persisted_total",
			Help:      "Total number of simulation runs written to storage",
		}),
		DuplicateRuns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "duplicate_runs_total",
			Help:      "Total number of runs skipped as already stored",
		}),
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

		// Reporting metrics
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reporting",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),
		ChartsRendered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reporting",
			Name:      "charts_rendered_total",
			Help:      "Total number of equity charts rendered",
		}),

		// Health metrics
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of the last successful orchestrator run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSimulation records a completed simulation.
func RecordSimulation(strategy string, durationSeconds float64, months int, bankrupt bool) {
	DefaultMetrics.SimulationsRun.WithLabelValues(strategy).Inc()
	DefaultMetrics.SimulationDuration.Observe(durationSeconds)
	DefaultMetrics.MonthsSimulated.Add(float64(months))
	if bankrupt {
		DefaultMetrics.BankruptciesTotal.WithLabelValues(strategy).Inc()
	}
}

// RecordSimulationError records a failed simulation.
func RecordSimulationError(strategy string) {
	DefaultMetrics.SimulationErrors.WithLabelValues(strategy).Inc()
}

// RecordRowsIngested increments the ingested price row counter.
func RecordRowsIngested(n int) {
	DefaultMetrics.PriceRowsIngested.Add(float64(n))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordReportGenerated increments the reports generated counter.
func RecordReportGenerated() {
	DefaultMetrics.ReportsGenerated.Inc()
}
