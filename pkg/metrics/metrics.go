package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Block store metrics
	BlocksCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "siodb_blocks_created_total",
			Help: "Total number of column data blocks created",
		},
		[]string{"database", "table"},
	)

	BlocksFinalizedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "siodb_blocks_finalized_total",
			Help: "Total number of column data blocks finalized (digest computed)",
		},
		[]string{"database", "table"},
	)

	BlockDigestFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "siodb_block_digest_failures_total",
			Help: "Total number of block digest computation failures",
		},
	)

	BlockWriteDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "siodb_block_write_duration_seconds",
			Help:    "Time taken to append data to a column block",
			Buckets: prometheus.DefBuckets,
		},
	)

	BlockCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "siodb_block_cache_hits_total",
			Help: "Total number of block cache hits",
		},
	)

	BlockCacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "siodb_block_cache_misses_total",
			Help: "Total number of block cache misses",
		},
	)

	// Main index metrics
	MainIndexLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "siodb_main_index_lookups_total",
			Help: "Total number of master-column main index lookups by result",
		},
		[]string{"result"},
	)

	// Catalog / registry metrics
	RegistryEntriesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "siodb_registry_entries_total",
			Help: "Number of entries currently held in an in-memory catalog registry",
		},
		[]string{"registry"},
	)

	// Database object lifecycle metrics
	TablesCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "siodb_tables_created_total",
			Help: "Total number of tables successfully created",
		},
	)

	TablesDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "siodb_tables_dropped_total",
			Help: "Total number of tables successfully dropped",
		},
	)

	DropTableRollbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "siodb_drop_table_rollbacks_total",
			Help: "Total number of DROP TABLE operations that triggered a Phase C rollback",
		},
	)

	CreateTableValidationErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "siodb_create_table_validation_errors_total",
			Help: "Total number of CREATE TABLE compound validation failures",
		},
	)

	// Instance metrics
	InstanceStartupDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "siodb_instance_startup_duration_seconds",
			Help:    "Time taken to start the instance (open or bootstrap the system database)",
			Buckets: prometheus.DefBuckets,
		},
	)

	ActiveClientSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "siodb_active_client_sessions",
			Help: "Number of currently open client sessions",
		},
	)

	// Permission metrics
	PermissionChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "siodb_permission_checks_total",
			Help: "Total number of permission checks by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(BlocksCreatedTotal)
	prometheus.MustRegister(BlocksFinalizedTotal)
	prometheus.MustRegister(BlockDigestFailuresTotal)
	prometheus.MustRegister(BlockWriteDuration)
	prometheus.MustRegister(BlockCacheHitsTotal)
	prometheus.MustRegister(BlockCacheMissesTotal)
	prometheus.MustRegister(MainIndexLookupsTotal)
	prometheus.MustRegister(RegistryEntriesTotal)
	prometheus.MustRegister(TablesCreatedTotal)
	prometheus.MustRegister(TablesDroppedTotal)
	prometheus.MustRegister(DropTableRollbacksTotal)
	prometheus.MustRegister(CreateTableValidationErrorsTotal)
	prometheus.MustRegister(InstanceStartupDuration)
	prometheus.MustRegister(ActiveClientSessions)
	prometheus.MustRegister(PermissionChecksTotal)
}

// Handler returns the Prometheus HTTP handler for the instance's metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
