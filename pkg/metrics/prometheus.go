// Package metrics provides Prometheus metrics for the constellation
// pipeline and query service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Ingest metrics - one pipeline run fetches up to 24 snapshots
	snapshotsFetched      prometheus.Counter
	snapshotsFailed       prometheus.Counter
	snapshotFetchDuration prometheus.Histogram
	decodeFailures        prometheus.Counter

	// Normalization metrics
	recordsNormalized prometheus.Counter
	recordsDropped    prometheus.Counter
	duplicatesDropped prometheus.Counter

	// Aggregate metrics - the immutable per-run record set
	aggregateSize           prometheus.Gauge
	aggregateRebuildCount   prometheus.Counter
	aggregateRebuildSeconds prometheus.Histogram
	aggregateLastBuildUnix  prometheus.Gauge

	// Analytics metrics
	analyticsQueryDuration prometheus.Histogram

	// Live feed metrics
	liveFeedPositions prometheus.Gauge
	liveFeedErrors    prometheus.Counter

	// Archive metrics
	archiveInserts prometheus.Counter
	archiveErrors  prometheus.Counter

	// HTTP performance metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error tracking
	errorRateByComponent *prometheus.CounterVec

	// System performance metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "constellation",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.snapshotsFetched = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshots_fetched_total",
		Help:      "Total number of hourly snapshots fetched successfully",
	})

	m.snapshotsFailed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshots_failed_total",
		Help:      "Total number of hourly snapshot fetches that failed (transport or status)",
	})

	m.snapshotFetchDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_fetch_duration_milliseconds",
		Help:      "Histogram of per-snapshot fetch duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.decodeFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "decode_failures_total",
		Help:      "Total number of snapshots whose body could not be repaired into JSON",
	})

	m.recordsNormalized = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_normalized_total",
		Help:      "Total number of candidate records normalized successfully",
	})

	m.recordsDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_dropped_total",
		Help:      "Total number of candidate records dropped for unresolvable coordinates",
	})

	m.duplicatesDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "duplicates_dropped_total",
		Help:      "Total number of records dropped as exact duplicates during aggregation",
	})

	m.aggregateSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "aggregate_size",
		Help:      "Number of records in the current aggregate set",
	})

	m.aggregateRebuildCount = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "aggregate_rebuilds_total",
		Help:      "Total number of aggregate set rebuilds",
	})

	m.aggregateRebuildSeconds = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "aggregate_rebuild_duration_seconds",
		Help:      "Histogram of end-to-end pipeline run duration in seconds",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
	})

	m.aggregateLastBuildUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "aggregate_last_build_timestamp_seconds",
		Help:      "Unix time of the last successful aggregate rebuild",
	})

	m.analyticsQueryDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "analytics_query_duration_milliseconds",
		Help:      "Histogram of windowed analytics query duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.liveFeedPositions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "live_feed_positions",
		Help:      "Number of positions in the current live feed cache",
	})

	m.liveFeedErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "live_feed_errors_total",
		Help:      "Total number of live feed fetch or decode errors",
	})

	m.archiveInserts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "archive_inserts_total",
		Help:      "Total number of records written to the archive store",
	})

	m.archiveErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "archive_errors_total",
		Help:      "Total number of archive store errors",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Total errors by component and error type",
		},
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})
}

// RecordSnapshotFetched increments the successful snapshot counter.
func RecordSnapshotFetched() {
	globalManager.snapshotsFetched.Inc()
}

// RecordSnapshotFailed increments the failed snapshot counter.
func RecordSnapshotFailed() {
	globalManager.snapshotsFailed.Inc()
}

// RecordSnapshotFetchDuration records one snapshot fetch duration in milliseconds.
func RecordSnapshotFetchDuration(latencyMs float64) {
	globalManager.snapshotFetchDuration.Observe(latencyMs)
}

// RecordDecodeFailure increments the decode failure counter.
func RecordDecodeFailure() {
	globalManager.decodeFailures.Inc()
}

// RecordRecordsNormalized adds to the normalized record counter.
func RecordRecordsNormalized(n int) {
	globalManager.recordsNormalized.Add(float64(n))
}

// RecordRecordsDropped adds to the dropped record counter.
func RecordRecordsDropped(n int) {
	globalManager.recordsDropped.Add(float64(n))
}

// RecordDuplicatesDropped adds to the duplicate record counter.
func RecordDuplicatesDropped(n int) {
	globalManager.duplicatesDropped.Add(float64(n))
}

// UpdateAggregateSize sets the current aggregate set size gauge.
func UpdateAggregateSize(n int) {
	globalManager.aggregateSize.Set(float64(n))
}

// RecordAggregateRebuild records one completed pipeline run.
func RecordAggregateRebuild(duration time.Duration) {
	globalManager.aggregateRebuildCount.Inc()
	globalManager.aggregateRebuildSeconds.Observe(duration.Seconds())
	globalManager.aggregateLastBuildUnix.Set(float64(time.Now().Unix()))
}

// RecordAnalyticsQueryDuration records one analytics query duration in milliseconds.
func RecordAnalyticsQueryDuration(latencyMs float64) {
	globalManager.analyticsQueryDuration.Observe(latencyMs)
}

// UpdateLiveFeedPositions sets the live feed cache size gauge.
func UpdateLiveFeedPositions(n int) {
	globalManager.liveFeedPositions.Set(float64(n))
}

// RecordLiveFeedError increments the live feed error counter.
func RecordLiveFeedError() {
	globalManager.liveFeedErrors.Inc()
}

// RecordArchiveInserts adds to the archive insert counter.
func RecordArchiveInserts(n int) {
	globalManager.archiveInserts.Add(float64(n))
}

// RecordArchiveError increments the archive error counter.
func RecordArchiveError() {
	globalManager.archiveErrors.Inc()
}

// RecordHTTPRequest increments HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent increments the error counter for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the memory usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
