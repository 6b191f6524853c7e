// Package metrics provides Prometheus metrics for the pacechart service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Draw pipeline
	draws            *prometheus.CounterVec
	drawDuration     prometheus.Histogram
	seriesPlotted    prometheus.Gauge
	seriesExcluded   *prometheus.CounterVec
	indexPoints      prometheus.Gauge
	indexBuildTime   prometheus.Histogram
	indexLinearScans prometheus.Counter
	nearestLatency   prometheus.Histogram

	// Interaction
	pointerEvents    *prometheus.CounterVec
	highlightChanges prometheus.Counter
	sessionsActive   prometheus.Gauge
	sessionsTotal    prometheus.Counter

	// Series store
	seriesUpdates          prometheus.Counter
	seriesUpdatesDuplicate prometheus.Counter
	trackedCountries       prometheus.Gauge
	storeVersion           prometheus.Gauge
	storeUpdateLatency     prometheus.Histogram
	storeQueryLatency      prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Session queue
	queueCapacity          prometheus.Gauge
	queueSize              prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueued          prometheus.Counter
	queueDequeued          prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Session worker
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByType      *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec
	errorLatency      *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // registry without default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "pacechart",
		subsystem:        "chart",
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

func (m *Manager) counter(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels}
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.HistogramOpts {
	if buckets == nil {
		buckets = m.histogramBuckets
	}
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.customLabels}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	fast := []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100}

	m.draws = auto.NewCounterVec(m.counter("draws_total", "Draw passes by outcome"), []string{"outcome"})
	m.drawDuration = auto.NewHistogram(m.histogram("draw_duration_milliseconds", "Duration of a full draw pass in milliseconds", fast))
	m.seriesPlotted = auto.NewGauge(m.gauge("series_plotted", "Series plotted by the most recent draw"))
	m.seriesExcluded = auto.NewCounterVec(m.counter("series_excluded_total", "Series filtered out during normalization by reason"), []string{"reason"})
	m.indexPoints = auto.NewGauge(m.gauge("index_points", "Points held by the most recent nearest-point index"))
	m.indexBuildTime = auto.NewHistogram(m.histogram("index_build_milliseconds", "Nearest-point index build time in milliseconds", fast))
	m.indexLinearScans = auto.NewCounter(m.counter("index_linear_scan_total", "Index builds that fell back to linear scanning"))
	m.nearestLatency = auto.NewHistogram(m.histogram("nearest_query_milliseconds", "Nearest-point query latency in milliseconds", fast))

	m.pointerEvents = auto.NewCounterVec(m.counter("pointer_events_total", "Pointer events handled by kind"), []string{"kind"})
	m.highlightChanges = auto.NewCounter(m.counter("highlight_changes_total", "Pointer events that changed the highlighted series"))
	m.sessionsActive = auto.NewGauge(m.gauge("sessions_active", "Open interactive sessions"))
	m.sessionsTotal = auto.NewCounter(m.counter("sessions_total", "Interactive sessions opened"))

	m.seriesUpdates = auto.NewCounter(m.counter("series_updates_total", "Series updates applied to the store"))
	m.seriesUpdatesDuplicate = auto.NewCounter(m.counter("series_updates_duplicate_total", "Series updates rejected as duplicates"))
	m.trackedCountries = auto.NewGauge(m.gauge("tracked_countries", "Countries held by the series store"))
	m.storeVersion = auto.NewGauge(m.gauge("store_version", "Current series store version"))
	m.storeUpdateLatency = auto.NewHistogram(m.histogram("store_update_milliseconds", "Series store write latency in milliseconds", fast))
	m.storeQueryLatency = auto.NewHistogram(m.histogram("store_query_milliseconds", "Series store read latency in milliseconds", fast))

	m.httpRequests = auto.NewCounterVec(m.counter("http_requests_total", "HTTP requests by endpoint, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogram("http_request_duration_milliseconds", "HTTP request duration in milliseconds", nil), []string{"endpoint", "method", "status_code"})

	m.queueCapacity = auto.NewGauge(m.gauge("queue_capacity", "Session queue capacity"))
	m.queueSize = auto.NewGauge(m.gauge("queue_size", "Events waiting in the most recently touched session queue"))
	m.queueUtilization = auto.NewGauge(m.gauge("queue_utilization_ratio", "Session queue utilization (size / capacity)"))
	m.queueEnqueued = auto.NewCounter(m.counter("queue_enqueued_total", "Session events enqueued"))
	m.queueDequeued = auto.NewCounter(m.counter("queue_dequeued_total", "Session events dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counter("queue_enqueue_errors_total", "Session events rejected by the queue"))
	m.queueProcessingLatency = auto.NewHistogram(m.histogram("queue_enqueue_milliseconds", "Session enqueue latency in milliseconds", fast))

	m.workerProcessingLatency = auto.NewHistogram(m.histogram("worker_processing_milliseconds", "Session event handling latency in milliseconds", fast))
	m.workerErrors = auto.NewCounter(m.counter("worker_errors_total", "Session events that failed"))

	m.errorsByComponent = auto.NewCounterVec(m.counter("errors_by_component_total", "Errors by component and type"), []string{"component", "error_type"})
	m.errorsByType = auto.NewCounterVec(m.counter("errors_by_type_total", "Errors by type and severity"), []string{"error_type", "severity"})
	m.errorsByEndpoint = auto.NewCounterVec(m.counter("errors_by_endpoint_total", "Errors by endpoint"), []string{"endpoint", "method", "error_type"})
	m.errorLatency = auto.NewHistogramVec(m.histogram("error_latency_milliseconds", "Latency of failed operations in milliseconds", nil), []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gauge("system_memory_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gauge("system_goroutines", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogram("system_gc_pause_milliseconds", "Average GC pause in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// Draw pipeline.

// RecordDraw counts a draw pass with its outcome ("ok", "config_error").
func RecordDraw(outcome string, durationMs float64) {
	globalManager.draws.WithLabelValues(outcome).Inc()
	globalManager.drawDuration.Observe(durationMs)
}

// UpdateSeriesPlotted sets the number of series in the latest draw.
func UpdateSeriesPlotted(count int) {
	globalManager.seriesPlotted.Set(float64(count))
}

// RecordSeriesExcluded counts a series dropped by the normalizer.
func RecordSeriesExcluded(reason string) {
	globalManager.seriesExcluded.WithLabelValues(reason).Inc()
}

// RecordIndexBuild records the size and build time of a nearest-point index.
func RecordIndexBuild(points int, durationMs float64, linear bool) {
	globalManager.indexPoints.Set(float64(points))
	globalManager.indexBuildTime.Observe(durationMs)
	if linear {
		globalManager.indexLinearScans.Inc()
	}
}

// RecordNearestQuery records a nearest-point lookup.
func RecordNearestQuery(latencyMs float64) {
	globalManager.nearestLatency.Observe(latencyMs)
}

// Interaction.

// RecordPointerEvent counts a pointer or resize event by kind.
func RecordPointerEvent(kind string) {
	globalManager.pointerEvents.WithLabelValues(kind).Inc()
}

// RecordHighlightChange counts a change of the highlighted series.
func RecordHighlightChange() {
	globalManager.highlightChanges.Inc()
}

// SessionOpened tracks a newly opened session.
func SessionOpened() {
	globalManager.sessionsActive.Inc()
	globalManager.sessionsTotal.Inc()
}

// SessionClosed tracks a closed session.
func SessionClosed() {
	globalManager.sessionsActive.Dec()
}

// Series store.

// RecordSeriesUpdate counts an applied series update.
func RecordSeriesUpdate() {
	globalManager.seriesUpdates.Inc()
}

// RecordSeriesUpdateDuplicate counts a duplicate series update.
func RecordSeriesUpdateDuplicate() {
	globalManager.seriesUpdatesDuplicate.Inc()
}

// UpdateTrackedCountries sets the number of countries in the store.
func UpdateTrackedCountries(count int) {
	globalManager.trackedCountries.Set(float64(count))
}

// UpdateStoreVersion sets the store version gauge.
func UpdateStoreVersion(version uint64) {
	globalManager.storeVersion.Set(float64(version))
}

// RecordStoreUpdateLatency records a store write latency.
func RecordStoreUpdateLatency(latencyMs float64) {
	globalManager.storeUpdateLatency.Observe(latencyMs)
}

// RecordStoreQueryLatency records a store read latency.
func RecordStoreQueryLatency(latencyMs float64) {
	globalManager.storeQueryLatency.Observe(latencyMs)
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Session queue.

// UpdateQueueCapacity sets the session queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records enqueue latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Session worker.

// RecordWorkerProcessingLatency records how long one session event took.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// Errors.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorsByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
