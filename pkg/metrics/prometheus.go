// Package metrics provides Prometheus metrics for the ladder engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the ladder service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Dataset metrics
	datasetLoads        *prometheus.CounterVec
	datasetLoadDuration *prometheus.HistogramVec
	datasetRecords      *prometheus.GaugeVec

	// Linking metrics
	linkResults     *prometheus.CounterVec
	linkConfidence  prometheus.Histogram
	linkCacheHits   prometheus.Counter
	linkCacheMisses prometheus.Counter

	// Animation and highlight metrics
	animationTicks   prometheus.Counter
	animationYear    prometheus.Gauge
	animationPlaying prometheus.Gauge
	highlightFlips   prometheus.Counter

	// Selection metrics
	selectionChanges *prometheus.CounterVec

	// Stream metrics
	streamClients prometheus.Gauge
	streamFrames  *prometheus.CounterVec

	// Evaluation store metrics
	storeLatency     *prometheus.HistogramVec
	evaluationsSaved *prometheus.CounterVec

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Command queue metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	queueWaitLatency   prometheus.Histogram

	// Dispatcher metrics
	commandsProcessed *prometheus.CounterVec
	commandErrors     *prometheus.CounterVec
	commandLatency    prometheus.Histogram

	// Error metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors on the
// configured registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ladder",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
		Buckets:     buckets,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
		Buckets:     buckets,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.datasetLoads = m.counterVec("dataset_loads_total",
		"Dataset loads by dataset and outcome", "dataset", "outcome")
	m.datasetLoadDuration = m.histogramVec("dataset_load_duration_milliseconds",
		"Dataset load duration in milliseconds", m.histogramBuckets, "dataset")
	m.datasetRecords = m.gaugeVec("dataset_records",
		"Number of records in the currently published dataset", "dataset")

	m.linkResults = m.counterVec("link_results_total",
		"Feature link results by match kind", "kind")
	m.linkConfidence = m.histogram("link_confidence",
		"Confidence of fuzzy link decisions", prometheus.LinearBuckets(0.1, 0.1, 10))
	m.linkCacheHits = m.counter("link_cache_hits_total", "Link cache hits")
	m.linkCacheMisses = m.counter("link_cache_misses_total", "Link cache misses")

	m.animationTicks = m.counter("animation_ticks_total", "Animation ticks applied")
	m.animationYear = m.gauge("animation_current_year", "Year currently shown by the animation")
	m.animationPlaying = m.gauge("animation_playing", "1 while the animation is playing")
	m.highlightFlips = m.counter("highlight_flips_total", "Top-N highlight blink flips")

	m.selectionChanges = m.counterVec("selection_changes_total",
		"Selection changes by outcome", "outcome")

	m.streamClients = m.gauge("stream_clients", "Connected stream clients")
	m.streamFrames = m.counterVec("stream_frames_total",
		"Frames pushed to stream clients by kind", "kind")

	m.storeLatency = m.histogramVec("store_latency_milliseconds",
		"Evaluation store operation latency in milliseconds", m.histogramBuckets, "op")
	m.evaluationsSaved = m.counterVec("evaluations_saved_total",
		"Evaluations persisted by phase", "phase")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", m.histogramBuckets, "endpoint", "method", "status_code")

	m.queueSize = m.gauge("queue_size", "Current number of queued commands")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum number of queued commands")
	m.queueUtilization = m.gauge("queue_utilization", "Queued commands over capacity")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Commands enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Commands dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Commands refused by the queue")
	m.queueWaitLatency = m.histogram("queue_wait_milliseconds",
		"Time spent waiting for queue space in milliseconds", m.histogramBuckets)

	m.commandsProcessed = m.counterVec("commands_processed_total",
		"Commands run by the dispatcher by kind", "kind")
	m.commandErrors = m.counterVec("command_errors_total",
		"Commands that returned an error by kind", "kind")
	m.commandLatency = m.histogram("command_latency_milliseconds",
		"Dispatcher command run time in milliseconds", m.histogramBuckets)

	m.errorRateByComponent = m.counterVec("errors_by_component_total",
		"Errors by component and type", "component", "error_type")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total",
		"Errors by endpoint, method and type", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap memory in use")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds",
		"Most recent GC pause in milliseconds", m.histogramBuckets)
}

// RecordDatasetLoad records a dataset load outcome and its duration.
func RecordDatasetLoad(dataset, outcome string, durationMs float64) {
	globalManager.datasetLoads.WithLabelValues(dataset, outcome).Inc()
	globalManager.datasetLoadDuration.WithLabelValues(dataset).Observe(durationMs)
}

// UpdateDatasetRecords sets the number of records in a published dataset.
func UpdateDatasetRecords(dataset string, count int) {
	globalManager.datasetRecords.WithLabelValues(dataset).Set(float64(count))
}

// RecordLinks adds n link results of the given kind.
func RecordLinks(kind string, n int) {
	if n <= 0 {
		return
	}
	globalManager.linkResults.WithLabelValues(kind).Add(float64(n))
}

// RecordLinkConfidence records the confidence of a fuzzy decision.
func RecordLinkConfidence(confidence float64) {
	globalManager.linkConfidence.Observe(confidence)
}

// RecordLinkCache adds cache hit and miss deltas.
func RecordLinkCache(hits, misses uint64) {
	globalManager.linkCacheHits.Add(float64(hits))
	globalManager.linkCacheMisses.Add(float64(misses))
}

// RecordAnimationTick increments the animation tick counter.
func RecordAnimationTick() {
	globalManager.animationTicks.Inc()
}

// UpdateAnimation sets the animation year and playing gauges.
func UpdateAnimation(year int, playing bool) {
	globalManager.animationYear.Set(float64(year))
	if playing {
		globalManager.animationPlaying.Set(1)
		return
	}
	globalManager.animationPlaying.Set(0)
}

// RecordHighlightFlip increments the highlight flip counter.
func RecordHighlightFlip() {
	globalManager.highlightFlips.Inc()
}

// RecordSelection records a selection change outcome (selected, cleared, rejected).
func RecordSelection(outcome string) {
	globalManager.selectionChanges.WithLabelValues(outcome).Inc()
}

// UpdateStreamClients sets the number of connected stream clients.
func UpdateStreamClients(count int) {
	globalManager.streamClients.Set(float64(count))
}

// RecordStreamFrame increments the frame counter for kind.
func RecordStreamFrame(kind string) {
	globalManager.streamFrames.WithLabelValues(kind).Inc()
}

// RecordStoreLatency records an evaluation store operation latency.
func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordEvaluationSaved increments the saved evaluation counter for phase.
func RecordEvaluationSaved(phase string) {
	globalManager.evaluationsSaved.WithLabelValues(phase).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueWait records how long an enqueue waited for space.
func RecordQueueWait(latencyMs float64) {
	globalManager.queueWaitLatency.Observe(latencyMs)
}

// RecordCommand records a dispatched command, its latency and whether it failed.
func RecordCommand(kind string, latencyMs float64, failed bool) {
	globalManager.commandsProcessed.WithLabelValues(kind).Inc()
	globalManager.commandLatency.Observe(latencyMs)
	if failed {
		globalManager.commandErrors.WithLabelValues(kind).Inc()
	}
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

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
