// Package metrics provides Prometheus metrics for the farecast service.
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

var defaultFareBuckets = []float64{2.5, 5, 7.5, 10, 15, 20, 30, 45, 60, 100, 200} //nolint:gochecknoglobals // bucket layout

// Manager manages all Prometheus metrics for the farecast service.
type Manager struct {
	namespace        string
	subsystem        string
	namePrefix      string
	latencyBuckets  []float64
	fareBuckets     []float64
	enabled         bool
	refreshInterval time.Duration
	constLabels     map[string]string
	registry        prometheus.Registerer

	// Prediction metrics
	predictions       prometheus.Counter
	predictionLatency prometheus.Histogram
	predictionErrors  prometheus.Counter
	predictedFare     prometheus.Histogram

	// Feature pipeline metrics
	pipelineLatency     prometheus.Histogram
	pipelineRows        prometheus.Counter
	schemaColumnsFilled *prometheus.CounterVec
	schemaColumnsDrop   *prometheus.CounterVec

	// Training metrics
	trainingRuns     prometheus.Counter
	trainingRows     *prometheus.GaugeVec
	trainingDuration prometheus.Histogram
	validationRMSE   prometheus.Gauge
	modelTrees       prometheus.Gauge
	modelFeatures    prometheus.Gauge
	modelLoaded      prometheus.Gauge

	// Artifact store metrics
	artifactLatency *prometheus.HistogramVec

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Worker metrics
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// Error metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       "farecast",
		subsystem:       "service",
		latencyBuckets:  prometheus.DefBuckets,
		fareBuckets:     defaultFareBuckets,
		enabled:         true,
		refreshInterval: defaultRefreshInterval,
		constLabels:     make(map[string]string),
		registry:        prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	return m.namePrefix + n
}

func (m *Manager) counter(n, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(n),
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(n, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(n),
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(n, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(n),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(n, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(n),
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.predictions = m.counter("predictions_total", "Total number of fares predicted")
	m.predictionLatency = m.histogram("prediction_latency_milliseconds",
		"Prediction latency in milliseconds, featurization included", m.latencyBuckets)
	m.predictionErrors = m.counter("prediction_errors_total", "Total number of failed predictions")
	m.predictedFare = m.histogram("predicted_fare_dollars", "Distribution of predicted fares", m.fareBuckets)

	m.pipelineLatency = m.histogram("pipeline_latency_milliseconds",
		"Feature pipeline latency in milliseconds", m.latencyBuckets)
	m.pipelineRows = m.counter("pipeline_rows_total", "Total number of rows featurized")
	m.schemaColumnsFilled = m.counterVec("schema_columns_filled_total",
		"Schema columns zero-filled at inference because the pipeline did not produce them", "feature")
	m.schemaColumnsDrop = m.counterVec("schema_columns_dropped_total",
		"Pipeline columns dropped at inference because the schema does not know them", "feature")

	m.trainingRuns = m.counter("training_runs_total", "Total number of completed training runs")
	m.trainingRows = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("training_rows"),
		Help:        "Rows seen by the last training run, by stage",
		ConstLabels: m.constLabels,
	}, []string{"stage"})
	m.trainingDuration = m.histogram("training_duration_seconds", "Training run duration in seconds",
		[]float64{1, 5, 15, 30, 60, 120, 300, 600, 1800})
	m.validationRMSE = m.gauge("validation_rmse", "Validation RMSE of the active model")
	m.modelTrees = m.gauge("model_trees", "Number of trees in the active model")
	m.modelFeatures = m.gauge("model_features", "Number of features in the active schema")
	m.modelLoaded = m.gauge("model_loaded", "1 when a model is loaded and serving")

	m.artifactLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("artifact_latency_milliseconds"),
		Help:        "Artifact store operation latency in milliseconds",
		Buckets:     m.latencyBuckets,
		ConstLabels: m.constLabels,
	}, []string{"operation"})

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_request_duration_milliseconds"),
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.latencyBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.workerActiveCount = m.gauge("worker_active_count", "Number of active featurization workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Featurization pool batch latency in milliseconds", m.latencyBuckets)
	m.workerErrorRate = m.counter("worker_errors_total", "Total number of featurization pool errors")

	m.errorRateByComponent = m.counterVec("errors_by_component_total",
		"Total number of errors by component", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total",
		"Total number of errors by type", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total",
		"Total number of errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Enabled reports whether the global manager records observations.
func Enabled() bool {
	return globalManager.enabled
}

// RecordPrediction counts one predicted fare and its value.
func RecordPrediction(fare float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.predictions.Inc()
	globalManager.predictedFare.Observe(fare)
}

// RecordPredictionLatency records prediction latency in milliseconds.
func RecordPredictionLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.predictionLatency.Observe(latencyMs)
}

// RecordPredictionError increments the prediction errors counter.
func RecordPredictionError() {
	if !globalManager.enabled {
		return
	}
	globalManager.predictionErrors.Inc()
}

// RecordPipelineLatency records a feature pipeline run over rows records.
func RecordPipelineLatency(rows int, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.pipelineLatency.Observe(latencyMs)
	globalManager.pipelineRows.Add(float64(rows))
}

// RecordSchemaColumnFilled counts a zero-filled schema column.
func RecordSchemaColumnFilled(feature string) {
	if !globalManager.enabled {
		return
	}
	globalManager.schemaColumnsFilled.WithLabelValues(feature).Inc()
}

// RecordSchemaColumnDropped counts a pipeline column unknown to the schema.
func RecordSchemaColumnDropped(feature string) {
	if !globalManager.enabled {
		return
	}
	globalManager.schemaColumnsDrop.WithLabelValues(feature).Inc()
}

// RecordTrainingRun records a completed training run.
func RecordTrainingRun(duration time.Duration, validationRMSE float64, trees int) {
	if !globalManager.enabled {
		return
	}
	globalManager.trainingRuns.Inc()
	globalManager.trainingDuration.Observe(duration.Seconds())
	globalManager.validationRMSE.Set(validationRMSE)
	globalManager.modelTrees.Set(float64(trees))
}

// UpdateTrainingRows sets the row count seen at a training stage
// (loaded, filtered, train, valid).
func UpdateTrainingRows(stage string, rows int) {
	if !globalManager.enabled {
		return
	}
	globalManager.trainingRows.WithLabelValues(stage).Set(float64(rows))
}

// UpdateModelState publishes the active model shape.
func UpdateModelState(loaded bool, trees, features int) {
	if !globalManager.enabled {
		return
	}
	v := 0.0
	if loaded {
		v = 1
	}
	globalManager.modelLoaded.Set(v)
	globalManager.modelTrees.Set(float64(trees))
	globalManager.modelFeatures.Set(float64(features))
}

// RecordArtifactLatency records an artifact store operation latency.
func RecordArtifactLatency(operation string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.artifactLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records featurization pool latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	if !globalManager.enabled {
		return
	}
	globalManager.workerErrorRate.Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
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

// RefreshInterval returns how often system gauges should be sampled.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
