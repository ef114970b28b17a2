// Package metrics provides Prometheus metrics for the coachledger daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Pipeline metrics.
	eventsProcessed      prometheus.Counter
	eventsDuplicate      prometheus.Counter
	eventsMalformed      prometheus.Counter
	resolutionConfidence prometheus.Histogram
	resolutionLatency    prometheus.Histogram
	weekMethod           *prometheus.CounterVec
	unknownFields        *prometheus.CounterVec

	// Ledger metrics.
	ledgerActions     *prometheus.CounterVec
	ledgerFlushes     prometheus.Counter
	ledgerFlushErrors prometheus.Counter
	ledgerConflicts   prometheus.Counter
	ledgerRows        *prometheus.GaugeVec

	// Queue metrics.
	queueSize     prometheus.Gauge
	queueCapacity prometheus.Gauge
	queueEnqueues prometheus.Counter
	queueDequeues prometheus.Counter
	queueRejects  prometheus.Counter

	// Worker metrics.
	workerCount  prometheus.Gauge
	workerErrors prometheus.Counter

	// HTTP metrics.
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics by component.
	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance backed by a custom registry so the
// /metrics endpoint only exposes our own series.
var (
	globalManager  *Manager
	customRegistry = prometheus.NewRegistry()
)

func init() {
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "coachledger",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.eventsProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_processed_total",
		Help:      "Total number of recording events processed end to end",
	})
	m.eventsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_duplicate_total",
		Help:      "Total number of events whose fingerprint was already seen",
	})
	m.eventsMalformed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_malformed_total",
		Help:      "Total number of events processed with placeholder fields",
	})
	m.resolutionConfidence = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "resolution_confidence",
		Help:      "Histogram of overall resolution confidence (0-100)",
		Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 95, 100},
	})
	m.resolutionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "resolution_latency_milliseconds",
		Help:      "Histogram of per-event resolution latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.weekMethod = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "week_method_total",
		Help:      "Week inference outcomes by method",
	}, []string{"method"})
	m.unknownFields = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "unknown_fields_total",
		Help:      "Resolutions that left a field at the unknown placeholder",
	}, []string{"field"})

	m.ledgerActions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "ledger",
		Name:      "upserts_total",
		Help:      "Ledger upserts by resulting action",
	}, []string{"action"})
	m.ledgerFlushes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "ledger",
		Name:      "flushes_total",
		Help:      "Batched ledger flushes performed",
	})
	m.ledgerFlushErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "ledger",
		Name:      "flush_errors_total",
		Help:      "Ledger flushes that failed after retries",
	})
	m.ledgerConflicts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "ledger",
		Name:      "conflicts_total",
		Help:      "Ledger write conflicts that triggered a re-read",
	})
	m.ledgerRows = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "ledger",
		Name:      "rows",
		Help:      "Rows currently known per partition",
	}, []string{"partition"})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "size",
		Help:      "Current number of queued events",
	})
	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "capacity",
		Help:      "Configured queue capacity",
	})
	m.queueEnqueues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "enqueues_total",
		Help:      "Events accepted onto the queue",
	})
	m.queueDequeues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "dequeues_total",
		Help:      "Events handed to workers",
	})
	m.queueRejects = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "rejects_total",
		Help:      "Enqueue attempts rejected (closed, full, or cancelled)",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "worker",
		Name:      "count",
		Help:      "Number of resolution workers",
	})
	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "worker",
		Name:      "errors_total",
		Help:      "Events whose processing returned an error",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "errors",
		Name:      "by_component_total",
		Help:      "Errors by component and kind",
	}, []string{"component", "kind"})
}

// GetRegistry returns the gatherer backing the global manager, for the
// /metrics HTTP handler.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Package-level helpers delegating to the global manager.

func RecordEventProcessed() { globalManager.eventsProcessed.Inc() }
func RecordEventDuplicate() { globalManager.eventsDuplicate.Inc() }
func RecordEventMalformed() { globalManager.eventsMalformed.Inc() }

func RecordResolutionConfidence(v float64) { globalManager.resolutionConfidence.Observe(v) }
func RecordResolutionLatency(ms float64)   { globalManager.resolutionLatency.Observe(ms) }

func RecordWeekMethod(method string) { globalManager.weekMethod.WithLabelValues(method).Inc() }
func RecordUnknownField(field string) {
	globalManager.unknownFields.WithLabelValues(field).Inc()
}

func RecordLedgerAction(action string) { globalManager.ledgerActions.WithLabelValues(action).Inc() }
func RecordLedgerFlush()               { globalManager.ledgerFlushes.Inc() }
func RecordLedgerFlushError()          { globalManager.ledgerFlushErrors.Inc() }
func RecordLedgerConflict()            { globalManager.ledgerConflicts.Inc() }
func UpdateLedgerRows(partition string, n int) {
	globalManager.ledgerRows.WithLabelValues(partition).Set(float64(n))
}

func UpdateQueueSize(n int)     { globalManager.queueSize.Set(float64(n)) }
func UpdateQueueCapacity(n int) { globalManager.queueCapacity.Set(float64(n)) }
func RecordQueueEnqueue()       { globalManager.queueEnqueues.Inc() }
func RecordQueueDequeue()       { globalManager.queueDequeues.Inc() }
func RecordQueueReject()        { globalManager.queueRejects.Inc() }

func UpdateWorkerCount(n int) { globalManager.workerCount.Set(float64(n)) }
func RecordWorkerError()      { globalManager.workerErrors.Inc() }

func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPRequestDuration(endpoint, method string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method).Observe(ms)
}

func RecordErrorByComponent(component, kind string) {
	globalManager.errorsByComponent.WithLabelValues(component, kind).Inc()
}
