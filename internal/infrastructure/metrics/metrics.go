package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Chat-API Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "veilchat",
			Subsystem: "chat_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "veilchat",
			Subsystem: "chat_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	// Conversation creation counter
	ConversationsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "veilchat",
			Subsystem: "chat_api",
			Name:      "conversations_created_total",
			Help:      "Total conversations created",
		},
	)

	// Message append counter
	MessagesAppendedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "veilchat",
			Subsystem: "chat_api",
			Name:      "messages_appended_total",
			Help:      "Total messages appended to ledgers",
		},
		[]string{"status"},
	)

	// Read-mark counter
	ReadMarksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "veilchat",
			Subsystem: "chat_api",
			Name:      "read_marks_total",
			Help:      "Total mark-read operations",
		},
	)

	// Blob store operations counter
	BlobOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "veilchat",
			Subsystem: "chat_api",
			Name:      "blob_operations_total",
			Help:      "Total blob store operations",
		},
		[]string{"operation", "status"},
	)

	// Blob operation duration
	BlobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "veilchat",
			Subsystem: "chat_api",
			Name:      "blob_duration_seconds",
			Help:      "Blob store operation duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"operation"},
	)

	// Seal backend operations counter
	SealOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "veilchat",
			Subsystem: "chat_api",
			Name:      "seal_operations_total",
			Help:      "Total seal backend operations",
		},
		[]string{"operation", "status"},
	)

	// Integrity verification failures
	IntegrityFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "veilchat",
			Subsystem: "chat_api",
			Name:      "integrity_failures_total",
			Help:      "Total digest verification failures on message open",
		},
	)

	// Ledger size gauges, refreshed periodically
	ConversationsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "veilchat",
			Subsystem: "chat_api",
			Name:      "conversations",
			Help:      "Current number of conversations",
		},
	)

	MessagesGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "veilchat",
			Subsystem: "chat_api",
			Name:      "messages",
			Help:      "Current number of ledger messages",
		},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordAppend records a message append attempt
func RecordAppend(status string) {
	MessagesAppendedTotal.WithLabelValues(status).Inc()
}

// RecordBlobOperation records a blob store operation
func RecordBlobOperation(operation, status string, durationSec float64) {
	BlobOperationsTotal.WithLabelValues(operation, status).Inc()
	BlobDuration.WithLabelValues(operation).Observe(durationSec)
}

// RecordSealOperation records a seal backend call
func RecordSealOperation(operation, status string) {
	SealOperationsTotal.WithLabelValues(operation, status).Inc()
}

// UpdateLedgerStats refreshes the ledger size gauges
func UpdateLedgerStats(conversations, messages int64) {
	ConversationsGauge.Set(float64(conversations))
	MessagesGauge.Set(float64(messages))
}
