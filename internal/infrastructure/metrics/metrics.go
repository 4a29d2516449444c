package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "alumunity"
	subsystem = "messaging_api"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint", "status"},
	)

	MessagesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_sent_total",
			Help:      "Messages accepted, by attachment kind",
		},
		[]string{"attachment"},
	)

	ReadReceiptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "read_receipts_total",
			Help:      "Read receipts recorded, by how they were produced",
		},
		[]string{"source"},
	)

	ConversationsDeletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "conversations_deleted_total",
			Help:      "Conversations removed, by reason",
		},
		[]string{"reason"},
	)

	StoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "store_errors_total",
			Help:      "Requests that failed on the storage layer",
		},
		[]string{"operation"},
	)

	MockMode = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "mock_mode",
			Help:      "1 when the in-memory fixture store is serving requests",
		},
	)

	RealtimeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "realtime_connections",
			Help:      "Open websocket connections on this instance",
		},
	)

	RealtimeEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "realtime_events_total",
			Help:      "Events published to connected clients",
		},
		[]string{"type"},
	)

	PresenceSweepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "presence_sweeps_total",
			Help:      "Presence sweep runs, by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordRequest records an HTTP request.
func RecordRequest(method, endpoint string, status int, durationSec float64) {
	if endpoint == "" {
		endpoint = "unmatched"
	}
	code := strconv.Itoa(status)
	RequestsTotal.WithLabelValues(method, endpoint, code).Inc()
	RequestDuration.WithLabelValues(method, endpoint, code).Observe(durationSec)
}

// RecordMessageSent counts an accepted message. An empty kind means no attachment.
func RecordMessageSent(attachmentKind string) {
	if attachmentKind == "" {
		attachmentKind = "none"
	}
	MessagesSentTotal.WithLabelValues(attachmentKind).Inc()
}

// RecordReadReceipts adds n receipts produced by source ("open" or "explicit").
func RecordReadReceipts(source string, n int) {
	if n <= 0 {
		return
	}
	ReadReceiptsTotal.WithLabelValues(source).Add(float64(n))
}

func RecordConversationDeleted(reason string) {
	ConversationsDeletedTotal.WithLabelValues(reason).Inc()
}

func RecordStoreError(operation string) {
	StoreErrorsTotal.WithLabelValues(operation).Inc()
}

// SetMockMode flags whether the fixture store is active.
func SetMockMode(active bool) {
	val := 0.0
	if active {
		val = 1.0
	}
	MockMode.Set(val)
}

func SetRealtimeConnections(n int) {
	RealtimeConnections.Set(float64(n))
}

func RecordRealtimeEvent(eventType string) {
	RealtimeEventsTotal.WithLabelValues(eventType).Inc()
}

func RecordPresenceSweep(outcome string) {
	PresenceSweepsTotal.WithLabelValues(outcome).Inc()
}
