// Package metrics exposes pipeline counters for Prometheus scraping.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline metrics. Registered on the default registry; the server mounts
// promhttp on /metrics.
var (
	AlarmsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airwin_alarms_received_total",
		Help: "Webhook callbacks carrying a recognized alarm.",
	})
	SessionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airwin_sessions_started_total",
		Help: "Detection sessions admitted by the guard.",
	}, []string{"comp"})
	SessionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airwin_sessions_rejected_total",
		Help: "Triggers rejected by cooldown or in-progress markers.",
	}, []string{"comp"})
	ChunksRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airwin_chunks_recorded_total",
		Help: "Audio chunks captured successfully.",
	})
	ChunksFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airwin_chunks_failed_total",
		Help: "Audio chunk captures skipped after failure.",
	})
	TranscriptsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airwin_transcripts_failed_total",
		Help: "Chunk transcriptions that returned no text.",
	})
	Classifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airwin_classifications_total",
		Help: "Validated classification results by outcome.",
	}, []string{"outcome"})
	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airwin_deliveries_total",
		Help: "Delivery attempts by result.",
	}, []string{"result"})
	DuplicatesSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airwin_duplicates_suppressed_total",
		Help: "Deliveries suppressed by the answer memory.",
	})
	SessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "airwin_session_duration_seconds",
		Help:    "Wall time of completed detection sessions.",
		Buckets: prometheus.ExponentialBuckets(30, 2, 8),
	})
)
