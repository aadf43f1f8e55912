// Package metrics exposes the adapter's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsTotal counts normalized events by category.
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "obgram_events_total",
			Help: "Total number of normalized events produced",
		},
		[]string{"category"},
	)

	// ConvertDuration observes inbound conversion latency.
	ConvertDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "obgram_convert_duration_seconds",
			Help:    "Duration of inbound update conversion in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// APICallsTotal counts outbound Bot API calls by endpoint and outcome.
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "obgram_api_calls_total",
			Help: "Total number of Telegram Bot API calls",
		},
		[]string{"endpoint", "status"},
	)

	// DroppedMediaTotal counts media segments dropped by the single-call
	// send model (at most one media payload per call).
	DroppedMediaTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "obgram_dropped_media_segments_total",
			Help: "Total number of media segments dropped beyond the first per send",
		},
	)

	// EventStreamClients gauges connected event-stream consumers.
	EventStreamClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "obgram_event_stream_clients",
			Help: "Number of connected event stream websocket clients",
		},
	)
)
