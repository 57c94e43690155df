package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request latency in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// Progress writes, split by insert/update outcome.
	ProgressUpsertCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_upsert_count",
			Help: "Total number of progress upserts",
		},
		[]string{"outcome"}, // outcome: created, updated
	)

	// Realtime events fanned out to connected sessions.
	RealtimeEventCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_event_count",
			Help: "Total number of realtime events published",
		},
		[]string{"event"},
	)

	// Reminder events published to the message queue.
	ReminderPublishedCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminder_published_count",
			Help: "Total number of habit reminder events published",
		},
	)
)

// RecordHTTPRequestDuration records one served request.
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementProgressUpsert counts a progress write by outcome.
func IncrementProgressUpsert(created bool) {
	outcome := "updated"
	if created {
		outcome = "created"
	}
	ProgressUpsertCount.WithLabelValues(outcome).Inc()
}

// IncrementRealtimeEvent counts a published realtime event.
func IncrementRealtimeEvent(event string) {
	RealtimeEventCount.WithLabelValues(event).Inc()
}
