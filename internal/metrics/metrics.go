// Package metrics provides Prometheus metrics for courtmonitor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "courtmonitor"

var (
	// RunsTotal counts pipeline runs by trigger and outcome.
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Total number of pipeline runs",
		},
		[]string{"trigger", "status"},
	)

	// RunDuration measures pipeline run duration.
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_run_duration_seconds",
			Help:      "Duration of pipeline runs in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"trigger"},
	)

	// DocumentsTotal counts analysed documents by outcome.
	DocumentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_analyzed_total",
			Help:      "Total number of analysed documents",
		},
		[]string{"status"},
	)

	// QueueRunning tracks jobs currently executing.
	QueueRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_running_jobs",
			Help:      "Number of analysis jobs currently running",
		},
	)

	// QueuePending tracks jobs waiting for a slot.
	QueuePending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_pending_jobs",
			Help:      "Number of analysis jobs waiting in the queue",
		},
	)

	// RateLimitedTotal counts rejected requests by exhausted window.
	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter",
		},
		[]string{"window"},
	)

	// NotificationsTotal counts subscriber notifications by outcome.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Total number of subscriber notifications",
		},
		[]string{"status"},
	)
)

// RecordRun records a finished pipeline run.
func RecordRun(trigger, status string, duration float64) {
	RunsTotal.WithLabelValues(trigger, status).Inc()
	RunDuration.WithLabelValues(trigger).Observe(duration)
}

// RecordDocument records one document analysis outcome.
func RecordDocument(status string) {
	DocumentsTotal.WithLabelValues(status).Inc()
}

// SetQueue publishes the queue counters.
func SetQueue(running, pending int) {
	QueueRunning.Set(float64(running))
	QueuePending.Set(float64(pending))
}

// RecordRateLimited records a rejected request.
func RecordRateLimited(window string) {
	RateLimitedTotal.WithLabelValues(window).Inc()
}

// RecordNotification records a notification attempt.
func RecordNotification(status string) {
	NotificationsTotal.WithLabelValues(status).Inc()
}
