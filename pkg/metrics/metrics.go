package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Fallbacks counts every degraded path taken instead of surfacing an error
	Fallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signal_fallbacks_total",
		Help: "Degraded paths taken, by component and reason.",
	}, []string{"component", "reason"})

	// GatewayCalls counts Model Gateway calls by provider, operation and outcome
	GatewayCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signal_gateway_calls_total",
		Help: "Model Gateway calls by provider, operation and outcome.",
	}, []string{"provider", "op", "outcome"})

	// FeedbackProcessed counts ingested feedback by source
	FeedbackProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signal_feedback_processed_total",
		Help: "Feedback items run through the ingest pipeline.",
	}, []string{"source", "outcome"})

	// AlertsRaised counts alerts by type
	AlertsRaised = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signal_alerts_raised_total",
		Help: "Alerts raised, by type.",
	}, []string{"type"})

	// Notifications counts notification attempts by channel and outcome
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signal_notifications_total",
		Help: "Notification attempts by channel and outcome.",
	}, []string{"channel", "outcome"})

	// QueueMessages counts queue messages by kind and outcome
	QueueMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signal_queue_messages_total",
		Help: "Queue messages handled, by kind and outcome.",
	}, []string{"kind", "outcome"})

	// HTTPRequests counts served requests by route template and status
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signal_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	// HTTPDuration tracks request latency by route template
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "signal_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Fallback records one degraded path
func Fallback(component, reason string) {
	Fallbacks.WithLabelValues(component, reason).Inc()
}
