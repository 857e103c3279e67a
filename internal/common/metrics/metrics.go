package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ApplicationsApproved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_applications_approved_total",
			Help: "Total number of applications approved",
		},
	)

	ApplicationsDenied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_applications_denied_total",
			Help: "Total number of applications denied",
		},
	)

	ConflictRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_conflict_rejections_total",
			Help: "Applications auto-rejected due to overlapping time windows",
		},
	)

	CapacityClosures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_capacity_closures_total",
			Help: "Jobs auto-closed after reaching max workers",
		},
	)

	TransitionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "engine_transition_duration_seconds",
			Help: "Duration of approve/deny transitions in seconds",
		},
		[]string{"operation"},
	)

	TxRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_tx_retries_total",
			Help: "Serialization conflicts retried during state transitions",
		},
	)

	DeclarationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_declaration_requests_total",
			Help: "Requests sent to the declaration service",
		},
		[]string{"operation", "result"},
	)

	DeclarationPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_declaration_polls_total",
			Help: "Declaration status poll outcomes",
		},
		[]string{"outcome"},
	)

	NotificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_notification_failures_total",
			Help: "Notification deliveries that failed",
		},
		[]string{"channel"},
	)
)
