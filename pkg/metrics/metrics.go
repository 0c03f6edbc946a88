package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IncidentsReported counts reported incidents by severity.
	IncidentsReported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aidalert_incidents_reported_total",
			Help: "Total number of incidents reported",
		},
		[]string{"severity"},
	)

	// IncidentTransitions counts status transitions by resulting status.
	IncidentTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aidalert_incident_transitions_total",
			Help: "Total number of incident status transitions",
		},
		[]string{"status"},
	)

	// AssignmentAttempts counts accept attempts by outcome (accepted|busy|taken|error).
	AssignmentAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aidalert_assignment_attempts_total",
			Help: "Total number of incident accept attempts",
		},
		[]string{"outcome"},
	)

	// NotificationsDispatched counts dispatched notifications by category.
	NotificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aidalert_notifications_dispatched_total",
			Help: "Total number of notifications dispatched",
		},
		[]string{"category"},
	)

	// RoleChecks counts role gate evaluations by role and result.
	RoleChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aidalert_role_checks_total",
			Help: "Total number of role gate evaluations",
		},
		[]string{"role", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aidalert_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
