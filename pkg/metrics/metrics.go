package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PermissionChecks counts logged permission evaluations by outcome (allowed|denied|error).
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talentgate_permission_checks_total",
			Help: "Total number of logged permission checks",
		},
		[]string{"resource", "action", "result"},
	)

	// ChangeRequestTransitions counts change requests entering each workflow state.
	ChangeRequestTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talentgate_change_request_transitions_total",
			Help: "Total number of permission change requests by resulting status",
		},
		[]string{"status"},
	)

	// SelfApprovalAttempts counts approvals refused by segregation of duties.
	SelfApprovalAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "talentgate_self_approval_attempts_total",
			Help: "Total number of refused self-approval attempts",
		},
	)

	// AuditWriteFailures counts audit entries that could not be persisted.
	AuditWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "talentgate_audit_write_failures_total",
			Help: "Total number of failed audit log writes",
		},
	)

	// PendingChangeRequests reports the current backlog of pending change requests.
	PendingChangeRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "talentgate_pending_change_requests",
			Help: "Number of permission change requests awaiting a decision",
		},
	)

	// ActiveAssignments reports the number of active user-profile bindings.
	ActiveAssignments = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "talentgate_active_assignments",
			Help: "Number of active user-profile bindings",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "talentgate_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
