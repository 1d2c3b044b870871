package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accessd_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// AuthzDecisions counts authorization evaluations by permission and
	// outcome (allow|deny|error). The deny reason subcode stays in server
	// logs only and is deliberately absent here to keep cardinality low.
	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accessd_authz_decisions_total",
			Help: "Total number of authorization decisions",
		},
		[]string{"resource", "action", "result"},
	)

	// SnapshotCache counts decision-snapshot cache lookups (hit|miss).
	SnapshotCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accessd_snapshot_cache_total",
			Help: "Decision snapshot cache lookups",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "accessd_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// AuditPrunedEntries counts audit log rows removed by the retention job.
	AuditPrunedEntries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "accessd_audit_pruned_entries_total",
			Help: "Audit log entries removed by retention enforcement",
		},
	)
)
