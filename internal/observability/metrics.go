package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReportsCreated counts accepted reports by reason.
	ReportsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "candor_reports_created_total",
		Help: "Total number of content reports created",
	}, []string{"reason"})

	// DuplicateReports counts rejected duplicate submissions.
	DuplicateReports = promauto.NewCounter(prometheus.CounterOpts{
		Name: "candor_duplicate_reports_total",
		Help: "Total number of duplicate report submissions rejected",
	})

	// ModerationActions counts applied moderation actions.
	ModerationActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "candor_moderation_actions_total",
		Help: "Total number of moderation actions applied by action",
	}, []string{"action"})

	// StrikesIssued counts strikes by level.
	StrikesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "candor_strikes_issued_total",
		Help: "Total number of strikes issued by level",
	}, []string{"level"})

	// RestrictionsApplied counts restrictions by type.
	RestrictionsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "candor_restrictions_applied_total",
		Help: "Total number of restrictions applied by type",
	}, []string{"type"})

	// RestrictionsExpired counts restrictions deactivated because they ran out,
	// labelled by the path that noticed (lazy read or sweeper).
	RestrictionsExpired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "candor_restrictions_expired_total",
		Help: "Total number of restrictions expired",
	}, []string{"path"})

	// RestrictionsPendingReconciliation counts strikes whose restriction could not be applied.
	RestrictionsPendingReconciliation = promauto.NewCounter(prometheus.CounterOpts{
		Name: "candor_restrictions_pending_reconciliation_total",
		Help: "Total number of strikes whose restriction failed to apply and awaits reconciliation",
	})

	// AuditEmitFailures counts audit records that could not be written. Any
	// sustained increase is an operational alert.
	AuditEmitFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "candor_audit_emit_failures_total",
		Help: "Total number of audit records that failed to append",
	}, []string{"activity_type"})

	// NotificationFailures counts best-effort notifications that failed.
	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "candor_notification_failures_total",
		Help: "Total number of notifications that failed to publish",
	}, []string{"channel"})

	// StoreRetries counts store operations retried after a transient error.
	StoreRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "candor_store_retries_total",
		Help: "Total number of store operations retried after a transient error",
	}, []string{"operation"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "candor_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// ModerationFeedConnections is the number of open moderator websocket connections.
	ModerationFeedConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "candor_moderation_feed_connections",
		Help: "Number of active moderation feed WebSocket connections",
	})
)
