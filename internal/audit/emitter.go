// Package audit writes the moderation chain of custody.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"candor/internal/models"
	"candor/internal/observability"
	"candor/internal/repository"

	"github.com/cenkalti/backoff/v5"
)

const (
	emitTimeout    = 3 * time.Second
	emitRetryDelay = 50 * time.Millisecond
)

// Event is one workflow transition to record.
type Event struct {
	ActivityType string
	ReportID     string
	ContentType  string
	ContentID    string
	ActorUserID  string
	CompanyID    string
	Metadata     map[string]any
}

// Emitter appends audit records. A failed append never fails the caller's
// moderation action; it is logged and counted instead.
type Emitter struct {
	activities repository.ActivityRepository
	reports    repository.ReportRepository
	now        func() time.Time
	retryDelay time.Duration
}

// NewEmitter builds an Emitter over the activity and report stores.
func NewEmitter(activities repository.ActivityRepository, reports repository.ReportRepository) *Emitter {
	return &Emitter{
		activities: activities,
		reports:    reports,
		now:        func() time.Time { return time.Now().UTC() },
		retryDelay: emitRetryDelay,
	}
}

// Emit appends one record, retrying once. It survives cancellation of the
// request context so a client disconnect cannot drop an audit entry.
func (e *Emitter) Emit(ctx context.Context, ev Event) {
	record := &models.ModerationActivity{
		ID:           models.NewID(),
		ActivityType: ev.ActivityType,
		ContentType:  ev.ContentType,
		ContentID:    ev.ContentID,
		ActorUserID:  ev.ActorUserID,
		CompanyID:    ev.CompanyID,
		Metadata:     models.JSONMap(ev.Metadata),
		CreatedAt:    e.now(),
	}
	if ev.ReportID != "" {
		reportID := ev.ReportID
		record.ReportID = &reportID
	}

	base := context.WithoutCancel(ctx)
	_, err := backoff.Retry(base, func() (struct{}, error) {
		attemptCtx, cancel := context.WithTimeout(base, emitTimeout)
		defer cancel()
		err := e.activities.Append(attemptCtx, record)
		if errors.Is(err, repository.ErrDuplicate) {
			// The id is fixed before the first attempt, so a duplicate means
			// an earlier attempt committed after reporting failure.
			return struct{}{}, nil
		}
		return struct{}{}, err
	}, backoff.WithBackOff(backoff.NewConstantBackOff(e.retryDelay)), backoff.WithMaxTries(2))
	if err != nil {
		observability.AuditEmitFailures.WithLabelValues(ev.ActivityType).Inc()
		slog.ErrorContext(ctx, "audit emit failed",
			slog.String("activity_type", ev.ActivityType),
			slog.String("report_id", ev.ReportID),
			slog.String("company_id", ev.CompanyID),
			slog.String("error", err.Error()),
		)
	}
}

// ListAuditTrail returns a report's activity records in the order they were
// written. Only moderators of the report's company may read it.
func (e *Emitter) ListAuditTrail(ctx context.Context, actor models.Actor, reportID string) ([]models.ModerationActivity, error) {
	if !models.IsModeratorRole(actor.Role) {
		return nil, models.NewUnauthorizedError("moderator role required")
	}
	report, err := e.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.CompanyID != actor.CompanyID {
		return nil, models.NewUnauthorizedError("report belongs to another company")
	}
	return e.activities.ListByReport(ctx, reportID)
}
