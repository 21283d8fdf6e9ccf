package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"candor/internal/audit"
	"candor/internal/identity"
	"candor/internal/models"
	"candor/internal/notifications"
	"candor/internal/observability"
	"candor/internal/repository"
	"candor/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// ActionInput is a moderator's decision on a report.
type ActionInput struct {
	ReportID       string       `json:"-"`
	Actor          models.Actor `json:"-"`
	Action         string       `json:"action"`
	ViolationType  string       `json:"violation_type" validate:"max=100"`
	Explanation    string       `json:"explanation" validate:"max=2000"`
	ModeratorNotes string       `json:"moderator_notes" validate:"max=2000"`
}

// ActionResult is the report after the action plus any enforcement it caused.
// It never names the content author.
type ActionResult struct {
	Report            *models.ContentReport `json:"report"`
	ContentRemoved    bool                  `json:"content_removed"`
	StrikeLevel       int                   `json:"strike_level,omitempty"`
	RestrictionType   string                `json:"restriction_type,omitempty"`
	RestrictionEndsAt *time.Time            `json:"restriction_ends_at,omitempty"`
}

// ModerationService drives reports through review to a final state.
type ModerationService struct {
	store    *repository.Store
	guard    *identity.Guard
	strikes  *StrikeService
	audit    *audit.Emitter
	notifier *notifications.Notifier
	policy   Policy
	now      func() time.Time
}

// NewModerationService wires the workflow engine.
func NewModerationService(
	store *repository.Store,
	guard *identity.Guard,
	strikes *StrikeService,
	emitter *audit.Emitter,
	notifier *notifications.Notifier,
	policy Policy,
) *ModerationService {
	return &ModerationService{
		store:    store,
		guard:    guard,
		strikes:  strikes,
		audit:    emitter,
		notifier: notifier,
		policy:   policy,
		now:      utcNow,
	}
}

// ApplyAction applies one action to a report. Every action first records the
// review acknowledgment, then the action itself under a guard on the
// under_review status, so a second application fails with INVALID_TRANSITION.
func (s *ModerationService) ApplyAction(ctx context.Context, in ActionInput) (*ActionResult, error) {
	span, ctx := observability.NewSpan(ctx, "moderation.apply_action",
		attribute.String("report.id", in.ReportID), attribute.String("moderation.action", in.Action))
	defer span.End()

	result, err := s.applyAction(ctx, in)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	observability.ModerationActions.WithLabelValues(in.Action).Inc()
	return result, nil
}

func (s *ModerationService) applyAction(ctx context.Context, in ActionInput) (*ActionResult, error) {
	if !models.IsModeratorRole(in.Actor.Role) {
		return nil, models.NewUnauthorizedError("moderator role required")
	}
	if !models.IsValidAction(in.Action) {
		return nil, models.NewValidationError(fmt.Sprintf("unknown action %q", in.Action))
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if models.ActionRequiresViolation(in.Action) && (in.ViolationType == "" || in.Explanation == "") {
		return nil, models.NewInvalidTransitionError(in.Action + " requires a violation type and an explanation")
	}

	report, err := fetch(ctx, s.policy, "report store", func(ctx context.Context) (*models.ContentReport, error) {
		return s.store.Reports.GetByID(ctx, in.ReportID)
	})
	if err != nil {
		return nil, err
	}
	if report.CompanyID != in.Actor.CompanyID {
		return nil, models.NewUnauthorizedError("report belongs to another company")
	}
	if !report.IsOpen() {
		return nil, models.NewInvalidTransitionError(fmt.Sprintf("report is already %s", report.Status))
	}
	if in.Action == models.ActionEscalate && report.IsEscalated() {
		return nil, models.NewInvalidTransitionError("report is already escalated")
	}

	if err := s.acknowledge(ctx, report, in); err != nil {
		return nil, err
	}

	result := &ActionResult{}
	switch in.Action {
	case models.ActionDismiss:
		err = s.dismiss(ctx, report, in)
	case models.ActionRemoveContent:
		err = s.remove(ctx, report, in, result)
	case models.ActionRemoveAndWarn:
		err = s.removeWithStrike(ctx, report, in, 0, result)
	case models.ActionRemoveAndSuspend:
		err = s.removeWithStrike(ctx, report, in, models.MaxStrikeLevel, result)
	case models.ActionEscalate:
		err = s.escalate(ctx, report, in)
	}
	if err != nil {
		return nil, err
	}

	updated, err := fetch(ctx, s.policy, "report store", func(ctx context.Context) (*models.ContentReport, error) {
		return s.store.Reports.GetByID(ctx, report.ID)
	})
	if err != nil {
		return nil, err
	}
	result.Report = updated
	s.notifyReporter(ctx, updated)
	return result, nil
}

// acknowledge is the first phase: the report moves to under_review with the
// reviewing moderator recorded.
func (s *ModerationService) acknowledge(ctx context.Context, report *models.ContentReport, in ActionInput) error {
	now := s.now()
	var moved bool
	err := withRetry(ctx, s.policy, "report store", func(ctx context.Context) error {
		var err error
		moved, err = s.store.Reports.Transition(ctx, report.ID, repository.ReportTransition{
			FromStatuses: []string{models.ReportStatusPending, models.ReportStatusUnderReview},
			Updates: map[string]any{
				"status":      models.ReportStatusUnderReview,
				"reviewed_by": in.Actor.UserID,
				"reviewed_at": now,
			},
		})
		return err
	})
	if err != nil {
		return err
	}
	if !moved {
		return models.NewInvalidTransitionError("report is no longer open")
	}
	return nil
}

// reviewed records the acknowledgment once the action it led to has
// committed, so a moderator who lost a race leaves no review in the trail.
func (s *ModerationService) reviewed(ctx context.Context, report *models.ContentReport, in ActionInput) {
	s.emit(ctx, report, in.Actor, models.ActivityReportReviewed, map[string]any{"action": in.Action})
}

// commit runs an action's write with the usual single retry. When the first
// attempt committed but its result was lost, the retry sees a closed report;
// if that report carries this actor's action the write counts as done.
func (s *ModerationService) commit(ctx context.Context, operation string, reportID string, in ActionInput, write func(ctx context.Context) error) error {
	attempts := 0
	err := withRetry(ctx, s.policy, operation, func(ctx context.Context) error {
		attempts++
		return write(ctx)
	})
	if err == nil || attempts < 2 || !models.IsCode(err, models.CodeInvalidTransition) {
		return err
	}
	stored, gerr := s.store.Reports.GetByID(ctx, reportID)
	if gerr != nil || !appliedBy(stored, in) {
		return err
	}
	slog.InfoContext(ctx, "action committed before retry",
		slog.String("report_id", reportID), slog.String("action", in.Action))
	return nil
}

// appliedBy reports whether report already reflects in's action by in's actor.
func appliedBy(report *models.ContentReport, in ActionInput) bool {
	if report.ReviewedBy == nil || *report.ReviewedBy != in.Actor.UserID {
		return false
	}
	if in.Action == models.ActionEscalate {
		return report.IsEscalated()
	}
	return !report.IsOpen() && report.ActionTaken == in.Action
}

// finalize moves an under_review report to its final status inside tx. The
// deciding moderator is recorded as the reviewer, whoever acknowledged last.
func finalize(ctx context.Context, tx *repository.Store, reportID, status string, in ActionInput, at time.Time) error {
	moved, err := tx.Reports.Transition(ctx, reportID, repository.ReportTransition{
		FromStatuses: []string{models.ReportStatusUnderReview},
		Updates: map[string]any{
			"status":          status,
			"reviewed_by":     in.Actor.UserID,
			"reviewed_at":     at,
			"action_taken":    in.Action,
			"moderator_notes": validation.Sanitize(in.ModeratorNotes),
		},
	})
	if err != nil {
		return err
	}
	if !moved {
		return models.NewInvalidTransitionError("report was resolved by another moderator")
	}
	return nil
}

func (s *ModerationService) dismiss(ctx context.Context, report *models.ContentReport, in ActionInput) error {
	now := s.now()
	err := s.commit(ctx, "report store", report.ID, in, func(ctx context.Context) error {
		return s.store.Transaction(ctx, func(tx *repository.Store) error {
			return finalize(ctx, tx, report.ID, models.ReportStatusDismissed, in, now)
		})
	})
	if err != nil {
		return err
	}
	s.reviewed(ctx, report, in)
	s.emit(ctx, report, in.Actor, models.ActivityReportDismissed, nil)
	return nil
}

func removalReason(report *models.ContentReport, in ActionInput) string {
	if in.ViolationType != "" {
		return validation.Sanitize(in.ViolationType)
	}
	return report.Reason
}

func (s *ModerationService) remove(ctx context.Context, report *models.ContentReport, in ActionInput, result *ActionResult) error {
	now := s.now()
	var removed bool
	err := s.commit(ctx, "report store", report.ID, in, func(ctx context.Context) error {
		return s.store.Transaction(ctx, func(tx *repository.Store) error {
			if err := finalize(ctx, tx, report.ID, models.ReportStatusResolved, in, now); err != nil {
				return err
			}
			var err error
			removed, err = tx.Content.MarkRemoved(ctx, report.ContentType, report.ContentID, removalReason(report, in), in.Actor.UserID)
			return err
		})
	})
	if err != nil {
		return err
	}
	result.ContentRemoved = true
	s.reviewed(ctx, report, in)
	s.emit(ctx, report, in.Actor, models.ActivityContentRemoved, map[string]any{"already_removed": !removed})
	return nil
}

// removeWithStrike removes the content and records a strike against its
// author in one transaction. level zero means the next level in sequence.
// The restriction follows after commit; if it fails, the strike remains for
// CheckActive to reconcile.
func (s *ModerationService) removeWithStrike(ctx context.Context, report *models.ContentReport, in ActionInput, level int, result *ActionResult) error {
	authorID, err := s.guard.EnforcementTarget(report)
	if err != nil {
		return models.NewInternalError(fmt.Errorf("resolve enforcement target: %w", err))
	}
	strikeIn := StrikeInput{
		UserID:        authorID,
		CompanyID:     report.CompanyID,
		ContentType:   report.ContentType,
		ContentID:     report.ContentID,
		ReportID:      report.ID,
		ViolationType: in.ViolationType,
		Explanation:   in.Explanation,
		IssuedBy:      in.Actor.UserID,
	}

	// A retried attempt fails in finalize before touching removed or strike,
	// so both keep the values of the attempt that committed.
	now := s.now()
	var removed bool
	var strike *models.UserStrike
	err = s.commit(ctx, "strike ledger", report.ID, in, func(ctx context.Context) error {
		return s.store.Transaction(ctx, func(tx *repository.Store) error {
			if err := finalize(ctx, tx, report.ID, models.ReportStatusResolved, in, now); err != nil {
				return err
			}
			var err error
			removed, err = tx.Content.MarkRemoved(ctx, report.ContentType, report.ContentID, removalReason(report, in), in.Actor.UserID)
			if err != nil {
				return err
			}
			strike, err = s.strikes.record(ctx, tx, strikeIn, level)
			return err
		})
	})
	if err != nil {
		return err
	}
	countStrike(strike)

	result.ContentRemoved = true
	result.StrikeLevel = strike.StrikeLevel
	s.reviewed(ctx, report, in)
	s.emit(ctx, report, in.Actor, models.ActivityContentRemoved, map[string]any{"already_removed": !removed})
	if in.Action == models.ActionRemoveAndWarn {
		s.strikes.emitIssued(ctx, strike)
	}

	if restriction := s.strikes.enforce(ctx, strike); restriction != nil {
		result.RestrictionType = restriction.RestrictionType
		endsAt := restriction.EndsAt
		result.RestrictionEndsAt = &endsAt
	}
	return nil
}

func (s *ModerationService) escalate(ctx context.Context, report *models.ContentReport, in ActionInput) error {
	now := s.now()
	err := s.commit(ctx, "report store", report.ID, in, func(ctx context.Context) error {
		moved, err := s.store.Reports.Transition(ctx, report.ID, repository.ReportTransition{
			FromStatuses: []string{models.ReportStatusUnderReview},
			NotEscalated: true,
			Updates: map[string]any{
				"escalated_to":    models.RoleSuperAdmin,
				"escalated_at":    now,
				"reviewed_by":     in.Actor.UserID,
				"reviewed_at":     now,
				"moderator_notes": validation.Sanitize(in.ModeratorNotes),
			},
		})
		if err != nil {
			return err
		}
		if !moved {
			return models.NewInvalidTransitionError("report is already escalated or closed")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.reviewed(ctx, report, in)
	s.emit(ctx, report, in.Actor, models.ActivityReportEscalated, map[string]any{"escalated_to": models.RoleSuperAdmin})

	event := notifications.ModerationEvent{
		Type:      notifications.TypeReportEscalated,
		CompanyID: report.CompanyID,
		ReportID:  report.ID,
		Payload:   map[string]any{"priority": report.Priority, "reason": report.Reason},
	}
	if err := s.notifier.PublishModerationEvent(ctx, event); err != nil {
		observability.LogAsyncOperationError(ctx, "publish_escalation", err, map[string]any{"report_id": report.ID})
	}
	superAdmins, err := s.store.Users.ListByRole(ctx, report.CompanyID, []string{models.RoleSuperAdmin})
	if err != nil {
		slog.WarnContext(ctx, "failed to load super admins for escalation", slog.String("error", err.Error()))
		return nil
	}
	for _, u := range superAdmins {
		if err := s.notifier.Notify(ctx, u.ID, notifications.TypeReportEscalated, "Report escalated",
			"A report was escalated for your review.", map[string]any{"report_id": report.ID}); err != nil {
			observability.LogAsyncOperationError(ctx, "notify_escalation", err, map[string]any{"report_id": report.ID})
		}
	}
	return nil
}

func (s *ModerationService) notifyReporter(ctx context.Context, report *models.ContentReport) {
	if report.Status != models.ReportStatusResolved && report.Status != models.ReportStatusDismissed {
		return
	}
	if err := s.notifier.Notify(ctx, report.ReporterID, notifications.TypeReportStatusChange, "Your report was reviewed",
		"A moderator reviewed content you reported.", map[string]any{"report_id": report.ID, "status": report.Status}); err != nil {
		observability.LogAsyncOperationError(ctx, "notify_reporter", err, map[string]any{"report_id": report.ID})
	}
}

func (s *ModerationService) emit(ctx context.Context, report *models.ContentReport, actor models.Actor, activity string, metadata map[string]any) {
	s.audit.Emit(ctx, audit.Event{
		ActivityType: activity,
		ReportID:     report.ID,
		ContentType:  report.ContentType,
		ContentID:    report.ContentID,
		ActorUserID:  actor.UserID,
		CompanyID:    report.CompanyID,
		Metadata:     metadata,
	})
}
