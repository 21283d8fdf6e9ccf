package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"candor/internal/audit"
	"candor/internal/identity"
	"candor/internal/models"
	"candor/internal/notifications"
	"candor/internal/observability"
	"candor/internal/repository"
	"candor/internal/validation"
)

// CreateReportInput is a report submission. ReporterID and CompanyID come
// from the authenticated caller, never from the request body.
type CreateReportInput struct {
	ContentType string `json:"content_type" validate:"required,oneof=post comment"`
	ContentID   string `json:"content_id" validate:"required,max=36"`
	Reason      string `json:"reason" validate:"required,oneof=harassment inappropriate spam false_info discrimination violence other"`
	Description string `json:"description" validate:"max=2000"`
	ReporterID  string `json:"-" validate:"required"`
	CompanyID   string `json:"-" validate:"required"`
}

// ListReportsFilter narrows the moderation queue.
type ListReportsFilter struct {
	Status string `validate:"omitempty,oneof=pending under_review resolved dismissed"`
	Limit  int
	Offset int `validate:"min=0"`
}

// ReportView is a report as shown to moderators.
type ReportView struct {
	*models.ContentReport
	Reporter string `json:"reporter"`
	Author   string `json:"author"`
}

// RestrictionSummary describes an active restriction without naming the user.
type RestrictionSummary struct {
	Type   string    `json:"type"`
	EndsAt time.Time `json:"ends_at"`
}

// AuthorHistory is the moderation record of a report's content author.
type AuthorHistory struct {
	StrikeCount        int64                `json:"strike_count"`
	CurrentLevel       int                  `json:"current_level"`
	ActiveRestrictions []RestrictionSummary `json:"active_restrictions"`
}

// ReportDetail is a single report with the context a moderator needs to act.
type ReportDetail struct {
	ReportView
	TotalReportsForContent int64          `json:"total_reports_for_content"`
	AuthorHistory          *AuthorHistory `json:"author_history,omitempty"`
}

// ReportService accepts and serves content reports.
type ReportService struct {
	store    *repository.Store
	guard    *identity.Guard
	audit    *audit.Emitter
	notifier *notifications.Notifier
	policy   Policy
	now      func() time.Time
}

// NewReportService wires the report store.
func NewReportService(store *repository.Store, guard *identity.Guard, emitter *audit.Emitter, notifier *notifications.Notifier, policy Policy) *ReportService {
	return &ReportService{
		store:    store,
		guard:    guard,
		audit:    emitter,
		notifier: notifier,
		policy:   policy,
		now:      utcNow,
	}
}

// CreateReport files a report against a post or comment in the reporter's
// company. A reporter may report a given piece of content only once.
func (s *ReportService) CreateReport(ctx context.Context, in CreateReportInput) (*models.ContentReport, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	content, err := fetch(ctx, s.policy, "content store", func(ctx context.Context) (*models.ContentRecord, error) {
		return s.store.Content.Get(ctx, in.ContentType, in.ContentID)
	})
	if err != nil {
		return nil, err
	}
	if content.CompanyID != in.CompanyID {
		return nil, models.NewUnauthorizedError(in.ContentType + " belongs to another company")
	}
	if content.AuthorID == in.ReporterID {
		return nil, models.NewValidationError("you cannot report your own content")
	}

	exists, err := fetch(ctx, s.policy, "report store", func(ctx context.Context) (bool, error) {
		return s.store.Reports.ExistsForReporter(ctx, in.ContentID, in.ReporterID)
	})
	if err != nil {
		return nil, err
	}
	if exists {
		observability.DuplicateReports.Inc()
		return nil, models.NewDuplicateReportError(in.ContentID)
	}

	existing, err := fetch(ctx, s.policy, "report store", func(ctx context.Context) (int64, error) {
		return s.store.Reports.CountForContent(ctx, in.ContentType, in.ContentID)
	})
	if err != nil {
		return nil, err
	}

	report := &models.ContentReport{
		ContentType:    in.ContentType,
		ContentID:      in.ContentID,
		Reason:         in.Reason,
		Description:    validation.Sanitize(in.Description),
		ReporterID:     in.ReporterID,
		CompanyID:      in.CompanyID,
		Status:         models.ReportStatusPending,
		ContentPreview: validation.Preview(content.Body),
		Priority:       models.PriorityFor(in.Reason, existing),
		RetentionYears: s.policy.RetentionYears,
		CreatedAt:      s.now(),
	}
	if err := s.guard.ProtectReport(report, identity.AuthorRef{AuthorID: content.AuthorID, IsAnonymous: content.IsAnonymous}); err != nil {
		return nil, models.NewInternalError(err)
	}

	report.ID = models.NewID()
	err = s.insert(ctx, report, func(ctx context.Context) error {
		return s.store.Transaction(ctx, func(tx *repository.Store) error {
			if err := tx.Reports.Create(ctx, report); err != nil {
				return err
			}
			return tx.Content.IncrementReportCount(ctx, in.ContentType, in.ContentID)
		})
	})
	if errors.Is(err, repository.ErrDuplicate) {
		observability.DuplicateReports.Inc()
		return nil, models.NewDuplicateReportError(in.ContentID)
	}
	if err != nil {
		return nil, err
	}

	observability.ReportsCreated.WithLabelValues(report.Reason).Inc()
	// Filed outside the report's own trail, which holds only workflow
	// transitions; the company log keeps the reporter for accountability.
	s.audit.Emit(ctx, audit.Event{
		ActivityType: models.ActivityReportCreated,
		ContentType:  report.ContentType,
		ContentID:    report.ContentID,
		ActorUserID:  report.ReporterID,
		CompanyID:    report.CompanyID,
		Metadata:     map[string]any{"report_id": report.ID, "reason": report.Reason, "priority": report.Priority},
	})
	s.notifyAdmins(ctx, report)

	return report, nil
}

// insert stores report with the usual single retry. The id is fixed before
// the first attempt, so a retry colliding with its own committed row is
// recognised by id and reporter rather than counted as a duplicate.
func (s *ReportService) insert(ctx context.Context, report *models.ContentReport, write func(ctx context.Context) error) error {
	err := withRetry(ctx, s.policy, "report store", write)
	if !errors.Is(err, repository.ErrDuplicate) {
		return err
	}
	stored, gerr := s.store.Reports.GetByID(ctx, report.ID)
	if gerr != nil || stored.ReporterID != report.ReporterID {
		return err
	}
	slog.InfoContext(ctx, "report committed before retry", slog.String("report_id", report.ID))
	return nil
}

// notifyAdmins is best effort: the report is already stored.
func (s *ReportService) notifyAdmins(ctx context.Context, report *models.ContentReport) {
	event := notifications.ModerationEvent{
		Type:      notifications.TypeNewReport,
		CompanyID: report.CompanyID,
		ReportID:  report.ID,
		Payload: map[string]any{
			"content_type": report.ContentType,
			"reason":       report.Reason,
			"priority":     report.Priority,
		},
	}
	if err := s.notifier.PublishModerationEvent(ctx, event); err != nil {
		observability.LogAsyncOperationError(ctx, "publish_new_report", err, map[string]any{"report_id": report.ID})
	}

	admins, err := s.store.Users.ListByRole(ctx, report.CompanyID, []string{models.RoleAdmin, models.RoleSuperAdmin})
	if err != nil {
		slog.WarnContext(ctx, "failed to load admins for report notification", slog.String("error", err.Error()))
		return
	}
	for _, admin := range admins {
		if err := s.notifier.Notify(ctx, admin.ID, notifications.TypeNewReport, "New content report",
			"A new "+report.Priority+" priority report needs review.", map[string]any{"report_id": report.ID}); err != nil {
			observability.LogAsyncOperationError(ctx, "notify_admin", err, map[string]any{"report_id": report.ID})
		}
	}
}

// GetReport returns one report with its triage context. The reporter is
// never identified and an anonymous author stays anonymous.
func (s *ReportService) GetReport(ctx context.Context, actor models.Actor, reportID string) (*ReportDetail, error) {
	if !models.IsModeratorRole(actor.Role) {
		return nil, models.NewUnauthorizedError("moderator role required")
	}
	report, err := fetch(ctx, s.policy, "report store", func(ctx context.Context) (*models.ContentReport, error) {
		return s.store.Reports.GetByID(ctx, reportID)
	})
	if err != nil {
		return nil, err
	}
	if report.CompanyID != actor.CompanyID {
		return nil, models.NewUnauthorizedError("report belongs to another company")
	}

	total, err := fetch(ctx, s.policy, "report store", func(ctx context.Context) (int64, error) {
		return s.store.Reports.CountForContent(ctx, report.ContentType, report.ContentID)
	})
	if err != nil {
		return nil, err
	}

	detail := &ReportDetail{ReportView: s.view(report), TotalReportsForContent: total}
	history, err := s.authorHistory(ctx, report)
	if err != nil {
		slog.WarnContext(ctx, "author history unavailable", slog.String("report_id", report.ID), slog.String("error", err.Error()))
	} else {
		detail.AuthorHistory = history
	}
	return detail, nil
}

func (s *ReportService) authorHistory(ctx context.Context, report *models.ContentReport) (*AuthorHistory, error) {
	authorID, err := s.guard.EnforcementTarget(report)
	if err != nil {
		return nil, err
	}
	history := &AuthorHistory{ActiveRestrictions: []RestrictionSummary{}}
	err = withRetry(ctx, s.policy, "strike ledger", func(ctx context.Context) error {
		count, err := s.store.Strikes.CountForUser(ctx, authorID, report.CompanyID)
		if err != nil {
			return err
		}
		latest, err := s.store.Strikes.LatestForUser(ctx, authorID, report.CompanyID)
		if err != nil {
			return err
		}
		active, err := s.store.Restrictions.ListActive(ctx, authorID, report.CompanyID)
		if err != nil {
			return err
		}
		history.StrikeCount = count
		if latest != nil {
			history.CurrentLevel = latest.StrikeLevel
		}
		now := s.now()
		history.ActiveRestrictions = history.ActiveRestrictions[:0]
		for _, r := range active {
			if !r.ExpiredAt(now) {
				history.ActiveRestrictions = append(history.ActiveRestrictions, RestrictionSummary{Type: r.RestrictionType, EndsAt: r.EndsAt})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return history, nil
}

// ListReports returns the company's queue, newest first.
func (s *ReportService) ListReports(ctx context.Context, actor models.Actor, filter ListReportsFilter) ([]ReportView, error) {
	if !models.IsModeratorRole(actor.Role) {
		return nil, models.NewUnauthorizedError("moderator role required")
	}
	if err := validation.Struct(filter); err != nil {
		return nil, err
	}
	limit := filter.Limit
	if limit <= 0 || limit > s.policy.ReportPageLimit {
		limit = s.policy.ReportPageLimit
	}

	reports, err := fetch(ctx, s.policy, "report store", func(ctx context.Context) ([]models.ContentReport, error) {
		return s.store.Reports.List(ctx, repository.ReportFilter{
			CompanyID: actor.CompanyID,
			Status:    filter.Status,
			Limit:     limit,
			Offset:    filter.Offset,
		})
	})
	if err != nil {
		return nil, err
	}

	views := make([]ReportView, 0, len(reports))
	for i := range reports {
		views = append(views, s.view(&reports[i]))
	}
	return views, nil
}

func (s *ReportService) view(report *models.ContentReport) ReportView {
	author := identity.AnonymousAuthor
	if !report.AuthorIsAnonymous {
		author = s.guard.ResolveAuthor(identity.AuthorRef{AuthorID: report.ContentAuthorID})
	}
	return ReportView{
		ContentReport: report,
		Reporter:      s.guard.ResolveReporter(report),
		Author:        author,
	}
}
