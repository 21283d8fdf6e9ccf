package repository

import (
	"context"

	"candor/internal/models"
	"candor/internal/observability"
)

// ReportFilter narrows a company's report queue.
type ReportFilter struct {
	CompanyID string
	Status    string
	Limit     int
	Offset    int
}

// ReportTransition is a conditional status change. The update applies only
// while the report is in one of FromStatuses (and, with NotEscalated, has
// not been escalated), so two moderators cannot both apply an action.
type ReportTransition struct {
	FromStatuses []string
	NotEscalated bool
	Updates      map[string]any
}

// ReportRepository defines persistence operations for content reports.
type ReportRepository interface {
	Create(ctx context.Context, report *models.ContentReport) error
	GetByID(ctx context.Context, id string) (*models.ContentReport, error)
	ExistsForReporter(ctx context.Context, contentID, reporterID string) (bool, error)
	List(ctx context.Context, filter ReportFilter) ([]models.ContentReport, error)
	CountForContent(ctx context.Context, contentType, contentID string) (int64, error)
	Transition(ctx context.Context, id string, t ReportTransition) (bool, error)
}

type reportRepository struct {
	conn
	log *observability.RepoLogger
}

func newReportRepository(c conn) ReportRepository {
	return &reportRepository{conn: c, log: observability.NewRepoLogger("reports")}
}

// Create inserts a report. The (content_id, reporter_id) unique index turns a
// racing second submission into ErrDuplicate.
func (r *reportRepository) Create(ctx context.Context, report *models.ContentReport) error {
	if err := r.write(ctx).Create(report).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		r.log.LogError(ctx, err, "create")
		return err
	}
	r.log.LogCreate(ctx, map[string]any{"report_id": report.ID, "content_id": report.ContentID})
	return nil
}

func (r *reportRepository) GetByID(ctx context.Context, id string) (*models.ContentReport, error) {
	var report models.ContentReport
	if err := r.write(ctx).Where("id = ?", id).First(&report).Error; err != nil {
		return nil, notFound(err, "Report", id)
	}
	return &report, nil
}

func (r *reportRepository) ExistsForReporter(ctx context.Context, contentID, reporterID string) (bool, error) {
	var count int64
	err := r.write(ctx).Model(&models.ContentReport{}).
		Where("content_id = ? AND reporter_id = ?", contentID, reporterID).
		Count(&count).Error
	return count > 0, err
}

func (r *reportRepository) List(ctx context.Context, filter ReportFilter) ([]models.ContentReport, error) {
	q := r.listing(ctx).Where("company_id = ?", filter.CompanyID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	var reports []models.ContentReport
	err := q.Order("created_at DESC").Order("id DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&reports).Error
	return reports, err
}

func (r *reportRepository) CountForContent(ctx context.Context, contentType, contentID string) (int64, error) {
	var count int64
	err := r.write(ctx).Model(&models.ContentReport{}).
		Where("content_type = ? AND content_id = ?", contentType, contentID).
		Count(&count).Error
	return count, err
}

func (r *reportRepository) Transition(ctx context.Context, id string, t ReportTransition) (bool, error) {
	q := r.write(ctx).Model(&models.ContentReport{}).
		Where("id = ? AND status IN ?", id, t.FromStatuses)
	if t.NotEscalated {
		q = q.Where("(escalated_to IS NULL OR escalated_to = '')")
	}
	res := q.Updates(t.Updates)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "transition")
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		r.log.LogUpdate(ctx, map[string]any{"report_id": id, "updates": t.Updates})
	}
	return res.RowsAffected == 1, nil
}
