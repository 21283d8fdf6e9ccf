package repository

import (
	"context"

	"candor/internal/models"
)

// ActivityRepository is the append-only moderation audit store.
type ActivityRepository interface {
	Append(ctx context.Context, activity *models.ModerationActivity) error
	ListByReport(ctx context.Context, reportID string) ([]models.ModerationActivity, error)
}

type activityRepository struct {
	conn
}

func newActivityRepository(c conn) ActivityRepository {
	return &activityRepository{conn: c}
}

func (r *activityRepository) Append(ctx context.Context, activity *models.ModerationActivity) error {
	err := r.write(ctx).Create(activity).Error
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// ListByReport returns the chain of custody for a report. Ids are time ordered,
// so they break ties between records written in the same instant.
func (r *activityRepository) ListByReport(ctx context.Context, reportID string) ([]models.ModerationActivity, error) {
	var activities []models.ModerationActivity
	err := r.write(ctx).
		Where("report_id = ?", reportID).
		Order("created_at ASC").Order("id ASC").
		Find(&activities).Error
	return activities, err
}
