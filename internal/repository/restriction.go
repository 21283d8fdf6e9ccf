package repository

import (
	"context"
	"errors"
	"time"

	"candor/internal/models"
	"candor/internal/observability"

	"gorm.io/gorm"
)

// RestrictionRepository stores posting restrictions and suspensions. Rows are
// only ever deactivated, never deleted.
type RestrictionRepository interface {
	Create(ctx context.Context, restriction *models.UserRestriction) error
	GetByID(ctx context.Context, id string) (*models.UserRestriction, error)
	ListActive(ctx context.Context, userID, companyID string) ([]models.UserRestriction, error)
	ListForUser(ctx context.Context, userID, companyID string) ([]models.UserRestriction, error)
	// FindForStrike returns nil when the strike has no restriction yet.
	FindForStrike(ctx context.Context, strikeID string) (*models.UserRestriction, error)
	Deactivate(ctx context.Context, id, liftedBy string, at time.Time) (bool, error)
	ExpireForUser(ctx context.Context, userID, companyID string, now time.Time) (int64, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.UserRestriction, error)
	ExpireByIDs(ctx context.Context, ids []string, now time.Time) (int64, error)
}

type restrictionRepository struct {
	conn
	log *observability.RepoLogger
}

func newRestrictionRepository(c conn) RestrictionRepository {
	return &restrictionRepository{conn: c, log: observability.NewRepoLogger("restrictions")}
}

func (r *restrictionRepository) Create(ctx context.Context, restriction *models.UserRestriction) error {
	if err := r.write(ctx).Create(restriction).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		r.log.LogError(ctx, err, "create")
		return err
	}
	r.log.LogCreate(ctx, map[string]any{
		"restriction_id": restriction.ID,
		"user_id":        restriction.UserID,
		"type":           restriction.RestrictionType,
	})
	return nil
}

func (r *restrictionRepository) GetByID(ctx context.Context, id string) (*models.UserRestriction, error) {
	var restriction models.UserRestriction
	if err := r.write(ctx).Where("id = ?", id).First(&restriction).Error; err != nil {
		return nil, notFound(err, "Restriction", id)
	}
	return &restriction, nil
}

func (r *restrictionRepository) ListActive(ctx context.Context, userID, companyID string) ([]models.UserRestriction, error) {
	var restrictions []models.UserRestriction
	err := r.write(ctx).
		Where("user_id = ? AND company_id = ? AND is_active = ?", userID, companyID, true).
		Order("ends_at ASC").Order("id ASC").
		Find(&restrictions).Error
	return restrictions, err
}

func (r *restrictionRepository) ListForUser(ctx context.Context, userID, companyID string) ([]models.UserRestriction, error) {
	var restrictions []models.UserRestriction
	err := r.write(ctx).
		Where("user_id = ? AND company_id = ?", userID, companyID).
		Order("started_at ASC").Order("id ASC").
		Find(&restrictions).Error
	return restrictions, err
}

func (r *restrictionRepository) FindForStrike(ctx context.Context, strikeID string) (*models.UserRestriction, error) {
	var restriction models.UserRestriction
	err := r.write(ctx).Where("strike_id = ?", strikeID).First(&restriction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &restriction, nil
}

// Deactivate lifts an active restriction; false means it was already inactive.
func (r *restrictionRepository) Deactivate(ctx context.Context, id, liftedBy string, at time.Time) (bool, error) {
	res := r.write(ctx).Model(&models.UserRestriction{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]any{
			"is_active": false,
			"lifted_by": liftedBy,
			"lifted_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *restrictionRepository) ExpireForUser(ctx context.Context, userID, companyID string, now time.Time) (int64, error) {
	res := r.write(ctx).Model(&models.UserRestriction{}).
		Where("user_id = ? AND company_id = ? AND is_active = ? AND ends_at <= ?", userID, companyID, true, now).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

func (r *restrictionRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.UserRestriction, error) {
	var restrictions []models.UserRestriction
	err := r.write(ctx).
		Where("is_active = ? AND ends_at <= ?", true, now).
		Order("ends_at ASC").
		Limit(limit).
		Find(&restrictions).Error
	return restrictions, err
}

func (r *restrictionRepository) ExpireByIDs(ctx context.Context, ids []string, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.write(ctx).Model(&models.UserRestriction{}).
		Where("id IN ? AND is_active = ? AND ends_at <= ?", ids, true, now).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}
