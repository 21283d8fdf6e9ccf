package repository

import (
	"context"
	"errors"

	"candor/internal/models"

	"gorm.io/gorm"
)

// StrikeRepository is the append-only strike ledger.
type StrikeRepository interface {
	Create(ctx context.Context, strike *models.UserStrike) error
	GetByID(ctx context.Context, id string) (*models.UserStrike, error)
	CountForUser(ctx context.Context, userID, companyID string) (int64, error)
	ListForUser(ctx context.Context, userID, companyID string) ([]models.UserStrike, error)
	// LatestForUser returns nil when the user has no strikes.
	LatestForUser(ctx context.Context, userID, companyID string) (*models.UserStrike, error)
	// ListUnenforced returns strikes of at least minLevel that no restriction
	// references yet, oldest first.
	ListUnenforced(ctx context.Context, userID, companyID string, minLevel int) ([]models.UserStrike, error)
}

type strikeRepository struct {
	conn
}

func newStrikeRepository(c conn) StrikeRepository {
	return &strikeRepository{conn: c}
}

func (r *strikeRepository) Create(ctx context.Context, strike *models.UserStrike) error {
	return r.write(ctx).Create(strike).Error
}

func (r *strikeRepository) GetByID(ctx context.Context, id string) (*models.UserStrike, error) {
	var strike models.UserStrike
	if err := r.write(ctx).Where("id = ?", id).First(&strike).Error; err != nil {
		return nil, notFound(err, "Strike", id)
	}
	return &strike, nil
}

func (r *strikeRepository) CountForUser(ctx context.Context, userID, companyID string) (int64, error) {
	var count int64
	err := r.write(ctx).Model(&models.UserStrike{}).
		Where("user_id = ? AND company_id = ?", userID, companyID).
		Count(&count).Error
	return count, err
}

func (r *strikeRepository) ListForUser(ctx context.Context, userID, companyID string) ([]models.UserStrike, error) {
	var strikes []models.UserStrike
	err := r.write(ctx).
		Where("user_id = ? AND company_id = ?", userID, companyID).
		Order("issued_at ASC").Order("id ASC").
		Find(&strikes).Error
	return strikes, err
}

func (r *strikeRepository) LatestForUser(ctx context.Context, userID, companyID string) (*models.UserStrike, error) {
	var strike models.UserStrike
	err := r.write(ctx).
		Where("user_id = ? AND company_id = ?", userID, companyID).
		Order("issued_at DESC").Order("id DESC").
		First(&strike).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &strike, nil
}

func (r *strikeRepository) ListUnenforced(ctx context.Context, userID, companyID string, minLevel int) ([]models.UserStrike, error) {
	var strikes []models.UserStrike
	err := r.write(ctx).
		Where("user_id = ? AND company_id = ? AND strike_level >= ?", userID, companyID, minLevel).
		Where("NOT EXISTS (SELECT 1 FROM restrictions WHERE restrictions.strike_id = strikes.id)").
		Order("issued_at ASC").Order("id ASC").
		Find(&strikes).Error
	return strikes, err
}
