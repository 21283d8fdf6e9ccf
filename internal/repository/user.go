package repository

import (
	"context"
	"time"

	"candor/internal/cache"
	"candor/internal/models"

	"gorm.io/gorm/clause"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetFromPrimary bypasses the user cache, for reads whose answer must
	// reflect the latest enforcement.
	GetFromPrimary(ctx context.Context, id string) (*models.User, error)
	// LockForUpdate reads the user row with SELECT ... FOR UPDATE so strike
	// issuance for one user is serialized. Only meaningful inside a transaction.
	LockForUpdate(ctx context.Context, id string) (*models.User, error)
	Suspend(ctx context.Context, id string, until time.Time) error
	Reactivate(ctx context.Context, id string) error
	ReactivateIfExpired(ctx context.Context, id string, now time.Time) (bool, error)
	ReactivateExpired(ctx context.Context, now time.Time) (int64, error)
	ListByRole(ctx context.Context, companyID string, roles []string) ([]models.User, error)
}

type userRepository struct {
	conn
}

func newUserRepository(c conn) UserRepository {
	return &userRepository{conn: c}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.write(ctx).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if r.inTx {
		return r.GetFromPrimary(ctx, id)
	}
	var user models.User
	load := func() error {
		if err := r.write(ctx).Where("id = ?", id).First(&user).Error; err != nil {
			return notFound(err, "User", id)
		}
		return nil
	}
	if err := cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, load); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetFromPrimary(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.write(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) LockForUpdate(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.write(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, notFound(err, "User", id)
	}
	return &user, nil
}

// Suspend marks the account suspended until until, never shortening a longer
// suspension already in place.
func (r *userRepository) Suspend(ctx context.Context, id string, until time.Time) error {
	res := r.write(ctx).Model(&models.User{}).
		Where("id = ? AND (account_status <> ? OR suspended_until IS NULL OR suspended_until < ?)",
			id, models.AccountStatusSuspended, until).
		Updates(map[string]any{
			"account_status":  models.AccountStatusSuspended,
			"suspended_until": until,
		})
	if res.Error != nil {
		return res.Error
	}
	r.invalidateUser(ctx, id)
	return nil
}

func (r *userRepository) Reactivate(ctx context.Context, id string) error {
	err := r.write(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"account_status":  models.AccountStatusActive,
			"suspended_until": nil,
		}).Error
	if err == nil {
		r.invalidateUser(ctx, id)
	}
	return err
}

func (r *userRepository) ReactivateIfExpired(ctx context.Context, id string, now time.Time) (bool, error) {
	res := r.write(ctx).Model(&models.User{}).
		Where("id = ? AND account_status = ? AND suspended_until <= ?", id, models.AccountStatusSuspended, now).
		Updates(map[string]any{
			"account_status":  models.AccountStatusActive,
			"suspended_until": nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		r.invalidateUser(ctx, id)
	}
	return res.RowsAffected > 0, nil
}

func (r *userRepository) ReactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	var ids []string
	if err := r.write(ctx).Model(&models.User{}).
		Where("account_status = ? AND suspended_until <= ?", models.AccountStatusSuspended, now).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.write(ctx).Model(&models.User{}).
		Where("id IN ? AND account_status = ? AND suspended_until <= ?", ids, models.AccountStatusSuspended, now).
		Updates(map[string]any{
			"account_status":  models.AccountStatusActive,
			"suspended_until": nil,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	for _, id := range ids {
		r.invalidateUser(ctx, id)
	}
	return res.RowsAffected, nil
}

func (r *userRepository) ListByRole(ctx context.Context, companyID string, roles []string) ([]models.User, error) {
	var users []models.User
	err := r.listing(ctx).
		Where("company_id = ? AND role IN ?", companyID, roles).
		Order("id ASC").
		Find(&users).Error
	return users, err
}
