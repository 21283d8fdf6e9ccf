package service

import (
	"context"
	"time"

	"candor/internal/models"
	"candor/internal/repository"
)

// ModerationHistory is a user's complete strike and restriction record in one company.
type ModerationHistory struct {
	UserID         string                   `json:"user_id"`
	CompanyID      string                   `json:"company_id"`
	AccountStatus  string                   `json:"account_status"`
	SuspendedUntil *time.Time               `json:"suspended_until,omitempty"`
	StrikeCount    int                      `json:"strike_count"`
	CurrentLevel   int                      `json:"current_level"`
	Strikes        []models.UserStrike      `json:"strikes"`
	Restrictions   []models.UserRestriction `json:"restrictions"`
}

// HistoryService serves the evidence read of a user's moderation record.
type HistoryService struct {
	store        *repository.Store
	restrictions *RestrictionService
	policy       Policy
}

// NewHistoryService wires the history read.
func NewHistoryService(store *repository.Store, restrictions *RestrictionService, policy Policy) *HistoryService {
	return &HistoryService{store: store, restrictions: restrictions, policy: policy}
}

// GetModerationHistory returns every strike (oldest first) and every
// restriction for userID, with lazy expiry applied before reading.
func (s *HistoryService) GetModerationHistory(ctx context.Context, actor models.Actor, userID string) (*ModerationHistory, error) {
	if !models.IsModeratorRole(actor.Role) {
		return nil, models.NewUnauthorizedError("moderator role required")
	}
	user, err := fetch(ctx, s.policy, "user store", func(ctx context.Context) (*models.User, error) {
		return s.store.Users.GetByID(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	if user.CompanyID != actor.CompanyID {
		return nil, models.NewUnauthorizedError("user belongs to another company")
	}

	if _, err := s.restrictions.CheckActive(ctx, user.CompanyID, userID); err != nil {
		return nil, err
	}

	history := &ModerationHistory{UserID: userID, CompanyID: user.CompanyID}
	err = withRetry(ctx, s.policy, "strike ledger", func(ctx context.Context) error {
		current, err := s.store.Users.GetFromPrimary(ctx, userID)
		if err != nil {
			return err
		}
		strikes, err := s.store.Strikes.ListForUser(ctx, userID, user.CompanyID)
		if err != nil {
			return err
		}
		restrictions, err := s.store.Restrictions.ListForUser(ctx, userID, user.CompanyID)
		if err != nil {
			return err
		}
		history.AccountStatus, history.SuspendedUntil = current.AccountStatus, current.SuspendedUntil
		history.Strikes, history.Restrictions = strikes, restrictions
		return nil
	})
	if err != nil {
		return nil, err
	}
	if history.Strikes == nil {
		history.Strikes = []models.UserStrike{}
	}
	if history.Restrictions == nil {
		history.Restrictions = []models.UserRestriction{}
	}
	history.StrikeCount = len(history.Strikes)
	if n := len(history.Strikes); n > 0 {
		history.CurrentLevel = history.Strikes[n-1].StrikeLevel
	}
	return history, nil
}
