package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"candor/internal/audit"
	"candor/internal/models"
	"candor/internal/notifications"
	"candor/internal/observability"
	"candor/internal/repository"
)

const expireBatchSize = 500

// StrikeApplication asks the enforcer to apply the consequence of a strike.
// Reconciled marks a restriction recovered from strike state on a later read.
type StrikeApplication struct {
	Strike     *models.UserStrike
	Reconciled bool
}

// ApplyResult is the restriction produced (or found) for a strike.
type ApplyResult struct {
	Restriction *models.UserRestriction
	Created     bool
}

// RestrictionStatus is the answer to "may this user act right now".
type RestrictionStatus struct {
	UserID       string                   `json:"user_id"`
	IsRestricted bool                     `json:"is_restricted"`
	Restrictions []models.UserRestriction `json:"restrictions"`
}

// RestrictionService applies, expires and lifts restrictions.
type RestrictionService struct {
	store    *repository.Store
	audit    *audit.Emitter
	notifier *notifications.Notifier
	policy   Policy
	now      func() time.Time
}

// NewRestrictionService wires the enforcer.
func NewRestrictionService(store *repository.Store, emitter *audit.Emitter, notifier *notifications.Notifier, policy Policy) *RestrictionService {
	return &RestrictionService{
		store:    store,
		audit:    emitter,
		notifier: notifier,
		policy:   policy,
		now:      utcNow,
	}
}

// ApplyForStrikeLevel applies the consequence of a strike. It is keyed by the
// strike id, so applying the same strike twice returns the first restriction.
// Restriction windows are anchored at the strike's issue time.
func (s *RestrictionService) ApplyForStrikeLevel(ctx context.Context, app StrikeApplication) (*ApplyResult, error) {
	strike := app.Strike
	if strike == nil {
		return nil, models.NewValidationError("strike is required")
	}

	var restrictionType string
	var length time.Duration
	switch strike.StrikeLevel {
	case 1:
		s.notify(ctx, strike.UserID, notifications.TypeStrikeWarning, "Community guidelines warning",
			"Your content was removed for violating community guidelines. Further violations will restrict your account.",
			map[string]any{"strike_level": 1, "violation_type": strike.ViolationType})
		return &ApplyResult{}, nil
	case 2:
		restrictionType, length = models.RestrictionPosting, s.policy.PostingRestriction
	case models.MaxStrikeLevel:
		restrictionType, length = models.RestrictionFullSuspension, s.policy.Suspension
	default:
		return nil, models.NewValidationError(fmt.Sprintf("invalid strike level %d", strike.StrikeLevel))
	}

	now := s.now()
	var result ApplyResult
	err := withRetry(ctx, s.policy, "restriction store", func(ctx context.Context) error {
		result = ApplyResult{}
		return s.store.Transaction(ctx, func(tx *repository.Store) error {
			existing, err := tx.Restrictions.FindForStrike(ctx, strike.ID)
			if err != nil {
				return err
			}
			if existing != nil {
				result.Restriction = existing
				return nil
			}

			strikeID := strike.ID
			endsAt := strike.IssuedAt.Add(length)
			restriction := &models.UserRestriction{
				UserID:          strike.UserID,
				CompanyID:       strike.CompanyID,
				RestrictionType: restrictionType,
				StrikeID:        &strikeID,
				StartedAt:       strike.IssuedAt,
				EndsAt:          endsAt,
				Reason:          fmt.Sprintf("Strike %d: %s", strike.StrikeLevel, strike.ViolationType),
				IsActive:        endsAt.After(now),
			}
			if err := tx.Restrictions.Create(ctx, restriction); err != nil {
				return err
			}
			if restrictionType == models.RestrictionFullSuspension && restriction.IsActive {
				if err := tx.Users.Suspend(ctx, strike.UserID, endsAt); err != nil {
					return err
				}
			}
			result.Restriction, result.Created = restriction, true
			return nil
		})
	})
	if errors.Is(err, repository.ErrDuplicate) {
		// A concurrent reconciliation created it first.
		existing, ferr := fetch(ctx, s.policy, "restriction store", func(ctx context.Context) (*models.UserRestriction, error) {
			return s.store.Restrictions.FindForStrike(ctx, strike.ID)
		})
		if ferr != nil {
			return nil, ferr
		}
		return &ApplyResult{Restriction: existing}, nil
	}
	if err != nil {
		return nil, err
	}

	if result.Created {
		s.afterApply(ctx, app, result.Restriction)
	}
	return &result, nil
}

func (s *RestrictionService) afterApply(ctx context.Context, app StrikeApplication, r *models.UserRestriction) {
	strike := app.Strike
	observability.RestrictionsApplied.WithLabelValues(r.RestrictionType).Inc()

	activity := models.ActivityUserRestricted
	kind, title := notifications.TypePostingRestricted, "Posting restricted"
	message := fmt.Sprintf("You cannot create posts until %s.", r.EndsAt.Format(time.RFC1123))
	if r.RestrictionType == models.RestrictionFullSuspension {
		activity = models.ActivityUserSuspended
		kind, title = notifications.TypeAccountSuspended, "Account suspended"
		message = fmt.Sprintf("Your account is suspended until %s.", r.EndsAt.Format(time.RFC1123))
	}

	s.audit.Emit(ctx, audit.Event{
		ActivityType: activity,
		ReportID:     strike.ReportID,
		ContentType:  strike.ContentType,
		ContentID:    strike.ContentID,
		ActorUserID:  strike.IssuedBy,
		CompanyID:    strike.CompanyID,
		Metadata: map[string]any{
			"restriction_id":   r.ID,
			"restriction_type": r.RestrictionType,
			"strike_id":        strike.ID,
			"strike_level":     strike.StrikeLevel,
			"ends_at":          r.EndsAt.Format(time.RFC3339),
			"reconciled":       app.Reconciled,
		},
	})
	if r.IsActive {
		s.notify(ctx, r.UserID, kind, title, message, map[string]any{
			"restriction_type": r.RestrictionType,
			"ends_at":          r.EndsAt.Format(time.RFC3339),
		})
	}
}

// CheckActive returns the user's restrictions that are still in force. It
// first recovers a restriction the latest strike should have produced, then
// expires every restriction whose window has closed.
func (s *RestrictionService) CheckActive(ctx context.Context, companyID, userID string) (*RestrictionStatus, error) {
	if err := s.reconcile(ctx, companyID, userID); err != nil {
		return nil, err
	}

	now := s.now()
	err := withRetry(ctx, s.policy, "restriction store", func(ctx context.Context) error {
		expired, err := s.store.Restrictions.ExpireForUser(ctx, userID, companyID, now)
		if err != nil {
			return err
		}
		if expired > 0 {
			observability.RestrictionsExpired.WithLabelValues("lazy").Add(float64(expired))
		}
		_, err = s.store.Users.ReactivateIfExpired(ctx, userID, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	active, err := fetch(ctx, s.policy, "restriction store", func(ctx context.Context) ([]models.UserRestriction, error) {
		return s.store.Restrictions.ListActive(ctx, userID, companyID)
	})
	if err != nil {
		return nil, err
	}
	if active == nil {
		active = []models.UserRestriction{}
	}
	return &RestrictionStatus{UserID: userID, IsRestricted: len(active) > 0, Restrictions: active}, nil
}

// reconcile rebuilds the restriction of every strike that was written but
// never enforced, each anchored at its own issue time. A later strike does
// not hide an older one's missing suspension.
func (s *RestrictionService) reconcile(ctx context.Context, companyID, userID string) error {
	pending, err := fetch(ctx, s.policy, "strike ledger", func(ctx context.Context) ([]models.UserStrike, error) {
		return s.store.Strikes.ListUnenforced(ctx, userID, companyID, 2)
	})
	if err != nil {
		return err
	}
	for i := range pending {
		strike := &pending[i]
		slog.WarnContext(ctx, "reconciling missing restriction",
			slog.String("strike_id", strike.ID), slog.Int("strike_level", strike.StrikeLevel))
		if _, err := s.ApplyForStrikeLevel(ctx, StrikeApplication{Strike: strike, Reconciled: true}); err != nil {
			return err
		}
	}
	return nil
}

// CheckPermission is the gate the content creation path calls before
// accepting a post or comment.
func (s *RestrictionService) CheckPermission(ctx context.Context, companyID, userID, contentType string) error {
	if !models.IsValidContentType(contentType) {
		return models.NewValidationError(fmt.Sprintf("unsupported content type %q", contentType))
	}
	status, err := s.CheckActive(ctx, companyID, userID)
	if err != nil {
		return err
	}
	for _, r := range status.Restrictions {
		if r.Blocks(contentType) {
			return models.NewUnauthorizedError(fmt.Sprintf("%s restriction active until %s",
				r.RestrictionType, r.EndsAt.Format(time.RFC3339)))
		}
	}
	return nil
}

// StatusFor is CheckActive on behalf of actor. Users may read their own
// status; moderators may read anyone's in their company.
func (s *RestrictionService) StatusFor(ctx context.Context, actor models.Actor, userID string) (*RestrictionStatus, error) {
	if actor.UserID != userID && !models.IsModeratorRole(actor.Role) {
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
	return s.CheckActive(ctx, user.CompanyID, userID)
}

// Lift ends an active restriction early. Only admins may lift.
func (s *RestrictionService) Lift(ctx context.Context, actor models.Actor, restrictionID string) (*models.UserRestriction, error) {
	if !models.IsAdminRole(actor.Role) {
		return nil, models.NewUnauthorizedError("admin role required")
	}
	restriction, err := fetch(ctx, s.policy, "restriction store", func(ctx context.Context) (*models.UserRestriction, error) {
		return s.store.Restrictions.GetByID(ctx, restrictionID)
	})
	if err != nil {
		return nil, err
	}
	if restriction.CompanyID != actor.CompanyID {
		return nil, models.NewUnauthorizedError("restriction belongs to another company")
	}

	now := s.now()
	err = withRetry(ctx, s.policy, "restriction store", func(ctx context.Context) error {
		return s.store.Transaction(ctx, func(tx *repository.Store) error {
			lifted, err := tx.Restrictions.Deactivate(ctx, restrictionID, actor.UserID, now)
			if err != nil {
				return err
			}
			if !lifted {
				return models.NewInvalidTransitionError("restriction is not active")
			}
			if restriction.RestrictionType == models.RestrictionFullSuspension {
				return tx.Users.Reactivate(ctx, restriction.UserID)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	event := audit.Event{
		ActivityType: models.ActivityRestrictionLifted,
		ActorUserID:  actor.UserID,
		CompanyID:    actor.CompanyID,
		Metadata: map[string]any{
			"restriction_id":   restriction.ID,
			"restriction_type": restriction.RestrictionType,
		},
	}
	if restriction.StrikeID != nil {
		if strike, err := s.store.Strikes.GetByID(ctx, *restriction.StrikeID); err == nil {
			event.ReportID, event.ContentType, event.ContentID = strike.ReportID, strike.ContentType, strike.ContentID
		} else {
			slog.WarnContext(ctx, "lift audit missing strike context", slog.String("error", err.Error()))
		}
	}
	s.audit.Emit(ctx, event)
	s.notify(ctx, restriction.UserID, notifications.TypeRestrictionLifted, "Restriction lifted",
		"A moderator lifted a restriction on your account.", map[string]any{"restriction_type": restriction.RestrictionType})

	return s.store.Restrictions.GetByID(ctx, restrictionID)
}

// ExpireDue deactivates every restriction whose window has closed and
// reactivates accounts whose suspension ended. Lazy expiry in CheckActive
// stays authoritative; this only keeps listings fresh.
func (s *RestrictionService) ExpireDue(ctx context.Context) (int64, error) {
	now := s.now()
	var total int64
	for {
		due, err := fetch(ctx, s.policy, "restriction store", func(ctx context.Context) ([]models.UserRestriction, error) {
			return s.store.Restrictions.ListDue(ctx, now, expireBatchSize)
		})
		if err != nil {
			return total, err
		}
		if len(due) == 0 {
			break
		}
		ids := make([]string, 0, len(due))
		for _, r := range due {
			ids = append(ids, r.ID)
		}
		expired, err := fetch(ctx, s.policy, "restriction store", func(ctx context.Context) (int64, error) {
			return s.store.Restrictions.ExpireByIDs(ctx, ids, now)
		})
		if err != nil {
			return total, err
		}
		total += expired
		if len(due) < expireBatchSize {
			break
		}
	}
	if total > 0 {
		observability.RestrictionsExpired.WithLabelValues("sweeper").Add(float64(total))
	}

	reactivated, err := fetch(ctx, s.policy, "user store", func(ctx context.Context) (int64, error) {
		return s.store.Users.ReactivateExpired(ctx, now)
	})
	if err != nil {
		return total, err
	}
	if total > 0 || reactivated > 0 {
		slog.InfoContext(ctx, "expired restrictions",
			slog.Int64("restrictions", total), slog.Int64("reactivated_users", reactivated))
	}
	return total, nil
}

func (s *RestrictionService) notify(ctx context.Context, userID, kind, title, message string, metadata map[string]any) {
	if err := s.notifier.Notify(ctx, userID, kind, title, message, metadata); err != nil {
		observability.LogAsyncOperationError(ctx, "notify_user", err, map[string]any{"type": kind})
	}
}
