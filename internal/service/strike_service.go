package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"candor/internal/audit"
	"candor/internal/models"
	"candor/internal/observability"
	"candor/internal/repository"
	"candor/internal/validation"
)

// StrikeInput describes the violation a strike records.
type StrikeInput struct {
	UserID        string `json:"user_id" validate:"required"`
	CompanyID     string `json:"company_id" validate:"required"`
	ContentType   string `json:"content_type" validate:"required,oneof=post comment"`
	ContentID     string `json:"content_id" validate:"required"`
	ReportID      string `json:"report_id" validate:"required"`
	ViolationType string `json:"violation_type" validate:"required,max=100"`
	Explanation   string `json:"explanation" validate:"required,max=2000"`
	IssuedBy      string `json:"issued_by" validate:"required"`
}

// StrikeOutcome is the durable strike plus whatever restriction it produced.
// Restriction is nil for a warning or when enforcement is pending reconciliation.
type StrikeOutcome struct {
	Strike      *models.UserStrike
	Restriction *models.UserRestriction
}

// StrikeService is the append-only strike ledger.
type StrikeService struct {
	store        *repository.Store
	restrictions *RestrictionService
	audit        *audit.Emitter
	policy       Policy
	now          func() time.Time
}

// NewStrikeService wires the ledger to the enforcer it drives.
func NewStrikeService(store *repository.Store, restrictions *RestrictionService, emitter *audit.Emitter, policy Policy) *StrikeService {
	return &StrikeService{
		store:        store,
		restrictions: restrictions,
		audit:        emitter,
		policy:       policy,
		now:          utcNow,
	}
}

// NextLevel is the level a user with count prior strikes receives next.
func NextLevel(count int64) int {
	return models.NextStrikeLevel(count)
}

// IssueStrike records a strike at the next level for the user and applies
// its restriction.
func (s *StrikeService) IssueStrike(ctx context.Context, in StrikeInput) (*StrikeOutcome, error) {
	return s.issue(ctx, in, 0)
}

// IssueStrikeDirect records a strike at exactly level, skipping the count.
func (s *StrikeService) IssueStrikeDirect(ctx context.Context, level int, in StrikeInput) (*StrikeOutcome, error) {
	if level < 1 || level > models.MaxStrikeLevel {
		return nil, models.NewValidationError(fmt.Sprintf("strike level must be between 1 and %d", models.MaxStrikeLevel))
	}
	return s.issue(ctx, in, level)
}

func (s *StrikeService) issue(ctx context.Context, in StrikeInput, level int) (*StrikeOutcome, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	var strike *models.UserStrike
	err := withRetry(ctx, s.policy, "strike ledger", func(ctx context.Context) error {
		return s.store.Transaction(ctx, func(tx *repository.Store) error {
			var err error
			strike, err = s.record(ctx, tx, in, level)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	countStrike(strike)
	s.emitIssued(ctx, strike)
	return &StrikeOutcome{Strike: strike, Restriction: s.enforce(ctx, strike)}, nil
}

// record writes a strike inside tx. The user row is locked first so two
// strikes for one user cannot both read the same prior count. A level of
// zero means the next level in sequence.
func (s *StrikeService) record(ctx context.Context, tx *repository.Store, in StrikeInput, level int) (*models.UserStrike, error) {
	user, err := tx.Users.LockForUpdate(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if user.CompanyID != in.CompanyID {
		return nil, models.NewUnauthorizedError("user belongs to another company")
	}
	if level == 0 {
		count, err := tx.Strikes.CountForUser(ctx, in.UserID, in.CompanyID)
		if err != nil {
			return nil, err
		}
		level = NextLevel(count)
	}
	strike := &models.UserStrike{
		UserID:        in.UserID,
		CompanyID:     in.CompanyID,
		StrikeLevel:   level,
		ContentType:   in.ContentType,
		ContentID:     in.ContentID,
		ReportID:      in.ReportID,
		ViolationType: validation.Sanitize(in.ViolationType),
		Explanation:   validation.Sanitize(in.Explanation),
		IssuedBy:      in.IssuedBy,
		IssuedAt:      s.now(),
	}
	if err := tx.Strikes.Create(ctx, strike); err != nil {
		return nil, err
	}
	return strike, nil
}

func countStrike(strike *models.UserStrike) {
	observability.StrikesIssued.WithLabelValues(strconv.Itoa(strike.StrikeLevel)).Inc()
}

func (s *StrikeService) emitIssued(ctx context.Context, strike *models.UserStrike) {
	s.audit.Emit(ctx, audit.Event{
		ActivityType: models.ActivityStrikeIssued,
		ReportID:     strike.ReportID,
		ContentType:  strike.ContentType,
		ContentID:    strike.ContentID,
		ActorUserID:  strike.IssuedBy,
		CompanyID:    strike.CompanyID,
		Metadata: map[string]any{
			"strike_id":      strike.ID,
			"strike_level":   strike.StrikeLevel,
			"violation_type": strike.ViolationType,
		},
	})
}

// enforce applies the strike's restriction after the strike is durable. A
// failure leaves the strike in place for CheckActive to reconcile and is
// never returned to the caller.
func (s *StrikeService) enforce(ctx context.Context, strike *models.UserStrike) *models.UserRestriction {
	res, err := s.restrictions.ApplyForStrikeLevel(ctx, StrikeApplication{Strike: strike})
	if err != nil {
		observability.RestrictionsPendingReconciliation.Inc()
		slog.ErrorContext(ctx, "restriction pending reconciliation",
			slog.String("strike_id", strike.ID),
			slog.Int("strike_level", strike.StrikeLevel),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return res.Restriction
}
