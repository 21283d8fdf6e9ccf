package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"candor/internal/models"
	"candor/internal/observability"
	"candor/internal/repository"
	"candor/internal/testutil"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRemoveAndWarn_FirstStrike(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	report, post := h.report(t, false)
	res := h.warn(t, report.ID)

	assert.Equal(t, models.ReportStatusResolved, res.Report.Status)
	assert.Equal(t, models.ActionRemoveAndWarn, res.Report.ActionTaken)
	require.NotNil(t, res.Report.ReviewedBy)
	assert.Equal(t, h.moderator.ID, *res.Report.ReviewedBy)
	assert.Equal(t, 1, res.StrikeLevel)
	assert.Empty(t, res.RestrictionType)

	var stored models.Post
	h.reload(t, &stored, post.ID)
	assert.True(t, stored.IsRemoved)
	require.NotNil(t, stored.RemovedBy)
	assert.Equal(t, h.moderator.ID, *stored.RemovedBy)

	strikes, err := h.store.Strikes.ListForUser(ctx, h.author.ID, h.companyID)
	require.NoError(t, err)
	require.Len(t, strikes, 1)
	assert.Equal(t, 1, strikes[0].StrikeLevel)
	assert.Equal(t, report.ID, strikes[0].ReportID)

	assert.Equal(t, []string{
		models.ActivityReportReviewed,
		models.ActivityContentRemoved,
		models.ActivityStrikeIssued,
	}, h.trail(t, report.ID))
}

func TestRemoveAndWarn_SecondStrikeRestrictsPosting(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	first, _ := h.report(t, false)
	h.warn(t, first.ID)

	h.clock.Advance(time.Hour)
	second, _ := h.report(t, false)
	res := h.warn(t, second.ID)

	assert.Equal(t, 2, res.StrikeLevel)
	assert.Equal(t, models.RestrictionPosting, res.RestrictionType)
	require.NotNil(t, res.RestrictionEndsAt)
	assert.True(t, res.RestrictionEndsAt.Equal(h.clock.Now().Add(7*24*time.Hour)))

	status, err := h.restrictions.CheckActive(ctx, h.companyID, h.author.ID)
	require.NoError(t, err)
	require.True(t, status.IsRestricted)
	require.Len(t, status.Restrictions, 1)
	assert.Equal(t, models.RestrictionPosting, status.Restrictions[0].RestrictionType)
	assert.True(t, status.Restrictions[0].IsActive)

	assert.Equal(t, []string{
		models.ActivityReportReviewed,
		models.ActivityContentRemoved,
		models.ActivityStrikeIssued,
		models.ActivityUserRestricted,
	}, h.trail(t, second.ID))

	err = h.restrictions.CheckPermission(ctx, h.companyID, h.author.ID, models.ContentTypePost)
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))
	assert.NoError(t, h.restrictions.CheckPermission(ctx, h.companyID, h.author.ID, models.ContentTypeComment))
}

func TestRemoveAndSuspend_DirectLevelThree(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	report, _ := h.report(t, false)
	res, err := h.moderation.ApplyAction(context.Background(), ActionInput{
		ReportID:      report.ID,
		Actor:         h.modActor(),
		Action:        models.ActionRemoveAndSuspend,
		ViolationType: "Violence",
		Explanation:   "Threat of violence",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.StrikeLevel)
	assert.Equal(t, models.RestrictionFullSuspension, res.RestrictionType)

	var author models.User
	h.reload(t, &author, h.author.ID)
	assert.Equal(t, models.AccountStatusSuspended, author.AccountStatus)
	require.NotNil(t, author.SuspendedUntil)
	assert.True(t, author.SuspendedUntil.Equal(h.clock.Now().Add(30*24*time.Hour)))

	assert.Equal(t, []string{
		models.ActivityReportReviewed,
		models.ActivityContentRemoved,
		models.ActivityUserSuspended,
	}, h.trail(t, report.ID))

	for _, ct := range []string{models.ContentTypePost, models.ContentTypeComment} {
		err := h.restrictions.CheckPermission(context.Background(), h.companyID, h.author.ID, ct)
		assert.True(t, models.IsCode(err, models.CodeUnauthorized), ct)
	}
}

func TestApplyAction_FinalStates(t *testing.T) {
	t.Parallel()

	cases := []struct {
		action      string
		wantStatus  string
		wantTrail   []string
		wantRemoved bool
	}{
		{models.ActionDismiss, models.ReportStatusDismissed,
			[]string{models.ActivityReportReviewed, models.ActivityReportDismissed}, false},
		{models.ActionRemoveContent, models.ReportStatusResolved,
			[]string{models.ActivityReportReviewed, models.ActivityContentRemoved}, true},
		{models.ActionEscalate, models.ReportStatusUnderReview,
			[]string{models.ActivityReportReviewed, models.ActivityReportEscalated}, false},
	}
	for _, tc := range cases {
		t.Run(tc.action, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)
			report, post := h.report(t, false)

			res, err := h.moderation.ApplyAction(context.Background(), ActionInput{
				ReportID: report.ID, Actor: h.modActor(), Action: tc.action, ModeratorNotes: "<b>checked</b>",
			})
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, res.Report.Status)
			assert.Equal(t, "checked", res.Report.ModeratorNotes)
			assert.Equal(t, tc.wantTrail, h.trail(t, report.ID))

			var stored models.Post
			h.reload(t, &stored, post.ID)
			assert.Equal(t, tc.wantRemoved, stored.IsRemoved)

			if tc.action == models.ActionEscalate {
				assert.Equal(t, models.RoleSuperAdmin, res.Report.EscalatedTo)
				assert.NotNil(t, res.Report.EscalatedAt)
			}
		})
	}
}

func TestApplyAction_SecondApplicationIsInvalidTransition(t *testing.T) {
	t.Parallel()

	actions := []string{
		models.ActionDismiss,
		models.ActionRemoveContent,
		models.ActionRemoveAndWarn,
		models.ActionRemoveAndSuspend,
		models.ActionEscalate,
	}
	for _, action := range actions {
		t.Run(action, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)
			report, _ := h.report(t, false)
			in := ActionInput{
				ReportID:      report.ID,
				Actor:         h.modActor(),
				Action:        action,
				ViolationType: "Harassment",
				Explanation:   "Repeated",
			}
			_, err := h.moderation.ApplyAction(context.Background(), in)
			require.NoError(t, err)

			_, err = h.moderation.ApplyAction(context.Background(), in)
			require.Error(t, err)
			assert.True(t, models.IsCode(err, models.CodeInvalidTransition), err.Error())
		})
	}
}

func TestApplyAction_EscalatedReportCanStillBeResolved(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	report, _ := h.report(t, false)

	_, err := h.moderation.ApplyAction(context.Background(), ActionInput{ReportID: report.ID, Actor: h.adminActor(), Action: models.ActionEscalate})
	require.NoError(t, err)

	res, err := h.moderation.ApplyAction(context.Background(), ActionInput{ReportID: report.ID, Actor: h.adminActor(), Action: models.ActionDismiss})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusDismissed, res.Report.Status)
}

func TestApplyAction_Rejections(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	report, _ := h.report(t, false)
	ctx := context.Background()

	t.Run("employee", func(t *testing.T) {
		_, err := h.moderation.ApplyAction(ctx, ActionInput{ReportID: report.ID, Actor: models.ActorFor(h.reporter), Action: models.ActionDismiss})
		assert.True(t, models.IsCode(err, models.CodeUnauthorized))
	})
	t.Run("other company", func(t *testing.T) {
		outsider := testutil.CreateUser(t, h.db, models.NewID(), models.RoleAdmin)
		_, err := h.moderation.ApplyAction(ctx, ActionInput{ReportID: report.ID, Actor: models.ActorFor(outsider), Action: models.ActionDismiss})
		assert.True(t, models.IsCode(err, models.CodeUnauthorized))
	})
	t.Run("unknown action", func(t *testing.T) {
		_, err := h.moderation.ApplyAction(ctx, ActionInput{ReportID: report.ID, Actor: h.modActor(), Action: "ban"})
		assert.True(t, models.IsCode(err, models.CodeValidation))
	})
	t.Run("warn without explanation", func(t *testing.T) {
		_, err := h.moderation.ApplyAction(ctx, ActionInput{ReportID: report.ID, Actor: h.modActor(), Action: models.ActionRemoveAndWarn, ViolationType: "Spam"})
		assert.True(t, models.IsCode(err, models.CodeInvalidTransition))
	})
	t.Run("missing report", func(t *testing.T) {
		_, err := h.moderation.ApplyAction(ctx, ActionInput{ReportID: models.NewID(), Actor: h.modActor(), Action: models.ActionDismiss})
		assert.True(t, models.IsCode(err, models.CodeNotFound))
	})

	stored, err := h.store.Reports.GetByID(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusPending, stored.Status, "rejected actions leave the report untouched")
}

func TestRemoveAndWarn_AnonymousAuthorIsStillEnforced(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	report, _ := h.report(t, true)
	assert.Empty(t, report.ContentAuthorID)
	assert.NotEmpty(t, report.ContentAuthorToken)

	h.warn(t, report.ID)

	count, err := h.store.Strikes.CountForUser(context.Background(), h.author.ID, h.companyID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestRemoveAndWarn_RestrictionFailureIsReconciledOnRead(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	first, _ := h.report(t, false)
	h.warn(t, first.ID)

	const cb = "test:fail_restrictions"
	require.NoError(t, h.db.Callback().Create().Before("gorm:create").Register(cb, func(tx *gorm.DB) {
		if tx.Statement.Table == "restrictions" {
			_ = tx.AddError(errors.New("restriction store down"))
		}
	}))

	pending := promtest.ToFloat64(observability.RestrictionsPendingReconciliation)
	second, _ := h.report(t, false)
	res := h.warn(t, second.ID)
	assert.Equal(t, 2, res.StrikeLevel, "the strike is durable even though enforcement failed")
	assert.Empty(t, res.RestrictionType)
	assert.GreaterOrEqual(t, promtest.ToFloat64(observability.RestrictionsPendingReconciliation), pending+1)

	require.NoError(t, h.db.Callback().Create().Remove(cb))

	status, err := h.restrictions.CheckActive(ctx, h.companyID, h.author.ID)
	require.NoError(t, err)
	require.Len(t, status.Restrictions, 1)
	assert.Equal(t, models.RestrictionPosting, status.Restrictions[0].RestrictionType)

	strikes, err := h.store.Strikes.ListForUser(ctx, h.author.ID, h.companyID)
	require.NoError(t, err)
	assert.True(t, status.Restrictions[0].StartedAt.Equal(strikes[1].IssuedAt), "anchored at the strike")
	assert.Contains(t, h.trail(t, second.ID), models.ActivityUserRestricted)
}

func TestApplyAction_DecidingModeratorIsTheReviewer(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	report, _ := h.report(t, false)
	other := testutil.CreateUser(t, h.db, h.companyID, models.RoleModerator)

	first := ActionInput{ReportID: report.ID, Actor: h.modActor(), Action: models.ActionDismiss}
	second := ActionInput{ReportID: report.ID, Actor: models.ActorFor(other), Action: models.ActionDismiss}

	// Both moderators open the report before either decides.
	require.NoError(t, h.moderation.acknowledge(ctx, report, first))
	require.NoError(t, h.moderation.acknowledge(ctx, report, second))

	require.NoError(t, h.moderation.dismiss(ctx, report, first))
	err := h.moderation.dismiss(ctx, report, second)
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeInvalidTransition), err.Error())

	var stored models.ContentReport
	h.reload(t, &stored, report.ID)
	require.NotNil(t, stored.ReviewedBy)
	assert.Equal(t, h.moderator.ID, *stored.ReviewedBy)
	assert.Equal(t, models.ActionDismiss, stored.ActionTaken)
	assert.Equal(t, []string{models.ActivityReportReviewed, models.ActivityReportDismissed}, h.trail(t, report.ID),
		"the losing moderator leaves nothing in the trail")
}

func TestApplyAction_EscalationRecordsReviewer(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	report, _ := h.report(t, false)

	res, err := h.moderation.ApplyAction(context.Background(), ActionInput{ReportID: report.ID, Actor: h.modActor(), Action: models.ActionEscalate})
	require.NoError(t, err)
	require.NotNil(t, res.Report.ReviewedBy)
	assert.Equal(t, h.moderator.ID, *res.Report.ReviewedBy)
	assert.NotNil(t, res.Report.ReviewedAt)
}

func TestCommit_LostAcknowledgementOfOwnWrite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dismissWrite := func(h *harness, in ActionInput) func(context.Context) error {
		return func(ctx context.Context) error {
			return h.store.Transaction(ctx, func(tx *repository.Store) error {
				return finalize(ctx, tx, in.ReportID, models.ReportStatusDismissed, in, h.clock.Now())
			})
		}
	}

	t.Run("own commit counts as success", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		report, _ := h.report(t, false)
		in := ActionInput{ReportID: report.ID, Actor: h.modActor(), Action: models.ActionDismiss}
		require.NoError(t, h.moderation.acknowledge(ctx, report, in))

		write := dismissWrite(h, in)
		attempts := 0
		err := h.moderation.commit(ctx, "report store", report.ID, in, func(ctx context.Context) error {
			attempts++
			if err := write(ctx); err != nil {
				return err
			}
			if attempts == 1 {
				return errLocked
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, attempts)

		var stored models.ContentReport
		h.reload(t, &stored, report.ID)
		assert.Equal(t, models.ReportStatusDismissed, stored.Status)
	})

	t.Run("another moderator's decision still conflicts", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		report, _ := h.report(t, false)
		other := testutil.CreateUser(t, h.db, h.companyID, models.RoleModerator)
		_, err := h.moderation.ApplyAction(ctx, ActionInput{ReportID: report.ID, Actor: models.ActorFor(other), Action: models.ActionDismiss})
		require.NoError(t, err)

		in := ActionInput{ReportID: report.ID, Actor: h.modActor(), Action: models.ActionDismiss}
		write := dismissWrite(h, in)
		attempts := 0
		err = h.moderation.commit(ctx, "report store", report.ID, in, func(ctx context.Context) error {
			attempts++
			if attempts == 1 {
				return errLocked
			}
			return write(ctx)
		})
		require.Error(t, err)
		assert.True(t, models.IsCode(err, models.CodeInvalidTransition), err.Error())
	})
}

func TestAppliedBy(t *testing.T) {
	t.Parallel()
	actor := "mod-1"
	other := "mod-2"
	in := func(action string) ActionInput {
		return ActionInput{Actor: models.Actor{UserID: actor}, Action: action}
	}

	tests := []struct {
		name   string
		report models.ContentReport
		in     ActionInput
		want   bool
	}{
		{"dismissed by actor", models.ContentReport{Status: models.ReportStatusDismissed, ReviewedBy: &actor, ActionTaken: models.ActionDismiss}, in(models.ActionDismiss), true},
		{"dismissed by other", models.ContentReport{Status: models.ReportStatusDismissed, ReviewedBy: &other, ActionTaken: models.ActionDismiss}, in(models.ActionDismiss), false},
		{"different action", models.ContentReport{Status: models.ReportStatusResolved, ReviewedBy: &actor, ActionTaken: models.ActionRemoveContent}, in(models.ActionDismiss), false},
		{"still open", models.ContentReport{Status: models.ReportStatusUnderReview, ReviewedBy: &actor}, in(models.ActionDismiss), false},
		{"escalated by actor", models.ContentReport{Status: models.ReportStatusUnderReview, ReviewedBy: &actor, EscalatedTo: models.RoleSuperAdmin}, in(models.ActionEscalate), true},
		{"not escalated", models.ContentReport{Status: models.ReportStatusUnderReview, ReviewedBy: &actor}, in(models.ActionEscalate), false},
		{"no reviewer", models.ContentReport{Status: models.ReportStatusDismissed, ActionTaken: models.ActionDismiss}, in(models.ActionDismiss), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, appliedBy(&tt.report, tt.in))
		})
	}
}
