package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"candor/internal/models"
	"candor/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportTransition_IsConditional(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	reporter := testutil.CreateUser(t, db, models.NewID(), models.RoleEmployee)
	author := testutil.CreateUser(t, db, reporter.CompanyID, models.RoleEmployee)
	post := testutil.CreatePost(t, db, author, false)

	report := &models.ContentReport{
		CompanyID:       reporter.CompanyID,
		ContentType:     models.ContentTypePost,
		ContentID:       post.ID,
		ReporterID:      reporter.ID,
		ContentAuthorID: author.ID,
		Reason:          models.ReasonSpam,
	}
	require.NoError(t, store.Reports.Create(ctx, report))

	dup := *report
	dup.ID = ""
	assert.ErrorIs(t, store.Reports.Create(ctx, &dup), ErrDuplicate)

	review := ReportTransition{
		FromStatuses: []string{models.ReportStatusPending},
		Updates:      map[string]any{"status": models.ReportStatusUnderReview},
	}
	ok, err := store.Reports.Transition(ctx, report.ID, review)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Reports.Transition(ctx, report.ID, review)
	require.NoError(t, err)
	assert.False(t, ok, "second transition from pending must not apply")
}

func TestContentRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, models.NewID(), models.RoleEmployee)
	post := testutil.CreatePost(t, db, author, true)
	comment := testutil.CreateComment(t, db, author, post)

	record, err := store.Content.Get(ctx, models.ContentTypeComment, comment.ID)
	require.NoError(t, err)
	assert.Equal(t, author.ID, record.AuthorID)

	_, err = store.Content.Get(ctx, models.ContentTypePost, models.NewID())
	assert.True(t, models.IsCode(err, models.CodeNotFound))
	_, err = store.Content.Get(ctx, "video", post.ID)
	assert.True(t, models.IsCode(err, models.CodeValidation))

	authorRef, err := store.Content.GetAuthor(ctx, models.ContentTypePost, post.ID)
	require.NoError(t, err)
	assert.True(t, authorRef.IsAnonymous)

	require.NoError(t, store.Content.IncrementReportCount(ctx, models.ContentTypePost, post.ID))
	require.NoError(t, store.Content.IncrementReportCount(ctx, models.ContentTypePost, post.ID))
	record, err = store.Content.Get(ctx, models.ContentTypePost, post.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, record.ReportCount)
	err = store.Content.IncrementReportCount(ctx, models.ContentTypePost, models.NewID())
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	removed, err := store.Content.MarkRemoved(ctx, models.ContentTypePost, post.ID, "spam", author.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = store.Content.MarkRemoved(ctx, models.ContentTypePost, post.ID, "spam", author.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestUserRepository_SuspendNeverShortens(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, models.NewID(), models.RoleEmployee)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	long := now.Add(30 * 24 * time.Hour)
	require.NoError(t, store.Users.Suspend(ctx, user.ID, long))
	require.NoError(t, store.Users.Suspend(ctx, user.ID, now.Add(24*time.Hour)))

	got, err := store.Users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AccountStatusSuspended, got.AccountStatus)
	require.NotNil(t, got.SuspendedUntil)
	assert.True(t, got.SuspendedUntil.Equal(long))

	ok, err := store.Users.ReactivateIfExpired(ctx, user.ID, now)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := store.Users.ReactivateExpired(ctx, long)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	got, err = store.Users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AccountStatusActive, got.AccountStatus)
}

func TestRestrictionRepository_OnePerStrike(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, models.NewID(), models.RoleEmployee)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	strikeID := models.NewID()
	newRestriction := func() *models.UserRestriction {
		return &models.UserRestriction{
			UserID:          user.ID,
			CompanyID:       user.CompanyID,
			RestrictionType: models.RestrictionPosting,
			StrikeID:        &strikeID,
			StartedAt:       now,
			EndsAt:          now.Add(7 * 24 * time.Hour),
			IsActive:        true,
		}
	}
	first := newRestriction()
	require.NoError(t, store.Restrictions.Create(ctx, first))
	assert.ErrorIs(t, store.Restrictions.Create(ctx, newRestriction()), ErrDuplicate)

	found, err := store.Restrictions.FindForStrike(ctx, strikeID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
	none, err := store.Restrictions.FindForStrike(ctx, models.NewID())
	require.NoError(t, err)
	assert.Nil(t, none)

	n, err := store.Restrictions.ExpireForUser(ctx, user.ID, user.CompanyID, now.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = store.Restrictions.ExpireForUser(ctx, user.ID, user.CompanyID, first.EndsAt)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "a window closes at ends_at")

	lifted, err := store.Restrictions.Deactivate(ctx, first.ID, user.ID, now)
	require.NoError(t, err)
	assert.False(t, lifted, "expired restrictions cannot be lifted")
}

func TestStoreTransaction_RollsBack(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, models.NewID(), models.RoleEmployee)
	post := testutil.CreatePost(t, db, author, false)

	boom := errors.New("boom")
	err := store.Transaction(ctx, func(tx *Store) error {
		if _, err := tx.Content.MarkRemoved(ctx, models.ContentTypePost, post.ID, "spam", author.ID); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	record, err := store.Content.Get(ctx, models.ContentTypePost, post.ID)
	require.NoError(t, err)
	assert.False(t, record.IsRemoved)
}

func TestActivityRepository_AppendIsIdempotentByID(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	reportID := models.NewID()
	activity := &models.ModerationActivity{
		ID:           models.NewID(),
		ReportID:     &reportID,
		CompanyID:    models.NewID(),
		ActivityType: models.ActivityReportReviewed,
		ActorUserID:  models.NewID(),
	}
	require.NoError(t, store.Activities.Append(ctx, activity))
	retry := *activity
	assert.ErrorIs(t, store.Activities.Append(ctx, &retry), ErrDuplicate)

	trail, err := store.Activities.ListByReport(ctx, reportID)
	require.NoError(t, err)
	assert.Len(t, trail, 1)
}

func TestStrikeRepository_ListUnenforced(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, models.NewID(), models.RoleEmployee)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	strike := func(level int, offset time.Duration) *models.UserStrike {
		s := &models.UserStrike{
			UserID:        user.ID,
			CompanyID:     user.CompanyID,
			StrikeLevel:   level,
			ContentType:   models.ContentTypePost,
			ContentID:     models.NewID(),
			ReportID:      models.NewID(),
			ViolationType: "Spam",
			Explanation:   "promotional",
			IssuedBy:      models.NewID(),
			IssuedAt:      base.Add(offset),
		}
		require.NoError(t, store.Strikes.Create(ctx, s))
		return s
	}
	strike(1, 0)
	suspension := strike(3, time.Hour)
	enforced := strike(2, 2*time.Hour)

	enforcedID := enforced.ID
	require.NoError(t, store.Restrictions.Create(ctx, &models.UserRestriction{
		UserID:          user.ID,
		CompanyID:       user.CompanyID,
		RestrictionType: models.RestrictionPosting,
		StrikeID:        &enforcedID,
		StartedAt:       enforced.IssuedAt,
		EndsAt:          enforced.IssuedAt.Add(7 * 24 * time.Hour),
		IsActive:        true,
	}))

	pending, err := store.Strikes.ListUnenforced(ctx, user.ID, user.CompanyID, 2)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, suspension.ID, pending[0].ID)
}
