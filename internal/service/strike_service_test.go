package service

import (
	"context"
	"sync"
	"testing"

	"candor/internal/models"
	"candor/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strikeInput(h *harness, userID string) StrikeInput {
	return StrikeInput{
		UserID:        userID,
		CompanyID:     h.companyID,
		ContentType:   models.ContentTypePost,
		ContentID:     models.NewID(),
		ReportID:      models.NewID(),
		ViolationType: "Spam",
		Explanation:   "Repeated promotional posts",
		IssuedBy:      h.moderator.ID,
	}
}

func TestNextLevel(t *testing.T) {
	t.Parallel()
	for count, want := range map[int64]int{0: 1, 1: 2, 2: 3, 3: 3, 10: 3} {
		assert.Equal(t, want, NextLevel(count), "count %d", count)
	}
}

func TestIssueStrike_MonotonicEscalation(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	var levels []int
	for i := 0; i < 5; i++ {
		out, err := h.strikes.IssueStrike(ctx, strikeInput(h, h.author.ID))
		require.NoError(t, err)
		levels = append(levels, out.Strike.StrikeLevel)
	}
	assert.Equal(t, []int{1, 2, 3, 3, 3}, levels)

	other := testutil.CreateUser(t, h.db, models.NewID(), models.RoleEmployee)
	in := strikeInput(h, other.ID)
	in.CompanyID = other.CompanyID
	out, err := h.strikes.IssueStrike(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Strike.StrikeLevel, "strikes are counted per company")
}

func TestIssueStrike_ConcurrentStrikesGetDistinctLevels(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	var wg sync.WaitGroup
	levels := make(chan int, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := h.strikes.IssueStrike(context.Background(), strikeInput(h, h.author.ID))
			if assert.NoError(t, err) {
				levels <- out.Strike.StrikeLevel
			}
		}()
	}
	wg.Wait()
	close(levels)

	seen := map[int]bool{}
	for l := range levels {
		seen[l] = true
	}
	assert.Equal(t, map[int]bool{1: true, 2: true, 3: true}, seen)
}

func TestIssueStrikeDirect(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	out, err := h.strikes.IssueStrikeDirect(ctx, 3, strikeInput(h, h.author.ID))
	require.NoError(t, err)
	assert.Equal(t, 3, out.Strike.StrikeLevel)
	require.NotNil(t, out.Restriction)
	assert.Equal(t, models.RestrictionFullSuspension, out.Restriction.RestrictionType)

	_, err = h.strikes.IssueStrikeDirect(ctx, 4, strikeInput(h, h.author.ID))
	assert.True(t, models.IsCode(err, models.CodeValidation))

	_, err = h.strikes.IssueStrikeDirect(ctx, 0, strikeInput(h, h.author.ID))
	assert.True(t, models.IsCode(err, models.CodeValidation))
}

func TestIssueStrike_Rejections(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	in := strikeInput(h, h.author.ID)
	in.Explanation = ""
	_, err := h.strikes.IssueStrike(ctx, in)
	assert.True(t, models.IsCode(err, models.CodeValidation))

	_, err = h.strikes.IssueStrike(ctx, strikeInput(h, models.NewID()))
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	in = strikeInput(h, h.author.ID)
	in.CompanyID = models.NewID()
	_, err = h.strikes.IssueStrike(ctx, in)
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))
}

func TestStrikesAreImmutable(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	out, err := h.strikes.IssueStrike(context.Background(), strikeInput(h, h.author.ID))
	require.NoError(t, err)

	err = h.db.Model(out.Strike).Update("strike_level", 1).Error
	assert.ErrorIs(t, err, models.ErrImmutableRecord)
	err = h.db.Delete(out.Strike).Error
	assert.ErrorIs(t, err, models.ErrImmutableRecord)
}
