package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStrikeLevel(t *testing.T) {
	cases := map[int64]int{0: 1, 1: 2, 2: 3, 3: 3, 10: 3, -1: 1}
	for prior, want := range cases {
		assert.Equal(t, want, NextStrikeLevel(prior), "prior=%d", prior)
	}
}

func TestPriorityFor(t *testing.T) {
	assert.Equal(t, PriorityHigh, PriorityFor(ReasonViolence, 0))
	assert.Equal(t, PriorityHigh, PriorityFor(ReasonHarassment, 0))
	assert.Equal(t, PriorityMedium, PriorityFor(ReasonFalseInfo, 0))
	assert.Equal(t, PriorityLow, PriorityFor(ReasonSpam, 1))
	assert.Equal(t, PriorityHigh, PriorityFor(ReasonSpam, 2))
}

func TestRestrictionBlocks(t *testing.T) {
	posting := UserRestriction{RestrictionType: RestrictionPosting}
	assert.True(t, posting.Blocks(ContentTypePost))
	assert.False(t, posting.Blocks(ContentTypeComment))

	commenting := UserRestriction{RestrictionType: RestrictionCommenting}
	assert.False(t, commenting.Blocks(ContentTypePost))
	assert.True(t, commenting.Blocks(ContentTypeComment))

	full := UserRestriction{RestrictionType: RestrictionFullSuspension}
	assert.True(t, full.Blocks(ContentTypePost))
	assert.True(t, full.Blocks(ContentTypeComment))
}

func TestRestrictionExpiredAt(t *testing.T) {
	now := time.Now().UTC()
	r := UserRestriction{EndsAt: now}
	assert.True(t, r.ExpiredAt(now))
	assert.False(t, r.ExpiredAt(now.Add(-time.Second)))
}

func TestJSONMapRoundTrip(t *testing.T) {
	in := JSONMap{"strike_level": float64(2), "violation_type": "Harassment"}
	v, err := in.Value()
	require.NoError(t, err)

	var out JSONMap
	require.NoError(t, out.Scan(v))
	assert.Equal(t, in, out)

	require.NoError(t, out.Scan(nil))
	assert.Empty(t, out)
	assert.Error(t, out.Scan(42))
}

func TestAppErrorHelpers(t *testing.T) {
	err := NewDependencyUnavailableError("report store", errors.New("conn reset"))
	assert.True(t, IsCode(err, CodeDependencyUnavailable))
	assert.Equal(t, 503, HTTPStatus(err))
	assert.Equal(t, 409, HTTPStatus(NewInvalidTransitionError("closed")))
	assert.Equal(t, 409, HTTPStatus(NewDuplicateReportError("p1")))
	assert.Equal(t, 403, HTTPStatus(NewUnauthorizedError("nope")))
	assert.Equal(t, 500, HTTPStatus(errors.New("plain")))
}

func TestReportActionHelpers(t *testing.T) {
	assert.True(t, ActionRequiresViolation(ActionRemoveAndWarn))
	assert.False(t, ActionRequiresViolation(ActionEscalate))
	assert.True(t, ActionRemovesContent(ActionRemoveAndSuspend))
	assert.False(t, ActionRemovesContent(ActionDismiss))
	assert.False(t, IsValidAction("ban_forever"))

	r := ContentReport{Status: ReportStatusResolved}
	assert.False(t, r.IsOpen())
}
