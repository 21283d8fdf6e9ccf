package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"candor/internal/config"
	"candor/internal/identity"
	"candor/internal/middleware"
	"candor/internal/models"
	"candor/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testJWTSecret = "test-jwt-secret-test-jwt-secret-0123"

func testConfig() *config.Config {
	return &config.Config{
		Port:                    "0",
		Env:                     "test",
		JWTSecret:               testJWTSecret,
		IdentitySecret:          "test-identity-secret-test-identity-secret",
		StoreTimeoutMS:          3000,
		StoreRetryBackoffMS:     1,
		ReportRetentionYears:    7,
		ReportPageLimit:         100,
		ReportRateLimit:         20,
		ReportRateWindowMinutes: 60,
		PostingRestrictionDays:  7,
		SuspensionDays:          30,
		SweeperIntervalMinutes:  15,
	}
}

type apiHarness struct {
	db        *gorm.DB
	server    *Server
	app       *fiber.App
	companyID string
	moderator *models.User
	admin     *models.User
	reporter  *models.User
	author    *models.User
}

func newAPIHarness(t *testing.T, cfg *config.Config, rdb *redis.Client) *apiHarness {
	t.Helper()
	db := testutil.NewTestDB(t)
	s, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)

	h := &apiHarness{db: db, server: s, app: s.App(), companyID: models.NewID()}
	h.moderator = testutil.CreateUser(t, db, h.companyID, models.RoleModerator)
	h.admin = testutil.CreateUser(t, db, h.companyID, models.RoleAdmin)
	h.reporter = testutil.CreateUser(t, db, h.companyID, models.RoleEmployee)
	h.author = testutil.CreateUser(t, db, h.companyID, models.RoleEmployee)
	return h
}

func (h *apiHarness) do(t *testing.T, method, path string, as *models.User, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		token, err := middleware.IssueToken(testJWTSecret, as.ID, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func (h *apiHarness) fileReport(t *testing.T, contentID string) string {
	t.Helper()
	resp := h.do(t, http.MethodPost, "/api/reports", h.reporter, map[string]string{
		"content_type": models.ContentTypePost,
		"content_id":   contentID,
		"reason":       models.ReasonHarassment,
		"description":  "Name-calling in the thread",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var report map[string]any
	decode(t, resp, &report)
	return report["id"].(string)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	h := newAPIHarness(t, testConfig(), nil)

	resp := h.do(t, http.MethodGet, "/health/live", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/health/ready", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	decode(t, resp, &body)
	assert.Equal(t, "healthy", body["status"])
}

func TestAuthentication(t *testing.T) {
	t.Parallel()
	h := newAPIHarness(t, testConfig(), nil)

	resp := h.do(t, http.MethodGet, "/api/me/restrictions", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	ghost := &models.User{ID: models.NewID()}
	resp = h.do(t, http.MethodGet, "/api/me/restrictions", ghost, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/api/moderation/reports", h.reporter, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestReportLifecycleOverHTTP(t *testing.T) {
	t.Parallel()
	h := newAPIHarness(t, testConfig(), nil)
	post := testutil.CreatePost(t, h.db, h.author, false)

	reportID := h.fileReport(t, post.ID)

	resp := h.do(t, http.MethodPost, "/api/reports", h.reporter, map[string]string{
		"content_type": models.ContentTypePost,
		"content_id":   post.ID,
		"reason":       models.ReasonSpam,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	var errBody models.ErrorResponse
	decode(t, resp, &errBody)
	assert.Equal(t, models.CodeDuplicateReport, errBody.Code)

	resp = h.do(t, http.MethodGet, "/api/moderation/reports?status=pending", h.moderator, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var queue []map[string]any
	decode(t, resp, &queue)
	require.Len(t, queue, 1)
	assert.Equal(t, identity.AnonymousReporter, queue[0]["reporter"])
	assert.NotContains(t, queue[0], "reporter_id")

	resp = h.do(t, http.MethodPost, "/api/moderation/reports/"+reportID+"/actions", h.moderator, map[string]string{
		"action":         models.ActionRemoveAndWarn,
		"violation_type": "Harassment",
		"explanation":    "Insults directed at a coworker",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result map[string]any
	decode(t, resp, &result)
	assert.Equal(t, true, result["content_removed"])
	assert.EqualValues(t, 1, result["strike_level"])

	resp = h.do(t, http.MethodPost, "/api/moderation/reports/"+reportID+"/actions", h.moderator, map[string]string{
		"action": models.ActionDismiss,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/api/moderation/reports/"+reportID+"/audit", h.moderator, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var trail []models.ModerationActivity
	decode(t, resp, &trail)
	types := make([]string, 0, len(trail))
	for _, a := range trail {
		types = append(types, a.ActivityType)
	}
	assert.Equal(t, []string{
		models.ActivityReportReviewed,
		models.ActivityContentRemoved,
		models.ActivityStrikeIssued,
	}, types)

	resp = h.do(t, http.MethodGet, "/api/moderation/reports/"+reportID, h.moderator, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail map[string]any
	decode(t, resp, &detail)
	assert.Equal(t, models.ReportStatusResolved, detail["status"])

	resp = h.do(t, http.MethodGet, "/api/moderation/users/"+h.author.ID+"/history", h.moderator, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history map[string]any
	decode(t, resp, &history)
	assert.EqualValues(t, 1, history["strike_count"])

	resp = h.do(t, http.MethodGet, "/api/me/restrictions", h.author, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status map[string]any
	decode(t, resp, &status)
	assert.Equal(t, false, status["is_restricted"])
}

func TestLiftRestrictionRequiresAdmin(t *testing.T) {
	t.Parallel()
	h := newAPIHarness(t, testConfig(), nil)

	var restrictionID string
	for i := 0; i < 2; i++ {
		post := testutil.CreatePost(t, h.db, h.author, false)
		reportID := h.fileReport(t, post.ID)
		resp := h.do(t, http.MethodPost, "/api/moderation/reports/"+reportID+"/actions", h.moderator, map[string]string{
			"action":         models.ActionRemoveAndWarn,
			"violation_type": "Spam",
			"explanation":    "Repeated link drops",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp := h.do(t, http.MethodGet, "/api/moderation/users/"+h.author.ID+"/restrictions", h.moderator, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status struct {
		IsRestricted bool                     `json:"is_restricted"`
		Restrictions []models.UserRestriction `json:"restrictions"`
	}
	decode(t, resp, &status)
	require.True(t, status.IsRestricted)
	require.Len(t, status.Restrictions, 1)
	restrictionID = status.Restrictions[0].ID

	resp = h.do(t, http.MethodPost, "/api/moderation/restrictions/"+restrictionID+"/lift", h.moderator, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = h.do(t, http.MethodPost, "/api/moderation/restrictions/"+restrictionID+"/lift", h.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/api/me/restrictions", h.author, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var mine map[string]any
	decode(t, resp, &mine)
	assert.Equal(t, false, mine["is_restricted"])
}

func TestModerationFeedRequiresUpgrade(t *testing.T) {
	t.Parallel()
	h := newAPIHarness(t, testConfig(), nil)

	token, err := middleware.IssueToken(testJWTSecret, h.moderator.ID, time.Hour)
	require.NoError(t, err)
	resp, err := h.app.Test(httptest.NewRequest(http.MethodGet, "/api/ws/moderation?token="+token, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)

	token, err = middleware.IssueToken(testJWTSecret, h.reporter.ID, time.Hour)
	require.NoError(t, err)
	resp, err = h.app.Test(httptest.NewRequest(http.MethodGet, "/api/ws/moderation?token="+token, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestReportRateLimit(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := testConfig()
	cfg.ReportRateLimit = 1
	cfg.FeatureFlags = "report_rate_limit=on"
	h := newAPIHarness(t, cfg, rdb)

	first := testutil.CreatePost(t, h.db, h.author, false)
	second := testutil.CreatePost(t, h.db, h.author, false)
	h.fileReport(t, first.ID)

	resp := h.do(t, http.MethodPost, "/api/reports", h.reporter, map[string]string{
		"content_type": models.ContentTypePost,
		"content_id":   second.ID,
		"reason":       models.ReasonSpam,
	})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	resp = h.do(t, http.MethodPost, "/api/reports", h.moderator, map[string]string{
		"content_type": models.ContentTypePost,
		"content_id":   second.ID,
		"reason":       models.ReasonSpam,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode, "limits are per reporter")
}

func TestCrossCompanyReadsAreForbidden(t *testing.T) {
	t.Parallel()
	h := newAPIHarness(t, testConfig(), nil)
	post := testutil.CreatePost(t, h.db, h.author, false)
	reportID := h.fileReport(t, post.ID)
	outsider := testutil.CreateUser(t, h.db, models.NewID(), models.RoleAdmin)

	for _, path := range []string{
		"/api/moderation/reports/" + reportID,
		"/api/moderation/reports/" + reportID + "/audit",
		"/api/moderation/users/" + h.author.ID + "/history",
		"/api/moderation/users/" + h.author.ID + "/restrictions",
	} {
		resp := h.do(t, http.MethodGet, path, outsider, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, path)
	}

	resp := h.do(t, http.MethodGet, "/api/moderation/reports/"+models.NewID(), h.moderator, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "unknown ids stay not found")
}

func TestSwaggerDocs(t *testing.T) {
	t.Parallel()
	h := newAPIHarness(t, testConfig(), nil)

	resp := h.do(t, http.MethodGet, "/api/swagger/doc.json", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var doc struct {
		BasePath string                    `json:"basePath"`
		Paths    map[string]map[string]any `json:"paths"`
	}
	decode(t, resp, &doc)
	assert.Equal(t, "/api", doc.BasePath)
	assert.Contains(t, doc.Paths, "/reports")
	assert.Contains(t, doc.Paths["/moderation/reports/{id}/actions"], "post")
	assert.Contains(t, doc.Paths["/moderation/restrictions/{id}/lift"], "post")
}
