package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"candor/internal/audit"
	"candor/internal/identity"
	"candor/internal/models"
	"candor/internal/notifications"
	"candor/internal/repository"
	"candor/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type harness struct {
	db           *gorm.DB
	store        *repository.Store
	clock        *fakeClock
	guard        *identity.Guard
	emitter      *audit.Emitter
	reports      *ReportService
	moderation   *ModerationService
	strikes      *StrikeService
	restrictions *RestrictionService
	history      *HistoryService

	companyID string
	moderator *models.User
	admin     *models.User
	reporter  *models.User
	author    *models.User
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.NewTestDB(t)
	store := repository.NewStore(db)
	clock := &fakeClock{t: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}

	guard, err := identity.NewGuard(identity.Config{Secret: "test-identity-secret-test-identity-secret"})
	require.NoError(t, err)

	policy := DefaultPolicy()
	policy.RetryBackoff = time.Millisecond
	notifier := notifications.NewNotifier(nil)
	emitter := audit.NewEmitter(store.Activities, store.Reports)

	restrictions := NewRestrictionService(store, emitter, notifier, policy)
	restrictions.now = clock.Now
	strikes := NewStrikeService(store, restrictions, emitter, policy)
	strikes.now = clock.Now
	reports := NewReportService(store, guard, emitter, notifier, policy)
	reports.now = clock.Now
	moderation := NewModerationService(store, guard, strikes, emitter, notifier, policy)
	moderation.now = clock.Now

	h := &harness{
		db:           db,
		store:        store,
		clock:        clock,
		guard:        guard,
		emitter:      emitter,
		reports:      reports,
		moderation:   moderation,
		strikes:      strikes,
		restrictions: restrictions,
		history:      NewHistoryService(store, restrictions, policy),
		companyID:    models.NewID(),
	}
	h.moderator = testutil.CreateUser(t, db, h.companyID, models.RoleModerator)
	h.admin = testutil.CreateUser(t, db, h.companyID, models.RoleAdmin)
	h.reporter = testutil.CreateUser(t, db, h.companyID, models.RoleEmployee)
	h.author = testutil.CreateUser(t, db, h.companyID, models.RoleEmployee)
	return h
}

func (h *harness) modActor() models.Actor   { return models.ActorFor(h.moderator) }
func (h *harness) adminActor() models.Actor { return models.ActorFor(h.admin) }

// report files a harassment report by reporter on a new post by author.
func (h *harness) report(t *testing.T, anonymous bool) (*models.ContentReport, *models.Post) {
	t.Helper()
	post := testutil.CreatePost(t, h.db, h.author, anonymous)
	r, err := h.reports.CreateReport(context.Background(), CreateReportInput{
		ContentType: models.ContentTypePost,
		ContentID:   post.ID,
		Reason:      models.ReasonHarassment,
		Description: "Targets a coworker",
		ReporterID:  h.reporter.ID,
		CompanyID:   h.companyID,
	})
	require.NoError(t, err)
	return r, post
}

func (h *harness) warn(t *testing.T, reportID string) *ActionResult {
	t.Helper()
	res, err := h.moderation.ApplyAction(context.Background(), ActionInput{
		ReportID:      reportID,
		Actor:         h.modActor(),
		Action:        models.ActionRemoveAndWarn,
		ViolationType: "Harassment",
		Explanation:   "Personal attack on a colleague",
	})
	require.NoError(t, err)
	return res
}

func (h *harness) trail(t *testing.T, reportID string) []string {
	t.Helper()
	acts, err := h.emitter.ListAuditTrail(context.Background(), h.modActor(), reportID)
	require.NoError(t, err)
	types := make([]string, 0, len(acts))
	for _, a := range acts {
		types = append(types, a.ActivityType)
	}
	return types
}

func (h *harness) reload(t *testing.T, dest any, id string) {
	t.Helper()
	require.NoError(t, h.db.Where("id = ?", id).First(dest).Error)
}
