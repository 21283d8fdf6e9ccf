package server

import (
	"errors"
	"log/slog"

	"candor/internal/featureflags"
	"candor/internal/middleware"
	"candor/internal/models"

	"github.com/gofiber/fiber/v2"
)

const actorLocal = "actor"

// actorFrom returns the caller loaded by loadActor.
func actorFrom(c *fiber.Ctx) models.Actor {
	actor, _ := c.Locals(actorLocal).(models.Actor)
	return actor
}

// respondError writes err with the status its code maps to. Errors that are
// not AppErrors are logged and reported as internal.
func respondError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()), slog.String("error", err.Error()))
		err = models.NewInternalError(err)
	} else if appErr.Code == models.CodeDependencyUnavailable {
		middleware.Logger.WarnContext(c.UserContext(), "dependency unavailable",
			slog.String("path", c.Path()), slog.String("error", err.Error()))
	}
	return models.RespondWithAppError(c, err)
}

// loadActor resolves the authenticated user id into an Actor with company and role.
func (s *Server) loadActor(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	user, err := s.store.Users.GetByID(c.UserContext(), userID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Unknown user"))
		}
		return respondError(c, err)
	}

	actor := models.ActorFor(user)
	c.Locals(actorLocal, actor)
	c.SetUserContext(middleware.WithActor(c.UserContext(), actor.UserID, actor.CompanyID))
	return c.Next()
}

// ModeratorRequired rejects callers without a moderation role.
// Must be placed after loadActor.
func (s *Server) ModeratorRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !models.IsModeratorRole(actorFrom(c).Role) {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewUnauthorizedError("Moderator access required"))
		}
		return c.Next()
	}
}

// AdminRequired rejects callers who are not admins.
// Must be placed after loadActor.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !models.IsAdminRole(actorFrom(c).Role) {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewUnauthorizedError("Admin access required"))
		}
		return c.Next()
	}
}

// reportRateLimit throttles report submissions per reporter while the
// report_rate_limit flag covers the caller.
func (s *Server) reportRateLimit() fiber.Handler {
	limit := middleware.RateLimit(s.redis, s.config.ReportRateLimit, s.config.ReportRateWindow(), "create_report")
	return func(c *fiber.Ctx) error {
		if !s.featureFlags.Enabled(featureflags.ReportRateLimit, actorFrom(c).UserID) {
			return c.Next()
		}
		return limit(c)
	}
}
