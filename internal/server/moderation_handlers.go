package server

import (
	"candor/internal/models"
	"candor/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ApplyAction handles POST /api/moderation/reports/{id}/actions
// @Summary Apply a moderation action
// @Description Dismiss, remove, warn, suspend or escalate an open report.
// @Tags moderation
// @Accept json
// @Produce json
// @Param id path string true "Report ID"
// @Param request body object{action=string,violation_type=string,explanation=string,moderator_notes=string} true "Action"
// @Success 200 {object} service.ActionResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /moderation/reports/{id}/actions [post]
func (s *Server) ApplyAction(c *fiber.Ctx) error {
	var req service.ActionInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	req.ReportID = c.Params("id")
	req.Actor = actorFrom(c)

	result, err := s.moderationService.ApplyAction(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// GetModerationHistory handles GET /api/moderation/users/{id}/history
// @Summary Get a user's moderation history
// @Tags moderation
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} service.ModerationHistory
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /moderation/users/{id}/history [get]
func (s *Server) GetModerationHistory(c *fiber.Ctx) error {
	history, err := s.historyService.GetModerationHistory(c.UserContext(), actorFrom(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(history)
}

// GetUserRestrictions handles GET /api/moderation/users/{id}/restrictions
// @Summary Get a user's active restrictions
// @Tags moderation
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} service.RestrictionStatus
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /moderation/users/{id}/restrictions [get]
func (s *Server) GetUserRestrictions(c *fiber.Ctx) error {
	status, err := s.restrictionService.StatusFor(c.UserContext(), actorFrom(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(status)
}

// GetMyRestrictions lets a client check the caller's restrictions before posting.
// @Summary Get the caller's active restrictions
// @Tags restrictions
// @Produce json
// @Success 200 {object} service.RestrictionStatus
// @Security BearerAuth
// @Router /me/restrictions [get]
func (s *Server) GetMyRestrictions(c *fiber.Ctx) error {
	actor := actorFrom(c)
	status, err := s.restrictionService.StatusFor(c.UserContext(), actor, actor.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(status)
}

// LiftRestriction handles POST /api/moderation/restrictions/{id}/lift
// @Summary Lift a restriction early
// @Description Admins only. Lifting a full suspension reactivates the account.
// @Tags moderation
// @Produce json
// @Param id path string true "Restriction ID"
// @Success 200 {object} models.UserRestriction
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /moderation/restrictions/{id}/lift [post]
func (s *Server) LiftRestriction(c *fiber.Ctx) error {
	restriction, err := s.restrictionService.Lift(c.UserContext(), actorFrom(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(restriction)
}
