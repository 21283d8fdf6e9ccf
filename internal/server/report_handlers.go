package server

import (
	"candor/internal/models"
	"candor/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateReport handles POST /api/reports
// @Summary File a content report
// @Description Report a post or comment in the caller's company. One report per reporter and content.
// @Tags reports
// @Accept json
// @Produce json
// @Param request body object{content_type=string,content_id=string,reason=string,description=string} true "Report"
// @Success 201 {object} models.ContentReport
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /reports [post]
func (s *Server) CreateReport(c *fiber.Ctx) error {
	actor := actorFrom(c)

	var req service.CreateReportInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	req.ReporterID = actor.UserID
	req.CompanyID = actor.CompanyID

	report, err := s.reportService.CreateReport(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

// ListReports handles GET /api/moderation/reports
// @Summary List the report queue
// @Description The caller's company queue, newest first. Reporter identities are never included.
// @Tags moderation
// @Produce json
// @Param status query string false "Filter by status"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} service.ReportView
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /moderation/reports [get]
func (s *Server) ListReports(c *fiber.Ctx) error {
	filter := service.ListReportsFilter{
		Status: c.Query("status"),
		Limit:  c.QueryInt("limit", 0),
		Offset: c.QueryInt("offset", 0),
	}
	reports, err := s.reportService.ListReports(c.UserContext(), actorFrom(c), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(reports)
}

// GetReport handles GET /api/moderation/reports/{id}
// @Summary Get a report
// @Description One report with the content author's strike count and latest restriction.
// @Tags moderation
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} service.ReportDetail
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /moderation/reports/{id} [get]
func (s *Server) GetReport(c *fiber.Ctx) error {
	detail, err := s.reportService.GetReport(c.UserContext(), actorFrom(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(detail)
}

// GetAuditTrail handles GET /api/moderation/reports/{id}/audit
// @Summary Get a report's audit trail
// @Description Chronological chain of custody for one report.
// @Tags moderation
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {array} models.ModerationActivity
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /moderation/reports/{id}/audit [get]
func (s *Server) GetAuditTrail(c *fiber.Ctx) error {
	trail, err := s.emitter.ListAuditTrail(c.UserContext(), actorFrom(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if trail == nil {
		trail = []models.ModerationActivity{}
	}
	return c.JSON(trail)
}
