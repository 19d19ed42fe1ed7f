package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/incident-api/internal/dto"
	"github.com/noah-isme/incident-api/internal/middleware"
	"github.com/noah-isme/incident-api/internal/service"
	"github.com/noah-isme/incident-api/internal/utils"
)

// AdminReportHandler exposes the gated triage endpoints.
type AdminReportHandler struct {
	service service.AdminReportService
	logger  zerolog.Logger
}

// NewAdminReportHandler constructs the handler.
func NewAdminReportHandler(service service.AdminReportService, logger zerolog.Logger) *AdminReportHandler {
	return &AdminReportHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_report_handler").Logger(),
	}
}

// Register attaches routes behind guard. Gated and public report routes share the
// /report prefix, so the guard is applied per route rather than per group.
func (h *AdminReportHandler) Register(router fiber.Router, guard fiber.Handler) {
	router.Get("/reports", guard, h.list)
	router.Put("/report/:id/status", guard, h.updateStatus)
	router.Post("/report/:id/message", guard, h.appendMessage)
	router.Delete("/report/:id", guard, h.delete)
	router.Get("/report/:id/attachment", guard, h.attachment)
	router.Get("/report/:id/activity", guard, h.activity)
}

func (h *AdminReportHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	req := dto.ReportListRequest{
		Page:      page,
		Limit:     limit,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if c.Query("incident_type") != "" {
		incidentType, err := parseQueryInt(c, "incident_type")
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid incident_type")
		}
		req.IncidentType = &incidentType
	}

	result, err := h.service.List(c.UserContext(), req)
	if err != nil {
		return handleError(c, h.logger, err, "failed to list reports")
	}

	return utils.SendSuccess(c, "", fiber.Map{
		"reports":    result.Reports,
		"pagination": result.Pagination,
	})
}

func (h *AdminReportHandler) updateStatus(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var req dto.ReportStatusUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.UpdateStatus(c.UserContext(), identity, c.Params("id"), req); err != nil {
		return handleError(c, h.logger, err, "failed to update report status")
	}

	return utils.SendSuccess(c, "Report status updated successfully!", nil)
}

func (h *AdminReportHandler) appendMessage(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var req dto.ReportMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	message, err := h.service.AppendMessage(c.UserContext(), identity, c.Params("id"), req)
	if err != nil {
		return handleError(c, h.logger, err, "failed to append message")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "Message added to report history!", fiber.Map{
		"entry": message,
	})
}

func (h *AdminReportHandler) delete(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	if err := h.service.Delete(c.UserContext(), identity, c.Params("id")); err != nil {
		return handleError(c, h.logger, err, "failed to delete report")
	}

	return utils.SendSuccess(c, "Report deleted successfully!", nil)
}

func (h *AdminReportHandler) attachment(c *fiber.Ctx) error {
	attachment, err := h.service.Attachment(c.UserContext(), c.Params("id"))
	if err != nil {
		return handleError(c, h.logger, err, "failed to fetch attachment")
	}

	c.Set(fiber.HeaderContentType, attachment.ContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+attachment.Name+`"`)
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Status(fiber.StatusOK).Send(attachment.Data)
}

func (h *AdminReportHandler) activity(c *fiber.Ctx) error {
	entries, err := h.service.Activity(c.UserContext(), c.Params("id"))
	if err != nil {
		return handleError(c, h.logger, err, "failed to fetch report activity")
	}

	return utils.SendSuccess(c, "", fiber.Map{"activity": entries})
}
