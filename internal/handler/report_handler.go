package handler

import (
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/incident-api/internal/dto"
	"github.com/noah-isme/incident-api/internal/service"
	"github.com/noah-isme/incident-api/internal/utils"
)

// ReportHandler exposes the public submission and tracking endpoints.
type ReportHandler struct {
	service service.ReportService
	logger  zerolog.Logger
}

// NewReportHandler constructs the handler.
func NewReportHandler(service service.ReportService, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		service: service,
		logger:  logger.With().Str("component", "report_handler").Logger(),
	}
}

// Register attaches routes.
func (h *ReportHandler) Register(router fiber.Router) {
	router.Post("/report", h.submit)
	router.Get("/report/:id", h.get)
}

func (h *ReportHandler) submit(c *fiber.Ctx) error {
	var req dto.ReportSubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Fingerprint = c.IP()

	var file *multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil {
		if files := form.File["file"]; len(files) > 0 {
			file = files[0]
		}
	}

	result, err := h.service.Submit(c.UserContext(), req, file)
	if err != nil {
		return handleError(c, h.logger, err, "failed to submit report")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "Incident reported successfully!", fiber.Map{
		"reportId": result.ReportID,
	})
}

func (h *ReportHandler) get(c *fiber.Ctx) error {
	report, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return handleError(c, h.logger, err, "failed to fetch report")
	}

	return utils.SendSuccess(c, "", fiber.Map{"report": report})
}
