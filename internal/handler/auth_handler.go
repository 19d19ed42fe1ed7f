package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/incident-api/internal/dto"
	"github.com/noah-isme/incident-api/internal/service"
	"github.com/noah-isme/incident-api/internal/utils"
)

// AuthHandler exposes the admin sign-in endpoint.
type AuthHandler struct {
	service service.AuthService
	logger  zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(service service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register attaches routes.
func (h *AuthHandler) Register(router fiber.Router) {
	router.Post("/signin", h.signIn)
}

func (h *AuthHandler) signIn(c *fiber.Ctx) error {
	var req dto.SignInRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.SignIn(c.UserContext(), req)
	if err != nil {
		return handleError(c, h.logger, err, "failed to sign in")
	}

	return utils.SendSuccess(c, "", fiber.Map{
		"token":     result.Token,
		"expiresAt": result.ExpiresAt,
	})
}
