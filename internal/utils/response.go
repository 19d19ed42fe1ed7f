package utils

import "github.com/gofiber/fiber/v2"

// ErrorResponse describes the structure returned for every failed request.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// SendSuccess sends {"success": true, "message": ..., ...fields} with status 200.
func SendSuccess(c *fiber.Ctx, message string, fields fiber.Map) error {
	return SendSuccessWithStatus(c, fiber.StatusOK, message, fields)
}

// SendSuccessWithStatus sends a success payload using the provided HTTP status code.
// Fields are merged into the top level of the body; an empty message is omitted.
func SendSuccessWithStatus(c *fiber.Ctx, status int, message string, fields fiber.Map) error {
	if status == 0 {
		status = fiber.StatusOK
	}

	body := fiber.Map{}
	for key, value := range fields {
		body[key] = value
	}
	body["success"] = true
	if message != "" {
		body["message"] = message
	}

	return c.Status(status).JSON(body)
}

// SendError sends an error JSON response with the given status code.
func SendError(c *fiber.Ctx, status int, message string) error {
	return Fail(c, status, message, nil)
}

// Fail sends an error response carrying optional machine readable details.
func Fail(c *fiber.Ctx, status int, message string, details interface{}) error {
	if message == "" {
		message = "error"
	}

	return c.Status(status).JSON(ErrorResponse{
		Success: false,
		Error:   message,
		Details: details,
	})
}
