package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/seatpass/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // bad_request, not_found, conflict, internal_error, ...
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
	// Seats lists the seat numbers behind a seat conflict.
	Seats []int `json:"seats,omitempty"`
}

func newError(c *fiber.Ctx, status int, code string, message string) error {
	return writeError(c, APIError{Status: status, Code: code, Message: message})
}

func writeError(c *fiber.Ctx, e APIError) error {
	e.RequestID, _ = c.Locals("requestid").(string)
	return c.Status(e.Status).JSON(e)
}

func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

func errUnauthorized(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusUnauthorized, "unauthorized", msg)
}

func errForbidden(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusForbidden, "forbidden", msg)
}

// errFromDomain maps a use-case error onto its HTTP status. Unclassified
// errors are logged and answered with a generic 500.
func errFromDomain(c *fiber.Ctx, err error) error {
	switch {
	case domain.IsValidation(err):
		return errBadRequest(c, err.Error())
	case domain.IsNotFound(err):
		return errNotFound(c, err.Error())
	case domain.IsConflict(err):
		return writeError(c, APIError{
			Status:  fiber.StatusConflict,
			Code:    "conflict",
			Message: err.Error(),
			Seats:   domain.ConflictSeats(err),
		})
	case domain.IsUnauthorized(err):
		return errUnauthorized(c, err.Error())
	}
	LoggerFromCtx(c.UserContext()).Error("request failed",
		"method", c.Method(), "path", c.Path(), "error", err)
	return errInternal(c, "internal server error")
}
