package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/nrplanner/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, data_unavailable, bad_map_data, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

// errUnavailable returns a 503 error.
func errUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusServiceUnavailable, "data_unavailable", msg)
}

// errBadGateway returns a 502 error for upstream data that could not be read.
func errBadGateway(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadGateway, "bad_map_data", msg)
}

// statusClientClosedRequest reports a request the client abandoned
// before the evaluation finished.
const statusClientClosedRequest = 499

// errCanceled returns a 499 error. The client is usually gone, so the
// body only reaches logs and proxies.
func errCanceled(c *fiber.Ctx) error {
	return newError(c, statusClientClosedRequest, "canceled", "request canceled by client")
}

// errTimeout returns a 504 error.
func errTimeout(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusGatewayTimeout, "timeout", msg)
}

// evaluationError maps pipeline failures onto HTTP responses.
func evaluationError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidPoint):
		return errBadRequest(c, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return errTimeout(c, "map data request timed out")
	case errors.Is(err, context.Canceled):
		return errCanceled(c)
	case errors.Is(err, domain.ErrDataUnavailable):
		return errUnavailable(c, err.Error())
	case errors.Is(err, domain.ErrParse):
		return errBadGateway(c, err.Error())
	default:
		return errInternal(c, err.Error())
	}
}
