package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"certdocs/internal/http/middleware"
	"certdocs/internal/model"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Rule    string `json:"rule,omitempty"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_CATEGORY", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	})
}

var kindResponses = []struct {
	kind   error
	status int
	code   string
}{
	{model.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{model.ErrAccessDenied, fiber.StatusForbidden, "ACCESS_DENIED"},
	{model.ErrInvalidState, fiber.StatusConflict, "INVALID_STATE"},
	{model.ErrPolicyViolation, fiber.StatusUnprocessableEntity, "POLICY_VIOLATION"},
	{model.ErrDuplicateDocument, fiber.StatusConflict, "DUPLICATE_DOCUMENT"},
	{model.ErrStorageUnavailable, fiber.StatusServiceUnavailable, "STORAGE_UNAVAILABLE"},
	{model.ErrPersistenceUnavailable, fiber.StatusServiceUnavailable, "PERSISTENCE_UNAVAILABLE"},
	{model.ErrConfiguration, fiber.StatusInternalServerError, "CONFIGURATION_ERROR"},
}

// statusFor maps an engine error kind to its HTTP status and code.
func statusFor(err error) (int, string) {
	for _, r := range kindResponses {
		if errors.Is(err, r.kind) {
			return r.status, r.code
		}
	}
	return fiber.StatusInternalServerError, "INTERNAL_ERROR"
}

// writeServiceError renders an engine error. Only the classified reason reaches the
// client; causes from storage or the database stay in the logs.
func writeServiceError(c *fiber.Ctx, err error) error {
	status, code := statusFor(err)
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: model.Reason(err, "internal server error"),
		},
	}
	var e *model.Error
	if errors.As(err, &e) {
		res.Error.Rule = e.Rule
	}
	return c.Status(status).JSON(res)
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if !errors.As(err, &fe) {
			return writeServiceError(c, err)
		}

		switch fe.Code {
		case fiber.StatusBadRequest:
			return writeError(c, fe.Code, "BAD_REQUEST", "bad request")
		case fiber.StatusUnauthorized:
			return writeError(c, fe.Code, "UNAUTHENTICATED", fe.Message)
		case fiber.StatusNotFound:
			return writeError(c, fe.Code, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, fe.Code, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, fe.Code, "REQUEST_TOO_LARGE", "request body too large")
		default:
			return writeError(c, fe.Code, "INTERNAL_ERROR", "internal server error")
		}
	}
}
