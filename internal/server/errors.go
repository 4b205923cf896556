package server

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/CreateIntelligens/SimpleFaceBlur/internal/compositor"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/detector"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/log"
)

// Error is an error with the HTTP status it is reported with
type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error with a plain message
func NewError(code int, msg string) error {
	return &Error{Code: code, Err: errors.New(msg)}
}

var (
	ErrMissingImage = NewError(http.StatusBadRequest, "no image uploaded")
	ErrBadField     = NewError(http.StatusBadRequest, "invalid form field")
)

// statusOf maps domain errors to HTTP statuses
func statusOf(err error) int {
	var httpErr *Error
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Code
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.Is(err, detector.ErrImageDecode),
		errors.Is(err, compositor.ErrUnknownMode),
		errors.Is(err, compositor.ErrEmptyImage):
		return http.StatusBadRequest
	case errors.Is(err, compositor.ErrStylizationUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorHandler is the fiber error handler: client errors echo their message,
// server errors are logged with a trace id that is returned instead
func errorHandler(ctx *fiber.Ctx, err error) error {
	code := statusOf(err)
	fields := log.Fields{
		log.RequestIDKey: requestID(ctx),
		"path":           ctx.Path(),
		"status":         code,
		"error":          err.Error(),
	}

	if code >= http.StatusInternalServerError {
		traceID := log.ErrorWithTraceID(fields, "request failed")
		msg := "internal server error"
		if code == http.StatusBadGateway {
			msg = "stylization service unavailable"
		}
		return ctx.Status(code).JSON(fiber.Map{"error": msg, "trace_id": traceID})
	}

	log.Warn(fields, "request rejected")
	return ctx.Status(code).JSON(fiber.Map{"error": err.Error()})
}
