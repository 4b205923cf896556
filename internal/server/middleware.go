package server

import (
	"crypto/rand"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/oklog/ulid/v2"

	"github.com/CreateIntelligens/SimpleFaceBlur/internal/log"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

func newRequestID(t time.Time) string {
	id, err := ulid.New(ulid.Timestamp(t), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		return "unknown"
	}
	return id.String()
}

// requestIDMiddleware reuses the caller's request id or assigns a ULID
func requestIDMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		id := ctx.Get(RequestIDHeader)
		if id == "" {
			id = newRequestID(time.Now())
		}

		ctx.Locals(log.RequestIDKey, id)
		ctx.Set(RequestIDHeader, id)
		return ctx.Next()
	}
}

func requestID(ctx *fiber.Ctx) string {
	id, ok := ctx.Locals(log.RequestIDKey).(string)
	if !ok || id == "" {
		return "unknown"
	}
	return id
}

// accessLog logs one line per request after the handler chain ran
func accessLog() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		start := time.Now()
		err := ctx.Next()
		if err != nil {
			// Let the error handler set the final status before logging
			if herr := ctx.App().ErrorHandler(ctx, err); herr != nil {
				_ = ctx.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := ctx.Response().StatusCode()
		fields := log.Fields{
			log.RequestIDKey: requestID(ctx),
			"method":         ctx.Method(),
			"path":           ctx.Path(),
			"status":         status,
			"latency_ms":     time.Since(start).Milliseconds(),
			"ip":             ctx.IP(),
			"response_size":  len(ctx.Response().Body()),
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			log.Error(fields, "Server error")
		case status >= fiber.StatusBadRequest:
			log.Warn(fields, "Client error")
		default:
			log.Info(fields, "Success")
		}
		return nil
	}
}
