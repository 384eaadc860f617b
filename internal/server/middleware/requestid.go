// Package middleware holds fiber middleware shared by the gate server.
package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/catermarket/caterauth/internal/logging"
)

const RequestIDHeader = "X-Request-ID"

// RequestID ensures each request has a request identifier for tracing and
// logging, and propagates it to the upstream.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqID := c.Get(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
			c.Request().Header.Set(RequestIDHeader, reqID)
		}
		c.Set(RequestIDHeader, reqID)
		c.Locals(RequestIDHeader, reqID)
		return c.Next()
	}
}

// AccessLog logs one line per request after it has been served.
func AccessLog(logger logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		reqID, _ := c.Locals(RequestIDHeader).(string)
		logger.Info(c.UserContext(), "request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"request_id", reqID,
		)
		return err
	}
}
