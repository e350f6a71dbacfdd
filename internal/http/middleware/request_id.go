package middleware

import (
	"regexp"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"shop-auth/internal/auth"
)

// maxRequestIDLength caps what a client may pass through into logs.
const maxRequestIDLength = 128

// Client ids end up in log lines and audit rows, so only plain tokens pass.
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]+$`)

// RequestID keeps a well-formed incoming X-Request-ID and mints one otherwise.
// The id is echoed in the response and stored for the logger, the audit log
// and error bodies.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(echo.HeaderXRequestID)
			if !validRequestID(requestID) {
				requestID = uuid.NewString()
			}

			c.Set(auth.ContextKeyRequestID, requestID)
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			return next(c)
		}
	}
}

func validRequestID(id string) bool {
	return len(id) <= maxRequestIDLength && requestIDPattern.MatchString(id)
}

// GetRequestID returns "" outside a RequestID chain.
func GetRequestID(c echo.Context) string {
	if requestID, ok := c.Get(auth.ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}
