package middleware

import (
	"github.com/labstack/echo/v4"
)

// apiSecurityHeaders suit a JSON API that hands out credentials: nothing is
// ever rendered, framed or cached.
var apiSecurityHeaders = map[string]string{
	"Content-Security-Policy":   "default-src 'none'; frame-ancestors 'none'",
	"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	"X-Content-Type-Options":    "nosniff",
	"X-Frame-Options":           "DENY",
	"Referrer-Policy":           "no-referrer",
	"Cache-Control":             "no-store",
	"Pragma":                    "no-cache",
}

// SecurityHeaders adds security headers to all responses
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			for name, value := range apiSecurityHeaders {
				h.Set(name, value)
			}
			h.Del("Server")
			h.Del("X-Powered-By")

			return next(c)
		}
	}
}
