package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"shop-auth/internal/http/middleware"
	apperrors "shop-auth/pkg/errors"
)

const msgInternalServerError = "internal server error"

// statusFor maps sentinel errors to HTTP status codes. Order matters: the
// first match wins.
var statusFor = []struct {
	sentinel error
	status   int
}{
	{apperrors.ErrNotFound, http.StatusNotFound},
	{apperrors.ErrUnauthorized, http.StatusUnauthorized},
	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized},
	{apperrors.ErrInvalidToken, http.StatusUnauthorized},
	{apperrors.ErrExpired, http.StatusUnauthorized},
	{apperrors.ErrWrongTokenType, http.StatusBadRequest},
	{apperrors.ErrForbidden, http.StatusForbidden},
	{apperrors.ErrBadRequest, http.StatusBadRequest},
	{apperrors.ErrValidation, http.StatusBadRequest},
	{apperrors.ErrWeakKey, http.StatusBadRequest},
	{apperrors.ErrConflict, http.StatusConflict},
	{apperrors.ErrInternalServer, http.StatusInternalServerError},
}

// NewHTTPErrorHandler handles all errors returned by handlers and middleware.
// Client errors carry the AppError message; internal errors are logged and
// answered with a generic message.
func NewHTTPErrorHandler(log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, message := resolve(err)

		requestID := middleware.GetRequestID(c)
		if requestID == "" {
			requestID = "unknown"
		}

		entry := log.WithFields(logrus.Fields{
			"request_id": requestID,
			"status":     code,
		}).WithError(err)
		if code >= http.StatusInternalServerError {
			entry.Error("internal_server_error")
			message = msgInternalServerError
		} else {
			entry.Debug("client_error")
		}

		if err := c.JSON(code, map[string]interface{}{
			"error":      message,
			"request_id": requestID,
		}); err != nil {
			log.WithError(err).Error("failed to write error response")
		}
	}
}

func resolve(err error) (int, string) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code, fmt.Sprintf("%v", httpErr.Message)
	}

	code := http.StatusInternalServerError
	for _, m := range statusFor {
		if errors.Is(err, m.sentinel) {
			code = m.status
			break
		}
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return code, appErr.Message
	}
	return code, http.StatusText(code)
}
