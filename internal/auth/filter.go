package auth

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"shop-auth/internal/permission"
)

// Filter turns a bearer token into a Principal. It never rejects a request:
// anything short of a valid, unexpired access token leaves the request
// unauthenticated and it is up to the route to deny it.
type Filter struct {
	codec *Codec
	model *permission.Model
	log   logrus.FieldLogger
}

func NewFilter(codec *Codec, model *permission.Model, log logrus.FieldLogger) *Filter {
	return &Filter{codec: codec, model: model, log: log}
}

func (f *Filter) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if GetPrincipal(c) != nil {
				return next(c)
			}
			if p := f.Resolve(c); p != nil {
				setPrincipal(c, p)
			}
			return next(c)
		}
	}
}

// Resolve returns the principal carried by the request's bearer token, or nil.
func (f *Filter) Resolve(c echo.Context) *Principal {
	token := extractBearerToken(c)
	if token == "" {
		return nil
	}

	claims, err := f.codec.Decode(token)
	if err != nil {
		f.requestLog(c).Warn("invalid bearer token")
		return nil
	}

	if f.codec.IsExpired(claims) {
		f.requestLog(c).WithField("subject", claims.Subject).Debug("expired bearer token")
		return nil
	}
	if !claims.IsAccess() {
		f.requestLog(c).WithFields(logrus.Fields{"subject": claims.Subject, "type": claims.Type}).Warn("bearer token is not an access token")
		return nil
	}

	authorities, dropped, err := f.model.AuthoritiesFromClaims(claims.Role, claims.Permissions)
	if err != nil {
		f.requestLog(c).WithFields(logrus.Fields{"subject": claims.Subject, "role": claims.Role}).Warn("bearer token carries an unknown role")
		return nil
	}
	if len(dropped) > 0 {
		f.requestLog(c).WithFields(logrus.Fields{"subject": claims.Subject, "dropped": dropped}).Debug("ignored unknown permission authorities")
	}

	return &Principal{Subject: claims.Subject, Authorities: authorities}
}

func (f *Filter) requestLog(c echo.Context) logrus.FieldLogger {
	return f.log.WithFields(logrus.Fields{
		"client_ip":  c.RealIP(),
		"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
	})
}

func extractBearerToken(c echo.Context) string {
	authHeader := c.Request().Header.Get(headerAuthorization)
	if authHeader == "" {
		return ""
	}

	parts := strings.Fields(authHeader)
	if len(parts) != authHeaderParts || strings.ToLower(parts[0]) != bearerScheme {
		return ""
	}

	return parts[1]
}
