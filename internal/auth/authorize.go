package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"shop-auth/internal/rbac"
)

// Authorizer is the deny side of the filter: routes that need an authority
// reject requests the filter left unauthenticated.
type Authorizer struct {
	voter *rbac.Voter
}

func NewAuthorizer(voter *rbac.Voter) *Authorizer {
	return &Authorizer{voter: voter}
}

func (a *Authorizer) RequireAuthenticated() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if GetPrincipal(c) == nil {
				return respondError(c, http.StatusUnauthorized, msgUserNotAuthenticated)
			}
			return next(c)
		}
	}
}

// RequireAuthority accepts a permission authority (ITEM_READ) or a role
// authority (ROLE_STAFF); roles are satisfied by any higher role.
func (a *Authorizer) RequireAuthority(required string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := GetPrincipal(c)
			if p == nil {
				return respondError(c, http.StatusUnauthorized, msgUserNotAuthenticated)
			}
			if err := a.voter.Authorize(p.Authorities, required); err != nil {
				return respondError(c, http.StatusForbidden, msgInsufficientAuthority)
			}
			return next(c)
		}
	}
}

func respondError(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{jsonKeyError: message})
}
