package auth

import (
	"context"

	"github.com/labstack/echo/v4"

	"shop-auth/internal/permission"
)

// Principal is the authenticated identity installed by the filter.
type Principal struct {
	Subject     string
	Authorities permission.Authorities
}

func (p *Principal) HasAuthority(authority string) bool {
	return p != nil && p.Authorities.Has(authority)
}

type principalKey struct{}

// WithPrincipal stores p in a plain context for code that never sees echo.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

// GetPrincipal returns nil for an unauthenticated request.
func GetPrincipal(c echo.Context) *Principal {
	p, ok := c.Get(ContextKeyPrincipal).(*Principal)
	if !ok {
		return nil
	}
	return p
}

func setPrincipal(c echo.Context, p *Principal) {
	c.Set(ContextKeyPrincipal, p)
	req := c.Request()
	c.SetRequest(req.WithContext(WithPrincipal(req.Context(), p)))
}
