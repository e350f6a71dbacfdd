package auth

import "github.com/golang-jwt/jwt/v5"

// Claims is the token payload: sub, iat, exp, jti plus role, perm and type.
type Claims struct {
	Role        string    `json:"role,omitempty"`
	Permissions []string  `json:"perm,omitempty"`
	Type        TokenType `json:"type"`
	jwt.RegisteredClaims
}

func (c *Claims) IsAccess() bool {
	return c.Type == TokenTypeAccess
}

func (c *Claims) IsRefresh() bool {
	return c.Type == TokenTypeRefresh
}
