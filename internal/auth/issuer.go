package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"shop-auth/internal/permission"
	apperrors "shop-auth/pkg/errors"
)

// Issuer builds access and refresh claim sets and hands them to the codec.
type Issuer struct {
	codec     *Codec
	hierarchy *permission.Hierarchy
}

func NewIssuer(codec *Codec, hierarchy *permission.Hierarchy) *Issuer {
	return &Issuer{codec: codec, hierarchy: hierarchy}
}

// IssueAccess embeds the permission authorities; the role travels in its own claim.
func (i *Issuer) IssueAccess(identity string, role permission.Role, perms *permission.Set, ttlHours int) (string, error) {
	claims, err := i.claims(identity, role, TokenTypeAccess, ttlHours)
	if err != nil {
		return "", err
	}
	if perms.Len() > 0 {
		claims.Permissions = perms.Authorities().Sorted()
	}
	return i.codec.Encode(claims)
}

// IssueRefresh never carries permissions; they are re-read on every exchange.
func (i *Issuer) IssueRefresh(identity string, role permission.Role, ttlHours int) (string, error) {
	claims, err := i.claims(identity, role, TokenTypeRefresh, ttlHours)
	if err != nil {
		return "", err
	}
	return i.codec.Encode(claims)
}

func (i *Issuer) claims(identity string, role permission.Role, typ TokenType, ttlHours int) (*Claims, error) {
	if ttlHours < 1 {
		return nil, apperrors.Validation(fmt.Sprintf(msgTTLNotPositiveFmt, ttlHours))
	}
	if !i.hierarchy.Contains(role) {
		return nil, apperrors.Validation(fmt.Sprintf(msgUnknownRoleFmt, role))
	}

	now := i.codec.Now()
	return &Claims{
		Role: role.Authority(),
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttlHours) * time.Hour)),
		},
	}, nil
}
