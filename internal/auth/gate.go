package auth

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"shop-auth/internal/domain/user"
	apperrors "shop-auth/pkg/errors"
)

// Identities is the user side of authentication. Implementations may be slow
// or fail; the gate holds no lock while calling them.
type Identities interface {
	// VerifyCredentials returns ErrInvalidCredentials for an unknown user and
	// for a wrong password alike.
	VerifyCredentials(ctx context.Context, username, password string) (*user.User, error)
	FindByUsername(ctx context.Context, username string) (*user.User, error)
	UpdateRefreshFingerprint(ctx context.Context, username, fingerprint string) error
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// GateConfig holds the default lifetimes used when a caller passes 0.
type GateConfig struct {
	AccessTTLHours  int
	RefreshTTLHours int
}

// Gate exchanges credentials and refresh tokens for new tokens.
//
// Every successful login issues a fresh pair and replaces the stored refresh
// fingerprint, so only the newest refresh token of an identity can be
// exchanged. Access tokens already handed out stay valid until they expire.
type Gate struct {
	issuer     *Issuer
	codec      *Codec
	identities Identities
	cfg        GateConfig
	log        logrus.FieldLogger
}

func NewGate(issuer *Issuer, codec *Codec, identities Identities, cfg GateConfig, log logrus.FieldLogger) *Gate {
	return &Gate{issuer: issuer, codec: codec, identities: identities, cfg: cfg, log: log}
}

func (g *Gate) TokensForCredentials(ctx context.Context, username, password string) (*TokenPair, error) {
	u, err := g.verify(ctx, username, password)
	if err != nil {
		return nil, err
	}

	access, err := g.issuer.IssueAccess(u.Username, u.Role, u.Permissions, g.cfg.AccessTTLHours)
	if err != nil {
		return nil, err
	}
	refresh, err := g.replaceRefreshToken(ctx, u, g.cfg.RefreshTTLHours)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// RefreshAccessToken issues an access token from the identity's current role
// and permissions, not from anything embedded in the refresh token.
func (g *Gate) RefreshAccessToken(ctx context.Context, refreshToken string, ttlHours int) (string, error) {
	claims, err := g.codec.Decode(refreshToken)
	if err != nil {
		return "", err
	}
	if g.codec.IsExpired(claims) {
		return "", apperrors.Expired(msgRefreshTokenExpired)
	}
	if !claims.IsRefresh() {
		return "", apperrors.WrongTokenType(msgNotARefreshToken)
	}

	u, err := g.identities.FindByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", apperrors.InvalidCredentials()
		}
		return "", apperrors.InternalServer(msgLookupIdentityFailed, err)
	}
	if !u.Enabled {
		return "", apperrors.InvalidCredentials()
	}
	if !MatchesFingerprint(refreshToken, u.RefreshFingerprint) {
		g.log.WithField("subject", u.Username).Info("superseded refresh token presented")
		return "", apperrors.InvalidToken()
	}

	return g.issuer.IssueAccess(u.Username, u.Role, u.Permissions, g.ttl(ttlHours, g.cfg.AccessTTLHours))
}

// NewRefreshToken replaces the identity's refresh token.
func (g *Gate) NewRefreshToken(ctx context.Context, username, password string, ttlHours int) (string, error) {
	u, err := g.verify(ctx, username, password)
	if err != nil {
		return "", err
	}
	return g.replaceRefreshToken(ctx, u, g.ttl(ttlHours, g.cfg.RefreshTTLHours))
}

func (g *Gate) verify(ctx context.Context, username, password string) (*user.User, error) {
	u, err := g.identities.VerifyCredentials(ctx, username, password)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidCredentials) || errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidCredentials()
		}
		return nil, apperrors.InternalServer(msgLookupIdentityFailed, err)
	}
	return u, nil
}

func (g *Gate) replaceRefreshToken(ctx context.Context, u *user.User, ttlHours int) (string, error) {
	refresh, err := g.issuer.IssueRefresh(u.Username, u.Role, ttlHours)
	if err != nil {
		return "", err
	}
	if err := g.identities.UpdateRefreshFingerprint(ctx, u.Username, FingerprintToken(refresh)); err != nil {
		return "", apperrors.InternalServer(msgPersistRefreshFailed, err)
	}
	return refresh, nil
}

// ttl maps 0 to the configured default; negatives reach the issuer and fail there.
func (g *Gate) ttl(requested, fallback int) int {
	if requested == 0 {
		return fallback
	}
	return requested
}
