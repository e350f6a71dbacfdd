package auth

import (
	"errors"
	"time"

	apperrors "shop-auth/pkg/errors"
)

// Codec signs and verifies tokens with whatever key the KeyManager holds at
// the time of the call.
type Codec struct {
	keys *KeyManager
	loc  *time.Location
	now  func() time.Time
}

type CodecOption func(*Codec)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) {
		c.now = now
	}
}

// NewCodec fixes the time zone for the codec's lifetime. A nil location means UTC.
func NewCodec(keys *KeyManager, loc *time.Location, opts ...CodecOption) *Codec {
	if loc == nil {
		loc = time.UTC
	}
	c := &Codec{keys: keys, loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Codec) Location() *time.Location {
	return c.loc
}

// Now is the wall clock in the configured zone.
func (c *Codec) Now() time.Time {
	return c.now().In(c.loc)
}

func (c *Codec) Encode(claims *Claims) (string, error) {
	key := c.keys.Current()
	if key == nil {
		return "", apperrors.InternalServer(msgNoSigningKey, nil)
	}
	return key.sign(claims)
}

// Decode verifies the signature only. The reason for a failure is never
// returned, only ErrInvalidToken.
func (c *Codec) Decode(token string) (*Claims, error) {
	if token == "" || len(token) > MaxTokenLength {
		return nil, apperrors.InvalidToken()
	}

	key := c.keys.Current()
	if key == nil {
		return nil, apperrors.InvalidToken()
	}

	claims, err := key.verify(token)
	if err != nil {
		return nil, apperrors.InvalidToken()
	}
	c.normalize(claims)
	return claims, nil
}

// IsExpired reports whether claims have expired as of now. No exp means never.
func (c *Codec) IsExpired(claims *Claims) bool {
	return c.IsExpiredAt(claims, c.Now())
}

// IsExpiredAt is expired for every instant at or after exp.
func (c *Codec) IsExpiredAt(claims *Claims, at time.Time) bool {
	if claims == nil || claims.ExpiresAt == nil {
		return false
	}
	return !at.In(c.loc).Before(claims.ExpiresAt.Time)
}

// normalize puts decoded timestamps into the configured zone.
func (c *Codec) normalize(claims *Claims) {
	if claims.IssuedAt != nil {
		claims.IssuedAt.Time = claims.IssuedAt.Time.In(c.loc)
	}
	if claims.ExpiresAt != nil {
		claims.ExpiresAt.Time = claims.ExpiresAt.Time.In(c.loc)
	}
}

// IsInvalidToken is a convenience for callers outside this package.
func IsInvalidToken(err error) bool {
	return errors.Is(err, apperrors.ErrInvalidToken)
}
