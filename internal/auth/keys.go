package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "shop-auth/pkg/errors"
)

var signingMethod = jwt.SigningMethodHS512

// SigningKey is an immutable key + verifier pair. A new key means a new value.
type SigningKey struct {
	material    []byte
	parser      *jwt.Parser
	fingerprint string
}

func newSigningKey(material []byte) (*SigningKey, error) {
	if len(material) < MinKeyBytes {
		return nil, apperrors.WeakKey(fmt.Errorf(msgKeyTooShortFmt, len(material)*8, MinKeyBytes*8))
	}

	k := &SigningKey{
		material: append([]byte(nil), material...),
		// Expiry is judged by the codec in the configured zone, not by the parser.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{signingMethod.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
		fingerprint: FingerprintKey(material),
	}

	if err := k.probe(); err != nil {
		return nil, apperrors.WeakKey(err)
	}
	return k, nil
}

// probe signs and verifies a throwaway claim set.
func (k *SigningKey) probe() error {
	now := time.Now()
	want := &Claims{
		Type: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   probeSubject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(probeTTL)),
		},
	}

	token, err := k.sign(want)
	if err != nil {
		return err
	}
	got, err := k.verify(token)
	if err != nil {
		return err
	}
	if got.Subject != want.Subject || got.Type != want.Type {
		return errors.New(msgKeyProbeMismatch)
	}
	return nil
}

func (k *SigningKey) sign(claims *Claims) (string, error) {
	return jwt.NewWithClaims(signingMethod, claims).SignedString(k.material)
}

func (k *SigningKey) verify(tokenString string) (*Claims, error) {
	token, err := k.parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf(msgUnexpectedSigningMethod, token.Header["alg"])
		}
		return k.material, nil
	})
	if err != nil {
		return nil, fmt.Errorf(msgTokenParseFailed, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New(msgInvalidTokenClaims)
	}
	return claims, nil
}

// Fingerprint identifies the key in logs and audit records.
func (k *SigningKey) Fingerprint() string {
	return k.fingerprint
}

// KeyManager owns the active signing key.
type KeyManager struct {
	current atomic.Pointer[SigningKey]
}

func NewKeyManager() *KeyManager {
	return &KeyManager{}
}

// Validate runs the same checks as Install without touching the active key.
func (m *KeyManager) Validate(candidate []byte) error {
	_, err := newSigningKey(candidate)
	return err
}

// Install validates candidate and makes it the active key. On failure the
// previous key stays active.
func (m *KeyManager) Install(candidate []byte) error {
	k, err := newSigningKey(candidate)
	if err != nil {
		return err
	}
	m.current.Store(k)
	return nil
}

// Rotate replaces the active key and returns the fingerprint of the one it
// replaced. Every token signed with the old key stops verifying on return.
func (m *KeyManager) Rotate(candidate []byte) (string, error) {
	k, err := newSigningKey(candidate)
	if err != nil {
		return "", err
	}

	var previous string
	if old := m.current.Swap(k); old != nil {
		previous = old.fingerprint
	}
	return previous, nil
}

// Current returns the active key, or nil before the first Install.
func (m *KeyManager) Current() *SigningKey {
	return m.current.Load()
}

// GenerateKey returns 512 random bits, base64 encoded. The encoded string
// itself is the key material.
func GenerateKey() (string, error) {
	buf := make([]byte, GeneratedKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf(msgGenerateKeyFailed, err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}
