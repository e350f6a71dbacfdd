package auth

import "time"

const (
	ContextKeyPrincipal = "principal"
	ContextKeyRequestID = "request_id"

	jsonKeyError = "error"

	headerAuthorization = "Authorization"

	bearerScheme    = "bearer"
	authHeaderParts = 2
)

const (
	// MinKeyBytes is the HS512 minimum: the key must be at least as long as the hash output.
	MinKeyBytes = 64
	// GeneratedKeyBytes is the size of keys produced by GenerateKey (512 bits).
	GeneratedKeyBytes = 64
	// MaxTokenLength bounds what Decode will even look at.
	MaxTokenLength = 2047

	probeSubject = "signing-key-probe"
	probeTTL     = time.Minute
)

const (
	msgUserNotAuthenticated    = "user not authenticated"
	msgInsufficientAuthority   = "insufficient authority"
	msgKeyTooShortFmt          = "key has %d bits, at least %d required"
	msgKeyProbeMismatch        = "probe claims did not survive the round trip"
	msgNoSigningKey            = "no signing key installed"
	msgUnexpectedSigningMethod = "unexpected signing method: %v"
	msgTokenParseFailed        = "failed to parse token: %w"
	msgInvalidTokenClaims      = "invalid token claims"
	msgGenerateKeyFailed       = "failed to read random key material: %w"
	msgTTLNotPositiveFmt       = "ttl must be at least one hour, got %d"
	msgUnknownRoleFmt          = "unknown role %q"
	msgRefreshTokenExpired     = "refresh token expired"
	msgNotARefreshToken        = "token is not a refresh token"
	msgPersistRefreshFailed    = "failed to persist refresh token"
	msgLookupIdentityFailed    = "failed to look up identity"
)

// TokenType discriminates access from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)
