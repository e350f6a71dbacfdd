package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/argon2"
)

// Argon2 parameters for refresh token fingerprints
const (
	argon2Time    = 2
	argon2Memory  = 19 * 1024
	argon2Threads = 1
	argon2KeyLen  = 32

	refreshTokenSalt = "shop-auth-refresh-token-v1"

	keyFingerprintLen = 16
)

const dummyTokenFingerprint = "0000000000000000000000000000000000000000000000000000000000000000"

// FingerprintToken is what gets persisted in place of a refresh token.
func FingerprintToken(token string) string {
	hash := argon2.IDKey([]byte(token), []byte(refreshTokenSalt), argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	return hex.EncodeToString(hash)
}

// MatchesFingerprint hashes token and compares it to stored in constant time.
// An empty stored value still costs a full hash.
func MatchesFingerprint(token, stored string) bool {
	actual := FingerprintToken(token)
	if stored == "" {
		ConstantTimeCompareHashes(actual, dummyTokenFingerprint)
		return false
	}
	return ConstantTimeCompareHashes(actual, stored)
}

// FingerprintKey is a short, non-reversible label for a signing key.
func FingerprintKey(material []byte) string {
	sum := sha256.Sum256(material)
	return hex.EncodeToString(sum[:])[:keyFingerprintLen]
}

// ConstantTimeCompareHashes compares two hex-encoded hash strings in constant time.
func ConstantTimeCompareHashes(a, b string) bool {
	aBytes := []byte(a)
	bBytes := []byte(b)

	// If lengths differ, still do comparison to maintain constant time
	if len(aBytes) != len(bBytes) {
		if len(aBytes) < len(bBytes) {
			aBytes = make([]byte, len(bBytes))
		} else {
			bBytes = make([]byte, len(aBytes))
		}
		subtle.ConstantTimeCompare(aBytes, bBytes)
		return false
	}

	return subtle.ConstantTimeCompare(aBytes, bBytes) == 1
}
