package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
)

// NewInvitationToken returns a fresh random invitation token for delivery to
// the invitee. Only its hash is stored.
func NewInvitationToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashInvitationToken returns a SHA-256 hash of the invitation token string,
// hex-encoded. The hash is deterministic so acceptance can look the
// invitation up by digest without storing the raw token.
func HashInvitationToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// InvitationTokenHashEqual performs constant-time comparison of the provided
// token's hash with the stored hash. Returns true only if they match.
func InvitationTokenHashEqual(providedToken, storedHash string) bool {
	providedHash := HashInvitationToken(providedToken)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}
