package chat

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// DigestSize is the length in bytes of a content digest.
const DigestSize = sha256.Size

// Digest returns the hex encoded SHA-256 of the plaintext. The digest is
// computed over the plaintext before encryption and travels on the ledger
// next to the blob reference.
func Digest(plaintext []byte) string {
	sum := sha256.Sum256(plaintext)
	return hex.EncodeToString(sum[:])
}

// VerifyDigest recomputes the digest of plaintext and compares it against
// expected. The comparison is exact-length and constant-time; a malformed or
// truncated expected digest never verifies.
func VerifyDigest(plaintext []byte, expected string) bool {
	raw, err := hex.DecodeString(expected)
	if err != nil || len(raw) != DigestSize {
		return false
	}
	sum := sha256.Sum256(plaintext)
	return subtle.ConstantTimeCompare(sum[:], raw) == 1
}
