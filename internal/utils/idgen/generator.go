package idgen

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateSecureID returns an identifier of the form "<prefix>_<random>",
// where the random suffix is drawn from crypto/rand over [a-z0-9].
func GenerateSecureID(prefix string, length int) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("prefix is required")
	}
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return prefix + "_" + string(buf), nil
}

// ValidateIDFormat reports whether id is "<expectedPrefix>_<suffix>" with a
// non-empty [a-z0-9] suffix.
func ValidateIDFormat(id, expectedPrefix string) bool {
	rest, ok := strings.CutPrefix(id, expectedPrefix+"_")
	if !ok || rest == "" {
		return false
	}
	for _, char := range rest {
		if !((char >= 'a' && char <= 'z') || (char >= '0' && char <= '9')) {
			return false
		}
	}
	return true
}

// HashKey256 returns the hex encoded SHA-256 of key concatenated with secret.
func HashKey256(key string, secret []byte) string {
	sum := sha256.Sum256(append([]byte(key), secret...))
	return hex.EncodeToString(sum[:])
}
