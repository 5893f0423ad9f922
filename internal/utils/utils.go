package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// SecretHex generates n random bytes from a CSPRNG, hex-encoded.
func SecretHex(n int) (string, error) {
	key := make([]byte, n)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}

// UUID generates UUID without the '-' character.
func UUID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
