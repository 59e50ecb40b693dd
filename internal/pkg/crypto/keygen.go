// Package crypto provides cryptographic utilities for the community server.
package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Character sets for generated secrets.
const (
	// passwordChars avoids visually ambiguous characters (0/O, 1/l/I).
	passwordChars = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"
)

// Lengths of generated secrets.
const (
	// GeneratedPasswordLength is the length of bootstrap passwords.
	GeneratedPasswordLength = 20

	// SecretKeyBytes is the size of generated signing secrets.
	SecretKeyBytes = 32
)

// GeneratePassword returns a random password for bootstrap accounts.
func GeneratePassword() (string, error) {
	return generateRandomString(GeneratedPasswordLength, passwordChars)
}

// GenerateSecret returns a random hex-encoded signing secret.
func GenerateSecret() (string, error) {
	key := make([]byte, SecretKeyBytes)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// generateRandomString generates a random string of the specified length
// using characters from the provided character set. Bytes that would bias the
// distribution are rejected and redrawn.
func generateRandomString(length int, charset string) (string, error) {
	result := make([]byte, 0, length)
	charsetLen := len(charset)
	limit := 256 - (256 % charsetLen)

	buf := make([]byte, length)
	for len(result) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			result = append(result, charset[int(b)%charsetLen])
			if len(result) == length {
				break
			}
		}
	}

	return string(result), nil
}
