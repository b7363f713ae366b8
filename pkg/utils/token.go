package utils

import (
	"github.com/google/uuid"
)

// GenerateToken generates the opaque consent token recipients receive in
// their link. A random UUID carries 122 bits of entropy, which is the sole
// guard against token guessing.
func GenerateToken() string {
	return uuid.New().String()
}

// IsValidToken checks whether a string has the shape of a consent token.
func IsValidToken(token string) bool {
	_, err := uuid.Parse(token)
	return err == nil
}
