package util

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// NewID returns a fresh entity id.
func NewID() string {
	return uuid.NewString()
}

// NewSecretToken returns a 256-bit random token for refresh credentials.
func NewSecretToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
