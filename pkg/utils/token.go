package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewInviteToken returns a cryptographically random, URL-safe token for
// single-use invite links.
func NewInviteToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// RandomSuffix returns a short random hex suffix for slug uniqueness.
func RandomSuffix() string {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "000000"
	}
	return hex.EncodeToString(buf)
}
