package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// passwordCost trades login latency against offline brute-force resistance.
const passwordCost = bcrypt.DefaultCost

// bcrypt only reads the first 72 bytes of input; reject longer passwords
// instead of silently truncating them.
const maxPasswordBytes = 72

// ErrPasswordTooLong is returned for passwords beyond the bcrypt input limit.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// HashPassword returns the bcrypt hash of a plain-text password.
func HashPassword(password string) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether plain matches the stored bcrypt hash.
func CheckPassword(plain, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
