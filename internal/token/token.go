// Package token generates opaque credentials and validates card identifiers.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
)

const (
	signupTokenBytes  = 16
	publicTokenBytes  = 28
	deviceSecretBytes = 32
)

var cardIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// Generate returns a hex-encoded random token of n bytes of entropy.
// The resulting string is 2n characters long.
func Generate(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// NewSignupToken returns a token used in account claim links.
func NewSignupToken() (string, error) {
	return Generate(signupTokenBytes)
}

// NewPublicToken returns a token used in application completion links.
func NewPublicToken() (string, error) {
	return Generate(publicTokenBytes)
}

// NewDeviceSecret returns a bearer secret for reader devices.
func NewDeviceSecret() (string, error) {
	return Generate(deviceSecretBytes)
}

// IsValidCardID reports whether raw has the canonical UUID shape.
// Matching is case-insensitive and anchored, so nothing may surround
// the identifier.
func IsValidCardID(raw string) bool {
	return cardIDPattern.MatchString(raw)
}
