// Package auth owns the login machinery: opaque session tokens, the
// GitHub OAuth flow, resolution of a cookie token into a validated user,
// and the background sweeper for expired sessions.
package auth

import (
	"crypto/rand"
	"encoding/hex"
)

// NewSessionToken generates a cryptographically random 256-bit session
// token, hex encoded.
func NewSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
