package security

import (
	"crypto/rand"
	"encoding/hex"
)

// sessionTokenBytes is the entropy of a session token before hex encoding.
const sessionTokenBytes = 32

// NewSessionToken returns a new cryptographically random opaque session token,
// hex-encoded. Tokens carry no claims; the employee row they are stored on is
// the single source of truth for who holds them.
func NewSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
