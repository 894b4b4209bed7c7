package security

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies employee PINs using bcrypt. Callers must not log
// or persist plaintext PINs.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher with the given bcrypt cost (4–31). Cost 12 is a
// reasonable default for interactive login.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash produces a bcrypt hash of pin. Returns the hash as a string suitable
// for storage.
func (h *Hasher) Hash(pin []byte) (string, error) {
	b, err := bcrypt.GenerateFromPassword(pin, h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether pin matches the stored hash. A malformed stored hash
// counts as a verification failure, never a panic; corrupt account data must
// read as "wrong PIN" to the login pipeline.
func (h *Hasher) Verify(hash string, pin []byte) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), pin) == nil
}
