// Package security holds credential hashing.
package security

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher hashes passwords with bcrypt at a configurable cost.
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher returns a hasher using cost, or bcrypt.DefaultCost when cost is out of range.
func NewBcryptHasher(cost int) BcryptHasher {
	return BcryptHasher{Cost: cost}
}

func (h BcryptHasher) cost() int {
	if h.Cost < bcrypt.MinCost || h.Cost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return h.Cost
}

// Hash returns the bcrypt hash of plaintext. Each call uses a fresh salt.
func (h BcryptHasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost())
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(hashed), nil
}

// Verify compares a bcrypt hash with a plaintext candidate.
func (h BcryptHasher) Verify(hash, plaintext string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
}
