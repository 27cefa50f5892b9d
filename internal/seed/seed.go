// Package seed inserts the application's initial user.
package seed

import (
	"context"
	"fmt"
	"time"

	"spaapi/internal/models"
)

// Fixed values of the seeded account.
const (
	DefaultName     = "Pedro Raposo"
	DefaultEmail    = "pedro@raposo.com"
	DefaultPassword = "12345678"
)

// UserStore persists users.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
}

// Hasher turns a plaintext password into a one-way hash.
type Hasher interface {
	Hash(plaintext string) (string, error)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// Seeder creates the default user through its collaborators.
type Seeder struct {
	store  UserStore
	hasher Hasher
	clock  Clock
}

// NewSeeder returns a Seeder bound to the given store, hasher and clock.
func NewSeeder(store UserStore, hasher Hasher, clock Clock) *Seeder {
	return &Seeder{store: store, hasher: hasher, clock: clock}
}

// NewDefaultUser builds the seeded account from an already hashed password.
func NewDefaultUser(passwordHash string, verifiedAt time.Time) *models.User {
	return &models.User{
		Name:            DefaultName,
		Email:           DefaultEmail,
		Password:        passwordHash,
		EmailVerifiedAt: &verifiedAt,
	}
}

// Run inserts the default user once. It is not idempotent: a second call
// inserts again, and the store decides whether that is a duplicate.
// Store errors are returned as-is.
func (s *Seeder) Run(ctx context.Context) error {
	hash, err := s.hasher.Hash(DefaultPassword)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	return s.store.Create(ctx, NewDefaultUser(hash, s.clock.Now()))
}
