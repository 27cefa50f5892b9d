// Package testutil provides shared test doubles and fixtures for tests.
package testutil

import (
	"context"
	"sync"
	"testing"

	"spaapi/internal/database"
	"spaapi/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewSQLiteDB opens a private in-memory SQLite database with the SQL
// migrations applied. The pool is pinned to one connection because each new
// :memory: connection would be an empty database.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.Open(sqlite.Open(":memory:"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// UserStoreStub is an in-memory user store for tests.
type UserStoreStub struct {
	// Unique makes Create reject a second user with the same email.
	Unique bool
	// Err, when set, is returned by Create without storing anything.
	Err error

	mu     sync.Mutex
	users  []models.User
	calls  int
	nextID uint
}

// NewUserStoreStub creates an empty stub. unique controls email uniqueness.
func NewUserStoreStub(unique bool) *UserStoreStub {
	return &UserStoreStub{Unique: unique, nextID: 1}
}

// Create stores a copy of user and assigns it an ID.
func (s *UserStoreStub) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.Err != nil {
		return s.Err
	}
	if s.Unique {
		for _, u := range s.users {
			if u.Email == user.Email {
				return models.NewConflictError("User", nil)
			}
		}
	}
	if s.nextID == 0 {
		s.nextID = 1
	}
	user.ID = s.nextID
	s.nextID++
	s.users = append(s.users, *user)
	return nil
}

// Users returns a snapshot of the stored users.
func (s *UserStoreStub) Users() []models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.User(nil), s.users...)
}

// Calls returns how many times Create was invoked.
func (s *UserStoreStub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
