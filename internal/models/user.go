// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User represents an account of the SPA API.
type User struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Name            string     `gorm:"size:255;not null" json:"name"`
	Email           string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password        string     `gorm:"size:255;not null" json:"-"`
	EmailVerifiedAt *time.Time `json:"email_verified_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string {
	return "users"
}

// IsEmailVerified reports whether the user has a verification timestamp.
func (u *User) IsEmailVerified() bool {
	return u.EmailVerifiedAt != nil && !u.EmailVerifiedAt.IsZero()
}
