package models

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("duplicate key value violates unique constraint")
	err := NewConflictError("User", cause)

	assert.Equal(t, "User already exists: duplicate key value violates unique constraint", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, HasCode(err, CodeConflict))
	assert.True(t, HasCode(fmt.Errorf("seed: %w", err), CodeConflict))
	assert.False(t, HasCode(err, CodeInternal))
	assert.False(t, HasCode(cause, CodeConflict))
}

func TestAppError_WithoutCause(t *testing.T) {
	err := NewNotFoundError("User", "email", "nobody@example.com")
	assert.Equal(t, "User with email nobody@example.com not found", err.Error())
	assert.True(t, HasCode(err, CodeNotFound))
	assert.Nil(t, errors.Unwrap(err))
	assert.Equal(t, CodeInternal, NewInternalError(errors.New("x")).Code)
}

func TestUser_IsEmailVerified(t *testing.T) {
	u := &User{}
	assert.False(t, u.IsEmailVerified())

	now := time.Now()
	u.EmailVerifiedAt = &now
	assert.True(t, u.IsEmailVerified())
	assert.Equal(t, "users", u.TableName())
}
