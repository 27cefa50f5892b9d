package models

import (
	"errors"
	"fmt"
)

// Error codes carried by AppError.
const (
	CodeConflict = "CONFLICT"
	CodeInternal = "INTERNAL_ERROR"
	CodeNotFound = "NOT_FOUND"
)

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewConflictError reports a uniqueness violation on resource.
func NewConflictError(resource string, err error) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: fmt.Sprintf("%s already exists", resource),
		Err:     err,
	}
}

// NewNotFoundError reports that no resource matched field = value.
func NewNotFoundError(resource, field string, value interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with %s %v not found", resource, field, value),
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// HasCode reports whether err is, or wraps, an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
