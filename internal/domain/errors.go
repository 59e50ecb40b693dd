// Package domain contains the core business entities for the Luminos community site.
package domain

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.).

var (
	// ===========================================
	// Validation Errors
	// ===========================================

	// ErrValidation indicates user-correctable input was rejected.
	// Concrete failures are reported as *ValidationError, which unwraps to this.
	ErrValidation = errors.New("validation failed")

	// ===========================================
	// Authentication/Authorization Errors
	// ===========================================

	// ErrInvalidCredentials indicates authentication failed.
	// It never reveals whether the username exists.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotAuthenticated indicates an operation requires a current principal.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrPermissionDenied indicates the caller lacks the required permission or ownership.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrSessionExpired indicates the session record is gone or past its expiry.
	ErrSessionExpired = errors.New("session expired")

	// ===========================================
	// Entity Errors
	// ===========================================

	// ErrNotFound indicates the referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateUsername indicates the username is already taken within its collection.
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrRootOwnerProtected indicates a forbidden change to the root owner account.
	ErrRootOwnerProtected = errors.New("the root owner account is protected")

	// ===========================================
	// Role Errors
	// ===========================================

	// ErrDuplicateRole indicates a role with the same derived identifier exists.
	ErrDuplicateRole = errors.New("role already exists")

	// ErrSystemRoleImmutable indicates an attempt to edit or delete a system role.
	ErrSystemRoleImmutable = errors.New("system roles cannot be modified")

	// ErrRoleInUse indicates the role is still assigned to at least one staff member.
	ErrRoleInUse = errors.New("role is assigned to staff members")
)

// ValidationError reports a single rejected field.
type ValidationError struct {
	// Field is the offending input field (e.g. "username").
	Field string

	// Message is a short user-facing explanation.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap makes errors.Is(err, ErrValidation) hold for every ValidationError.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// DomainError wraps a domain error with additional context.
type DomainError struct {
	// Err is the underlying domain error.
	Err error

	// Message provides additional context.
	Message string

	// Resource identifies the affected resource (e.g., role id, post id).
	Resource string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Err.Error(), e.Message, e.Resource)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError with context.
func NewDomainError(err error, message, resource string) *DomainError {
	return &DomainError{
		Err:      err,
		Message:  message,
		Resource: resource,
	}
}
