// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrFutureTimestamp = errors.New("timestamp cannot be in the future")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState       = errors.New("invalid state")
	ErrStateTransition    = errors.New("invalid state transition")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrNoCapacity         = errors.New("no capacity left")
	ErrExpired            = errors.New("expired")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "student", "course", "enrollment"
	Op      string // Operation that failed, e.g., "Find", "Enroll"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Student domain errors
var (
	ErrStudentNotFound      = NewDomainError("student", "Find", ErrNotFound, "student not found")
	ErrStudentAlreadyExists = NewDomainError("student", "Register", ErrAlreadyExists, "student already exists")
	ErrInvalidNIM           = NewDomainError("student", "Validate", ErrInvalidID, "invalid NIM")
	ErrInvalidIPK           = NewDomainError("student", "Validate", ErrValueOutOfRange, "invalid IPK")
	ErrInvalidStudentStatus = NewDomainError("student", "Validate", ErrInvalidState, "invalid student status")
)

// Course domain errors
var (
	ErrCourseNotFound      = NewDomainError("course", "Find", ErrNotFound, "course not found")
	ErrCourseAlreadyExists = NewDomainError("course", "Add", ErrAlreadyExists, "course already exists")
	ErrInvalidCourseCode   = NewDomainError("course", "Validate", ErrInvalidID, "invalid course code")
	ErrCourseFull          = NewDomainError("course", "TakeSeat", ErrNoCapacity, "course has no seats left")
	ErrInvalidCapacity     = NewDomainError("course", "Validate", ErrNegativeValue, "capacity cannot be negative")
	ErrSeatCountOutOfRange = NewDomainError("course", "Validate", ErrValueOutOfRange, "enrolled count out of range")
)

// Enrollment domain errors
var (
	ErrEnrollmentBlocked    = NewDomainError("enrollment", "CheckEligibility", ErrForbidden, "student is suspended from enrollment")
	ErrPrerequisiteNotMet   = NewDomainError("enrollment", "CheckPrerequisites", ErrPreconditionFailed, "course prerequisites not satisfied")
	ErrEnrollmentNotFound   = NewDomainError("enrollment", "Find", ErrNotFound, "enrollment not found")
	ErrInvalidEnrollmentID  = NewDomainError("enrollment", "Validate", ErrInvalidFormat, "invalid enrollment ID")
	ErrCompletionDuplicated = NewDomainError("enrollment", "RecordCompletion", ErrAlreadyExists, "completion already recorded")
)

// Notification domain errors
var (
	ErrNotificationFailed   = NewDomainError("notification", "Send", ErrExternalService, "failed to send notification")
	ErrInvalidRecipient     = NewDomainError("notification", "Validate", ErrInvalidInput, "invalid recipient address")
	ErrTooManyNotifications = NewDomainError("notification", "Send", ErrRateLimited, "too many notifications")
)

// External service errors
var (
	ErrSMTPUnavailable = NewDomainError("smtp", "Dial", ErrServiceUnavailable, "SMTP server is unavailable")
	ErrSMTPTimeout     = NewDomainError("smtp", "Send", ErrTimeout, "SMTP send timeout")
	ErrSMTPRejected    = NewDomainError("smtp", "Send", ErrExternalService, "message rejected by SMTP server")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsNoCapacity checks if the error means a course ran out of seats.
func IsNoCapacity(err error) bool {
	return errors.Is(err, ErrNoCapacity)
}

// IsPreconditionFailed checks if the error is a failed enrollment precondition.
func IsPreconditionFailed(err error) bool {
	return errors.Is(err, ErrPreconditionFailed)
}

// IsForbidden checks if the error is an authorization refusal.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification)
}
