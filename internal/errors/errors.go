// Package errors provides domain-specific error types and sentinel errors
// for improved error handling across the application.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrNotFound indicates a requested record was not found in the store.
	ErrNotFound = errors.New("resource not found")

	// ErrRateLimitExceeded indicates rate limit has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInvalidInput indicates user provided invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrUnknownIntent indicates an intent that no handler accepts.
	ErrUnknownIntent = errors.New("unknown intent")

	// ErrInvalidTimeline indicates a savings deadline that cannot be parsed.
	ErrInvalidTimeline = errors.New("invalid timeline")

	// ErrFamilyExists indicates the chat group already has a family.
	ErrFamilyExists = errors.New("family already exists")

	// ErrNotFamilyChat indicates a family command sent outside a group or room.
	ErrNotFamilyChat = errors.New("family commands require a group chat")
)

// ValidationError represents input validation failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrInvalidInput) match any validation failure.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// TimelineError reports a savings timeline that could not be interpreted.
// It matches ErrInvalidTimeline with errors.Is.
type TimelineError struct {
	Input string
	Err   error
}

func (e *TimelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid timeline %q: %v", e.Input, e.Err)
	}
	return fmt.Sprintf("invalid timeline %q", e.Input)
}

func (e *TimelineError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrInvalidTimeline.
func (e *TimelineError) Is(target error) bool {
	return target == ErrInvalidTimeline
}

// NewTimelineError creates a new timeline error.
func NewTimelineError(input string, err error) *TimelineError {
	return &TimelineError{
		Input: input,
		Err:   err,
	}
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidTimeline reports whether err is or wraps ErrInvalidTimeline.
func IsInvalidTimeline(err error) bool {
	return errors.Is(err, ErrInvalidTimeline)
}
