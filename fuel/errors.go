/*
errors.go - Centralized error types for the fuel engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Stores and handlers wrap these errors with additional context.

ERROR CATEGORIES:
  1. Not-found errors - A referenced event, machine, place or user is missing
  2. Validation errors - Malformed input rejected before reaching the core
  3. Conflict errors - A delete would orphan referencing rows
  4. Availability errors - The store could not be reached

ARITHMETIC:
  Division by zero and unparseable litres are NOT errors. They resolve to 0
  locally so reports always render (see ParseLitres, Percentage).

USAGE:
  if errors.Is(err, fuel.ErrEventNotFound) {
      // 404
  }

SEE ALSO:
  - ledger.go: Produces validation and not-found errors on writes
  - report.go: Wraps store failures in ErrAnalysisUnavailable
*/
package fuel

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEventNotFound is returned when an update or delete affected no rows.
	ErrEventNotFound = errors.New("fuel event not found")

	// ErrMachineryNotFound is returned when a referenced machine doesn't exist.
	ErrMachineryNotFound = errors.New("machinery not found")

	// ErrPlaceNotFound is returned when a referenced place doesn't exist.
	ErrPlaceNotFound = errors.New("place not found")

	// ErrUserNotFound is returned when a user lookup finds nothing.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateUser is returned when a username or email is already taken.
	ErrDuplicateUser = errors.New("user already exists")

	// ErrInvalidCredentials is returned when login fails.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInUse is returned when deleting a place or machine still referenced
	// by machinery or events.
	ErrInUse = errors.New("resource still referenced")

	// ErrInvalidEvent is the root of every validation failure.
	ErrInvalidEvent = errors.New("invalid input")

	// ErrAnalysisUnavailable is returned when the store fails during a read.
	// Not retried here; retry policy belongs to the caller.
	ErrAnalysisUnavailable = errors.New("analysis unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidEvent
}

// ValidationErrors collects every field failure of one request.
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	msg := v[0].Error()
	if len(v) > 1 {
		msg += fmt.Sprintf(" (and %d more)", len(v)-1)
	}
	return msg
}

func (v ValidationErrors) Unwrap() error {
	return ErrInvalidEvent
}

// OrNil returns nil when no failure was collected.
func (v ValidationErrors) OrNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrMachineryNotFound) ||
		errors.Is(err, ErrPlaceNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidEvent) ||
		errors.Is(err, ErrDuplicateUser) ||
		errors.Is(err, ErrInvalidCredentials)
}
