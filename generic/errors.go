/*
errors.go - Centralized error types for the vacation ledger

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Every structured error unwraps to exactly one sentinel so callers can
  classify with errors.Is without knowing the concrete type.

ERROR CATEGORIES:
  1. Client errors - Validation, conflict, insufficient balance
  2. Authorization errors - Non-admin calling an admin operation
  3. Lookup errors - Missing request, balance or profile
  4. Upstream errors - Store or directory failures (possibly retryable)

USAGE:
  if errors.Is(err, generic.ErrConflict) {
      var c *generic.ConflictError
      errors.As(err, &c)
      // c.ExistingID names the overlapping request
  }

SEE ALSO:
  - vacation/ledger.go: Raises these errors
  - api/errors.go: Maps them to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for missing or malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrForbidden is returned when a non-admin attempts an admin operation.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned when a referenced request, balance or profile doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a request overlaps an active request of the same user.
	ErrConflict = errors.New("overlapping request")

	// ErrInsufficientBalance is returned when the requested days exceed available minus reserved.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrUpstream is returned when the store or directory fails for infrastructure reasons.
	ErrUpstream = errors.New("upstream failure")

	// ErrConcurrentModification is returned when optimistic locking detects a conflict.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ForbiddenError reports the caller and the role it actually holds.
type ForbiddenError struct {
	UserID string
	Role   string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("forbidden: user %s has role %q, admin required", e.UserID, e.Role)
}

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

// NotFoundError names the missing resource.
type NotFoundError struct {
	Resource string // "request", "balance", "profile", "blocked_date"
	ID       string
	Reason   string
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("%s %s not found", e.Resource, e.ID)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError names the existing request that overlaps the new one.
type ConflictError struct {
	ExistingID string
	Existing   Period
	Requested  Period
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("overlapping request: %s overlaps existing request %s %s",
		e.Requested, e.ExistingID, e.Existing)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// InsufficientBalanceError carries the quantities behind a rejection.
// Remaining is what was left after subtracting pending reservations.
type InsufficientBalanceError struct {
	Category  string
	Available Amount
	Reserved  Amount
	Remaining Amount
	Requested Amount
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: only %s days remaining for %s, requested %s",
		e.Remaining, e.Category, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// UpstreamError wraps a store or directory failure with the failing operation.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() []error { return []error{ErrUpstream, e.Err} }

// Upstream wraps err as an UpstreamError unless it is already classified.
// Domain errors raised inside a transaction pass through untouched.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsClientError(err) || IsNotFound(err) || errors.Is(err, ErrForbidden) || errors.Is(err, ErrUpstream) {
		return err
	}
	return &UpstreamError{Op: op, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInvalidPeriod)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
