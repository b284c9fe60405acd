/*
errors.go - Centralized error taxonomy for the commission engine

PURPOSE:
  All domain error kinds in one place. Downstream packages and the HTTP layer
  classify errors with errors.Is/As; every kind carries a retryable bit so
  the API can tell clients whether trying again can help.

ERROR KINDS:
  InvalidDate         malformed/unparseable date input        terminal
  UnknownPeriod       payroll lookup outside tabulated years  terminal
  ValidationFailed    reconciliation submit gate violated     terminal
  NotFound            record missing or not owned by caller   terminal
  UpstreamUnavailable data store / chat endpoint unreachable  retryable

USAGE:
  if commission.IsRetryable(err) { ... }
  var v *commission.ValidationError
  if errors.As(err, &v) { ... v.Problems ... }

SEE ALSO:
  - calendar/calendar.go: InvalidDateError originates there
  - api/handlers.go: maps kinds to HTTP statuses
*/
package commission

import (
	"errors"
	"fmt"

	"github.com/warp/commission-engine/calendar"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidDate is returned for malformed or unparseable date input.
	ErrInvalidDate = errors.New("invalid date")

	// ErrUnknownPeriod is returned when a payroll lookup falls outside the
	// tabulated calendar years.
	ErrUnknownPeriod = errors.New("unknown payroll period")

	// ErrValidationFailed is returned when a reconciliation submit violates
	// the completion gate.
	ErrValidationFailed = errors.New("validation failed")

	// ErrNotFound is returned when a policy or profile does not exist or is
	// not owned by the calling agent.
	ErrNotFound = errors.New("not found")

	// ErrUpstreamUnavailable is returned when the data store or chat
	// collaborator is unreachable or erroring.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError identifies the missing record.
type NotFoundError struct {
	Kind string // "policy", "profile"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ValidationError lists every gate violation found in a submit attempt, so
// the operator sees all problems at once instead of fixing them one by one.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %d problem(s)", len(e.Problems))
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }

// UnknownPeriodError identifies the out-of-range lookup.
type UnknownPeriodError struct {
	Date calendar.Date
	// Years lists the tabulated calendar years, for the error message.
	Years []int
}

func (e *UnknownPeriodError) Error() string {
	return fmt.Sprintf("no payroll period covers %s (tabulated years: %v)", e.Date, e.Years)
}

func (e *UnknownPeriodError) Unwrap() error { return ErrUnknownPeriod }

// UpstreamError wraps a collaborator failure with the collaborator's name.
type UpstreamError struct {
	Collaborator string // "datastore", "chat"
	Cause        error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Collaborator, e.Cause)
}

func (e *UpstreamError) Unwrap() error { return ErrUpstreamUnavailable }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable reports whether the operation might succeed if repeated.
// Only collaborator outages qualify; everything else is a terminal client or
// domain error.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable)
}

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError reports whether the error is due to invalid caller input.
func IsClientError(err error) bool {
	var invalid *calendar.InvalidDateError
	return errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.As(err, &invalid)
}
