/*
errors.go - Centralized error taxonomy for the engine

PURPOSE:
  All error types in one place so the transport layer can map them to
  status codes with errors.Is / errors.As and nothing else.

ERROR CATEGORIES:
  1. Validation    - malformed input (400, field detail)
  2. Authorization - wrong role or not the owner (403, no state change)
  3. State         - operation not allowed in the request's status (400)
  4. Balance       - insufficient available days (400, available/requested)
  5. Conflict      - overlapping leave (400, conflicting dates)
  6. NotFound      - missing request, leave type or employee (404)
  Anything else is internal (500, details only logged).

USAGE:
  Domain packages return the structured types; every structured type
  unwraps to its sentinel:

    if errors.Is(err, generic.ErrInsufficientBalance) { ... }

    var conflict *generic.ConflictError
    if errors.As(err, &conflict) { ... conflict.Dates ... }

SEE ALSO:
  - api/errors.go: status code mapping
*/
package generic

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrValidation    = errors.New("validation failed")
	ErrUnauthorized  = errors.New("not authorized")
	ErrInvalidState  = errors.New("invalid state")
	ErrNotFound      = errors.New("not found")
	ErrLeaveConflict = errors.New("overlapping leave")

	// ErrInsufficientBalance is returned when a request exceeds the available days.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrConcurrentModification is returned when a conditional update finds
	// the row no longer in the expected state.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrDuplicateDay is returned by stores when a day is already occupied
	// by another pending or approved request of the same employee.
	ErrDuplicateDay = errors.New("day already booked")

	// ErrDuplicateKey is returned by stores on a uniqueness violation that
	// is expected under retries (e.g. a payslip for the same period).
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports malformed or missing input, keyed by field.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// FieldError is a ValidationError for a single field.
func FieldError(field, problem string) *ValidationError {
	return &ValidationError{
		Message: "invalid " + field,
		Fields:  map[string]string{field: problem},
	}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// AuthorizationError reports an actor that may not perform the action.
type AuthorizationError struct {
	ActorID string
	Action  string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("actor %s may not %s", e.ActorID, e.Action)
}

func (e *AuthorizationError) Unwrap() error { return ErrUnauthorized }

// StateError reports an operation against a request in the wrong status.
type StateError struct {
	Message string
	Current string
}

func (e *StateError) Error() string {
	if e.Current == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (current status: %s)", e.Message, e.Current)
}

func (e *StateError) Unwrap() error { return ErrInvalidState }

// InsufficientBalanceError provides details about a balance shortage.
type InsufficientBalanceError struct {
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available %s, requested %s",
		e.Available.String(), e.Requested.String())
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// Shortfall is how many days the request is over the available balance.
func (e *InsufficientBalanceError) Shortfall() decimal.Decimal {
	return e.Requested.Sub(e.Available)
}

// ConflictError lists the calendar days already covered by other leave.
type ConflictError struct {
	Dates []TimePoint
}

func (e *ConflictError) Error() string {
	return "leave overlaps existing requests on " + strings.Join(e.DateStrings(), ", ")
}

func (e *ConflictError) Unwrap() error { return ErrLeaveConflict }

func (e *ConflictError) DateStrings() []string {
	out := make([]string, len(e.Dates))
	for i, d := range e.Dates {
		out[i] = d.String()
	}
	return out
}

// NotFoundError names the missing thing.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// or a rule the request broke, as opposed to a store failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrLeaveConflict) ||
		errors.Is(err, ErrInvalidPeriod)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
