/*
errors.go - Centralized error types for the batch ledger

PURPOSE:
  All error kinds in one place. The API layer maps them to HTTP status
  classes with IsClientError / IsNotFound; everything else is a storage
  fault and surfaces as a server error.

ERROR CATEGORIES:
  1. Validation errors - Caller data violates a creation invariant
  2. Not-found errors  - A transition targets a row that does not exist
     or is not in a state where the transition applies
  3. Storage faults    - The store failed to commit; the whole
     transaction, audit entry included, has been rolled back

USAGE:
  if errors.Is(err, ledger.ErrValidation) { ... }

  var verr *ledger.ValidationError
  if errors.As(err, &verr) { ... verr.Field ... }
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of all creation-invariant violations.
	ErrValidation = errors.New("validation failed")

	// ErrBatchNotEligible is returned when a single-batch transition targets
	// an id that does not exist or is no longer ACTIVE. The two cases are
	// indistinguishable on purpose: the conditional update reports zero rows
	// either way, which keeps the guard and the write in one statement.
	ErrBatchNotEligible = errors.New("batch not found or not eligible")

	// ErrUnknownStatus is returned when text outside the closed status set
	// reaches a boundary.
	ErrUnknownStatus = errors.New("unknown batch status")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports which creation invariant a field violated.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrUnknownStatus)
}

// IsNotFound returns true if the error indicates a missing or ineligible batch.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBatchNotEligible)
}
