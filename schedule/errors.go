/*
errors.go - Error taxonomy for schedule computation

PURPOSE:
  Every failure mode of the engine in one place. All errors are deterministic
  functions of the inputs: nothing here is retryable, and no call ever
  returns a partial result - a build either yields a complete, internally
  consistent segment chain or exactly one of these errors.

ERROR CATEGORIES:
  1. Caller errors   - bad windows (ErrHistoricalStartDate, ErrNoPayments)
  2. Infeasibility   - the rule/value cannot self-fund (ErrApproachingZero,
                       ErrUnresolvable)
  3. Invariant traps - contract violations that should never surface with
                       well-formed inputs (ErrPaymentOutOfBounds,
                       ErrTooMuchRecursion)

USAGE:
  Callers can branch with errors.Is:

    if errors.Is(err, schedule.ErrUnresolvable) {
        // the payment simply cannot be saved for in this window
    }

  OutOfBoundsError carries the offending window and date and unwraps to
  ErrPaymentOutOfBounds for errors.Is / errors.As.
*/
package schedule

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrHistoricalStartDate is returned when the reference "now" falls after
	// the schedule's intended start; the caller must re-derive with a valid now.
	ErrHistoricalStartDate = errors.New("start date occurs in the past")

	// ErrNoPayments is returned when a window produces no payment dates to
	// fund; it indicates a rule/window mismatch.
	ErrNoPayments = errors.New("no payments for this contribution")

	// ErrPaymentOutOfBounds is returned when a generated payment falls outside
	// the validated window. With well-formed inputs this is an invariant
	// violation between the recurrence engine and the solver.
	ErrPaymentOutOfBounds = errors.New("payment out of bounds")

	// ErrApproachingZero is returned when the computed per-day rate rounds to
	// zero at working precision: the payment is too small, or the window too
	// long, to represent a meaningful daily rate.
	ErrApproachingZero = errors.New("contribution is approaching zero")

	// ErrUnresolvable is returned when the search exhausts all payments
	// without finding a feasible split; the rule/value truly cannot self-fund
	// in the given window.
	ErrUnresolvable = errors.New("could not resolve contribution to cover all payments")

	// ErrTooMuchRecursion is returned when the search fence is exceeded. It is
	// a defensive invariant signal, not an expected user-facing outcome.
	ErrTooMuchRecursion = errors.New("too much recursion trying to find a sustainable contribution")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// OutOfBoundsError reports the payment date that escaped its window.
type OutOfBoundsError struct {
	Start    Date
	Boundary Date
	Payment  Date
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("the date %s is beyond the range %s - %s", e.Payment, e.Start, e.Boundary)
}

func (e *OutOfBoundsError) Unwrap() error {
	return ErrPaymentOutOfBounds
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsInfeasible reports whether the error means the rule/value combination
// cannot be scheduled, as opposed to malformed input or an invariant trap.
func IsInfeasible(err error) bool {
	return errors.Is(err, ErrApproachingZero) ||
		errors.Is(err, ErrUnresolvable)
}

// IsInvariantViolation reports whether the error signals a contract breach
// that should never occur for well-formed inputs.
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrPaymentOutOfBounds) ||
		errors.Is(err, ErrTooMuchRecursion)
}
