/*
solver.go - The window-narrowing search for one feasible contribution segment

PURPOSE:
  Finds a single constant daily rate that keeps cumulative savings ahead of
  every payment in a window. The naive attempt (total value spread evenly over
  the window) usually fails in one of a few characteristic ways; each failure
  narrows the window or rotates payments and the search re-enters with the
  adjusted inputs until a stable split is found or infeasibility is proven.

ADJUSTMENT CASES, IN ORDER:
  1. Idle tail:   no payment on the window's last day means savings pile up
                  after the final payment. Bounded windows shrink the end to
                  the last payment; open-ended ones rotate the first payment
                  a full period later and restart at its date.
  2. No lead-in:  a payment on the window's first day has had nothing saved
                  towards it. Drop it (re-appending one period later when the
                  window recurs) and start a day later.
  3. Undersaved:  simulate the running surplus/deficit between consecutive
                  payments. If the running total recovers from negative, the
                  recovery point is the earliest viable start; otherwise drop
                  the first payment outright as a last resort.

  Shrinking the window is always preferred over dropping payments: dropping
  signals the rule/value combination cannot self-fund that payment at all.

TERMINATION:
  The first candidate window end becomes a fence. The search only ever moves
  the start forward, so crossing the fence means every start date in the
  original window has been tried; further work would loop forever, which is
  reported as ErrTooMuchRecursion.

  The search is expressed as a loop over an explicit work item rather than
  self-recursion so pathological inputs cannot grow the call stack.
*/
package schedule

import (
	"github.com/shopspring/decimal"
)

// solveSegment finds one feasible contribution segment funding the given
// payment dates. The payments slice is consumed; callers that need the
// original set must pass a copy.
func solveSegment(value decimal.Decimal, rule Rule, payments []Date, start Date, end *Date) (Contribution, error) {
	// Detach the window end from the caller; the search narrows it freely.
	if end != nil {
		e := *end
		end = &e
	}

	var fence Date
	fenceSet := false

	for {
		// Crossing the fence means every viable start has been tried.
		if fenceSet && start.After(fence) {
			return Contribution{}, ErrTooMuchRecursion
		}

		if len(payments) == 0 {
			return Contribution{}, ErrNoPayments
		}

		// The window end is either caller-defined or the last day of one
		// period. Length includes the start day itself.
		periodEnd := start.AddDays(rule.PeriodLength() - 1)
		if end != nil {
			periodEnd = *end
		}
		length := DaysBetween(start, periodEnd) + 1

		if !fenceSet {
			fence = periodEnd
			fenceSet = true
		}

		sortDates(payments)

		// Never fund payments outside the window bounds.
		if payments[0].Before(start) {
			return Contribution{}, &OutOfBoundsError{Start: start, Boundary: periodEnd, Payment: payments[0]}
		}
		if end != nil && payments[len(payments)-1].After(*end) {
			return Contribution{}, &OutOfBoundsError{Start: start, Boundary: *end, Payment: payments[len(payments)-1]}
		}

		// Every day pays: the rate is simply the payment value.
		if len(payments) == length {
			return Contribution{Regular: value, Start: start, End: end, PeriodDays: length}, nil
		}

		regular, last, err := ratesFor(value, len(payments), length)
		if err != nil {
			return Contribution{}, err
		}

		// Case 1: idle days after the final payment.
		if payments[len(payments)-1].Before(periodEnd) {
			if end != nil {
				e := payments[len(payments)-1]
				end = &e
				continue
			}
			// Open-ended: rotate the first payment one period later and
			// restart the window at its date.
			first := payments[0]
			payments = append(payments[1:], first.AddDays(length))
			start = first.Next()
			continue
		}

		// Case 2: a payment on the start day has no lead time. Skip it for
		// this segment; a recurring window sees it again next period.
		if payments[0].Equal(start) {
			first := payments[0]
			payments = payments[1:]
			if end == nil {
				payments = append(payments, first.AddDays(length))
			}
			start = start.Next()
			continue
		}

		// Case 3: walk the payments accumulating the surplus or deficit of
		// actual spacing against the minimum spacing the rate can sustain.
		effective := regular
		if last != nil {
			effective = *last
		}
		// Rounded three places short of the rate precision: the division
		// amplifies the rates' own rounding error, and leftover noise here
		// would flip the sign of deltas that are exactly zero on paper.
		minLength := value.Sub(effective).DivRound(regular, RatePrecision-3).Add(decimal.NewFromInt(1))

		// The lag starts the day before the window so each step measures
		// payment-end to payment-end.
		lag := start.Prev()
		var firstPositive *Date
		cumulative := decimal.Zero

		for _, date := range payments {
			days := decimal.NewFromInt(int64(DaysBetween(lag, date)))
			delta := days.Sub(minLength)

			// Track the earliest date after which spacing stays generous;
			// it is the best candidate for a new start.
			if delta.Sign() <= 0 {
				firstPositive = nil
			} else if firstPositive == nil {
				d := lag
				firstPositive = &d
			}

			// A recovery from deficit to surplus makes the lag date a
			// sustainable cut point; no need to walk further.
			if cumulative.Sign() < 0 && cumulative.Add(delta).Sign() >= 0 {
				break
			}

			lag = date
			cumulative = cumulative.Add(delta)
		}

		if firstPositive != nil {
			// Drop (or rotate, when recurring) everything up to the recovery
			// point and restart the day after it.
			for len(payments) > 0 && !payments[0].After(*firstPositive) {
				first := payments[0]
				payments = payments[1:]
				if end == nil {
					payments = append(payments, first.AddDays(length))
				}
			}
			start = firstPositive.Next()
			continue
		}

		if cumulative.Sign() < 0 {
			// Last resort: shed the earliest payment entirely.
			if len(payments) > 0 {
				first := payments[0]
				payments = payments[1:]
				start = first.Next()
				continue
			}
			return Contribution{}, ErrUnresolvable
		}

		return Contribution{Regular: regular, Last: last, Start: start, End: end, PeriodDays: length}, nil
	}
}
