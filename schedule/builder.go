package schedule

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// SCHEDULE BUILDER - Chain segments from the last payment back to now
// =============================================================================

// Build computes the full contribution schedule for a payment value and
// recurrence rule: an ordered, contiguous, non-overlapping chain of segments
// covering now through the last payment (or forever, for open-ended rules).
//
// now fixes the reference date so the same inputs always rebuild the same
// chain; it must not fall after start.
//
// Each solver pass may shift its segment's start forward to keep the split
// balanced, leaving earlier payments unfunded. Those are re-solved against a
// window ending the day before the resolved start, with all the lead time
// from now; every iteration therefore funds progressively earlier
// obligations and prepends its segment, keeping the chain ordered.
func Build(value decimal.Decimal, rule Rule, start Date, end *Date, now Date) ([]Contribution, error) {
	if now.After(start) {
		return nil, ErrHistoricalStartDate
	}

	payments := rule.PaymentDates(start, end)

	// A bounded window is normalized to maximize lead time: start pulls back
	// to now and the end pulls in to the final payment. Open-ended recurring
	// windows must not be stretched this way - uneven periods would accrue a
	// surplus where breaking even is required.
	if rule.Kind() == KindOnce {
		e := start
		end = &e
		start = now
	} else if end != nil {
		if len(payments) == 0 {
			return nil, ErrNoPayments
		}
		start = now
		e := payments[len(payments)-1]
		end = &e
	}

	var chain []Contribution

	for len(payments) > 0 {
		// The solver consumes its payment slice; keep ours intact to track
		// payments earlier than the resolved start.
		working := append([]Date(nil), payments...)

		segment, err := solveSegment(value, rule, working, start, end)
		if err != nil {
			return nil, err
		}

		// Everything from the resolved start onward is funded; earlier
		// payments remain for the next pass.
		var remaining []Date
		for _, p := range payments {
			if p.Before(segment.Start) {
				remaining = append(remaining, p)
			}
		}
		payments = remaining

		// The next window runs from now to the day before this segment.
		start = now
		e := segment.Start.Prev()
		end = &e

		chain = append([]Contribution{segment}, chain...)
	}

	return chain, nil
}
