package schedule

import (
	"github.com/shopspring/decimal"
)

// RatePrecision is the number of decimal places carried by contribution
// rates. The last day of a segment absorbs the division remainder, so segment
// totals balance exactly regardless of this precision.
const RatePrecision = 16

// =============================================================================
// CONTRIBUTION - One constant-rate savings segment
// =============================================================================

// Contribution is the daily amount to set aside towards upcoming payments
// over a contiguous date range. Regular applies on every day of the range
// except possibly the final day of each period, where Last (when non-nil)
// absorbs the division rounding so that
//
//	Regular * (days-1) + Last == payment value * payment count
//
// holds exactly. End == nil means the segment recurs forever, period by
// period.
type Contribution struct {
	Regular    decimal.Decimal
	Last       *decimal.Decimal
	Start      Date
	End        *Date
	PeriodDays int
}

// RateOn returns the contribution rate applicable on a date: Last on the
// final day of the period containing the date, Regular on any other covered
// day. ok is false when the date falls outside the segment.
func (c Contribution) RateOn(date Date) (decimal.Decimal, bool) {
	if date.Before(c.Start) {
		return decimal.Zero, false
	}
	periodEnd := c.PeriodEndOn(date)
	switch {
	case date.Equal(periodEnd):
		if c.Last != nil {
			return *c.Last, true
		}
		return c.Regular, true
	case date.Before(periodEnd):
		return c.Regular, true
	}
	return decimal.Zero, false
}

// PeriodEnd returns the end of the segment's first period.
func (c Contribution) PeriodEnd() Date {
	return c.PeriodEndOn(c.Start)
}

// PeriodEndOn returns the effective period end for a reference date. For a
// bounded segment that is the end date; for an open-ended one the reference
// date is rolled forward to the nearest period boundary.
func (c Contribution) PeriodEndOn(date Date) Date {
	if c.End != nil {
		return *c.End
	}
	diff := DaysBetween(c.Start, date) + 1
	rem := diff % c.PeriodDays
	if rem == 0 {
		// Already on a period boundary.
		return date
	}
	return date.AddDays(c.PeriodDays - rem)
}

// =============================================================================
// RATE CALCULATION
// =============================================================================

// ratesFor splits a run of payments evenly across a duration. When the
// division is inexact the final day carries the complement, so the pair
// always reproduces the total exactly. Rates that round to zero are rejected:
// they cannot represent a meaningful daily contribution.
func ratesFor(payment decimal.Decimal, numPayments, days int) (decimal.Decimal, *decimal.Decimal, error) {
	total := payment.Mul(decimal.NewFromInt(int64(numPayments)))
	d := decimal.NewFromInt(int64(days))

	regular := total.DivRound(d, RatePrecision)

	var last *decimal.Decimal
	if !regular.Mul(d).Equal(total) {
		l := total.Sub(regular.Mul(d.Sub(decimal.NewFromInt(1))))
		last = &l
	}

	if regular.IsZero() || (last != nil && last.IsZero()) {
		return decimal.Zero, nil, ErrApproachingZero
	}

	return regular, last, nil
}
