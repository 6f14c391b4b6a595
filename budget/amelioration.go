package budget

import (
	"github.com/shopspring/decimal"

	"github.com/fernbank/savings-engine/schedule"
)

// =============================================================================
// AMELIORATION - Absorb an overspend without rebuilding the whole model
// =============================================================================

// Ameliorate splits the model at an overspend date. The trailing segment is
// cut short on that date, a one-off recovery schedule restores the shortfall
// plus the period's outstanding contributions by the period end, and the
// regular schedule resumes re-solved from the day after.
//
// amount is how far the pot fell behind, in the model's currency. The date
// must fall inside the trailing segment; earlier segments are settled history
// and cannot be reopened. On error the model is left unchanged.
func (m *Model) Ameliorate(amount decimal.Decimal, on schedule.Date) error {
	if len(m.Segments) == 0 {
		return ErrOutsideSchedule
	}
	tail := m.Segments[len(m.Segments)-1]
	if on.Before(tail.Start) || (tail.End != nil && on.After(*tail.End)) {
		return ErrOutsideSchedule
	}

	// The recovery is due when the current period's payment falls; an
	// overspend on the payment day itself gets the following period as lead
	// time.
	due := tail.PeriodEndOn(on)
	if due.Equal(on) {
		due = on.AddDays(tail.PeriodDays)
	}

	// The trailing segment stops contributing after the cut, so the recovery
	// must carry its outstanding share of the period as well as the
	// overspend itself.
	outstanding := decimal.Zero
	for d := on.Next(); d.BeforeOrEqual(due); d = d.Next() {
		if rate, ok := tail.RateOn(d); ok {
			outstanding = outstanding.Add(rate)
		}
	}
	shortfall := amount.Add(outstanding)

	var recovery []schedule.Contribution
	if shortfall.Sign() > 0 {
		var err error
		recovery, err = schedule.Build(shortfall, schedule.Once(), due, nil, on.Next())
		if err != nil {
			return err
		}
	}

	resumed, err := m.resumeAfter(due)
	if err != nil {
		return err
	}

	cut := on
	m.Segments[len(m.Segments)-1].End = &cut
	m.Segments = append(m.Segments, resumed...)
	m.Ameliorations = append(m.Ameliorations, recovery...)
	return nil
}

// resumeAfter re-solves the model's own rule for the payments falling after
// a date, with contributions restarting the day after it. Returns an empty
// chain when no payments remain.
func (m *Model) resumeAfter(due schedule.Date) ([]schedule.Contribution, error) {
	if m.Rule.Kind() == schedule.KindOnce {
		return nil, nil
	}
	from := due.Next()
	if m.End != nil && from.After(*m.End) {
		return nil, nil
	}

	// One period length past the cut is enough horizon to catch the next
	// payment; anchoring the scan at the model start keeps the recurrence
	// phase intact.
	horizon := due.AddDays(m.Rule.PeriodLength())
	if m.End != nil && m.End.Before(horizon) {
		horizon = *m.End
	}
	var anchor *schedule.Date
	for _, p := range m.Rule.PaymentDates(m.Start, &horizon) {
		if p.After(due) {
			d := p
			anchor = &d
			break
		}
	}
	if anchor == nil {
		return nil, nil
	}
	return schedule.Build(m.Value.Funded(), m.Rule, *anchor, m.End, from)
}
