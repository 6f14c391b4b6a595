/*
Package budget models future transactions and funds them with contribution
schedules.

PURPOSE:
  The schedule package computes how to set money aside for a stream of
  payments; this package wraps that core into the objects an application
  works with:

  - Model:       a recurring (or one-off) future transaction, with the
                 matcher that ties it to real account activity and the
                 contribution chain that funds it.
  - Transaction: an observed, real-world transaction.
  - Matcher:     category/description matching of transactions to models.
  - Affordability: day-level aggregation of contribution rates and observed
                 spending across a set of models.
  - Ameliorate:  absorb an overspend by cutting the active segment short and
                 scheduling a one-off recovery.

LIFECYCLE:
  Models are recalculated wholesale: the segment chain is never patched in
  place. NewModel and Recalculate both rebuild the chain from scratch for a
  given reference date, so persisting the calculation date is enough to
  reproduce the exact schedule later.

USAGE:
  value := budget.FixedValue(decimal.NewFromInt(50))
  rule := schedule.MonthlyByDate(1, 28)
  model, err := budget.NewModel("rent insurance", value, rule, start, nil, today)

  rate := model.RateOn(today)  // amount to set aside today

SEE ALSO:
  - schedule/builder.go: the chain computation Models delegate to
  - store/sqlite: persistence for models and observed transactions
*/
package budget

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/fernbank/savings-engine/schedule"
)

// maxWindowDays caps a model's funding window at ten years. Schedules beyond
// that horizon are dominated by recurrence drift and are rejected outright.
const maxWindowDays = 3652 // int(365.25 * 10), truncated

var (
	// ErrExcessiveDateRange is returned when a model's end date lies more
	// than ten years past its calculation date.
	ErrExcessiveDateRange = errors.New("date ranges greater than ten years are unsupported")

	// ErrOutsideSchedule is returned when an amelioration date is not
	// covered by the model's trailing segment.
	ErrOutsideSchedule = errors.New("date falls outside the model's contribution schedule")
)

// =============================================================================
// TRANSACTION VALUE
// =============================================================================

// Value is the monetary size of a modelled transaction: either fixed, or
// variable within known bounds. Schedules fund the guaranteed part, so a
// variable value is funded at its lower bound.
type Value struct {
	lower    decimal.Decimal
	upper    decimal.Decimal
	variable bool
}

// FixedValue is a transaction of a known, constant amount.
func FixedValue(amount decimal.Decimal) Value {
	return Value{lower: amount, upper: amount}
}

// VariableValue is a transaction expected to fall between lower and upper.
func VariableValue(lower, upper decimal.Decimal) Value {
	return Value{lower: lower, upper: upper, variable: true}
}

// Funded returns the amount a schedule sets aside per payment.
func (v Value) Funded() decimal.Decimal { return v.lower }

// Bounds returns the expected range of the transaction amount.
func (v Value) Bounds() (lower, upper decimal.Decimal) { return v.lower, v.upper }

// IsVariable reports whether the amount is only known as a range.
func (v Value) IsVariable() bool { return v.variable }

// =============================================================================
// MODEL - A modelled future transaction and the schedule funding it
// =============================================================================

// Model is a future transaction the budget must fund: what it costs (Value),
// when it recurs (Rule), how to recognize it in real account activity
// (Matcher), and the contribution chain currently funding it (Segments).
//
// Ameliorations hold one-off recovery segments layered on top of the chain
// after an overspend; RateOn sums both.
type Model struct {
	ID      int64
	Name    string
	Matcher Matcher
	Value   Value
	Rule    schedule.Rule
	Start   schedule.Date
	End     *schedule.Date

	// CalculationDate is the reference date the chain was built against.
	// Rebuilding with the same date reproduces Segments exactly.
	CalculationDate schedule.Date
	Segments        []schedule.Contribution
	Ameliorations   []schedule.Contribution
}

// NewModel builds a model and its initial contribution chain. start is the
// first payment date, end bounds the recurrence (nil for open-ended) and now
// is the reference date contributions may begin on.
func NewModel(name string, value Value, rule schedule.Rule, start schedule.Date, end *schedule.Date, now schedule.Date) (*Model, error) {
	m := &Model{
		Name:  name,
		Value: value,
		Rule:  rule,
		Start: start,
		End:   end,
	}
	if err := m.Recalculate(now); err != nil {
		return nil, err
	}
	return m, nil
}

// Recalculate rebuilds the contribution chain from scratch against a new
// reference date. The previous chain and any ameliorations are discarded,
// never patched.
func (m *Model) Recalculate(now schedule.Date) error {
	if m.End != nil && schedule.DaysBetween(now, *m.End) > maxWindowDays {
		return ErrExcessiveDateRange
	}
	segments, err := schedule.Build(m.Value.Funded(), m.Rule, m.Start, m.End, now)
	if err != nil {
		return err
	}
	m.CalculationDate = now
	m.Segments = segments
	m.Ameliorations = nil
	return nil
}

// RateOn returns the total amount the model sets aside on a date, summing
// the contribution chain and any active recovery segments. Dates the model
// does not cover yield zero.
func (m *Model) RateOn(date schedule.Date) decimal.Decimal {
	total := decimal.Zero
	for _, c := range m.Segments {
		if rate, ok := c.RateOn(date); ok {
			total = total.Add(rate)
		}
	}
	for _, c := range m.Ameliorations {
		if rate, ok := c.RateOn(date); ok {
			total = total.Add(rate)
		}
	}
	return total
}

// ActiveOn reports whether any segment of the model covers the date.
func (m *Model) ActiveOn(date schedule.Date) bool {
	for _, c := range m.Segments {
		if _, ok := c.RateOn(date); ok {
			return true
		}
	}
	return false
}
