package budget

import (
	"github.com/shopspring/decimal"

	"github.com/fernbank/savings-engine/schedule"
)

// =============================================================================
// AFFORDABILITY - Day-level aggregation across models
// =============================================================================

// DayBalance is one row of an affordability report: what the schedules
// commit on a day, what actually left the budget, and the running balance.
type DayBalance struct {
	Date      schedule.Date
	Committed decimal.Decimal
	Spent     decimal.Decimal
	Balance   decimal.Decimal
}

// AffordabilityReport tracks a set of models against observed activity over
// a date window, day by day. Committed sums every model's contribution rate;
// Spent sums observed transactions claimed by at least one model's matcher,
// with the caller's sign convention (positive amounts drain the budget, so
// income enters as a negative amount). Balance accumulates Committed minus
// Spent.
type AffordabilityReport struct {
	From schedule.Date
	To   schedule.Date
	Days []DayBalance
}

// Affordability builds the report for the window [from, to]. A window over
// ten years long is rejected with ErrExcessiveDateRange; an inverted window
// yields an empty report.
func Affordability(models []*Model, transactions []Transaction, from, to schedule.Date) (AffordabilityReport, error) {
	report := AffordabilityReport{From: from, To: to}
	if schedule.DaysBetween(from, to) > maxWindowDays {
		return report, ErrExcessiveDateRange
	}

	spentByDay := make(map[string]decimal.Decimal)
	for _, tx := range transactions {
		if tx.Date.Before(from) || tx.Date.After(to) {
			continue
		}
		if !claimed(models, tx) {
			continue
		}
		key := tx.Date.String()
		spentByDay[key] = spentByDay[key].Add(tx.Amount)
	}

	balance := decimal.Zero
	for d := from; d.BeforeOrEqual(to); d = d.Next() {
		committed := decimal.Zero
		for _, m := range models {
			committed = committed.Add(m.RateOn(d))
		}
		spent := spentByDay[d.String()]
		balance = balance.Add(committed).Sub(spent)
		report.Days = append(report.Days, DayBalance{
			Date:      d,
			Committed: committed,
			Spent:     spent,
			Balance:   balance,
		})
	}
	return report, nil
}

// Affordable reports whether the running balance ever went negative: a
// budget is affordable when scheduled saving stays ahead of actual spending
// on every day of the window.
func (r AffordabilityReport) Affordable() bool {
	return r.firstShortfall() == nil
}

// Shortfall returns the first day the running balance went negative, or nil
// when the window is affordable.
func (r AffordabilityReport) Shortfall() *DayBalance {
	return r.firstShortfall()
}

func (r AffordabilityReport) firstShortfall() *DayBalance {
	for i := range r.Days {
		if r.Days[i].Balance.Sign() < 0 {
			return &r.Days[i]
		}
	}
	return nil
}

func claimed(models []*Model, tx Transaction) bool {
	for _, m := range models {
		if m.Matcher.Matches(tx) {
			return true
		}
	}
	return false
}
