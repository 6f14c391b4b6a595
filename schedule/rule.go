/*
Package schedule computes self-funding savings schedules for future payments.

PURPOSE:
  Given a payment amount, a recurrence rule and a date window, the engine
  produces a chain of contribution segments: constant daily savings rates
  (with an optional one-day rounding adjustment) that are always sufficient,
  on every day, to cover every payment as it falls due, without ever going
  negative and without accumulating a permanent surplus.

KEY CONCEPTS:
  - Rule:         a compact recurrence description ("every 2nd Friday")
  - DayRule:      nth/last weekday, business day, weekend day or day number
  - Contribution: one constant-rate savings segment over a date range
  - Build:        the schedule entry point, chaining segments over a window

DESIGN PRINCIPLES:
  1. Purity: every operation is a function of its inputs; no I/O, no clocks
  2. Precision: decimal.Decimal everywhere money appears; the final day of a
     segment absorbs division rounding so totals balance exactly
  3. Determinism: identical inputs always produce identical schedules

SEE ALSO:
  - dayrule.go:      nth-day-of-month resolution
  - contribution.go: segment type and per-date rate lookup
  - solver.go:       the window-narrowing search for one feasible segment
  - builder.go:      chaining segments back from the last payment to now
*/
package schedule

import (
	"fmt"
	"math"
	"time"
)

// macroPeriodDays is the shortest span guaranteed to contain a fixed number
// of days regardless of leap years and month lengths: four years.
const macroPeriodDays = int(365.25 * 4)

// =============================================================================
// RULE - Recurrence of a payment
// =============================================================================

type RuleKind int

const (
	KindOnce RuleKind = iota
	KindDaily
	KindWeekly
	KindMonthlyByDate
	KindMonthlyByRule
	KindYearly
)

// Rule is a closed sum type describing when payments recur. Construct one via
// Once, Daily, Weekly, MonthlyByDate, MonthlyByRule, Yearly or YearlyByRule;
// a Rule is immutable once constructed.
type Rule struct {
	kind      RuleKind
	interval  int          // every n days/weeks/months/years
	weekdays  []int        // Weekly: ISO weekdays, Monday = 1 .. Sunday = 7
	monthDays []int        // MonthlyByDate: day numbers 1..31
	months    []time.Month // Yearly: qualifying months
	nth       int          // MonthlyByRule / YearlyByRule: occurrence, 0 = last
	day       DayRule      // MonthlyByRule / YearlyByRule
	hasDay    bool         // Yearly: whether nth/day are set
}

// Once is a single payment on the start date.
func Once() Rule { return Rule{kind: KindOnce} }

// Daily recurs every n days.
func Daily(n int) Rule { return Rule{kind: KindDaily, interval: n} }

// Weekly recurs every n weeks on the given ISO weekdays (Monday = 1).
func Weekly(n int, weekdays ...int) Rule {
	return Rule{kind: KindWeekly, interval: n, weekdays: weekdays}
}

// MonthlyByDate recurs every n months on the given day numbers. Day numbers
// with no occurrence in a month (day 30 in February) are silently skipped.
func MonthlyByDate(n int, days ...int) Rule {
	return Rule{kind: KindMonthlyByDate, interval: n, monthDays: days}
}

// MonthlyByRule recurs every n months on the nth (or last, nth = NthLast)
// occurrence of the day rule.
func MonthlyByRule(n, nth int, day DayRule) Rule {
	return Rule{kind: KindMonthlyByRule, interval: n, nth: nth, day: day}
}

// Yearly recurs every n years in the given months, on the start date's day
// number.
func Yearly(n int, months ...time.Month) Rule {
	return Rule{kind: KindYearly, interval: n, months: months}
}

// YearlyByRule recurs every n years in the given months, on the nth (or last)
// occurrence of the day rule.
func YearlyByRule(n, nth int, day DayRule, months ...time.Month) Rule {
	return Rule{kind: KindYearly, interval: n, months: months, nth: nth, day: day, hasDay: true}
}

// Accessors (the fields themselves stay immutable).
func (r Rule) Kind() RuleKind        { return r.kind }
func (r Rule) Interval() int         { return r.interval }
func (r Rule) Weekdays() []int       { return append([]int(nil), r.weekdays...) }
func (r Rule) MonthDays() []int      { return append([]int(nil), r.monthDays...) }
func (r Rule) Months() []time.Month  { return append([]time.Month(nil), r.months...) }
func (r Rule) Nth() (int, DayRule, bool) {
	if r.kind == KindMonthlyByRule || (r.kind == KindYearly && r.hasDay) {
		return r.nth, r.day, true
	}
	return 0, 0, false
}

func (r Rule) String() string {
	switch r.kind {
	case KindOnce:
		return "once"
	case KindDaily:
		return fmt.Sprintf("every %d day(s)", r.interval)
	case KindWeekly:
		return fmt.Sprintf("every %d week(s) on %v", r.interval, r.weekdays)
	case KindMonthlyByDate:
		return fmt.Sprintf("every %d month(s) on dates %v", r.interval, r.monthDays)
	case KindMonthlyByRule:
		return fmt.Sprintf("every %d month(s) on nth=%d %s", r.interval, r.nth, r.day)
	case KindYearly:
		return fmt.Sprintf("every %d year(s) in %v", r.interval, r.months)
	default:
		return "unknown"
	}
}

// =============================================================================
// PERIOD LENGTH
// =============================================================================

// PeriodLength returns the rule's period in days. This sizes the default
// contribution window when no explicit end date is given.
//
// An "every n days" cadence spans n+1 calendar days inclusive of both
// endpoints: days 1 and 3 of a 2-day cadence are a 3-day period. Month and
// year based rules are smoothed to multiples of the 4-year macro period so a
// single daily rate covers unequal month lengths and leap years.
func (r Rule) PeriodLength() int {
	switch r.kind {
	case KindOnce:
		return 1
	case KindDaily:
		return r.interval + 1
	case KindWeekly:
		return 7 * r.interval
	case KindMonthlyByDate, KindMonthlyByRule:
		return toMacroPeriods(float64(r.interval) * 365.25 / 12)
	case KindYearly:
		return toMacroPeriods(float64(r.interval) * 365.25)
	default:
		return 1
	}
}

// toMacroPeriods rounds a naive day count up to a whole number of macro
// periods.
func toMacroPeriods(days float64) int {
	n := int(math.Ceil(days / float64(macroPeriodDays)))
	return n * macroPeriodDays
}

// =============================================================================
// PAYMENT DATE EXPANSION
// =============================================================================

// PaymentDates expands the rule to the ordered set of concrete payment dates
// in [start, end]. When end is nil the window defaults to one period from
// start: yesterday + period length, so the first day of the next period is
// excluded (Monday + 1 week is a Monday, but this period ends on Sunday).
func (r Rule) PaymentDates(start Date, end *Date) []Date {
	periodEnd := start.Prev().AddDays(r.PeriodLength())
	until := periodEnd
	if end != nil {
		until = *end
	}

	switch r.kind {
	case KindOnce:
		return []Date{start}

	case KindDaily:
		return datesAtInterval(r.interval, start, until)

	case KindWeekly:
		return r.weeklyDates(start, until)

	case KindMonthlyByDate:
		var dates []Date
		for _, my := range monthsAtInterval(r.interval, start, until) {
			for _, d := range r.monthDays {
				if d < 1 || d > DaysInMonth(my.year, my.month) {
					continue
				}
				date := NewDate(my.year, my.month, d)
				if date.AfterOrEqual(start) && date.BeforeOrEqual(until) {
					dates = append(dates, date)
				}
			}
		}
		// Days iterate inside months, so the merge needs a reshuffle.
		sortDates(dates)
		return dates

	case KindMonthlyByRule:
		var dates []Date
		for _, my := range monthsAtInterval(r.interval, start, until) {
			if date, ok := r.day.Resolve(my.year, my.month, r.nth); ok {
				if date.AfterOrEqual(start) && date.BeforeOrEqual(until) {
					dates = append(dates, date)
				}
			}
		}
		return dates

	case KindYearly:
		return r.yearlyDates(start, until)
	}

	return nil
}

func (r Rule) weeklyDates(start, end Date) []Date {
	interval := 7 * r.interval

	// If the start date's weekday is past every requested weekday, the cadence
	// begins next week rather than a full interval away: starting Saturday
	// with payments on Tuesdays means the first Tuesday is next week.
	maxDay := 0
	for _, d := range r.weekdays {
		if d > maxDay {
			maxDay = d
		}
	}
	weekdayInterval := interval
	if start.WeekdayNumber() > maxDay {
		weekdayInterval = 7
	}

	var dates []Date
	for _, day := range r.weekdays {
		first := incrementToWeekday(start, day, weekdayInterval)
		dates = append(dates, datesAtInterval(interval, first, end)...)
	}

	// Merged per-weekday streams arrive out of order.
	sortDates(dates)
	return dates
}

func (r Rule) yearlyDates(start, end Date) []Date {
	var dates []Date
	for year := start.Year(); year <= end.Year(); year++ {
		if (year-start.Year())%r.interval != 0 {
			continue
		}
		for _, m := range r.months {
			if r.hasDay {
				if date, ok := r.day.Resolve(year, m, r.nth); ok {
					if date.AfterOrEqual(start) && date.BeforeOrEqual(end) {
						dates = append(dates, date)
					}
				}
				continue
			}
			// No day rule: reuse the start date's day number, skipping
			// invalid combinations such as 31 June.
			if start.Day() > DaysInMonth(year, m) {
				continue
			}
			date := NewDate(year, m, start.Day())
			if date.AfterOrEqual(start) && date.BeforeOrEqual(end) {
				dates = append(dates, date)
			}
		}
	}
	return dates
}

// datesAtInterval steps from start by stepDays until end (inclusive).
func datesAtInterval(stepDays int, start, end Date) []Date {
	dates := []Date{start}
	for next := start.AddDays(stepDays); next.BeforeOrEqual(end); next = next.AddDays(stepDays) {
		dates = append(dates, next)
	}
	return dates
}

type monthYear struct {
	month time.Month
	year  int
}

// monthsAtInterval enumerates (month, year) pairs from start's month stepping
// by interval months until the end month is reached.
func monthsAtInterval(interval int, start, end Date) []monthYear {
	month := int(start.Month())
	year := start.Year()
	list := []monthYear{{time.Month(month), year}}

	for year < end.Year() || month+interval <= int(end.Month()) {
		month += interval
		if month > 12 {
			month -= 12
			year++
		}
		list = append(list, monthYear{time.Month(month), year})
	}
	return list
}
