package schedule

import "time"

// =============================================================================
// DAY RULE - "the nth (or last) X of the month" resolution
// =============================================================================

// DayRule names which kind of day a monthly or yearly occurrence targets:
// a specific weekday, a plain calendar day number, a business day (Mon-Fri)
// or a weekend day (Sat-Sun).
type DayRule int

const (
	Monday DayRule = iota + 1 // values 1..7 line up with ISO weekday numbers
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
	CalendarDay // the nth day number of the month
	BusinessDay // the nth Mon-Fri day of the month
	WeekendDay  // the nth Sat/Sun day of the month
)

// NthLast marks an occurrence index as "the last occurrence in the month".
const NthLast = 0

func (r DayRule) String() string {
	switch r {
	case Monday:
		return "monday"
	case Tuesday:
		return "tuesday"
	case Wednesday:
		return "wednesday"
	case Thursday:
		return "thursday"
	case Friday:
		return "friday"
	case Saturday:
		return "saturday"
	case Sunday:
		return "sunday"
	case CalendarDay:
		return "calendar_day"
	case BusinessDay:
		return "business_day"
	case WeekendDay:
		return "weekend_day"
	default:
		return "unknown"
	}
}

// weekdayNumber returns the ISO weekday for named-weekday rules, zero for the
// positional rules (calendar/business/weekend day).
func (r DayRule) weekdayNumber() int {
	if r >= Monday && r <= Sunday {
		return int(r)
	}
	return 0
}

// Resolve locates the nth occurrence of this rule within a month and returns
// it, or ok=false when the month has no such occurrence (e.g. a fifth Friday
// in a four-Friday month). nth = NthLast seeks the final occurrence. A missing
// occurrence is not an error: recurrence expansion simply skips that month.
func (r DayRule) Resolve(year int, month time.Month, nth int) (Date, bool) {
	first := NewDate(year, month, 1)
	weekday := first.WeekdayNumber()
	seekLast := nth == NthLast
	length := DaysInMonth(year, month)

	// Four weeks fit in any month. A weekday admits a fifth occurrence only
	// when its first occurrence lands inside the month's 0-3 days of surplus
	// beyond 28. Positional rules always admit five occurrences: every month
	// has at least 28 days, 20 business days and 8 weekend days.
	maxNth := 5
	if w := r.weekdayNumber(); w != 0 {
		firstOccurrence := incrementToWeekday(first, w, 7).Day()
		if firstOccurrence > length-28 {
			maxNth = 4
		}
	}

	if seekLast {
		nth = maxNth
	} else if nth > maxNth {
		return Date{}, false
	}

	switch {
	case r >= Monday && r <= Sunday:
		d := incrementToWeekday(first, r.weekdayNumber(), 7)
		return d.AddDays(7 * (nth - 1)), true

	case r == CalendarDay:
		if seekLast {
			return NewDate(year, month, length), true
		}
		return first.AddDays(nth - 1), true

	case r == BusinessDay && !seekLast:
		// A Sunday opening needs no weekend skip: Monday through Friday run
		// unbroken from day 2.
		if weekday == 7 {
			return NewDate(year, month, nth+1), true
		}
		// Offset the day number by day 1's misalignment from Monday; when the
		// target straddles a weekend, skip the two weekend days.
		offset := weekday - 1
		if nth+offset > 5 {
			nth += 2
		}
		return NewDate(year, month, nth), true

	case r == BusinessDay && seekLast:
		// Day 29 is the earliest day guaranteed to share day 1's weekday
		// across all month lengths, so measure the true excess from there and
		// pull back off any weekend landing.
		offset := length - 29
		lastWeekday := weekday + offset
		if lastWeekday > 7 {
			lastWeekday -= 7
		}
		if lastWeekday > 5 {
			offset -= lastWeekday - 5
		}
		return NewDate(year, month, 29+offset), true

	case r == WeekendDay && !seekLast:
		// How many non-weekend days precede the first weekend day.
		offset := 6 - weekday
		if weekday == 7 {
			offset = 0
		}
		// Each pair of weekend days beyond the first is separated by a five
		// day block of weekdays; when the month opens on Sunday the first
		// "pair" is already split, which the weekday/7 term accounts for.
		nthAdjusted := nth - 1 + weekday/7
		weekdays := nthAdjusted / 2 * 5
		return NewDate(year, month, nth+offset+weekdays), true

	case r == WeekendDay && seekLast:
		offset := length - 29
		lastWeekday := weekday + offset
		if lastWeekday > 7 {
			lastWeekday -= 7
		}
		if lastWeekday < 6 {
			offset -= lastWeekday
		}
		return NewDate(year, month, 29+offset), true
	}

	return Date{}, false
}

// incrementToWeekday rolls date forward to the requested ISO weekday. It only
// ever moves forward in time: when the weekday has already passed this week,
// it jumps ahead by intervalDays so that no occurrence lands before date.
func incrementToWeekday(date Date, day, intervalDays int) Date {
	weekday := date.WeekdayNumber()
	if day < weekday {
		day += intervalDays
	}
	return date.AddDays(day - weekday)
}
