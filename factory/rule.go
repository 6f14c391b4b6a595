/*
Package factory provides JSON to Go recurrence rule conversion.

PURPOSE:
  Converts JSON rule definitions into schedule.Rule values and back. This
  enables rule configuration without code changes - clients define when a
  modelled transaction recurs in JSON, and the factory creates the proper
  Go values for the schedule engine.

JSON SCHEMA:
  {"type": "once"}
  {"type": "daily", "interval": 2}
  {"type": "weekly", "interval": 1, "weekdays": [1, 3, 5]}
  {"type": "monthly_by_date", "interval": 1, "month_days": [1, 15]}
  {"type": "monthly_by_rule", "interval": 1, "nth": 0, "day": "business_day"}
  {"type": "yearly", "interval": 1, "months": [2, 8]}
  {"type": "yearly_by_rule", "interval": 2, "nth": 1, "day": "saturday",
   "months": [6]}

  Weekdays are ISO numbered (Monday = 1). nth 0 means the last occurrence
  in the month; day accepts the seven weekday names plus "calendar_day",
  "business_day" and "weekend_day".

USAGE:
  rule, err := factory.ParseRule(body)

  blob, err := factory.EncodeRule(model.Rule)

SEE ALSO:
  - schedule/rule.go: Rule type and constructors
  - api/dto.go: request/response bodies embedding RuleJSON
*/
package factory

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/fernbank/savings-engine/schedule"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RuleJSON is the JSON representation of a recurrence rule.
type RuleJSON struct {
	Type      string `json:"type"`
	Interval  int    `json:"interval,omitempty"`
	Weekdays  []int  `json:"weekdays,omitempty"`
	MonthDays []int  `json:"month_days,omitempty"`
	Months    []int  `json:"months,omitempty"`
	Nth       *int   `json:"nth,omitempty"` // 0 means the last occurrence
	Day       string `json:"day,omitempty"`
}

// ParseRule parses a JSON document into a schedule.Rule.
func ParseRule(data []byte) (schedule.Rule, error) {
	var rj RuleJSON
	if err := json.Unmarshal(data, &rj); err != nil {
		return schedule.Rule{}, fmt.Errorf("failed to parse rule JSON: %w", err)
	}
	return FromJSON(rj)
}

// EncodeRule serializes a schedule.Rule to its JSON document.
func EncodeRule(rule schedule.Rule) ([]byte, error) {
	return json.Marshal(ToJSON(rule))
}

// FromJSON converts RuleJSON to a schedule.Rule, validating every field the
// chosen type consumes. A missing interval defaults to 1.
func FromJSON(rj RuleJSON) (schedule.Rule, error) {
	interval := rj.Interval
	if interval == 0 {
		interval = 1
	}
	if interval < 1 {
		return schedule.Rule{}, fmt.Errorf("interval must be positive, got %d", rj.Interval)
	}

	switch rj.Type {
	case "once":
		return schedule.Once(), nil

	case "daily":
		return schedule.Daily(interval), nil

	case "weekly":
		if len(rj.Weekdays) == 0 {
			return schedule.Rule{}, fmt.Errorf("weekly rule requires weekdays")
		}
		for _, wd := range rj.Weekdays {
			if wd < 1 || wd > 7 {
				return schedule.Rule{}, fmt.Errorf("weekday out of range 1..7: %d", wd)
			}
		}
		return schedule.Weekly(interval, rj.Weekdays...), nil

	case "monthly_by_date":
		if len(rj.MonthDays) == 0 {
			return schedule.Rule{}, fmt.Errorf("monthly_by_date rule requires month_days")
		}
		for _, d := range rj.MonthDays {
			if d < 1 || d > 31 {
				return schedule.Rule{}, fmt.Errorf("month day out of range 1..31: %d", d)
			}
		}
		return schedule.MonthlyByDate(interval, rj.MonthDays...), nil

	case "monthly_by_rule":
		nth, day, err := parseOccurrence(rj)
		if err != nil {
			return schedule.Rule{}, err
		}
		return schedule.MonthlyByRule(interval, nth, day), nil

	case "yearly":
		months, err := parseMonths(rj.Months)
		if err != nil {
			return schedule.Rule{}, err
		}
		return schedule.Yearly(interval, months...), nil

	case "yearly_by_rule":
		months, err := parseMonths(rj.Months)
		if err != nil {
			return schedule.Rule{}, err
		}
		nth, day, err := parseOccurrence(rj)
		if err != nil {
			return schedule.Rule{}, err
		}
		return schedule.YearlyByRule(interval, nth, day, months...), nil

	default:
		return schedule.Rule{}, fmt.Errorf("unknown rule type: %q", rj.Type)
	}
}

// ToJSON converts a schedule.Rule to RuleJSON.
func ToJSON(rule schedule.Rule) RuleJSON {
	rj := RuleJSON{Interval: rule.Interval()}

	switch rule.Kind() {
	case schedule.KindOnce:
		rj.Type = "once"
		rj.Interval = 0
	case schedule.KindDaily:
		rj.Type = "daily"
	case schedule.KindWeekly:
		rj.Type = "weekly"
		rj.Weekdays = rule.Weekdays()
	case schedule.KindMonthlyByDate:
		rj.Type = "monthly_by_date"
		rj.MonthDays = rule.MonthDays()
	case schedule.KindMonthlyByRule:
		rj.Type = "monthly_by_rule"
		nth, day, _ := rule.Nth()
		rj.Nth = &nth
		rj.Day = day.String()
	case schedule.KindYearly:
		rj.Type = "yearly"
		for _, m := range rule.Months() {
			rj.Months = append(rj.Months, int(m))
		}
		if nth, day, ok := rule.Nth(); ok {
			rj.Type = "yearly_by_rule"
			rj.Nth = &nth
			rj.Day = day.String()
		}
	}
	return rj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseOccurrence(rj RuleJSON) (int, schedule.DayRule, error) {
	if rj.Nth == nil {
		return 0, 0, fmt.Errorf("%s rule requires nth", rj.Type)
	}
	nth := *rj.Nth
	if nth < 0 || nth > 5 {
		return 0, 0, fmt.Errorf("nth out of range 0..5: %d", nth)
	}
	day, err := parseDayRule(rj.Day)
	if err != nil {
		return 0, 0, err
	}
	return nth, day, nil
}

func parseDayRule(s string) (schedule.DayRule, error) {
	switch s {
	case "monday":
		return schedule.Monday, nil
	case "tuesday":
		return schedule.Tuesday, nil
	case "wednesday":
		return schedule.Wednesday, nil
	case "thursday":
		return schedule.Thursday, nil
	case "friday":
		return schedule.Friday, nil
	case "saturday":
		return schedule.Saturday, nil
	case "sunday":
		return schedule.Sunday, nil
	case "calendar_day":
		return schedule.CalendarDay, nil
	case "business_day":
		return schedule.BusinessDay, nil
	case "weekend_day":
		return schedule.WeekendDay, nil
	default:
		return 0, fmt.Errorf("unknown day rule: %q", s)
	}
}

func parseMonths(months []int) ([]time.Month, error) {
	if len(months) == 0 {
		return nil, fmt.Errorf("yearly rules require months")
	}
	out := make([]time.Month, 0, len(months))
	for _, m := range months {
		if m < 1 || m > 12 {
			return nil, fmt.Errorf("month out of range 1..12: %d", m)
		}
		out = append(out, time.Month(m))
	}
	return out, nil
}
