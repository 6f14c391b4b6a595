/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  All monetary fields travel as decimal strings ("12.50"), never JSON
  numbers - float64 cannot carry the engine's 16-place rates. Dates are
  ISO YYYY-MM-DD strings.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/rule.go: RuleJSON type
*/
package api

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fernbank/savings-engine/budget"
	"github.com/fernbank/savings-engine/factory"
	"github.com/fernbank/savings-engine/schedule"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// ValueDTO represents a transaction value. Amount carries a fixed value;
// Lower/Upper carry a variable one. The two forms are mutually exclusive.
type ValueDTO struct {
	Amount string `json:"amount,omitempty"`
	Lower  string `json:"lower,omitempty"`
	Upper  string `json:"upper,omitempty"`
}

// SegmentDTO represents one contribution segment in API responses.
type SegmentDTO struct {
	Regular    string  `json:"regular"`
	Last       *string `json:"last,omitempty"`
	Start      string  `json:"start"`
	End        *string `json:"end,omitempty"`
	PeriodDays int     `json:"period_days"`
}

// ModelDTO represents a transaction model in API responses.
type ModelDTO struct {
	ID              int64            `json:"id"`
	Name            string           `json:"name"`
	Category        string           `json:"category,omitempty"`
	Descriptions    []string         `json:"descriptions,omitempty"`
	Value           ValueDTO         `json:"value"`
	Rule            factory.RuleJSON `json:"rule"`
	Start           string           `json:"start"`
	End             *string          `json:"end,omitempty"`
	CalculationDate string           `json:"calculation_date"`
	Segments        []SegmentDTO     `json:"segments"`
	Ameliorations   []SegmentDTO     `json:"ameliorations,omitempty"`
}

// CreateModelRequest is the request to create a model. AsOf is the reference
// date contributions may begin on; it defaults to today.
type CreateModelRequest struct {
	Name         string           `json:"name"`
	Category     string           `json:"category,omitempty"`
	Descriptions []string         `json:"descriptions,omitempty"`
	Value        ValueDTO         `json:"value"`
	Rule         factory.RuleJSON `json:"rule"`
	Start        string           `json:"start"`
	End          *string          `json:"end,omitempty"`
	AsOf         string           `json:"as_of,omitempty"`
}

// RecalculateRequest is the request to rebuild a model's chain.
type RecalculateRequest struct {
	AsOf string `json:"as_of,omitempty"`
}

// AmeliorateRequest is the request to absorb an overspend.
type AmeliorateRequest struct {
	Amount string `json:"amount"`
	Date   string `json:"date"`
}

// PreviewRequest is the request to compute a schedule without persisting a
// model.
type PreviewRequest struct {
	Value ValueDTO         `json:"value"`
	Rule  factory.RuleJSON `json:"rule"`
	Start string           `json:"start"`
	End   *string          `json:"end,omitempty"`
	AsOf  string           `json:"as_of,omitempty"`
}

// PreviewDTO is the computed schedule for a preview request.
type PreviewDTO struct {
	Segments []SegmentDTO `json:"segments"`
}

// RateDTO is a model's contribution rate on one date.
type RateDTO struct {
	Date string `json:"date"`
	Rate string `json:"rate"`
}

// TransactionDTO represents an observed transaction.
type TransactionDTO struct {
	ID          int64  `json:"id"`
	Amount      string `json:"amount"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date"`
}

// CreateTransactionRequest is the request to record an observed transaction.
type CreateTransactionRequest struct {
	Amount      string `json:"amount"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date"`
}

// DayBalanceDTO is one row of an affordability report.
type DayBalanceDTO struct {
	Date      string `json:"date"`
	Committed string `json:"committed"`
	Spent     string `json:"spent"`
	Balance   string `json:"balance"`
}

// AffordabilityDTO is the affordability report for a date window.
type AffordabilityDTO struct {
	From       string          `json:"from"`
	To         string          `json:"to"`
	Affordable bool            `json:"affordable"`
	Shortfall  *DayBalanceDTO  `json:"shortfall,omitempty"`
	Days       []DayBalanceDTO `json:"days"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toValueDTO(v budget.Value) ValueDTO {
	lower, upper := v.Bounds()
	if v.IsVariable() {
		return ValueDTO{Lower: lower.String(), Upper: upper.String()}
	}
	return ValueDTO{Amount: lower.String()}
}

func parseValue(dto ValueDTO) (budget.Value, error) {
	switch {
	case dto.Amount != "" && (dto.Lower != "" || dto.Upper != ""):
		return budget.Value{}, fmt.Errorf("value must be either fixed or a range, not both")
	case dto.Amount != "":
		amount, err := decimal.NewFromString(dto.Amount)
		if err != nil {
			return budget.Value{}, fmt.Errorf("invalid amount: %w", err)
		}
		return budget.FixedValue(amount), nil
	case dto.Lower != "" && dto.Upper != "":
		lower, err := decimal.NewFromString(dto.Lower)
		if err != nil {
			return budget.Value{}, fmt.Errorf("invalid lower bound: %w", err)
		}
		upper, err := decimal.NewFromString(dto.Upper)
		if err != nil {
			return budget.Value{}, fmt.Errorf("invalid upper bound: %w", err)
		}
		if upper.LessThan(lower) {
			return budget.Value{}, fmt.Errorf("upper bound below lower bound")
		}
		return budget.VariableValue(lower, upper), nil
	default:
		return budget.Value{}, fmt.Errorf("value requires amount or lower and upper")
	}
}

func toSegmentDTO(c schedule.Contribution) SegmentDTO {
	dto := SegmentDTO{
		Regular:    c.Regular.String(),
		Start:      c.Start.String(),
		PeriodDays: c.PeriodDays,
	}
	if c.Last != nil {
		last := c.Last.String()
		dto.Last = &last
	}
	if c.End != nil {
		end := c.End.String()
		dto.End = &end
	}
	return dto
}

func toSegmentDTOs(segments []schedule.Contribution) []SegmentDTO {
	dtos := make([]SegmentDTO, len(segments))
	for i, c := range segments {
		dtos[i] = toSegmentDTO(c)
	}
	return dtos
}

func toModelDTO(m *budget.Model) ModelDTO {
	dto := ModelDTO{
		ID:              m.ID,
		Name:            m.Name,
		Category:        m.Matcher.Category,
		Descriptions:    m.Matcher.Descriptions,
		Value:           toValueDTO(m.Value),
		Rule:            factory.ToJSON(m.Rule),
		Start:           m.Start.String(),
		CalculationDate: m.CalculationDate.String(),
		Segments:        toSegmentDTOs(m.Segments),
	}
	if m.End != nil {
		end := m.End.String()
		dto.End = &end
	}
	if len(m.Ameliorations) > 0 {
		dto.Ameliorations = toSegmentDTOs(m.Ameliorations)
	}
	return dto
}

func toTransactionDTO(tx budget.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:          tx.ID,
		Amount:      tx.Amount.String(),
		Category:    tx.Category,
		Description: tx.Description,
		Date:        tx.Date.String(),
	}
}

func toDayBalanceDTO(d budget.DayBalance) DayBalanceDTO {
	return DayBalanceDTO{
		Date:      d.Date.String(),
		Committed: d.Committed.String(),
		Spent:     d.Spent.String(),
		Balance:   d.Balance.String(),
	}
}

func toAffordabilityDTO(r budget.AffordabilityReport) AffordabilityDTO {
	dto := AffordabilityDTO{
		From:       r.From.String(),
		To:         r.To.String(),
		Affordable: r.Affordable(),
		Days:       make([]DayBalanceDTO, len(r.Days)),
	}
	for i, d := range r.Days {
		dto.Days[i] = toDayBalanceDTO(d)
	}
	if short := r.Shortfall(); short != nil {
		s := toDayBalanceDTO(*short)
		dto.Shortfall = &s
	}
	return dto
}
