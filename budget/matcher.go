package budget

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fernbank/savings-engine/schedule"
)

// =============================================================================
// OBSERVED TRANSACTIONS AND MATCHING
// =============================================================================

// Transaction is an observed, real-world transaction: something that actually
// hit an account, as opposed to the modelled payments a schedule funds.
// Amounts are signed by the caller's convention; the engine treats positive
// amounts as money leaving the budget.
type Transaction struct {
	ID          int64
	Amount      decimal.Decimal
	Category    string
	Description string
	Date        schedule.Date
}

// Matcher decides which observed transactions a model is accountable for.
// Category matches whole, description matches on any of the listed
// substrings; both are case-insensitive. A criterion left empty is ignored,
// and a matcher with no criteria at all claims nothing.
type Matcher struct {
	Category     string
	Descriptions []string
}

// MatchCategory returns a matcher claiming all transactions in a category.
func MatchCategory(category string) Matcher {
	return Matcher{Category: category}
}

// WithCategory returns a copy of the matcher with the category criterion set.
func (m Matcher) WithCategory(category string) Matcher {
	m.Category = category
	return m
}

// WithDescription returns a copy of the matcher with an additional
// description substring criterion.
func (m Matcher) WithDescription(substr string) Matcher {
	descriptions := append([]string(nil), m.Descriptions...)
	m.Descriptions = append(descriptions, substr)
	return m
}

// Matches reports whether the transaction satisfies every configured
// criterion.
func (m Matcher) Matches(tx Transaction) bool {
	if m.Category == "" && len(m.Descriptions) == 0 {
		return false
	}
	if m.Category != "" && !strings.EqualFold(m.Category, tx.Category) {
		return false
	}
	if len(m.Descriptions) == 0 {
		return true
	}
	description := strings.ToLower(tx.Description)
	for _, substr := range m.Descriptions {
		if strings.Contains(description, strings.ToLower(substr)) {
			return true
		}
	}
	return false
}
