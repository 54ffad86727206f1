package core

import "strings"

// amountTolerance is how far apart two amounts may be and still match.
const amountTolerance = 1 // cent

// SearchCriteria narrows a transaction search. Specific filters (Amount,
// Merchant, Date) take precedence over the free-text Query.
type SearchCriteria struct {
	Query    string `json:"query,omitempty"`
	Amount   *Money `json:"amount,omitempty"`
	Merchant string `json:"merchant,omitempty"`
	Date     string `json:"date,omitempty"`
}

func (c SearchCriteria) hasFilters() bool {
	return c.Amount != nil || c.Merchant != "" || c.Date != ""
}

// SearchExpenses returns the expenses matching c in their original order.
//
// With any specific filter set, every set filter must match: amount within a
// cent, merchant as a case-insensitive substring, date exactly. Otherwise the
// lowercased query must occur in the merchant, category, description or
// amount text.
func SearchExpenses(expenses []Expense, c SearchCriteria) []Expense {
	var out []Expense
	if c.hasFilters() {
		merchant := strings.ToLower(c.Merchant)
		for _, e := range expenses {
			if c.Amount != nil && abs(e.Amount.Cents-c.Amount.Cents) > amountTolerance {
				continue
			}
			if merchant != "" && !strings.Contains(strings.ToLower(e.Merchant), merchant) {
				continue
			}
			if c.Date != "" && e.Date != c.Date {
				continue
			}
			out = append(out, e)
		}
		return out
	}

	q := strings.ToLower(c.Query)
	for _, e := range expenses {
		if strings.Contains(strings.ToLower(e.Merchant), q) ||
			strings.Contains(strings.ToLower(e.Category), q) ||
			strings.Contains(strings.ToLower(e.Description), q) ||
			strings.Contains(e.Amount.String(), q) {
			out = append(out, e)
		}
	}
	return out
}

// Listable drops ledger rows that are not real expenses: rows without an id,
// and rows with no positive amount and no merchant.
func Listable(expenses []Expense) []Expense {
	out := make([]Expense, 0, len(expenses))
	for _, e := range expenses {
		if e.ID == "" {
			continue
		}
		if e.Amount.Cents <= 0 && strings.TrimSpace(e.Merchant) == "" {
			continue
		}
		out = append(out, e)
	}
	return out
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
