package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format for expense and budget dates.
const DateLayout = "2006-01-02"

const (
	DefaultCategory = "Uncategorized"
	DefaultMerchant = "Unknown"
)

type (
	// Expense is a single spending record as stored in the ledger.
	Expense struct {
		ID          string `json:"id"`
		Amount      Money  `json:"amount"`
		Category    string `json:"category"`
		Merchant    string `json:"merchant"`
		Date        string `json:"date"`
		Description string `json:"description"`
		CreatedTime string `json:"created_time,omitempty"`
	}

	ExpenseCreate struct {
		Amount      Money  `json:"amount"`
		Category    string `json:"category"`
		Merchant    string `json:"merchant"`
		Date        string `json:"date"`
		Description string `json:"description"`
	}

	// ExpenseUpdate carries the fields to change; nil fields are left alone.
	ExpenseUpdate struct {
		Amount      *Money  `json:"amount,omitempty"`
		Category    *string `json:"category,omitempty"`
		Merchant    *string `json:"merchant,omitempty"`
		Date        *string `json:"date,omitempty"`
		Description *string `json:"description,omitempty"`
	}

	// Budget is a spending limit for one category over a recurring period.
	// Remaining and Percentage are derived from Amount and Spent.
	Budget struct {
		ID          string  `json:"id"`
		Category    string  `json:"category"`
		Amount      Money   `json:"amount"`
		Period      Period  `json:"period"`
		StartDate   string  `json:"start_date,omitempty"`
		Spent       Money   `json:"spent"`
		Remaining   Money   `json:"remaining"`
		Percentage  float64 `json:"percentage"`
		CreatedTime string  `json:"created_time,omitempty"`
	}

	BudgetCreate struct {
		Category  string `json:"category"`
		Amount    Money  `json:"amount"`
		Period    Period `json:"period"`
		StartDate string `json:"start_date,omitempty"`
	}

	BudgetUpdate struct {
		Category  *string `json:"category,omitempty"`
		Amount    *Money  `json:"amount,omitempty"`
		Period    *Period `json:"period,omitempty"`
		StartDate *string `json:"start_date,omitempty"`
		Spent     *Money  `json:"spent,omitempty"`
	}
)

var (
	ErrInvalidAmount  = errors.New("amount must be greater than 0")
	ErrInvalidDate    = errors.New("date must be in YYYY-MM-DD format")
	ErrEmptyCategory  = errors.New("category cannot be empty")
	ErrEmptyMerchant  = errors.New("merchant cannot be empty")
	ErrInvalidPeriod  = errors.New("period must be monthly, weekly or yearly")
	ErrNegativeSpent  = errors.New("spent cannot be negative")
	ErrDescriptionLen = errors.New("description too long (max 500 characters)")
)

// IsValidation reports whether err is an input validation failure.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidAmount, ErrInvalidDate, ErrEmptyCategory, ErrEmptyMerchant,
		ErrInvalidPeriod, ErrNegativeSpent, ErrDescriptionLen, ErrInvalidReportType,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ParseDate parses a YYYY-MM-DD string in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

func (e ExpenseCreate) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(e.Merchant) == "" {
		return ErrEmptyMerchant
	}
	if _, err := ParseDate(e.Date); err != nil {
		return err
	}
	if len(e.Description) > 500 {
		return ErrDescriptionLen
	}
	return nil
}

func (u ExpenseUpdate) Validate() error {
	if u.Amount != nil {
		if err := u.Amount.Validate(); err != nil {
			return err
		}
	}
	if u.Category != nil && strings.TrimSpace(*u.Category) == "" {
		return ErrEmptyCategory
	}
	if u.Merchant != nil && strings.TrimSpace(*u.Merchant) == "" {
		return ErrEmptyMerchant
	}
	if u.Date != nil {
		if _, err := ParseDate(*u.Date); err != nil {
			return err
		}
	}
	if u.Description != nil && len(*u.Description) > 500 {
		return ErrDescriptionLen
	}
	return nil
}

// Apply returns a copy of e with the update's fields set.
func (u ExpenseUpdate) Apply(e Expense) Expense {
	if u.Amount != nil {
		e.Amount = *u.Amount
	}
	if u.Category != nil {
		e.Category = *u.Category
	}
	if u.Merchant != nil {
		e.Merchant = *u.Merchant
	}
	if u.Date != nil {
		e.Date = *u.Date
	}
	if u.Description != nil {
		e.Description = *u.Description
	}
	return e
}

// WithDefaults fills the display defaults for blank category and merchant.
func (e Expense) WithDefaults() Expense {
	if strings.TrimSpace(e.Category) == "" {
		e.Category = DefaultCategory
	}
	if strings.TrimSpace(e.Merchant) == "" {
		e.Merchant = DefaultMerchant
	}
	return e
}

func (b BudgetCreate) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if b.Period != "" && !b.Period.Valid() {
		return ErrInvalidPeriod
	}
	if b.StartDate != "" {
		if _, err := ParseDate(b.StartDate); err != nil {
			return err
		}
	}
	return nil
}

func (u BudgetUpdate) Validate() error {
	if u.Category != nil && strings.TrimSpace(*u.Category) == "" {
		return ErrEmptyCategory
	}
	if u.Amount != nil {
		if err := u.Amount.Validate(); err != nil {
			return err
		}
	}
	if u.Period != nil && !u.Period.Valid() {
		return ErrInvalidPeriod
	}
	if u.StartDate != nil {
		if _, err := ParseDate(*u.StartDate); err != nil {
			return err
		}
	}
	if u.Spent != nil && u.Spent.Cents < 0 {
		return ErrNegativeSpent
	}
	return nil
}

// Apply returns a copy of b with the update's fields set and derived fields refreshed.
func (u BudgetUpdate) Apply(b Budget) Budget {
	if u.Category != nil {
		b.Category = *u.Category
	}
	if u.Amount != nil {
		b.Amount = *u.Amount
	}
	if u.Period != nil {
		b.Period = *u.Period
	}
	if u.StartDate != nil {
		b.StartDate = *u.StartDate
	}
	if u.Spent != nil {
		b.Spent = *u.Spent
	}
	return b.Derive()
}

// Derive recomputes Remaining and Percentage from Amount and Spent.
func (b Budget) Derive() Budget {
	if b.Period == "" {
		b.Period = PeriodMonthly
	}
	b.Remaining = b.Amount.Sub(b.Spent)
	b.Percentage = b.Spent.Percent(b.Amount)
	return b
}
