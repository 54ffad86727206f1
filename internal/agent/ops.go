package agent

import (
	"context"
	"errors"
	"fmt"

	"finagent/internal/core"
	"finagent/internal/log"
)

// ErrUnparseable is returned when free text does not yield a usable expense.
var ErrUnparseable = errors.New("could not parse expense from text")

// AddExpense parses text and records the expense directly, skipping planning.
func (a *Agent) AddExpense(ctx context.Context, text string) (*ExpenseParse, core.Expense, error) {
	parsed, err := a.ParseExpense(ctx, text)
	if err != nil {
		a.logger.WarnContext(ctx, "Expense parse failed", log.FieldError, err)
	}
	if parsed == nil {
		return nil, core.Expense{}, ErrUnparseable
	}
	created, err := a.expenses.CreateExpense(ctx, parsed.ToCreate())
	if err != nil {
		return parsed, core.Expense{}, fmt.Errorf("add expense: %w", err)
	}
	return parsed, created, nil
}

// GenerateReport summarizes the ledger's expenses.
func (a *Agent) GenerateReport(ctx context.Context, req core.ReportRequest) (core.Report, error) {
	if err := req.Validate(); err != nil {
		return core.Report{}, err
	}
	all, err := a.expenses.ListExpenses(ctx)
	if err != nil {
		return core.Report{}, fmt.Errorf("generate report: %w", err)
	}
	return core.BuildReport(core.Listable(all), req, a.now()), nil
}

// SaveReceipt records an expense from extracted receipt data, filling
// defaults for anything the receipt did not show.
func (a *Agent) SaveReceipt(ctx context.Context, r ReceiptData, filename string) (core.Expense, error) {
	in := core.ExpenseCreate{
		Amount:      r.Amount,
		Category:    orDefault(r.Category, "Other"),
		Merchant:    orDefault(r.Merchant, core.DefaultMerchant),
		Date:        r.Date,
		Description: orDefault(r.Description, "Receipt upload: "+filename),
	}
	if _, err := core.ParseDate(in.Date); err != nil {
		in.Date = a.today()
	}
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	created, err := a.expenses.CreateExpense(ctx, in)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save receipt: %w", err)
	}
	return created, nil
}
