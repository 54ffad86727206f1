// Package ledger defines the outbound ports for expense and budget storage.
package ledger

import (
	"context"

	"finagent/internal/core"
)

// Ports for outbound adapters.
type (
	// ExpenseStore persists expenses. Get, Update and Delete return
	// ErrNotFound when the id does not exist.
	ExpenseStore interface {
		ListExpenses(ctx context.Context) ([]core.Expense, error)
		GetExpense(ctx context.Context, id string) (core.Expense, error)
		CreateExpense(ctx context.Context, in core.ExpenseCreate) (core.Expense, error)
		UpdateExpense(ctx context.Context, id string, in core.ExpenseUpdate) (core.Expense, error)
		DeleteExpense(ctx context.Context, id string) error
	}

	// BudgetStore persists budgets. Returned budgets carry Spent as stored;
	// derived fields are filled by Budget.Derive.
	BudgetStore interface {
		ListBudgets(ctx context.Context) ([]core.Budget, error)
		GetBudget(ctx context.Context, id string) (core.Budget, error)
		CreateBudget(ctx context.Context, in core.BudgetCreate) (core.Budget, error)
		UpdateBudget(ctx context.Context, id string, in core.BudgetUpdate) (core.Budget, error)
		DeleteBudget(ctx context.Context, id string) error
	}

	// Ledger is the combined store the API and agent work against.
	Ledger interface {
		ExpenseStore
		BudgetStore
	}
)
