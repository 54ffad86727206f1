// Package sheets mirrors ledger expenses into a spreadsheet for people who
// prefer to browse their spending there.
package sheets

import (
	"context"

	"finagent/internal/core"
)

// Ports for outbound adapters.
type (
	// ExpenseMirror keeps one row per ledger expense, keyed by expense id.
	ExpenseMirror interface {
		AppendExpense(ctx context.Context, e core.Expense) (rowRef string, err error)
		// DeleteExpense removes the row for id. A missing row is not an error.
		DeleteExpense(ctx context.Context, id string) error
	}
)
