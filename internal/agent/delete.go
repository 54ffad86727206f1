package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"finagent/internal/core"
	"finagent/internal/ledger"
	"finagent/internal/log"
)

// maxCandidates caps the matches returned when a delete is ambiguous.
const maxCandidates = 3

// DeleteRequest asks to remove a transaction. A confirmed request with a
// TransactionID deletes that transaction without searching.
type DeleteRequest struct {
	Query         string `json:"query"`
	Confirmed     bool   `json:"confirmed"`
	TransactionID string `json:"transaction_id,omitempty"`
}

type DeleteResult struct {
	Success             bool           `json:"success"`
	Message             string         `json:"message"`
	NeedsConfirmation   bool           `json:"needs_confirmation"`
	Matches             []core.Expense `json:"matches,omitempty"`
	TransactionToDelete *core.Expense  `json:"transaction_to_delete,omitempty"`
	DeletedTransaction  *core.Expense  `json:"deleted_transaction,omitempty"`
}

// DeleteTransaction finds the transaction a request refers to and archives
// it, asking for confirmation unless the request is already confirmed.
func (a *Agent) DeleteTransaction(ctx context.Context, req DeleteRequest) DeleteResult {
	if req.Confirmed && req.TransactionID != "" {
		e, err := a.expenses.GetExpense(ctx, req.TransactionID)
		if errors.Is(err, ledger.ErrNotFound) {
			return DeleteResult{Message: "Transaction not found"}
		}
		if err != nil {
			return deleteFailed(err)
		}
		return a.remove(ctx, e)
	}

	details := a.ExtractDeletionDetails(ctx, req.Query)
	all, err := a.expenses.ListExpenses(ctx)
	if err != nil {
		return deleteFailed(err)
	}
	matches := core.SearchExpenses(core.Listable(all), details.Criteria(req.Query))

	switch {
	case len(matches) == 0:
		return DeleteResult{Message: fmt.Sprintf("No matching transaction found for '%s'", describe(details, req.Query))}
	case len(matches) > 1:
		shown := matches
		if len(shown) > maxCandidates {
			shown = shown[:maxCandidates]
		}
		return DeleteResult{
			NeedsConfirmation: true,
			Message:           fmt.Sprintf("Found %d matching transactions. Please be more specific.", len(matches)),
			Matches:           shown,
		}
	case !req.Confirmed:
		m := matches[0]
		return DeleteResult{
			NeedsConfirmation:   true,
			Message:             "Are you sure you want to delete this transaction?",
			Matches:             matches,
			TransactionToDelete: &m,
		}
	default:
		return a.remove(ctx, matches[0])
	}
}

func (a *Agent) remove(ctx context.Context, e core.Expense) DeleteResult {
	if err := a.expenses.DeleteExpense(ctx, e.ID); err != nil {
		return deleteFailed(err)
	}
	a.logger.InfoContext(ctx, "Transaction deleted",
		log.NewFields().WithExpense(e.ID, e.Merchant, e.Category, e.Amount.Cents).ToSlice()...)
	return DeleteResult{
		Success:            true,
		Message:            fmt.Sprintf("Deleted $%s at %s", e.Amount, e.Merchant),
		DeletedTransaction: &e,
	}
}

func deleteFailed(err error) DeleteResult {
	return DeleteResult{Message: "Failed to delete transaction: " + err.Error()}
}

// describe renders what was searched for, e.g. "$45.00 at Starbucks".
func describe(d DeletionDetails, query string) string {
	var parts []string
	if d.Amount != nil {
		parts = append(parts, "$"+d.Amount.String())
	}
	if d.Merchant != "" {
		parts = append(parts, "at "+d.Merchant)
	}
	if d.Date != "" {
		parts = append(parts, "on "+d.Date)
	}
	if len(parts) == 0 {
		return query
	}
	return strings.Join(parts, " ")
}
