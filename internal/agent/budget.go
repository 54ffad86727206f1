package agent

import (
	"context"
	"fmt"
	"strings"

	"finagent/internal/core"
	"finagent/internal/log"
)

const budgetHint = "Could not understand budget request. Try: 'Set my dining budget to $400 this month'"

type SetBudgetResult struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Budget  *core.Budget `json:"budget,omitempty"`
	Action  string       `json:"action,omitempty"`
}

// SetBudget creates a budget for the parsed category, or updates the
// existing one when a budget with that category already exists.
func (a *Agent) SetBudget(ctx context.Context, text string) SetBudgetResult {
	parsed, err := a.ParseBudget(ctx, text)
	if err != nil {
		a.logger.WarnContext(ctx, "Budget parse failed", log.FieldError, err)
	}
	if parsed == nil {
		return SetBudgetResult{Message: budgetHint}
	}

	budgets, err := a.budgets.ListBudgets(ctx)
	if err != nil {
		return SetBudgetResult{Message: "Failed to set budget: " + err.Error()}
	}
	for _, b := range budgets {
		if !strings.EqualFold(strings.TrimSpace(b.Category), parsed.Category) {
			continue
		}
		updated, err := a.budgets.UpdateBudget(ctx, b.ID, core.BudgetUpdate{Amount: &parsed.Amount, Period: &parsed.Period})
		if err != nil {
			return SetBudgetResult{Message: "Failed to set budget: " + err.Error()}
		}
		return SetBudgetResult{
			Success: true,
			Message: fmt.Sprintf("Updated %s budget to $%s per %s", parsed.Category, parsed.Amount, parsed.Period),
			Budget:  &updated,
			Action:  "updated",
		}
	}

	created, err := a.budgets.CreateBudget(ctx, core.BudgetCreate{
		Category:  parsed.Category,
		Amount:    parsed.Amount,
		Period:    parsed.Period,
		StartDate: a.today(),
	})
	if err != nil {
		return SetBudgetResult{Message: "Failed to set budget: " + err.Error()}
	}
	a.logger.InfoContext(ctx, "Budget created",
		log.FieldBudgetID, created.ID, log.FieldCategory, created.Category, log.FieldPeriod, created.Period)
	return SetBudgetResult{
		Success: true,
		Message: fmt.Sprintf("Set %s budget to $%s per %s", parsed.Category, parsed.Amount, parsed.Period),
		Budget:  &created,
		Action:  "created",
	}
}
