package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"finagent/internal/core"
	"finagent/internal/ledger"
	"finagent/internal/log"
)

// BudgetService serves budgets with derived fields and keeps their spent
// totals in line with the expense ledger.
type BudgetService struct {
	budgets  ledger.BudgetStore
	expenses ledger.ExpenseStore
	logger   *log.Logger
}

func NewBudgetService(budgets ledger.BudgetStore, expenses ledger.ExpenseStore, logger *log.Logger) *BudgetService {
	if logger == nil {
		logger = log.Discard()
	}
	return &BudgetService{
		budgets:  budgets,
		expenses: expenses,
		logger:   logger.WithComponent(log.ComponentBudget),
	}
}

func (s *BudgetService) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	list, err := s.budgets.ListBudgets(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Budget, len(list))
	for i, b := range list {
		out[i] = b.Derive()
	}
	return out, nil
}

func (s *BudgetService) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	b, err := s.budgets.GetBudget(ctx, id)
	if err != nil {
		return core.Budget{}, err
	}
	return b.Derive(), nil
}

// CreateBudget stores a budget and seeds its spent total from the expenses
// already in its current window.
func (s *BudgetService) CreateBudget(ctx context.Context, in core.BudgetCreate) (core.Budget, error) {
	b, err := s.budgets.CreateBudget(ctx, in)
	if err != nil {
		return core.Budget{}, err
	}
	expenses, err := s.listExpenses(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Could not seed spent for new budget", log.FieldBudgetID, b.ID, log.FieldError, err)
		return b.Derive(), nil
	}
	if updated, changed, err := s.refresh(ctx, b, expenses, time.Now()); err != nil {
		s.logger.WarnContext(ctx, "Could not seed spent for new budget", log.FieldBudgetID, b.ID, log.FieldError, err)
	} else if changed {
		b = updated
	}
	return b.Derive(), nil
}

func (s *BudgetService) UpdateBudget(ctx context.Context, id string, in core.BudgetUpdate) (core.Budget, error) {
	b, err := s.budgets.UpdateBudget(ctx, id, in)
	if err != nil {
		return core.Budget{}, err
	}
	return b.Derive(), nil
}

func (s *BudgetService) DeleteBudget(ctx context.Context, id string) error {
	return s.budgets.DeleteBudget(ctx, id)
}

// RecalculateCategory recomputes spent for every budget of category over
// its current period window and writes back the ones that changed.
func (s *BudgetService) RecalculateCategory(ctx context.Context, category string, now time.Time) (int, error) {
	return s.recalculate(ctx, now, func(b core.Budget) bool {
		return strings.EqualFold(strings.TrimSpace(b.Category), strings.TrimSpace(category))
	})
}

// RecalculateAll recomputes spent for every budget.
func (s *BudgetService) RecalculateAll(ctx context.Context, now time.Time) (int, error) {
	return s.recalculate(ctx, now, func(core.Budget) bool { return true })
}

func (s *BudgetService) recalculate(ctx context.Context, now time.Time, match func(core.Budget) bool) (int, error) {
	budgets, err := s.budgets.ListBudgets(ctx)
	if err != nil {
		return 0, fmt.Errorf("list budgets: %w", err)
	}
	var targets []core.Budget
	for _, b := range budgets {
		if match(b) {
			targets = append(targets, b)
		}
	}
	if len(targets) == 0 {
		return 0, nil
	}

	expenses, err := s.listExpenses(ctx)
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, b := range targets {
		_, changed, err := s.refresh(ctx, b, expenses, now)
		if err != nil {
			return updated, err
		}
		if changed {
			updated++
		}
	}
	return updated, nil
}

func (s *BudgetService) listExpenses(ctx context.Context) ([]core.Expense, error) {
	expenses, err := s.expenses.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return core.Listable(expenses), nil
}

func (s *BudgetService) refresh(ctx context.Context, b core.Budget, expenses []core.Expense, now time.Time) (core.Budget, bool, error) {
	w := b.Period.CurrentWindow(now)
	spent := core.SpentInWindow(expenses, b.Category, w)
	if spent == b.Spent {
		return b, false, nil
	}
	updated, err := s.budgets.UpdateBudget(ctx, b.ID, core.BudgetUpdate{Spent: &spent})
	if err != nil {
		return b, false, fmt.Errorf("update spent for budget %s: %w", b.ID, err)
	}
	s.logger.InfoContext(ctx, "Budget spent recalculated",
		log.FieldBudgetID, b.ID,
		log.FieldCategory, b.Category,
		log.FieldPeriod, b.Period,
		"window", w.String(),
		"previous_cents", b.Spent.Cents,
		log.FieldAmountCents, spent.Cents)
	return updated, true, nil
}
