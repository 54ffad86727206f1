package services

import (
	"context"
	"fmt"
	"time"

	"finagent/internal/amqp"
	"finagent/internal/core"
	"finagent/internal/ledger"
	"finagent/internal/log"
)

// EventPublisher announces expense changes to the budget worker.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error
}

// ExpenseService writes expenses to the ledger, then either publishes an
// event for the budget worker or, with no broker, recalculates the affected
// budgets inline. Notification failures never fail the write.
type ExpenseService struct {
	ledger    ledger.ExpenseStore
	publisher EventPublisher
	budgets   *BudgetService
	logger    *log.StructuredLogger
	now       func() time.Time
}

// NewExpenseService wires the service. publisher and budgets may be nil.
func NewExpenseService(store ledger.ExpenseStore, publisher EventPublisher, budgets *BudgetService, logger *log.Logger) *ExpenseService {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExpenseService{
		ledger:    store,
		publisher: publisher,
		budgets:   budgets,
		logger:    log.NewStructuredLogger(logger),
		now:       time.Now,
	}
}

func (s *ExpenseService) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	return s.ledger.ListExpenses(ctx)
}

func (s *ExpenseService) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	return s.ledger.GetExpense(ctx, id)
}

func (s *ExpenseService) CreateExpense(ctx context.Context, in core.ExpenseCreate) (core.Expense, error) {
	e, err := s.ledger.CreateExpense(ctx, in)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	s.logger.LogExpenseCreated(ctx, e.ID, e.Merchant, e.Category, e.Amount.Cents)
	s.notify(ctx, amqp.NewExpenseEvent(amqp.EventExpenseCreated, e))
	return e, nil
}

func (s *ExpenseService) UpdateExpense(ctx context.Context, id string, in core.ExpenseUpdate) (core.Expense, error) {
	before, err := s.ledger.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}
	e, err := s.ledger.UpdateExpense(ctx, id, in)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	ev := amqp.NewExpenseEvent(amqp.EventExpenseUpdated, e)
	ev.PreviousCategory = before.Category
	s.notify(ctx, ev)
	return e, nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, id string) error {
	e, err := s.ledger.GetExpense(ctx, id)
	if err != nil {
		return err
	}
	if err := s.ledger.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.notify(ctx, amqp.NewExpenseEvent(amqp.EventExpenseDeleted, e))
	return nil
}

func (s *ExpenseService) notify(ctx context.Context, ev *amqp.ExpenseEvent) {
	if s.publisher != nil {
		err := s.publisher.PublishExpenseEvent(ctx, ev)
		if err == nil {
			return
		}
		s.logger.LogError(ctx, "Failed to publish expense event, recalculating inline", err, log.ComponentAMQP, log.OpPublish,
			log.LogFields{log.FieldExpenseID: ev.ExpenseID, log.FieldEventType: string(ev.Type)})
	}
	if s.budgets == nil {
		return
	}
	for _, category := range ev.Categories() {
		if _, err := s.budgets.RecalculateCategory(ctx, category, s.now()); err != nil {
			s.logger.LogError(ctx, "Inline budget recalculation failed", err, log.ComponentBudget, log.OpRecalculate,
				log.LogFields{log.FieldCategory: category})
		}
	}
}
