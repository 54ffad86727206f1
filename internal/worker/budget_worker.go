// Package worker keeps budget spent totals and the spreadsheet mirror in
// step with expense events.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"finagent/internal/amqp"
	"finagent/internal/log"
	"finagent/internal/sheets"
)

// DefaultSchedule runs a full reconcile every 15 minutes.
const DefaultSchedule = "*/15 * * * *"

// Recalculator recomputes budget spent totals from the ledger.
type Recalculator interface {
	RecalculateCategory(ctx context.Context, category string, now time.Time) (int, error)
	RecalculateAll(ctx context.Context, now time.Time) (int, error)
}

type BudgetWorker struct {
	budgets Recalculator
	mirror  sheets.ExpenseMirror
	logger  *log.Logger
	now     func() time.Time

	// mu serializes recalculations so event handling and the scheduled
	// reconcile never write the same budget concurrently.
	mu   sync.Mutex
	cron *cron.Cron
}

// NewBudgetWorker builds a worker. mirror may be nil to skip the sheet.
func NewBudgetWorker(budgets Recalculator, mirror sheets.ExpenseMirror, logger *log.Logger) *BudgetWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &BudgetWorker{
		budgets: budgets,
		mirror:  mirror,
		logger:  logger.WithComponent(log.ComponentWorker),
		now:     time.Now,
	}
}

// HandleExpenseEvent recalculates the budgets an event touches, then
// mirrors the change. Returning an error requeues the event; both steps are
// safe to repeat.
func (w *BudgetWorker) HandleExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	w.logger.InfoContext(ctx, "Processing expense event",
		log.FieldEventType, ev.Type, log.FieldExpenseID, ev.ExpenseID, log.FieldCategory, ev.Category)

	w.mu.Lock()
	for _, category := range ev.Categories() {
		n, err := w.budgets.RecalculateCategory(ctx, category, w.now())
		if err != nil {
			w.mu.Unlock()
			return fmt.Errorf("recalculate %s: %w", category, err)
		}
		w.logger.DebugContext(ctx, "Category recalculated", log.FieldCategory, category, "updated", n)
	}
	w.mu.Unlock()

	if w.mirror == nil {
		return nil
	}
	if err := w.mirrorEvent(ctx, ev); err != nil {
		return fmt.Errorf("mirror %s event: %w", ev.Type, err)
	}
	return nil
}

func (w *BudgetWorker) mirrorEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	// Delete first so a redelivered create or an update never leaves two rows.
	if err := w.mirror.DeleteExpense(ctx, ev.ExpenseID); err != nil {
		return err
	}
	if ev.Type == amqp.EventExpenseDeleted {
		return nil
	}
	ref, err := w.mirror.AppendExpense(ctx, ev.Expense())
	if err != nil {
		return err
	}
	w.logger.DebugContext(ctx, "Expense mirrored", log.FieldExpenseID, ev.ExpenseID, "row", ref)
	return nil
}

// Reconcile recalculates every budget.
func (w *BudgetWorker) Reconcile(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	start := time.Now()
	n, err := w.budgets.RecalculateAll(ctx, w.now())
	if err != nil {
		return fmt.Errorf("reconcile budgets: %w", err)
	}
	w.logger.InfoContext(ctx, "Budgets reconciled", "updated", n, log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// StartSchedule runs Reconcile on a cron spec until Stop. Overlapping runs
// are skipped.
func (w *BudgetWorker) StartSchedule(ctx context.Context, spec string) error {
	if spec == "" {
		spec = DefaultSchedule
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(spec, func() {
		if err := w.Reconcile(ctx); err != nil {
			w.logger.ErrorContext(ctx, "Scheduled reconcile failed", log.FieldError, err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule reconcile %q: %w", spec, err)
	}
	w.cron = c
	c.Start()
	w.logger.InfoContext(ctx, "Reconcile scheduler started", "schedule", spec)
	return nil
}

// Stop halts the scheduler and waits for a running reconcile to finish.
func (w *BudgetWorker) Stop() {
	if w.cron == nil {
		return
	}
	<-w.cron.Stop().Done()
}
