// Package adapters holds decorators that sit between services and ledger backends.
package adapters

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"finagent/internal/cache"
	"finagent/internal/core"
	"finagent/internal/ledger"
)

const (
	expensesKey = "expenses"
	budgetsKey  = "budgets"
)

// CachedLedger caches the full expense and budget lists for a short TTL.
// Concurrent misses share one backend call and every write invalidates.
type CachedLedger struct {
	next     ledger.Ledger
	expenses *cache.LRUCache[[]core.Expense]
	budgets  *cache.LRUCache[[]core.Budget]
	group    singleflight.Group

	mu      sync.Mutex
	version map[string]uint64
}

var _ ledger.Ledger = (*CachedLedger)(nil)

func NewCachedLedger(next ledger.Ledger, ttl time.Duration) *CachedLedger {
	return &CachedLedger{
		next:     next,
		expenses: cache.NewLRUCache[[]core.Expense](1, ttl),
		budgets:  cache.NewLRUCache[[]core.Budget](1, ttl),
		version:  make(map[string]uint64),
	}
}

// Caches exposes the underlying caches for registration with a cache.Manager.
func (l *CachedLedger) Caches() []cache.Cleaner {
	return []cache.Cleaner{l.expenses, l.budgets}
}

func (l *CachedLedger) currentVersion(key string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.version[key]
}

func (l *CachedLedger) invalidate(key string) {
	l.mu.Lock()
	l.version[key]++
	l.mu.Unlock()
	l.group.Forget(key)
	switch key {
	case expensesKey:
		l.expenses.Delete(key)
	case budgetsKey:
		l.budgets.Delete(key)
	}
}

// load runs fetch once per key for concurrent callers. The result is cached
// only if no write happened while it was in flight.
func load[T any](ctx context.Context, l *CachedLedger, c *cache.LRUCache[[]T], key string, fetch func(context.Context) ([]T, error)) ([]T, error) {
	if v, ok := c.Get(key); ok {
		return append([]T(nil), v...), nil
	}
	v, err, shared := l.group.Do(key, func() (any, error) {
		before := l.currentVersion(key)
		items, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if l.currentVersion(key) == before {
			c.Set(key, items)
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.DebugContext(ctx, "Ledger list shared with concurrent caller", "key", key)
	}
	return append([]T(nil), v.([]T)...), nil
}

func (l *CachedLedger) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	return load(ctx, l, l.expenses, expensesKey, l.next.ListExpenses)
}

func (l *CachedLedger) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	return l.next.GetExpense(ctx, id)
}

func (l *CachedLedger) CreateExpense(ctx context.Context, in core.ExpenseCreate) (core.Expense, error) {
	defer l.invalidate(expensesKey)
	return l.next.CreateExpense(ctx, in)
}

func (l *CachedLedger) UpdateExpense(ctx context.Context, id string, in core.ExpenseUpdate) (core.Expense, error) {
	defer l.invalidate(expensesKey)
	return l.next.UpdateExpense(ctx, id, in)
}

func (l *CachedLedger) DeleteExpense(ctx context.Context, id string) error {
	defer l.invalidate(expensesKey)
	return l.next.DeleteExpense(ctx, id)
}

func (l *CachedLedger) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	return load(ctx, l, l.budgets, budgetsKey, l.next.ListBudgets)
}

func (l *CachedLedger) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	return l.next.GetBudget(ctx, id)
}

func (l *CachedLedger) CreateBudget(ctx context.Context, in core.BudgetCreate) (core.Budget, error) {
	defer l.invalidate(budgetsKey)
	return l.next.CreateBudget(ctx, in)
}

func (l *CachedLedger) UpdateBudget(ctx context.Context, id string, in core.BudgetUpdate) (core.Budget, error) {
	defer l.invalidate(budgetsKey)
	return l.next.UpdateBudget(ctx, id, in)
}

func (l *CachedLedger) DeleteBudget(ctx context.Context, id string) error {
	defer l.invalidate(budgetsKey)
	return l.next.DeleteBudget(ctx, id)
}
