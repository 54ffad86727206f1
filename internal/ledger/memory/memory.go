// Package memory is an in-process ledger for local development and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"finagent/internal/core"
	"finagent/internal/ledger"
)

// Store keeps expenses and budgets in insertion order.
type Store struct {
	mu       sync.Mutex
	expenses []core.Expense
	budgets  []core.Budget
	now      func() time.Time
}

var _ ledger.Ledger = (*Store)(nil)

func New() *Store {
	return &Store{now: time.Now}
}

// NewFromFile seeds the store with a JSON array of expenses. A missing file
// yields an empty store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed []core.Expense
	if err := json.Unmarshal(b, &seed); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	s.Seed(seed...)
	return s, nil
}

// Seed adds expenses verbatim, assigning ids where missing.
func (s *Store) Seed(expenses ...core.Expense) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range expenses {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		s.expenses = append(s.expenses, e)
	}
}

func (s *Store) createdTime() string {
	return s.now().UTC().Format(time.RFC3339)
}

func (s *Store) ListExpenses(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Expense(nil), s.expenses...), nil
}

func (s *Store) GetExpense(_ context.Context, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.expenseIndex(id)
	if i < 0 {
		return core.Expense{}, ledger.ErrNotFound
	}
	return s.expenses[i], nil
}

func (s *Store) CreateExpense(_ context.Context, in core.ExpenseCreate) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	e := core.Expense{
		ID:          uuid.NewString(),
		Amount:      in.Amount,
		Category:    in.Category,
		Merchant:    in.Merchant,
		Date:        in.Date,
		Description: in.Description,
		CreatedTime: s.createdTime(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses = append(s.expenses, e)
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, id string, in core.ExpenseUpdate) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.expenseIndex(id)
	if i < 0 {
		return core.Expense{}, ledger.ErrNotFound
	}
	s.expenses[i] = in.Apply(s.expenses[i])
	return s.expenses[i], nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.expenseIndex(id)
	if i < 0 {
		return ledger.ErrNotFound
	}
	s.expenses = append(s.expenses[:i], s.expenses[i+1:]...)
	return nil
}

func (s *Store) expenseIndex(id string) int {
	for i, e := range s.expenses {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) ListBudgets(_ context.Context) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Budget(nil), s.budgets...), nil
}

func (s *Store) GetBudget(_ context.Context, id string) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.budgetIndex(id)
	if i < 0 {
		return core.Budget{}, ledger.ErrNotFound
	}
	return s.budgets[i], nil
}

func (s *Store) CreateBudget(_ context.Context, in core.BudgetCreate) (core.Budget, error) {
	if err := in.Validate(); err != nil {
		return core.Budget{}, err
	}
	start := in.StartDate
	if start == "" {
		start = core.FormatDate(s.now())
	}
	b := core.Budget{
		ID:          uuid.NewString(),
		Category:    in.Category,
		Amount:      in.Amount,
		Period:      in.Period,
		StartDate:   start,
		CreatedTime: s.createdTime(),
	}.Derive()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets = append(s.budgets, b)
	return b, nil
}

func (s *Store) UpdateBudget(_ context.Context, id string, in core.BudgetUpdate) (core.Budget, error) {
	if err := in.Validate(); err != nil {
		return core.Budget{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.budgetIndex(id)
	if i < 0 {
		return core.Budget{}, ledger.ErrNotFound
	}
	s.budgets[i] = in.Apply(s.budgets[i])
	return s.budgets[i], nil
}

func (s *Store) DeleteBudget(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.budgetIndex(id)
	if i < 0 {
		return ledger.ErrNotFound
	}
	s.budgets = append(s.budgets[:i], s.budgets[i+1:]...)
	return nil
}

func (s *Store) budgetIndex(id string) int {
	for i, b := range s.budgets {
		if b.ID == id {
			return i
		}
	}
	return -1
}
