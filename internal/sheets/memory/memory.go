// Package memory is an in-process expense mirror for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"finagent/internal/core"
	ports "finagent/internal/sheets"
)

type Store struct {
	mu      sync.Mutex
	rows    []core.Expense
	appends int
}

var _ ports.ExpenseMirror = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// AppendExpense stores the expense and returns a synthetic row reference.
func (s *Store) AppendExpense(_ context.Context, e core.Expense) (string, error) {
	if e.ID == "" {
		return "", fmt.Errorf("expense without id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, e)
	s.appends++
	return fmt.Sprintf("mem:%d", s.appends), nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.rows {
		if e.ID == id {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

// Rows returns a snapshot of the mirrored expenses in row order.
func (s *Store) Rows() []core.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Expense(nil), s.rows...)
}
