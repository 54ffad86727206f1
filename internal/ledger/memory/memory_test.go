package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"finagent/internal/core"
	"finagent/internal/ledger"
)

func TestMemoryExpenseLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	e, err := s.CreateExpense(ctx, core.ExpenseCreate{
		Amount: core.Dollars(45, 0), Category: "Groceries", Merchant: "Whole Foods", Date: "2025-11-09",
	})
	if err != nil || e.ID == "" || e.CreatedTime == "" {
		t.Fatalf("unexpected create: %+v err=%v", e, err)
	}

	if _, err := s.CreateExpense(ctx, core.ExpenseCreate{Category: "x", Merchant: "y", Date: "2025-01-01"}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected validation error, got %v", err)
	}

	merchant := "Trader Joe's"
	got, err := s.UpdateExpense(ctx, e.ID, core.ExpenseUpdate{Merchant: &merchant})
	if err != nil || got.Merchant != merchant || got.Amount != e.Amount {
		t.Fatalf("unexpected update: %+v err=%v", got, err)
	}

	list, _ := s.ListExpenses(ctx)
	if len(list) != 1 {
		t.Fatalf("expected 1 expense, got %d", len(list))
	}

	if err := s.DeleteExpense(ctx, e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetExpense(ctx, e.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.DeleteExpense(ctx, e.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestMemoryBudgetLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	b, err := s.CreateBudget(ctx, core.BudgetCreate{Category: "Dining", Amount: core.Dollars(400, 0)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.Period != core.PeriodMonthly || b.StartDate == "" || b.Remaining != core.Dollars(400, 0) {
		t.Fatalf("unexpected budget %+v", b)
	}

	spent := core.Dollars(100, 0)
	b, err = s.UpdateBudget(ctx, b.ID, core.BudgetUpdate{Spent: &spent})
	if err != nil || b.Percentage != 25 {
		t.Fatalf("unexpected update %+v err=%v", b, err)
	}

	if err := s.DeleteBudget(ctx, b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetBudget(ctx, b.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()

	s, err := NewFromFile(filepath.Join(dir, "missing.json"))
	if err != nil {
		t.Fatalf("missing file should be empty store: %v", err)
	}
	if list, _ := s.ListExpenses(context.Background()); len(list) != 0 {
		t.Fatalf("expected empty store")
	}

	path := filepath.Join(dir, "seed.json")
	seed := `[{"id":"a","amount":12.5,"category":"Dining","merchant":"Cafe","date":"2025-01-02"},{"amount":3,"category":"Other","merchant":"Kiosk","date":"2025-01-03"}]`
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err = NewFromFile(path)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	list, _ := s.ListExpenses(context.Background())
	if len(list) != 2 || list[0].ID != "a" || list[0].Amount.Cents != 1250 || list[1].ID == "" {
		t.Fatalf("unexpected seed %+v", list)
	}

	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFromFile(path); err == nil {
		t.Fatal("expected decode error")
	}
}
