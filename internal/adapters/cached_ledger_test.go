package adapters

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finagent/internal/core"
	"finagent/internal/ledger/memory"
)

type countingLedger struct {
	*memory.Store
	lists atomic.Int32
	gate  chan struct{}
}

func (c *countingLedger) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	c.lists.Add(1)
	if c.gate != nil {
		<-c.gate
	}
	return c.Store.ListExpenses(ctx)
}

func TestCachedLedgerServesFromCacheUntilWrite(t *testing.T) {
	ctx := context.Background()
	backend := &countingLedger{Store: memory.New()}
	l := NewCachedLedger(backend, time.Minute)

	_, err := l.ListExpenses(ctx)
	require.NoError(t, err)
	_, err = l.ListExpenses(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), backend.lists.Load())

	_, err = l.CreateExpense(ctx, core.ExpenseCreate{Amount: core.Dollars(5, 0), Category: "Dining", Merchant: "Cafe", Date: "2025-11-09"})
	require.NoError(t, err)

	list, err := l.ListExpenses(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, int32(2), backend.lists.Load())
}

func TestCachedLedgerCollapsesConcurrentMisses(t *testing.T) {
	backend := &countingLedger{Store: memory.New(), gate: make(chan struct{})}
	l := NewCachedLedger(backend, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.ListExpenses(context.Background())
		}()
	}
	require.Eventually(t, func() bool { return backend.lists.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(backend.gate)
	wg.Wait()

	assert.Equal(t, int32(1), backend.lists.Load())
}

func TestCachedLedgerReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	store.Seed(core.Expense{ID: "a", Amount: core.Dollars(1, 0), Merchant: "x"})
	l := NewCachedLedger(store, time.Minute)

	first, err := l.ListExpenses(ctx)
	require.NoError(t, err)
	first[0].Merchant = "mutated"

	second, err := l.ListExpenses(ctx)
	require.NoError(t, err)
	assert.Equal(t, "x", second[0].Merchant)
}
