package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"finagent/internal/core"
)

type EventType string

const (
	EventExpenseCreated EventType = "created"
	EventExpenseUpdated EventType = "updated"
	EventExpenseDeleted EventType = "deleted"
)

func (t EventType) valid() bool {
	switch t {
	case EventExpenseCreated, EventExpenseUpdated, EventExpenseDeleted:
		return true
	}
	return false
}

// ExpenseEvent announces a change to one ledger expense. It carries the
// fields the budget worker needs so it never has to refetch a deleted page.
type ExpenseEvent struct {
	Type        EventType  `json:"type"`
	ExpenseID   string     `json:"expense_id"`
	Category    string     `json:"category"`
	Amount      core.Money `json:"amount"`
	Date        string     `json:"date"`
	Merchant    string     `json:"merchant"`
	Description string     `json:"description"`
	Timestamp   time.Time  `json:"timestamp"`

	// PreviousCategory is set on updates that moved the expense.
	PreviousCategory string `json:"previous_category,omitempty"`
}

// NewExpenseEvent builds an event for e stamped with the current time.
func NewExpenseEvent(t EventType, e core.Expense) *ExpenseEvent {
	return &ExpenseEvent{
		Type:        t,
		ExpenseID:   e.ID,
		Category:    e.Category,
		Amount:      e.Amount,
		Date:        e.Date,
		Merchant:    e.Merchant,
		Description: e.Description,
		Timestamp:   time.Now().UTC(),
	}
}

// Categories lists the budget categories the event touches.
func (m *ExpenseEvent) Categories() []string {
	if m.PreviousCategory != "" && !strings.EqualFold(m.PreviousCategory, m.Category) {
		return []string{m.Category, m.PreviousCategory}
	}
	return []string{m.Category}
}

// Expense returns the event's snapshot of the expense.
func (m *ExpenseEvent) Expense() core.Expense {
	return core.Expense{
		ID:          m.ExpenseID,
		Amount:      m.Amount,
		Category:    m.Category,
		Merchant:    m.Merchant,
		Date:        m.Date,
		Description: m.Description,
	}
}

func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON decodes and checks an event body.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Type.valid() {
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	if msg.ExpenseID == "" {
		return nil, errors.New("event without expense_id")
	}
	return &msg, nil
}
