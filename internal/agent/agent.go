// Package agent turns one free-text message into one side-effecting action
// and a reply, in a single plan, act, observe pass.
package agent

import (
	"context"
	"fmt"
	"time"

	"finagent/internal/core"
	"finagent/internal/log"
)

type State string

const (
	StatePlanning  State = "planning"
	StateActing    State = "acting"
	StateObserving State = "observing"
	StateCompleted State = "completed"
)

type Intent string

const (
	IntentAddExpense      Intent = "ADD_EXPENSE"
	IntentDeleteExpense   Intent = "DELETE_EXPENSE"
	IntentSetBudget       Intent = "SET_BUDGET"
	IntentGetBudget       Intent = "GET_BUDGET"
	IntentGetExpenses     Intent = "GET_EXPENSES"
	IntentGeneralResponse Intent = "GENERAL_RESPONSE"
)

func (i Intent) known() bool {
	switch i {
	case IntentAddExpense, IntentDeleteExpense, IntentSetBudget, IntentGetBudget, IntentGetExpenses, IntentGeneralResponse:
		return true
	}
	return false
}

type Action string

const (
	ActionAddExpense        Action = "add_expense"
	ActionDeleteTransaction Action = "delete_transaction"
	ActionGenerateReport    Action = "generate_report"
	ActionSetBudget         Action = "set_budget"
	ActionGetBudget         Action = "get_budget"
	ActionGetExpenses       Action = "get_expenses"
	ActionGeneralResponse   Action = "general_response"
	ActionError             Action = "error"
)

// LLM is the completion surface the agent needs.
type LLM interface {
	Complete(ctx context.Context, system, user string, maxTokens int) (string, error)
	CompleteJSON(ctx context.Context, system, user string, maxTokens int, out any) error
	CompleteImageJSON(ctx context.Context, system, text, imageURL string, maxTokens int, out any) error
}

// Expenses is the expense side of the ledger as seen by the agent.
type Expenses interface {
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	GetExpense(ctx context.Context, id string) (core.Expense, error)
	CreateExpense(ctx context.Context, in core.ExpenseCreate) (core.Expense, error)
	DeleteExpense(ctx context.Context, id string) error
}

// Budgets is the budget side of the ledger as seen by the agent.
type Budgets interface {
	ListBudgets(ctx context.Context) ([]core.Budget, error)
	CreateBudget(ctx context.Context, in core.BudgetCreate) (core.Budget, error)
	UpdateBudget(ctx context.Context, id string, in core.BudgetUpdate) (core.Budget, error)
}

// ChatResponse is the reply to one message.
type ChatResponse struct {
	Message     string `json:"message"`
	Reasoning   string `json:"reasoning"`
	ActionTaken Action `json:"action_taken"`
	State       State  `json:"state"`
	Data        any    `json:"data"`
}

// Plan is the classifier's verdict on a message.
type Plan struct {
	Intent     Intent  `json:"intent"`
	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`
}

// result is what act hands to observe.
type result struct {
	action            Action
	reasoning         string
	success           bool
	needsConfirmation bool
	message           string
	data              any
}

type Agent struct {
	llm      LLM
	expenses Expenses
	budgets  Budgets
	logger   *log.Logger
	now      func() time.Time
}

type Option func(*Agent)

// WithClock overrides the time source used for "today".
func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(a *Agent) { a.logger = l.WithComponent(log.ComponentAgent) }
}

func New(llm LLM, expenses Expenses, budgets Budgets, opts ...Option) *Agent {
	a := &Agent{
		llm:      llm,
		expenses: expenses,
		budgets:  budgets,
		logger:   log.Discard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Agent) today() string {
	return core.FormatDate(a.now())
}

// ProcessMessage runs one planning, acting and observing pass. Failures to
// classify or to write the ledger are returned as errors; a failure to
// understand the request becomes an error action in the reply.
func (a *Agent) ProcessMessage(ctx context.Context, message string) (ChatResponse, error) {
	state := StatePlanning
	a.logger.DebugContext(ctx, "Agent state changed", log.FieldAgentState, state)
	plan, err := a.plan(ctx, message)
	if err != nil {
		return ChatResponse{}, err
	}

	state = StateActing
	a.logger.DebugContext(ctx, "Agent state changed", log.FieldAgentState, state, log.FieldIntent, plan.Intent)
	res, err := a.act(ctx, plan, message)
	if err != nil {
		return ChatResponse{}, err
	}

	state = StateObserving
	a.logger.DebugContext(ctx, "Agent state changed", log.FieldAgentState, state, log.FieldAction, res.action)
	resp := a.observe(res)

	a.logger.InfoContext(ctx, "Agent decision completed",
		log.NewFields().WithDecision(string(plan.Intent), string(resp.ActionTaken), string(resp.State), res.success).ToSlice()...)
	return resp, nil
}

func (a *Agent) plan(ctx context.Context, message string) (Plan, error) {
	var p Plan
	if err := a.llm.CompleteJSON(ctx, planPrompt, message, 0, &p); err != nil {
		return Plan{}, fmt.Errorf("plan: %w", err)
	}
	if !p.Intent.known() {
		p.Intent = IntentGeneralResponse
	}
	return p, nil
}

func (a *Agent) act(ctx context.Context, plan Plan, message string) (result, error) {
	switch plan.Intent {
	case IntentAddExpense:
		return a.actAddExpense(ctx, plan, message)
	case IntentDeleteExpense:
		return a.actDelete(ctx, plan, message), nil
	case IntentSetBudget:
		return a.actSetBudget(ctx, plan, message), nil
	case IntentGetBudget:
		return a.actGetBudget(ctx, plan), nil
	case IntentGetExpenses:
		return a.actGetExpenses(ctx, plan), nil
	default:
		text := a.GeneralResponse(ctx, message)
		return result{
			action:    ActionGeneralResponse,
			reasoning: plan.Reasoning,
			success:   true,
			message:   text,
			data:      map[string]any{"response": text},
		}, nil
	}
}

func (a *Agent) actAddExpense(ctx context.Context, plan Plan, message string) (result, error) {
	parsed, err := a.ParseExpense(ctx, message)
	if err != nil || parsed == nil {
		if err != nil {
			a.logger.WarnContext(ctx, "Expense parse failed", log.FieldError, err)
		}
		return result{action: ActionError, reasoning: "Failed to parse expense details"}, nil
	}
	created, err := a.expenses.CreateExpense(ctx, parsed.ToCreate())
	if err != nil {
		return result{}, fmt.Errorf("add expense: %w", err)
	}
	return result{
		action:    ActionAddExpense,
		reasoning: plan.Reasoning,
		success:   true,
		message: fmt.Sprintf("I've added your expense: $%s at %s for %s.",
			parsed.Amount, orDefault(parsed.Merchant, core.DefaultMerchant), orDefault(parsed.Category, core.DefaultCategory)),
		data: map[string]any{"expense": parsed, "expense_id": created.ID},
	}, nil
}

func (a *Agent) actDelete(ctx context.Context, plan Plan, message string) result {
	del := a.DeleteTransaction(ctx, DeleteRequest{Query: message})
	switch {
	case del.NeedsConfirmation:
		return result{
			action:            ActionDeleteTransaction,
			reasoning:         plan.Reasoning,
			needsConfirmation: true,
			message:           confirmationMessage(del),
			data:              del,
		}
	case del.Success:
		d := del.DeletedTransaction
		return result{
			action:    ActionDeleteTransaction,
			reasoning: plan.Reasoning,
			success:   true,
			message: fmt.Sprintf("I've removed the $%s %s at %s from your records. Let me know if you need anything else!",
				d.Amount, orDefault(d.Category, "expense"), orDefault(d.Merchant, core.DefaultMerchant)),
			data: del,
		}
	default:
		return result{action: ActionError, reasoning: "Failed to delete transaction", message: del.Message, data: del}
	}
}

func (a *Agent) actSetBudget(ctx context.Context, plan Plan, message string) result {
	res := a.SetBudget(ctx, message)
	if !res.Success {
		return result{action: ActionError, reasoning: "Failed to set budget", message: res.Message, data: res}
	}
	return result{action: ActionSetBudget, reasoning: plan.Reasoning, success: true, message: res.Message, data: res}
}

func (a *Agent) actGetBudget(ctx context.Context, plan Plan) result {
	budgets, err := a.budgets.ListBudgets(ctx)
	if err != nil {
		a.logger.ErrorContext(ctx, "Failed to list budgets", log.FieldError, err)
		return result{action: ActionError, reasoning: "Failed to load budgets", message: "I couldn't load your budgets right now. Please try again later."}
	}
	return result{
		action:    ActionGetBudget,
		reasoning: plan.Reasoning,
		success:   true,
		message:   budgetSummary(budgets),
		data:      map[string]any{"budgets": budgets},
	}
}

// recentExpenseCount is how many expenses a listing reply shows.
const recentExpenseCount = 5

func (a *Agent) actGetExpenses(ctx context.Context, plan Plan) result {
	all, err := a.expenses.ListExpenses(ctx)
	if err != nil {
		a.logger.ErrorContext(ctx, "Failed to list expenses", log.FieldError, err)
		return result{action: ActionError, reasoning: "Failed to load expenses", message: "I couldn't load your expenses right now. Please try again later."}
	}
	all = core.Listable(all)
	recent := mostRecent(all, recentExpenseCount)
	var total core.Money
	for _, e := range all {
		total = total.Add(e.Amount)
	}
	return result{
		action:    ActionGetExpenses,
		reasoning: plan.Reasoning,
		success:   true,
		message:   expenseSummary(recent, len(all), total),
		data:      map[string]any{"expenses": recent, "total": total, "count": len(all)},
	}
}

const defaultErrorMessage = "I had trouble understanding that expense. Could you try rephrasing? For example: 'I spent $45 on groceries at Whole Foods'"

func (a *Agent) observe(res result) ChatResponse {
	msg := res.message
	if msg == "" {
		switch res.action {
		case ActionError:
			msg = defaultErrorMessage
		case ActionGeneralResponse:
			msg = "I'm here to help with your finances!"
		default:
			msg = "I'm working on that feature!"
		}
	}
	return ChatResponse{
		Message:     msg,
		Reasoning:   res.reasoning,
		ActionTaken: res.action,
		State:       StateCompleted,
		Data:        res.data,
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
