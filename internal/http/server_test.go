package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finagent/internal/agent"
	"finagent/internal/core"
	"finagent/internal/ledger/memory"
	"finagent/internal/services"
	"finagent/internal/storage"
)

type fakeAssistant struct {
	chat     agent.ChatResponse
	chatErr  error
	parse    *agent.ExpenseParse
	receipt  *agent.ReceiptData
	expenses *services.ExpenseService
	deletes  []agent.DeleteRequest
}

func (f *fakeAssistant) ProcessMessage(context.Context, string) (agent.ChatResponse, error) {
	return f.chat, f.chatErr
}

func (f *fakeAssistant) AddExpense(ctx context.Context, _ string) (*agent.ExpenseParse, core.Expense, error) {
	if f.parse == nil {
		return nil, core.Expense{}, agent.ErrUnparseable
	}
	e, err := f.expenses.CreateExpense(ctx, f.parse.ToCreate())
	return f.parse, e, err
}

func (f *fakeAssistant) DeleteTransaction(_ context.Context, req agent.DeleteRequest) agent.DeleteResult {
	f.deletes = append(f.deletes, req)
	return agent.DeleteResult{Message: "Transaction not found"}
}

func (f *fakeAssistant) GenerateReport(_ context.Context, req core.ReportRequest) (core.Report, error) {
	return core.Report{Success: true, ReportType: req.Normalize().ReportType}, nil
}

func (f *fakeAssistant) SetBudget(context.Context, string) agent.SetBudgetResult {
	return agent.SetBudgetResult{Success: true, Message: "Budget set"}
}

func (f *fakeAssistant) ExtractReceipt(context.Context, []byte, string) *agent.ReceiptData {
	return f.receipt
}

func (f *fakeAssistant) SaveReceipt(ctx context.Context, r agent.ReceiptData, filename string) (core.Expense, error) {
	return f.expenses.CreateExpense(ctx, core.ExpenseCreate{
		Amount: r.Amount, Category: r.Category, Merchant: r.Merchant, Date: r.Date, Description: "Receipt upload: " + filename,
	})
}

type testEnv struct {
	server    *Server
	ledger    *memory.Store
	logs      *storage.SQLiteStore
	assistant *fakeAssistant
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New()
	budgets := services.NewBudgetService(store, store, nil)
	expenses := services.NewExpenseService(store, nil, budgets, nil)
	logs, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "log.db"))
	require.NoError(t, err)
	t.Cleanup(func() { logs.Close() })

	fa := &fakeAssistant{expenses: expenses}
	s := NewServer(":0", Deps{Expenses: expenses, Budgets: budgets, Agent: fa, Logs: logs}, Options{RateLimitPerMinute: 1000})
	t.Cleanup(func() { s.limiter.Stop() })
	return &testEnv{server: s, ledger: store, logs: logs, assistant: fa}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.server.Handler.ServeHTTP(rec, req)
	return rec
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Detail
}

func bearer(t *testing.T, sub string) http.Header {
	t.Helper()
	claims := jwt.MapClaims{}
	if sub != "" {
		claims["sub"] = sub
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("any-key"))
	require.NoError(t, err)
	return http.Header{"Authorization": {"Bearer " + token}}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "true", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestExpenseRoutes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/expenses", map[string]any{
		"amount": 12.5, "category": "Dining", "merchant": "Cafe", "date": "2025-11-02",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created core.Expense
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, core.Dollars(12, 50), created.Amount)

	rec = env.do(t, http.MethodGet, "/api/expenses", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []core.Expense
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)

	rec = env.do(t, http.MethodPut, "/api/expenses/"+created.ID, map[string]any{"merchant": "Bistro"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/expenses/"+created.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got core.Expense
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Bistro", got.Merchant)

	rec = env.do(t, http.MethodDelete, "/api/expenses/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/expenses/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExpenseValidation(t *testing.T) {
	tests := []struct {
		name string
		body any
		want int
	}{
		{"zero amount", map[string]any{"amount": 0, "category": "Dining", "merchant": "Cafe", "date": "2025-11-02"}, http.StatusUnprocessableEntity},
		{"bad date", map[string]any{"amount": 5, "category": "Dining", "merchant": "Cafe", "date": "11/02/2025"}, http.StatusUnprocessableEntity},
		{"empty category", map[string]any{"amount": 5, "category": " ", "merchant": "Cafe", "date": "2025-11-02"}, http.StatusUnprocessableEntity},
		{"amount beyond range", `{"amount":2e17,"category":"Dining","merchant":"Cafe","date":"2025-11-02"}`, http.StatusUnprocessableEntity},
		{"amount string beyond range", `{"amount":"200000000000000000","category":"Dining","merchant":"Cafe","date":"2025-11-02"}`, http.StatusUnprocessableEntity},
		{"malformed json", "{", http.StatusUnprocessableEntity},
		{"empty body", "", http.StatusUnprocessableEntity},
	}
	env := newTestEnv(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/expenses", tt.body, nil)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, detail(t, rec))
		})
	}

	all, err := env.ledger.ListExpenses(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestBudgetUpdateRejectsHugeAmount(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/budgets", map[string]any{"category": "Dining", "amount": 100, "period": "monthly"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var b core.Budget
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))

	rec = env.do(t, http.MethodPut, "/api/budgets/"+b.ID, `{"amount":1e19}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	got, err := env.ledger.GetBudget(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, core.Dollars(100, 0), got.Amount)
}

func TestBudgetRoutes(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.ledger.CreateExpense(context.Background(), core.ExpenseCreate{
		Amount: core.Dollars(20, 0), Category: "Dining", Merchant: "Cafe", Date: core.FormatDate(time.Now()),
	})
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/api/budgets", map[string]any{"category": "Dining", "amount": 100, "period": "monthly"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var b core.Budget
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	assert.Equal(t, core.Dollars(20, 0), b.Spent)

	rec = env.do(t, http.MethodPut, "/api/budgets/missing", map[string]any{"amount": 50}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Budget not found", detail(t, rec))

	rec = env.do(t, http.MethodDelete, "/api/budgets/"+b.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"message":"Budget deleted successfully"}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/budgets", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestChatRecordsDecision(t *testing.T) {
	env := newTestEnv(t)
	env.assistant.chat = agent.ChatResponse{
		Message:     "Hello!",
		Reasoning:   "greeting",
		ActionTaken: agent.ActionGeneralResponse,
		State:       agent.StateCompleted,
		Data:        map[string]any{"response": "Hello!"},
	}

	rec := env.do(t, http.MethodPost, "/api/agent/chat", map[string]string{"message": "hi"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp agent.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Hello!", resp.Message)

	rec = env.do(t, http.MethodGet, "/api/agent/decisions", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Decisions []storage.Decision `json:"decisions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Decisions, 1)
	assert.Equal(t, "hi", body.Decisions[0].UserMessage)
	assert.Equal(t, "general_response", body.Decisions[0].ActionTaken)
	assert.JSONEq(t, `{"response":"Hello!"}`, string(body.Decisions[0].Result))
}

func TestChatErrors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/agent/chat", map[string]string{"message": "   "}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	long := bytes.Repeat([]byte("a"), maxChatMessage+1)
	rec = env.do(t, http.MethodPost, "/api/agent/chat", map[string]string{"message": string(long)}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	env.assistant.chatErr = errors.New("llm down")
	rec = env.do(t, http.MethodPost, "/api/agent/chat", map[string]string{"message": "hi"}, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error processing message: llm down", detail(t, rec))
}

func TestAddExpense(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/agent/add-expense", map[string]string{"text": "gibberish"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Could not parse expense from text. Please try rephrasing.", detail(t, rec))

	env.assistant.parse = &agent.ExpenseParse{
		Amount: core.Dollars(45, 0), Category: "Groceries", Merchant: "Whole Foods", Date: "2025-11-02", Confidence: 0.95,
	}
	rec = env.do(t, http.MethodPost, "/api/agent/add-expense", map[string]string{"text": "I spent $45 at Whole Foods"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp agent.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Added expense: $45.00 at Whole Foods for Groceries", resp.Message)
	assert.Equal(t, "Parsed with 95% confidence", resp.Reasoning)
	assert.Equal(t, agent.ActionAddExpense, resp.ActionTaken)

	all, err := env.ledger.ListExpenses(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)

	decisions, err := env.logs.RecentDecisions(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, "Parsed expense with 95% confidence", decisions[0].LLMReasoning)
}

func TestDeleteTransactionValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/agent/delete-transaction", map[string]any{"query": ""}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/agent/delete-transaction", map[string]any{"confirmed": true, "transaction_id": "e1"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, env.assistant.deletes, 1)
	assert.Equal(t, "e1", env.assistant.deletes[0].TransactionID)
}

func TestReportValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/agent/report", map[string]string{"report_type": "weekly"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/agent/report", map[string]string{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var report core.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, core.ReportMonthly, report.ReportType)
}

func receiptRequest(t *testing.T, path, contentType string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="file"; filename="receipt.jpg"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte("fake image bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestReceiptUpload(t *testing.T) {
	env := newTestEnv(t)
	serve := func(req *http.Request) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		env.server.Handler.ServeHTTP(rec, req)
		return rec
	}

	rec := serve(receiptRequest(t, "/api/receipts/upload", "text/plain"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Only image files are allowed", detail(t, rec))

	rec = serve(receiptRequest(t, "/api/receipts/upload", "image/jpeg"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Could not extract expense details from receipt","expense_data":null}`, rec.Body.String())

	env.assistant.receipt = &agent.ReceiptData{Merchant: "Target", Amount: core.Dollars(23, 47), Date: "2025-11-02", Category: "Shopping"}
	rec = serve(receiptRequest(t, "/api/receipts/upload-and-save", "image/png"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body receiptResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "Receipt processed and expense created", body.Message)
	assert.NotEmpty(t, body.ExpenseID)
	assert.Equal(t, "receipt.jpg", body.Filename)
}

func TestChatMessages(t *testing.T) {
	env := newTestEnv(t)
	alice := bearer(t, "alice")

	rec := env.do(t, http.MethodPost, "/api/chat/messages", map[string]any{"role": "user", "content": "hi"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Missing or invalid authorization header", detail(t, rec))

	rec = env.do(t, http.MethodPost, "/api/chat/messages", map[string]any{"role": "robot", "content": "hi"}, alice)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	session := "s1"
	for _, m := range []map[string]any{
		{"role": "user", "content": "hi", "session_id": session},
		{"role": "assistant", "content": "hello", "session_id": session, "metadata": map[string]any{"action": "general_response"}},
	} {
		rec = env.do(t, http.MethodPost, "/api/chat/messages", m, alice)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	rec = env.do(t, http.MethodPost, "/api/chat/messages", map[string]any{"role": "user", "content": "other"}, bearer(t, "bob"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/chat/messages", nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	var msgs []storage.ChatMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	require.Len(t, msgs, 2)
	assert.Equal(t, "alice", msgs[0].UserID)

	rec = env.do(t, http.MethodGet, "/api/chat/messages/session/"+session, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	assert.Len(t, msgs, 2)

	rec = env.do(t, http.MethodDelete, "/api/chat/messages/session/"+session, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Deleted 2 messages successfully","deleted_count":2}`, rec.Body.String())

	rec = env.do(t, http.MethodDelete, "/api/chat/messages", nil, bearer(t, "bob"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Deleted 1 messages successfully","deleted_count":1}`, rec.Body.String())
}

func TestChatMessagesAnonymousSubject(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/chat/messages", map[string]any{"role": "user", "content": "hi"}, bearer(t, ""))
	require.Equal(t, http.StatusCreated, rec.Code)

	msgs, err := env.logs.UserMessages(context.Background(), "unknown", 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestChatMessagesWithoutStore(t *testing.T) {
	s := NewServer(":0", Deps{Agent: &fakeAssistant{}}, Options{RateLimitPerMinute: 1000})
	defer s.limiter.Stop()

	req := httptest.NewRequest(http.MethodGet, "/api/chat/messages/session/s1", nil)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRateLimitReturns429(t *testing.T) {
	s := NewServer(":0", Deps{Agent: &fakeAssistant{}}, Options{RateLimitPerMinute: 1})
	defer s.limiter.Stop()

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/agent/chat", bytes.NewBufferString(`{"message":""}`))
		req.RemoteAddr = "203.0.113.9:5555"
		rec := httptest.NewRecorder()
		s.Handler.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusUnprocessableEntity, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}
