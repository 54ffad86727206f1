// Package http serves the finance assistant's JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/cors"

	"finagent/internal/agent"
	"finagent/internal/core"
	"finagent/internal/log"
	"finagent/internal/middleware/ratelimit"
	"finagent/internal/middleware/security"
	"finagent/internal/middleware/trace"
	"finagent/internal/storage"
)

const defaultReceiptMaxBytes = 10 << 20

type ExpenseService interface {
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	GetExpense(ctx context.Context, id string) (core.Expense, error)
	CreateExpense(ctx context.Context, in core.ExpenseCreate) (core.Expense, error)
	UpdateExpense(ctx context.Context, id string, in core.ExpenseUpdate) (core.Expense, error)
	DeleteExpense(ctx context.Context, id string) error
}

type BudgetService interface {
	ListBudgets(ctx context.Context) ([]core.Budget, error)
	GetBudget(ctx context.Context, id string) (core.Budget, error)
	CreateBudget(ctx context.Context, in core.BudgetCreate) (core.Budget, error)
	UpdateBudget(ctx context.Context, id string, in core.BudgetUpdate) (core.Budget, error)
	DeleteBudget(ctx context.Context, id string) error
}

// Assistant is the agent surface the API exposes.
type Assistant interface {
	ProcessMessage(ctx context.Context, message string) (agent.ChatResponse, error)
	AddExpense(ctx context.Context, text string) (*agent.ExpenseParse, core.Expense, error)
	DeleteTransaction(ctx context.Context, req agent.DeleteRequest) agent.DeleteResult
	GenerateReport(ctx context.Context, req core.ReportRequest) (core.Report, error)
	SetBudget(ctx context.Context, text string) agent.SetBudgetResult
	ExtractReceipt(ctx context.Context, image []byte, contentType string) *agent.ReceiptData
	SaveReceipt(ctx context.Context, r agent.ReceiptData, filename string) (core.Expense, error)
}

type Deps struct {
	Expenses ExpenseService
	Budgets  BudgetService
	Agent    Assistant
	Logs     storage.Store
	Logger   *log.Logger
}

type Options struct {
	AllowedOrigins     []string
	RateLimitPerMinute int
	ReceiptMaxBytes    int64
}

type Server struct {
	http.Server
	expenses ExpenseService
	budgets  BudgetService
	agent    Assistant
	logs     storage.Store
	logger   *log.Logger
	decision *log.StructuredLogger

	limiter         *ratelimit.Limiter
	tracer          *trace.Middleware
	receiptMaxBytes int64
	shutdownOnce    sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, deps Deps, opts Options) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	if opts.ReceiptMaxBytes <= 0 {
		opts.ReceiptMaxBytes = defaultReceiptMaxBytes
	}

	detector := security.NewDetector()
	s := &Server{
		expenses:        deps.Expenses,
		budgets:         deps.Budgets,
		agent:           deps.Agent,
		logs:            deps.Logs,
		logger:          logger.WithComponent(log.ComponentHTTP),
		decision:        log.NewStructuredLogger(logger),
		limiter:         ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		tracer:          trace.NewMiddleware(logger, detector.ClientIP),
		receiptMaxBytes: opts.ReceiptMaxBytes,
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var h http.Handler = mux
	h = s.limiter.Middleware(detector.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded", log.FieldClientIP, detector.ClientIP(r), log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
		writeDetail(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
	})(h)
	h = detector.Middleware(logger)(h)
	h = s.tracer.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = cors.New(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", trace.HeaderRequestID},
		ExposedHeaders:   []string{trace.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		// Agent calls wait on the LLM.
		WriteTimeout:   90 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", handleHealth)

	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("GET /api/expenses/{id}", s.handleGetExpense)
	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)

	mux.HandleFunc("GET /api/budgets", s.handleListBudgets)
	mux.HandleFunc("GET /api/budgets/{id}", s.handleGetBudget)
	mux.HandleFunc("POST /api/budgets", s.handleCreateBudget)
	mux.HandleFunc("PUT /api/budgets/{id}", s.handleUpdateBudget)
	mux.HandleFunc("DELETE /api/budgets/{id}", s.handleDeleteBudget)

	mux.HandleFunc("POST /api/agent/chat", s.handleChat)
	mux.HandleFunc("POST /api/agent/add-expense", s.handleAddExpense)
	mux.HandleFunc("POST /api/agent/delete-transaction", s.handleDeleteTransaction)
	mux.HandleFunc("POST /api/agent/report", s.handleReport)
	mux.HandleFunc("POST /api/agent/set-budget", s.handleSetBudget)
	mux.HandleFunc("GET /api/agent/decisions", s.handleDecisions)

	mux.HandleFunc("POST /api/receipts/upload", s.handleReceiptUpload)
	mux.HandleFunc("POST /api/receipts/upload-and-save", s.handleReceiptUploadAndSave)

	mux.HandleFunc("POST /api/chat/messages", s.withUser(s.handleSaveMessage))
	mux.HandleFunc("GET /api/chat/messages", s.withUser(s.handleUserMessages))
	mux.HandleFunc("DELETE /api/chat/messages", s.withUser(s.handleDeleteUserMessages))
	mux.HandleFunc("GET /api/chat/messages/session/{id}", s.handleSessionMessages)
	mux.HandleFunc("DELETE /api/chat/messages/session/{id}", s.handleDeleteSessionMessages)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, true)
}

// Shutdown stops the listener and background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// Stats exposes request counters for the status log.
func (s *Server) Stats() trace.Stats {
	return s.tracer.Stats()
}
