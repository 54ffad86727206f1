package backend

import (
	"context"
	"fmt"
	"time"

	"finagent/internal/adapters"
	"finagent/internal/amqp"
	"finagent/internal/cache"
	"finagent/internal/ledger"
	"finagent/internal/ledger/memory"
	"finagent/internal/ledger/notion"
	"finagent/internal/log"
	"finagent/internal/services"
	"finagent/internal/sheets"
	gsheet "finagent/internal/sheets/google"
	sheetmem "finagent/internal/sheets/memory"
	"finagent/internal/storage"

	goption "google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// cacheSweepInterval is how often expired ledger cache entries are evicted.
const cacheSweepInterval = time.Minute

type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &Factory{logger: logger.WithComponent(log.ComponentBackend)}
}

// Build opens every configured resource. On error, anything already opened
// is closed.
func (f *Factory) Build(ctx context.Context, cfg Config) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := &Backend{}
	ok := false
	defer func() {
		if !ok {
			_ = b.Close()
		}
	}()

	l, err := f.openLedger(b, cfg)
	if err != nil {
		return nil, err
	}
	b.Ledger = l

	if cfg.LogStore != "" {
		logs, err := f.openLogStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		b.Logs = logs
		b.addCleanup(logs.Close)
	}

	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, recalculating budgets inline", log.FieldError, err)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
			b.Publisher = client
			b.addCleanup(client.Close)
			publisher = client
		}
	}

	b.Budgets = services.NewBudgetService(b.Ledger, b.Ledger, f.logger)
	b.Expenses = services.NewExpenseService(b.Ledger, publisher, b.Budgets, f.logger)

	f.logger.InfoContext(ctx, "Backend ready",
		"ledger", cfg.Ledger,
		"log_store", cfg.LogStore,
		"cache_ttl", cfg.CacheTTL.String(),
		"amqp_enabled", b.Publisher != nil)
	ok = true
	return b, nil
}

func (f *Factory) openLedger(b *Backend, cfg Config) (ledger.Ledger, error) {
	var base ledger.Ledger
	switch cfg.Ledger {
	case NotionLedger:
		client, err := notion.New(cfg.Notion, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Notion ledger: %w", err)
		}
		base = client
	case MemoryLedger:
		if cfg.SeedFile == "" {
			base = memory.New()
			break
		}
		store, err := memory.NewFromFile(cfg.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("failed to seed memory ledger: %w", err)
		}
		base = store
	default:
		return nil, fmt.Errorf("unsupported ledger backend: %s", cfg.Ledger)
	}

	if cfg.CacheTTL <= 0 {
		return base, nil
	}
	cached := adapters.NewCachedLedger(base, cfg.CacheTTL)
	manager := cache.NewManager()
	for _, c := range cached.Caches() {
		manager.Register(c)
	}
	manager.StartCleanup(cacheSweepInterval)
	b.addCleanup(func() error {
		manager.Stop()
		return nil
	})
	return cached, nil
}

func (f *Factory) openLogStore(ctx context.Context, cfg Config) (storage.Store, error) {
	switch cfg.LogStore {
	case SQLiteLogStore:
		s, err := storage.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite log store: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite log store", "db_path", cfg.SQLitePath)
		return s, nil
	case PostgresLogStore:
		s, err := storage.NewPostgresStore(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres log store: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized Postgres log store", "host", cfg.Postgres.Host)
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported log store: %s", cfg.LogStore)
	}
}

// Mirror returns the Google Sheets mirror, or an in-process one when no
// spreadsheet is configured.
func (f *Factory) Mirror(ctx context.Context, cfg Config) (sheets.ExpenseMirror, error) {
	if cfg.SpreadsheetID == "" {
		f.logger.InfoContext(ctx, "No spreadsheet configured, mirroring in memory")
		return sheetmem.New(), nil
	}

	var opts []goption.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts,
			goption.WithCredentialsFile(cfg.CredentialsFile),
			goption.WithScopes(gsheets.SpreadsheetsScope))
	}
	client, err := gsheet.New(ctx, cfg.SpreadsheetID, cfg.SheetName, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets mirror: %w", err)
	}
	if err := client.EnsureHeader(ctx); err != nil {
		return nil, fmt.Errorf("prepare mirror sheet: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized Google Sheets mirror", "spreadsheet_id", cfg.SpreadsheetID)
	return client, nil
}
