// Package backend assembles the ledger, log store, broker and services
// selected by configuration.
package backend

import (
	"errors"
	"time"

	"finagent/internal/amqp"
	"finagent/internal/ledger"
	"finagent/internal/ledger/notion"
	"finagent/internal/services"
	"finagent/internal/storage"
)

// CleanupFunc releases one resource.
type CleanupFunc func() error

// Backend holds everything a process needs to serve requests or events.
type Backend struct {
	Ledger    ledger.Ledger
	Logs      storage.Store
	Publisher *amqp.Client
	Expenses  *services.ExpenseService
	Budgets   *services.BudgetService

	cleanups []CleanupFunc
}

func (b *Backend) addCleanup(fn CleanupFunc) {
	b.cleanups = append(b.cleanups, fn)
}

// Close releases resources in reverse order of acquisition.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.cleanups) - 1; i >= 0; i-- {
		if err := b.cleanups[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.cleanups = nil
	return errors.Join(errs...)
}

type Config struct {
	Ledger   LedgerType
	SeedFile string
	Notion   notion.Config
	// CacheTTL of zero disables the ledger read cache.
	CacheTTL time.Duration

	// LogStore may be empty for processes that never record decisions.
	LogStore   LogStoreType
	SQLitePath string
	Postgres   storage.PostgresConfig

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
}

type LedgerType string

const (
	NotionLedger LedgerType = "notion"
	MemoryLedger LedgerType = "memory"
)

func (t LedgerType) IsValid() bool {
	switch t {
	case NotionLedger, MemoryLedger:
		return true
	default:
		return false
	}
}

type LogStoreType string

const (
	PostgresLogStore LogStoreType = "postgres"
	SQLiteLogStore   LogStoreType = "sqlite"
)

func (t LogStoreType) IsValid() bool {
	switch t {
	case PostgresLogStore, SQLiteLogStore:
		return true
	default:
		return false
	}
}
