package backend

import (
	"fmt"

	"finagent/internal/config"
	"finagent/internal/ledger/notion"
	"finagent/internal/storage"
)

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	cfg := Config{
		Ledger:   LedgerType(appConfig.LedgerBackend),
		SeedFile: appConfig.LedgerSeedFile,
		Notion: notion.Config{
			APIKey:       appConfig.NotionAPIKey,
			ExpensesDBID: appConfig.NotionExpensesDBID,
			BudgetsDBID:  appConfig.NotionBudgetsDBID,
		},
		CacheTTL: appConfig.ExpenseCacheTTL,

		LogStore:   LogStoreType(appConfig.LogStore),
		SQLitePath: appConfig.SQLiteDBPath,
		Postgres: storage.PostgresConfig{
			URL:      appConfig.DatabaseURL,
			User:     appConfig.PGUser,
			Password: appConfig.PGPassword,
			Host:     appConfig.PGHost,
			Database: appConfig.PGDB,
		},

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		SpreadsheetID:   appConfig.GoogleSpreadsheetID,
		SheetName:       appConfig.GoogleSheetName,
		CredentialsFile: appConfig.GoogleCredentialsFile,
	}
	return cfg, cfg.Validate()
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Ledger.IsValid() {
		return fmt.Errorf("invalid ledger backend: %s", c.Ledger)
	}
	if c.Ledger == NotionLedger {
		if err := c.Notion.Validate(); err != nil {
			return err
		}
	}

	switch c.LogStore {
	case "":
	case SQLiteLogStore:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite log store")
		}
	case PostgresLogStore:
		if c.Postgres.URL == "" && (c.Postgres.Host == "" || c.Postgres.Database == "") {
			return fmt.Errorf("postgres log store needs DATABASE_URL or PG_HOST and PG_DB")
		}
	default:
		return fmt.Errorf("invalid log store: %s", c.LogStore)
	}

	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return fmt.Errorf("AMQP exchange and queue are required when AMQP URL is set")
	}
	return nil
}
