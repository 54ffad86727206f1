package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

type Config struct {
	// HTTP Server
	Port               string
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	ReceiptMaxBytes    int64

	// Ledger
	LedgerBackend      string
	LedgerSeedFile     string
	NotionAPIKey       string
	NotionExpensesDBID string
	NotionBudgetsDBID  string
	ExpenseCacheTTL    time.Duration

	// Log store
	LogStore     string
	DatabaseURL  string
	PGUser       string
	PGPassword   string
	PGHost       string
	PGDB         string
	SQLiteDBPath string

	// LLM
	LLMAPIKey      string
	LLMBaseURL     string
	LLMModel       string
	LLMVisionModel string
	LLMTimeout     time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsFile string
	BudgetRecalcSchedule  string

	LogLevel string
}

// LoadDotEnv reads .env when present. A missing file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8000"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		ReceiptMaxBytes:    int64(getEnvInt("RECEIPT_MAX_BYTES", 10<<20)),

		LedgerBackend:      getEnv("LEDGER_BACKEND", "memory"),
		LedgerSeedFile:     getEnv("LEDGER_SEED_FILE", ""),
		NotionAPIKey:       getEnv("NOTION_API_KEY", ""),
		NotionExpensesDBID: getEnv("NOTION_EXPENSES_DB_ID", ""),
		NotionBudgetsDBID:  getEnv("NOTION_BUDGETS_DB_ID", ""),
		ExpenseCacheTTL:    getEnvDuration("EXPENSE_CACHE_TTL", 30*time.Second),

		LogStore:     getEnv("LOG_STORE", "sqlite"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		PGUser:       getEnv("PG_USER", ""),
		PGPassword:   getEnv("PG_PASSWORD", ""),
		PGHost:       getEnv("PG_HOST", ""),
		PGDB:         getEnv("PG_DB", ""),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finagent.db"),

		LLMAPIKey:      getEnv("OPENAI_API_KEY", getEnv("AI_TOKEN", "")),
		LLMBaseURL:     getEnv("OPENAI_BASE_URL", getEnv("AI_BASE_URL", "")),
		LLMModel:       getEnv("LLM_MODEL", "gpt-oss-120b"),
		LLMVisionModel: getEnv("LLM_VISION_MODEL", "gemma3-27b"),
		LLMTimeout:     getEnvDuration("LLM_TIMEOUT", 60*time.Second),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finagent"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "budget_events"),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:       getEnv("GOOGLE_SHEET_NAME", "Expenses"),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		BudgetRecalcSchedule:  getEnv("BUDGET_RECALC_SCHEDULE", "*/15 * * * *"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate validates the configuration shared by the API and the worker.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.LedgerBackend {
	case "memory":
		if c.LedgerSeedFile != "" {
			if _, err := os.Stat(c.LedgerSeedFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("ledger seed file does not exist: %s", c.LedgerSeedFile))
			}
		}
	case "notion":
		if c.NotionAPIKey == "" {
			errors = append(errors, "NOTION_API_KEY is required when using notion ledger")
		}
		if c.NotionExpensesDBID == "" {
			errors = append(errors, "NOTION_EXPENSES_DB_ID is required when using notion ledger")
		}
		if c.NotionBudgetsDBID == "" {
			errors = append(errors, "NOTION_BUDGETS_DB_ID is required when using notion ledger")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid ledger backend '%s': must be one of [memory notion]", c.LedgerBackend))
	}

	if c.ExpenseCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid expense cache TTL %v: must not be negative", c.ExpenseCacheTTL))
	}

	switch c.LogStore {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite log store")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case "postgres":
		if c.DatabaseURL == "" && (c.PGHost == "" || c.PGDB == "") {
			errors = append(errors, "either DATABASE_URL or PG_HOST and PG_DB must be provided for postgres log store")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid log store '%s': must be one of [postgres sqlite]", c.LogStore))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleCredentialsFile != "" {
		if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
		}
	}

	if _, err := cron.ParseStandard(c.BudgetRecalcSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid budget recalc schedule '%s': %v", c.BudgetRecalcSchedule, err))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 per minute", c.RateLimitPerMinute))
	}
	if c.ReceiptMaxBytes < 1 {
		errors = append(errors, fmt.Sprintf("invalid receipt size limit %d: must be positive", c.ReceiptMaxBytes))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateAPI adds the checks only the HTTP API needs.
func (c *Config) ValidateAPI() error {
	err := c.Validate()
	if strings.TrimSpace(c.LLMAPIKey) != "" {
		return err
	}
	const missing = "either OPENAI_API_KEY or AI_TOKEN must be provided"
	if err != nil {
		return fmt.Errorf("%w\n- %s", err, missing)
	}
	return fmt.Errorf("configuration validation failed:\n- %s", missing)
}

// MirrorEnabled reports whether expense changes should be copied to a sheet.
func (c *Config) MirrorEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
