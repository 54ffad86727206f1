// Package cli holds the start-up steps shared by cmd/finagent and
// cmd/budget-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"finagent/internal/backend"
	"finagent/internal/config"
	"finagent/internal/log"
)

// SetupLogger builds the process logger at the LOG_LEVEL in the environment
// and installs it as the slog default.
func SetupLogger(component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(os.Getenv("LOG_LEVEL")),
		Component: component,
	})
	log.SetDefault(logger)
	return logger
}

// LoadConfig reads .env, loads the configuration and validates it with
// validate. It exits the process on failure.
func LoadConfig(logger *log.Logger, validate func(*config.Config) error) *config.Config {
	if err := config.LoadDotEnv(); err != nil {
		logger.Warn("Could not load .env file", log.FieldError, err)
	}
	cfg := config.Load()
	if err := validate(cfg); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// OpenBackend builds the backend for cfg or exits the process.
func OpenBackend(ctx context.Context, logger *log.Logger, cfg backend.Config) (*backend.Factory, *backend.Backend) {
	factory := backend.NewFactory(logger)
	b, err := factory.Build(ctx, cfg)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	return factory, b
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
