package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finagent/internal/agent"
	"finagent/internal/backend"
	"finagent/internal/cli"
	"finagent/internal/config"
	apphttp "finagent/internal/http"
	"finagent/internal/llm"
	"finagent/internal/log"
)

func main() {
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadConfig(logger, (*config.Config).ValidateAPI)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	_, b := cli.OpenBackend(ctx, logger, bcfg)
	defer func() {
		if err := b.Close(); err != nil {
			logger.Error("Backend close error", log.FieldError, err)
		}
	}()

	llmClient, err := llm.New(llm.Config{
		APIKey:      cfg.LLMAPIKey,
		BaseURL:     cfg.LLMBaseURL,
		Model:       cfg.LLMModel,
		VisionModel: cfg.LLMVisionModel,
		Timeout:     cfg.LLMTimeout,
	})
	if err != nil {
		logger.Error("Failed to initialize LLM client", log.FieldError, err)
		os.Exit(1)
	}
	assistant := agent.New(llmClient, b.Expenses, b.Budgets, agent.WithLogger(logger))

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Expenses: b.Expenses,
		Budgets:  b.Budgets,
		Agent:    assistant,
		Logs:     b.Logs,
		Logger:   logger,
	}, apphttp.Options{
		AllowedOrigins:     cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		ReceiptMaxBytes:    cfg.ReceiptMaxBytes,
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	}()

	logger.Info("Starting finagent server", "port", cfg.Port, "ledger", bcfg.Ledger, "log_store", bcfg.LogStore, log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		cancel()
		return
	}

	<-ctx.Done()
	stats := srv.Stats()
	logger.Info("Server stopped gracefully", "requests", stats.Requests, "server_errors", stats.ServerErrors)
}
