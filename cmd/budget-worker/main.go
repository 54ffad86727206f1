package main

import (
	"context"
	"errors"
	"os"

	"finagent/internal/backend"
	"finagent/internal/cli"
	"finagent/internal/config"
	"finagent/internal/log"
	"finagent/internal/worker"
)

func main() {
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting budget-worker")
	cfg := cli.LoadConfig(logger, (*config.Config).Validate)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	// Recalculation must read the ledger as it is now.
	bcfg.CacheTTL = 0
	bcfg.LogStore = ""

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	factory, b := cli.OpenBackend(ctx, logger, bcfg)
	defer func() {
		if err := b.Close(); err != nil {
			logger.Error("Backend close error", log.FieldError, err)
		}
	}()

	mirror, err := factory.Mirror(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize expense mirror", log.FieldError, err)
		os.Exit(1)
	}

	w := worker.NewBudgetWorker(b.Budgets, mirror, logger)
	if err := w.Reconcile(ctx); err != nil {
		logger.Error("Startup reconciliation failed", log.FieldError, err)
	}
	if err := w.StartSchedule(ctx, cfg.BudgetRecalcSchedule); err != nil {
		logger.Error("Failed to start recalculation schedule", log.FieldError, err, "schedule", cfg.BudgetRecalcSchedule)
		os.Exit(1)
	}
	defer w.Stop()

	if b.Publisher != nil {
		go func() {
			err := b.Publisher.ConsumeExpenseEvents(ctx, w.HandleExpenseEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
			cancel()
		}()
	} else {
		logger.Info("No broker configured, relying on scheduled recalculation")
	}

	<-ctx.Done()
	logger.Info("Budget worker stopped", log.FieldOperation, log.OpShutdown)
}
