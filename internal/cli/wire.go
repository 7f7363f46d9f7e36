// Package cli implements the scheduler's command line surface.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/industrial-scheduler/internal/category"
	"github.com/example/industrial-scheduler/internal/config"
	"github.com/example/industrial-scheduler/internal/logging"
	"github.com/example/industrial-scheduler/internal/persistence/sqlite"
	"github.com/example/industrial-scheduler/internal/resolver"
	"github.com/example/industrial-scheduler/internal/runtime"
)

// app bundles the wired core components a command needs.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	storage   *sqlite.Storage
	colors    *category.Resolver
	resolver  *resolver.Resolver
	evaluator *runtime.Evaluator
}

// openApp loads configuration, opens storage, migrates and wires the
// resolution pipeline. Callers must Close the returned app.
func openApp(cmd *cobra.Command) (*app, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		configPath = "scheduler.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger := logging.New(os.Stderr, cfg.LogLevel)

	storage, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := storage.Migrate(cmd.Context()); err != nil {
		storage.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	colors := category.NewResolver(storage)
	res := resolver.New(storage, colors, logger, time.Now)
	evaluator := runtime.NewEvaluator(res, storage, logger)

	return &app{
		cfg:       cfg,
		logger:    logger,
		storage:   storage,
		colors:    colors,
		resolver:  res,
		evaluator: evaluator,
	}, nil
}

// Close releases the app's resources.
func (a *app) Close() {
	if a == nil || a.storage == nil {
		return
	}
	if err := a.storage.Close(); err != nil {
		a.logger.Error("failed to close storage", "error", err)
	}
}
