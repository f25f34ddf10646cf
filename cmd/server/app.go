package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/crawl-api/internal/artifact"
	"github.com/phrazzld/crawl-api/internal/config"
	"github.com/phrazzld/crawl-api/internal/domain"
	"github.com/phrazzld/crawl-api/internal/events"
	"github.com/phrazzld/crawl-api/internal/platform/storage"
	"github.com/phrazzld/crawl-api/internal/task"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	registry *task.Registry
	executor *task.Executor
	history  *events.History
	output   *artifact.Dir
}

// newApplication wires the executor, its record stores, the output
// directory and the event history. jobs builds the crawler job for each
// task.
func newApplication(cfg *config.Config, logger *slog.Logger, jobs task.JobFactory) *application {
	app := &application{
		config:   cfg,
		logger:   logger,
		registry: task.NewRegistry(),
		history:  events.NewHistory(events.DefaultHistoryLimit),
		output:   artifact.NewDir(cfg.Output.Dir),
	}

	opener := &storage.Opener{
		SQLitePath:  cfg.Database.SQLitePath,
		DatabaseURL: cfg.Database.URL,
		Logger:      logger.With("component", "storage"),
	}
	stores := task.StoreOpenerFunc(func(ctx context.Context, opt domain.SaveDataOption) (task.Store, error) {
		s, err := opener.Open(ctx, opt)
		if err != nil {
			return nil, err
		}
		return s, nil
	})

	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(app.history)

	app.executor = task.NewExecutor(app.registry, jobs, stores, app.output, logger)
	app.executor.SetEmitter(emitter)

	logger.Info("application initialized successfully")
	return app
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops the executor, cancelling every running task and waiting for
// them within ctx.
func (app *application) cleanup(ctx context.Context) {
	if err := app.executor.Shutdown(ctx); err != nil {
		app.logger.Error("tasks did not finish before shutdown deadline", "error", err)
	}
	app.logger.Info("application shutdown completed")
}
