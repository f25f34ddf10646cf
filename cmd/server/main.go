// Package main implements the entry point for the crawl API server, which
// accepts crawl submissions over HTTP and runs each one as a background
// crawler process.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/crawl-api/internal/config"
	"github.com/phrazzld/crawl-api/internal/platform/crawler"
	"github.com/phrazzld/crawl-api/internal/platform/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (default: ./config.yaml or ./config/config.yaml if present)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("crawl-api: %v", err)
	}
}

// run wires the application from configuration and serves until ctx is
// cancelled.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"crawler_command", cfg.Crawler.Command,
		"output_dir", cfg.Output.Dir)
	if cfg.Database.URL != "" {
		appLogger.Debug("database configuration", "url_present", true)
	}

	jobs, err := crawler.NewFactory(crawler.Config{
		Command:   cfg.Crawler.Command,
		Args:      cfg.Crawler.Args,
		WorkDir:   cfg.Crawler.WorkDir,
		StopGrace: cfg.Crawler.StopGrace(),
	}, appLogger)
	if err != nil {
		return fmt.Errorf("failed to configure crawler: %w", err)
	}

	app := newApplication(cfg, appLogger, jobs)
	if err := app.Run(ctx); err != nil {
		appLogger.Error("server stopped with error", "error", err)
		return err
	}
	return nil
}
