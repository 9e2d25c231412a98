package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"RealEstateCrawler/internal/api"
	"RealEstateCrawler/internal/config"
	"RealEstateCrawler/internal/infrastructure/fetcher"
	"RealEstateCrawler/internal/infrastructure/parser"
	"RealEstateCrawler/internal/infrastructure/scheduler"
	"RealEstateCrawler/internal/infrastructure/storage"
	"RealEstateCrawler/internal/logging"
	"RealEstateCrawler/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *storage.SQLiteStore
	pipeline *usecase.Pipeline
}

// New opens the store and builds the crawl pipeline. Nothing runs until
// RunCrawl or Serve is called.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	schema, err := storage.SchemaByName(cfg.Database.Schema)
	if err != nil {
		return nil, fmt.Errorf("database schema: %w", err)
	}

	strategy, err := parser.DefaultRegistry().Resolve(cfg.Crawler.Scanner)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(ctx, cfg.Database.Path, schema, baseLogger.With("component", "storage"))
	if err != nil {
		return nil, err
	}

	pageFetcher := fetcher.NewHTTPFetcher(nil, fetcher.Options{
		Timeout:   cfg.Crawler.Timeout,
		Delay:     cfg.Crawler.Delay,
		UserAgent: cfg.Crawler.UserAgent,
	})

	paginator := usecase.NewPaginator(pageFetcher, strategy, usecase.PaginatorOptions{
		MaxPages:     cfg.PageCap(),
		FetchDetails: cfg.DetailsEnabled() && schema.Detailed,
	}, baseLogger.With("component", "paginator", "scanner", strategy.Name()))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Paginator: paginator,
		Sink:      store,
		Targets:   cfg.CrawlTargets(),
		Location:  cfg.Scheduler.Location(),
		Logger:    baseLogger.With("component", "pipeline"),
	})

	baseLogger.Debug("application ready",
		"database", cfg.Database.Path,
		"schema", schema.Name,
		"targets", len(cfg.Crawler.Targets))

	return &Application{cfg: cfg, logger: baseLogger, store: store, pipeline: pipeline}, nil
}

// RunCrawl performs one full crawl of every configured target.
func (a *Application) RunCrawl(ctx context.Context) (usecase.RunReport, error) {
	return a.pipeline.Run(ctx, time.Now())
}

// Serve runs the read API, plus the cron re-crawl when configured, until ctx
// is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	handler := api.NewHandler(a.store.Analytics(), a.logger.With("component", "api"))
	server := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	var sched *usecase.Scheduler
	if spec := a.cfg.Scheduler.CronExpression; spec != "" {
		driver := scheduler.NewCronScheduler(spec, a.cfg.Scheduler.Location(), a.logger.With("component", "cron"))
		sched = usecase.NewScheduler(driver, a.pipeline, a.logger.With("component", "scheduler"))
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("api listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			a.logger.Warn("scheduler stop", "error", err)
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("api shutdown", "error", err)
	}

	if runErr != nil {
		return fmt.Errorf("api server: %w", runErr)
	}
	return nil
}

// Close releases the database.
func (a *Application) Close() error {
	return a.store.Close()
}
