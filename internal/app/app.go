package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"CourtMonitor/internal/analysis"
	"CourtMonitor/internal/archive"
	"CourtMonitor/internal/config"
	"CourtMonitor/internal/extract"
	"CourtMonitor/internal/fetch"
	"CourtMonitor/internal/httpapi"
	"CourtMonitor/internal/infrastructure/llm"
	"CourtMonitor/internal/infrastructure/mail"
	"CourtMonitor/internal/infrastructure/parser"
	"CourtMonitor/internal/infrastructure/render"
	"CourtMonitor/internal/infrastructure/scheduler"
	"CourtMonitor/internal/infrastructure/storage"
	"CourtMonitor/internal/locale"
	"CourtMonitor/internal/logging"
	"CourtMonitor/internal/ports"
	"CourtMonitor/internal/queue"
	"CourtMonitor/internal/ratelimit"
	"CourtMonitor/internal/scanner"
	"CourtMonitor/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	db        *sql.DB
	repo      *storage.SubscriptionRepository
	pipeline  *usecase.Pipeline
	detector  *usecase.ChangeDetector
	queue     *queue.Queue
	server    *httpapi.Server
	scheduler *usecase.Scheduler
}

// New builds the application: adapters, pipeline, change detector and HTTP surface.
// The database is opened and its schema ensured here.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	catalog := locale.For(cfg.Pipeline.Locale)

	registry := scanner.NewRegistry()
	board, err := parser.NewEoglasnaScanner(
		&http.Client{Timeout: cfg.Search.Timeout},
		parser.EoglasnaOptions{
			BaseURL:           cfg.Search.BaseURL,
			SearchPath:        cfg.Search.SearchPath,
			QueryParam:        cfg.Search.QueryParam,
			UserAgent:         cfg.Search.UserAgent,
			RequestsPerSecond: cfg.Search.RequestsPerSecond,
		},
		logging.Component(baseLogger, "scanner.eoglasna"),
	)
	if err != nil {
		return nil, fmt.Errorf("search provider: %w", err)
	}
	registry.Register(board)
	source := parser.NewStrategySource(registry, cfg.Search.Provider, logging.Component(baseLogger, "source"))

	if cfg.Extraction.APIKey == "" {
		baseLogger.Warn("extraction API key is not set; every document analysis will fail")
	}
	service := llm.NewGeminiClient(cfg.Extraction)

	var renderer ports.PageRenderer
	pages := render.New(render.Options{
		Binary:   cfg.Render.Binary,
		DPI:      cfg.Render.DPI,
		MaxPages: cfg.Render.MaxPages,
	}, logging.Component(baseLogger, "render"))
	if pages.Available() {
		renderer = pages
	} else {
		baseLogger.Warn("pdf renderer not found; scanned PDFs will not be read", "binary", cfg.Render.Binary)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Search: source,
		Fetcher: fetch.New(fetch.Options{
			Dir:               cfg.Pipeline.TempDir,
			Timeout:           cfg.Pipeline.DownloadTimeout,
			UserAgent:         cfg.Pipeline.UserAgent,
			RequestsPerSecond: cfg.Pipeline.DownloadsPerSecond,
		}, nil, logging.Component(baseLogger, "fetch")),
		Expander: archive.New(cfg.Pipeline.MaxArchiveEntryBytes, logging.Component(baseLogger, "archive")),
		Analyzer: analysis.NewAnalyzer(
			extract.New(logging.Component(baseLogger, "extract")),
			renderer,
			service,
			analysis.Options{
				Language:       catalog.Language,
				MaxPromptChars: cfg.Pipeline.MaxPromptChars,
				MaxParallel:    cfg.Pipeline.MaxParallelDocuments,
			},
			logging.Component(baseLogger, "analyzer"),
		),
		Synthesizer:  analysis.NewSynthesizer(service, catalog, logging.Component(baseLogger, "synthesizer")),
		Catalog:      catalog,
		DefaultLimit: cfg.Server.DefaultCases,
		Logger:       logging.Component(baseLogger, "pipeline"),
	})

	db, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	repo := storage.NewSubscriptionRepository(db, cfg.Database.Driver)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database: %w", err)
	}

	var notifier ports.Notifier
	if cfg.Notifications.SendGrid.APIKey != "" {
		notifier = mail.NewNotifier(cfg.Notifications)
	} else {
		baseLogger.Warn("mail is not configured; notifications are logged only")
		notifier = mail.NewLogNotifier(logging.Component(baseLogger, "notifier"))
	}

	detector := usecase.NewChangeDetector(source, repo, notifier, pipeline, logging.Component(baseLogger, "monitor"))

	limiter, err := ratelimit.New(ratelimit.Options{
		Burst:      ratelimit.Window{Max: cfg.RateLimit.Burst.Max, Period: cfg.RateLimit.Burst.Period},
		Sustained:  ratelimit.Window{Max: cfg.RateLimit.Sustained.Max, Period: cfg.RateLimit.Sustained.Period},
		MaxClients: cfg.RateLimit.MaxClients,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	jobs := queue.New(cfg.Queue.Concurrency, logging.Component(baseLogger, "queue"))
	server := httpapi.New(httpapi.Deps{
		Runner:        pipeline,
		Queue:         jobs,
		Limiter:       limiter,
		Subscriptions: repo,
		Catalog:       catalog,
		Logger:        logging.Component(baseLogger, "http"),
	}, httpapi.Options{
		DefaultCases:   cfg.Server.DefaultCases,
		MaxCases:       cfg.Server.MaxCases,
		Heartbeat:      cfg.Server.Heartbeat,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		TrustedProxies: cfg.Server.TrustedProxies,
	})

	driver := scheduler.NewIntervalScheduler(cfg.Scheduler.Interval, cfg.Scheduler.RunOnStart, cfg.Scheduler.Location())

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		db:        db,
		repo:      repo,
		pipeline:  pipeline,
		detector:  detector,
		queue:     jobs,
		server:    server,
		scheduler: usecase.NewScheduler(driver, detector, logging.Component(baseLogger, "scheduler")),
	}, nil
}

// Pipeline exposes the orchestrator for one-shot runs.
func (a *Application) Pipeline() *usecase.Pipeline {
	return a.pipeline
}

// Subscriptions exposes the subscription store.
func (a *Application) Subscriptions() ports.SubscriptionRepository {
	return a.repo
}

// Check runs one pass over every active subscription.
func (a *Application) Check(ctx context.Context) (usecase.TickReport, error) {
	return a.detector.Tick(ctx)
}

// Serve runs the HTTP surface and the scheduled checks until ctx is cancelled,
// then drains in-flight work within the configured grace period.
func (a *Application) Serve(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- a.server.Start(a.cfg.Server.Addr) }()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	grace := a.cfg.Server.ShutdownGrace
	if grace <= 0 {
		grace = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	a.logger.Info("shutting down", "grace", grace.String())
	errs := []error{serveErr}
	errs = append(errs, a.server.Shutdown(shutdownCtx))
	errs = append(errs, a.queue.Shutdown(shutdownCtx))
	errs = append(errs, a.scheduler.Stop(shutdownCtx))
	return errors.Join(errs...)
}

// Close releases the database.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
