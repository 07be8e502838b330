package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"NewsPublisher/internal/config"
	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/httpapi"
	"NewsPublisher/internal/infrastructure/content"
	"NewsPublisher/internal/infrastructure/gnews"
	"NewsPublisher/internal/infrastructure/imaging"
	"NewsPublisher/internal/infrastructure/llm"
	"NewsPublisher/internal/infrastructure/parser"
	"NewsPublisher/internal/infrastructure/scheduler"
	"NewsPublisher/internal/infrastructure/storage"
	"NewsPublisher/internal/infrastructure/telegram"
	"NewsPublisher/internal/infrastructure/wordpress"
	"NewsPublisher/internal/logging"
	"NewsPublisher/internal/usecase"
)

const shutdownTimeout = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	log       *slog.Logger
	db        *sql.DB
	scheduler *scheduler.IntervalScheduler
	auto      *usecase.AutoPublisher
	retention *usecase.Retention
	server    *http.Server
}

// New opens storage and builds every component. ctx bounds the lifetime of
// scheduled jobs.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	if missing := cfg.Validate(); len(missing) > 0 {
		baseLogger.Warn("configuration incomplete, affected destinations will fail", "missing", missing)
	}

	db, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	repo := storage.NewRepository(db, cfg.Database.Driver)

	categories := make([]domain.Category, 0, len(cfg.Categories))
	for _, c := range cfg.Categories {
		categories = append(categories, domain.Category{ID: c.ID, Name: c.Name})
	}
	if err := repo.SeedCategories(ctx, categories); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed categories: %w", err)
	}

	component := func(name string) *slog.Logger { return baseLogger.With("component", name) }

	rewriter := llm.NewChatGPTClient(cfg.OpenAI, component("llm"))
	telegramClient := telegram.NewClient(cfg.Telegram)

	publisher := usecase.NewPublisher(usecase.PublisherDeps{
		Site:      wordpress.NewClient(cfg.WordPress),
		Channel:   telegramClient,
		Formatter: telegram.NewFormatter(cfg.Pipeline.ChannelMaxRunes, cfg.WordPress.SiteURL, cfg.WordPress.SiteName),
		Images:    imaging.NewLoader(cfg.Images),
		Covers:    parser.NewCoverFinder(nil),
		Logger:    baseLogger,
	})

	loc := cfg.Scheduler.Location()
	now := func() time.Time { return time.Now().In(loc) }

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Aggregator:   gnews.NewClient(cfg.GNews, cfg.Pipeline.DefaultTopic),
		Rewriter:     rewriter,
		Publisher:    publisher,
		Renderer:     content.NewRenderer(),
		Fingerprints: repo,
		Categories:   repo,
		Records:      repo,
		Settings:     repo,
		Audit:        repo,
		Notifier:     telegramClient,
		Options: usecase.PipelineOptions{
			DefaultTopic:  cfg.Pipeline.DefaultTopic,
			Language:      cfg.Pipeline.Language,
			Region:        cfg.Pipeline.Region,
			SeedResults:   cfg.Pipeline.SeedResults,
			SourceResults: cfg.Pipeline.SourceResults,
			KeywordTokens: cfg.Pipeline.KeywordTokens,
		},
		Logger: baseLogger,
		Now:    now,
	})

	sched := scheduler.NewIntervalScheduler(ctx, component("scheduler"))
	auto := usecase.NewAutoPublisher(sched, pipeline, repo, baseLogger)

	records := usecase.NewRecordsService(usecase.RecordsDeps{
		Records:    repo,
		Drafts:     repo,
		Categories: repo,
		Audit:      repo,
		Retractor:  publisher,
		Publisher:  pipeline,
		Logger:     baseLogger,
		Now:        now,
	})

	router := httpapi.NewRouter(httpapi.Deps{
		Runs:       pipeline,
		Settings:   usecase.NewSettingsService(repo, auto, repo, baseLogger),
		Records:    records,
		Translator: rewriter,
		Token:      cfg.API.Token,
		Logger:     baseLogger,
	})
	if cfg.API.Token == "" {
		baseLogger.Warn("API token not set, control API is unauthenticated")
	}

	return &Application{
		cfg:       cfg,
		log:       component("app"),
		db:        db,
		scheduler: sched,
		auto:      auto,
		retention: usecase.NewRetention(repo, cfg.Retention.Days, baseLogger),
		server: &http.Server{
			Addr:              cfg.API.ListenAddr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run restores scheduled jobs and serves the control API until ctx is done.
func (a *Application) Run(ctx context.Context) error {
	restored, err := a.auto.Restore(ctx)
	if err != nil {
		a.log.Error("restore auto publish jobs failed", "error", err)
	} else {
		a.log.Info("auto publish jobs restored", "count", restored)
	}
	a.retention.Start(a.scheduler, a.cfg.Retention.Interval)

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("control API listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownErr := a.shutdown()
	if serveErr != nil {
		return fmt.Errorf("serve control API: %w", serveErr)
	}
	return shutdownErr
}

func (a *Application) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.log.Info("shutting down")
	var errs []error
	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop control API: %w", err))
	}
	if err := a.scheduler.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop scheduler: %w", err))
	}
	if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	return errors.Join(errs...)
}
