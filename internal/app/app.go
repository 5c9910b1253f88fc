package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"NewsVerifier/internal/cluster"
	"NewsVerifier/internal/config"
	"NewsVerifier/internal/domain"
	"NewsVerifier/internal/feed"
	"NewsVerifier/internal/infrastructure/delivery"
	"NewsVerifier/internal/infrastructure/httpapi"
	"NewsVerifier/internal/infrastructure/llm"
	"NewsVerifier/internal/infrastructure/scheduler"
	"NewsVerifier/internal/infrastructure/storage"
	"NewsVerifier/internal/logging"
	"NewsVerifier/internal/ports"
	"NewsVerifier/internal/recheck"
	"NewsVerifier/internal/task"
	"NewsVerifier/internal/usecase"
	"NewsVerifier/internal/verify"
)

// Application wires configuration to components and drives their
// lifecycle.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	db       *sql.DB
	pipeline *usecase.Pipeline
	sweeper  *recheck.Scheduler
	runner   *task.Runner
	server   *httpapi.Server

	crawlDriver   ports.Scheduler
	recheckDriver ports.Scheduler
}

// New builds a runnable application: opens the store, seeds configured
// sources, and registers all task handlers.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, placeholder, err := openDatabase(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	repo := storage.NewRepository(db, placeholder)
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	sources := cfg.DomainSources()
	for _, source := range sources {
		if err := repo.SaveSource(ctx, source); err != nil {
			db.Close()
			return nil, fmt.Errorf("seed source %s: %w", source.ID, err)
		}
	}
	warnUnmatchedRules(baseLogger, sources, cfg.DomainRules())

	fetcher := feed.NewFetcher(nil, repo, feed.Options{
		Timeout:       cfg.Fetcher.Timeout(),
		Freshness:     cfg.Fetcher.Freshness(),
		EnrichContent: cfg.Fetcher.EnrichContent,
	}, baseLogger.With("component", "fetcher"))

	clusterer := cluster.NewClusterer(
		cfg.Clustering.AdmissionThreshold,
		cfg.Clustering.ClusterThreshold,
		cfg.Clustering.TopKeywords,
		baseLogger.With("component", "clusterer"))

	verifier := verify.New(cfg.DomainRules(), repo, repo,
		cfg.Clustering.AdmissionThreshold, baseLogger.With("component", "verifier"))

	sweeper := recheck.New(repo, repo, repo, fetcher, verifier,
		baseLogger.With("component", "recheck"))

	runner := task.NewRunner(storage.NewTaskStore(db, placeholder), task.Options{
		Workers:        cfg.Runner.Workers,
		PollInterval:   cfg.Runner.PollInterval(),
		DefaultRetries: cfg.Runner.DefaultRetries,
		Listeners:      cfg.Delivery.Listeners,
	}, baseLogger.With("component", "runner"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Fetcher:     fetcher,
		Sources:     repo,
		Articles:    repo,
		Clusters:    repo,
		Clusterer:   clusterer,
		Verifier:    verifier,
		Runner:      runner,
		Synthesizer: llm.NewSynthesizer(cfg.OpenAI),
		Logger:      baseLogger.With("component", "pipeline"),
	})

	app := &Application{
		cfg:           cfg,
		logger:        baseLogger,
		db:            db,
		pipeline:      pipeline,
		sweeper:       sweeper,
		runner:        runner,
		server:        httpapi.NewServer(pipeline, sweeper, repo, baseLogger.With("component", "http")),
		crawlDriver:   scheduler.NewIntervalScheduler(cfg.Scheduler.CrawlInterval(), true),
		recheckDriver: scheduler.NewIntervalScheduler(cfg.Scheduler.RecheckInterval(), false),
	}
	app.registerHandlers(delivery.NewWebhook(nil))
	return app, nil
}

func (a *Application) registerHandlers(deliverer ports.Deliverer) {
	a.runner.Register(domain.TaskFetch, func(ctx context.Context, t domain.Task) (json.RawMessage, error) {
		inserted, err := a.pipeline.FetchOne(ctx, t.Payload.Fetch.SourceID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]int{"inserted": inserted})
	})

	a.runner.Register(domain.TaskVerify, func(ctx context.Context, t domain.Task) (json.RawMessage, error) {
		result, err := a.pipeline.VerifyOne(ctx, t.Payload.Verify.ClusterID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]any{
			"recommendation": result.Recommendation,
			"score":          result.Score,
		})
	})

	a.runner.Register(domain.TaskSynthesize, func(ctx context.Context, t domain.Task) (json.RawMessage, error) {
		synthesis, err := a.pipeline.SynthesizeOne(ctx, t.Payload.Synthesize.ClusterID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(synthesis)
	})

	a.runner.Register(domain.TaskDeliver, func(ctx context.Context, t domain.Task) (json.RawMessage, error) {
		return nil, deliverer.Deliver(ctx, t.Payload.Deliver.URL, t.Payload.Deliver.Body)
	})
}

// Run starts the task runner, the periodic drivers, and the operational
// HTTP API, then blocks until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if err := a.runner.Start(ctx); err != nil {
		return fmt.Errorf("start runner: %w", err)
	}

	crawlJob := func(time.Time) {
		if _, err := a.pipeline.RunCrawl(ctx); err != nil {
			a.logger.Error("scheduled crawl failed", "error", err)
		}
	}
	recheckJob := func(t time.Time) {
		if _, err := a.sweeper.Sweep(ctx, t.UTC()); err != nil {
			a.logger.Error("scheduled recheck failed", "error", err)
		}
	}
	if err := a.crawlDriver.Start(ctx, crawlJob); err != nil {
		return fmt.Errorf("start crawl driver: %w", err)
	}
	if err := a.recheckDriver.Start(ctx, recheckJob); err != nil {
		return fmt.Errorf("start recheck driver: %w", err)
	}

	srv := &http.Server{Addr: a.cfg.HTTP.Addr, Handler: a.server.Router()}
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http api listening", "addr", a.cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	_ = a.crawlDriver.Stop(shutdownCtx)
	_ = a.recheckDriver.Stop(shutdownCtx)
	return a.runner.Stop(shutdownCtx)
}

// Crawl runs one full crawl pass synchronously.
func (a *Application) Crawl(ctx context.Context) (usecase.CrawlSummary, error) {
	return a.pipeline.RunCrawl(ctx)
}

// Recheck runs one recheck sweep synchronously.
func (a *Application) Recheck(ctx context.Context) (recheck.Summary, error) {
	return a.sweeper.Sweep(ctx, time.Now().UTC())
}

// Verify runs one manual verification pass over a cluster.
func (a *Application) Verify(ctx context.Context, clusterID string) (domain.CrossReferenceResult, error) {
	return a.pipeline.VerifyOne(ctx, clusterID)
}

// DrainTasks synchronously executes queued eligible tasks, up to max.
// Used by the one-shot CLI commands where no background runner lives
// long enough.
func (a *Application) DrainTasks(ctx context.Context, max int) (int, error) {
	done := 0
	for done < max {
		processed, err := a.runner.ProcessOne(ctx)
		if err != nil {
			return done, err
		}
		if !processed {
			return done, nil
		}
		done++
	}
	return done, nil
}

// Close releases the database handle.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// warnUnmatchedRules flags rules whose trigger resolves to no source
// that can actually trigger cross-referencing. Such a rule never fires;
// that is almost always a configuration typo.
func warnUnmatchedRules(logger *slog.Logger, sources []domain.NewsSource, rules []domain.CrossReferenceRule) {
	for _, rule := range rules {
		matched := false
		for _, source := range sources {
			if source.CanTrigger() && verify.SourceNamesMatch(rule.TriggerSource, source.Name) {
				matched = true
				break
			}
		}
		if !matched {
			logger.Warn("rule trigger matches no cross-referencing primary source",
				"trigger", rule.TriggerSource)
		}
	}
}

// openDatabase picks the driver from the DSN: postgres for
// postgres:// URLs, sqlite for everything else (a file path; empty
// falls back to a local database file).
func openDatabase(dsn string) (*sql.DB, sq.PlaceholderFormat, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		db, err := sql.Open("postgres", dsn)
		return db, sq.Dollar, err
	}
	if dsn == "" {
		dsn = "newsverifier.db"
	}
	db, err := sql.Open("sqlite", dsn)
	return db, sq.Question, err
}
