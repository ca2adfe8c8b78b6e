package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tamadze/tamada/cache"
	"github.com/tamadze/tamada/config"
	"github.com/tamadze/tamada/conversation"
	"github.com/tamadze/tamada/embedder"
	"github.com/tamadze/tamada/enrichment"
	"github.com/tamadze/tamada/llm"
	"github.com/tamadze/tamada/multilingual"
	"github.com/tamadze/tamada/observability"
	"github.com/tamadze/tamada/pipeline"
	"github.com/tamadze/tamada/querylog"
	"github.com/tamadze/tamada/search"
	"github.com/tamadze/tamada/server"
	"github.com/tamadze/tamada/taskqueue"
	"github.com/tamadze/tamada/vectorstore"
)

// ServeCmd starts the HTTP server.
type ServeCmd struct {
	Port       int  `help:"Override the configured listen port."`
	Watch      bool `help:"Watch the config file and log when it changes."`
	SkipWarmup bool `name:"skip-warmup" help:"Do not warm caches and models on startup."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}
	cleanup, err := initLogger(cli, cfg)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}

	app, err := newApplication(ctx, cfg)
	if err != nil {
		return err
	}

	// Config edits require a restart: components hold connections and
	// caches built from the old values. The watch only announces that.
	if c.Watch && cli.Config != "" {
		go func() {
			err := config.Watch(ctx, cli.Config, func(*config.Config) {
				slog.Warn("Configuration changed on disk; restart to apply")
			})
			if err != nil && ctx.Err() == nil {
				slog.Error("Config watch failed", "error", err)
			}
		}()
	}

	if !c.SkipWarmup {
		go func() {
			report := app.pipe.Warmup(ctx, nil)
			if report.Success {
				slog.Info("Warmup finished",
					"total_time", report.TotalTime,
					"queries_successful", report.QueriesSuccessful,
					"caches", report.CachesWarmed)
			} else {
				slog.Warn("Warmup did not complete",
					"queries_failed", report.QueriesFailed,
					"queries_successful", report.QueriesSuccessful)
			}
		}()
	}

	srv := server.New(cfg, app.pipe, app.tracer, app.metrics)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
		slog.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown incomplete", "error", err)
	}
	app.close(shutdownCtx)
	return serveErr
}

// loadConfig loads .env files and the YAML configuration.
func loadConfig(cli *CLI) (*config.Config, error) {
	if cli.Config != "" {
		_ = config.LoadDotEnvForConfig(cli.Config)
	} else {
		_ = config.LoadDotEnv()
	}

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return nil, err
	}
	if cli.Config != "" {
		slog.Info("Loaded configuration", "path", cli.Config)
	} else {
		slog.Info("No config file given; using defaults and environment")
	}
	return cfg, nil
}

// application bundles the wired pipeline with the resources it owns.
type application struct {
	pipe    *pipeline.Pipeline
	tracer  *observability.Tracer
	metrics *observability.Metrics

	store     *cache.Store
	queue     *taskqueue.Queue
	vectors   *vectorstore.Store
	embedders *embedder.Registry
	qlog      *querylog.Logger
}

// newApplication builds every component and wires the pipeline.
// Construction failures are configuration problems and abort startup;
// runtime failures of the same components degrade per request instead.
func newApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	metrics, err := observability.InitMetrics(cfg.Observability.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	tracer, err := observability.NewTracer(ctx, &cfg.Observability.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	store := cache.New(cfg.Redis)
	queue := taskqueue.New(cfg.Queue.Workers, cfg.Queue.Capacity,
		time.Duration(cfg.Queue.TaskTimeout)*time.Second)

	vectors, err := vectorstore.New(cfg.Qdrant)
	if err != nil {
		return nil, err
	}

	embedders := embedder.NewRegistry(cfg.Embedder, store)
	engine := search.NewEngine(cfg.Search, vectors, embedders, store, tracer)

	// Translation is optional: without a key the service still answers,
	// it just searches non-English queries untranslated.
	var translator *multilingual.Translator
	var resolver multilingual.LanguageResolver
	if cfg.Translator.APIKey != "" {
		translator, err = multilingual.NewTranslator(ctx, cfg.Translator, store)
		if err != nil {
			slog.Warn("Translator unavailable; queries will not be translated", "error", err)
		} else {
			resolver = translator
		}
	} else {
		slog.Info("No translator API key; query translation disabled")
	}
	detector := multilingual.NewDetector(resolver)

	client, err := llm.NewAnthropicClient(cfg.Generator)
	if err != nil {
		return nil, err
	}
	generator := llm.NewGenerator(client, llm.NewDisclaimers(), tracer,
		time.Duration(cfg.Generator.Timeout)*time.Second)

	qlog, err := querylog.New(cfg.QueryLog, queue)
	if err != nil {
		return nil, err
	}

	comps := pipeline.Components{
		Detector:      detector,
		Translator:    translator,
		Search:        engine,
		Generator:     generator,
		Conversations: conversation.New(store.Client(), cfg.Conversation),
		Cache:         store,
		Queue:         queue,
		QueryLog:      qlog,
		Vectors:       vectors,
		Embedders:     embedders,
		Metrics:       metrics,
		Tracer:        tracer,
	}
	if cfg.Enrichment.Enabled {
		comps.Enricher = enrichment.NewEngine(cfg.Enrichment, store, vectors, queue)
		slog.Info("Web enrichment enabled",
			"wikipedia", cfg.Enrichment.WikipediaBaseURL != "",
			"unsplash", cfg.Enrichment.UnsplashKey != "",
			"serpapi", cfg.Enrichment.SerpAPIKey != "")
	}

	return &application{
		pipe:      pipeline.New(cfg, comps),
		tracer:    tracer,
		metrics:   metrics,
		store:     store,
		queue:     queue,
		vectors:   vectors,
		embedders: embedders,
		qlog:      qlog,
	}, nil
}

// close releases resources in dependency order: background work first,
// then the stores it writes to.
func (a *application) close(ctx context.Context) {
	if err := a.queue.Shutdown(ctx); err != nil {
		slog.Warn("Task queue shutdown incomplete", "error", err)
	}
	a.qlog.Close()
	if err := a.embedders.Close(); err != nil {
		slog.Warn("Embedder shutdown failed", "error", err)
	}
	if err := a.vectors.Close(); err != nil {
		slog.Warn("Vector store close failed", "error", err)
	}
	if err := a.store.Close(); err != nil {
		slog.Warn("Cache close failed", "error", err)
	}
	if err := a.tracer.Shutdown(ctx); err != nil {
		slog.Warn("Tracer shutdown failed", "error", err)
	}
}
