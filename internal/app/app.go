package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"pulseboard/internal/config"
	"pulseboard/internal/connector"
	"pulseboard/internal/generator"
	"pulseboard/internal/logging"
	"pulseboard/internal/storage"
	"pulseboard/internal/usecase"
)

// Application wires config to the pipeline, generator, and preview
// server.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	store     *storage.Store
	pipeline  *usecase.Pipeline
	generator *generator.Generator
}

// New opens storage, registers every connector whose requirements are
// met, and builds the pipeline and generator. A missing API key
// disables only the connector that needs it.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	registry := connector.NewRegistry()
	registry.RegisterMetric(connector.NewECB(nil))
	registry.RegisterMetric(connector.NewOECD(nil))
	registry.RegisterMetric(connector.NewDBnomics(nil))
	registry.RegisterMetric(connector.NewWorldBank(nil))
	registry.RegisterMetric(connector.NewEStat(nil))
	registry.RegisterMetric(connector.NewYahoo(nil))
	registry.RegisterMetric(connector.NewCoinGecko(nil))
	registry.RegisterMetric(connector.NewHuggingFace(nil))
	registry.RegisterFeed(connector.NewHNFirebase(nil))
	registry.RegisterFeed(connector.NewHNAlgolia(nil))

	if fred, err := connector.NewFRED(cfg.Secrets.FREDAPIKey, nil); err != nil {
		baseLogger.Warn("FRED connector disabled", "error", err)
	} else {
		registry.RegisterMetric(fred)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Registry:      registry,
		Store:         store,
		Metrics:       cfg.Metrics,
		Feeds:         cfg.Feeds,
		RetentionDays: cfg.Retention.StoryMaxAgeDays,
		Logger:        baseLogger.With("component", "pipeline"),
	})

	gen, err := generator.New(store, cfg.Groups, cfg.Feeds, cfg.Output.Dir,
		baseLogger.With("component", "generator"))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("build generator: %w", err)
	}

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		store:     store,
		pipeline:  pipeline,
		generator: gen,
	}, nil
}

// Fetch runs one refresh cycle without rendering.
func (a *Application) Fetch(ctx context.Context) error {
	return a.pipeline.Run(ctx)
}

// Render regenerates the dashboard from persisted tables only.
func (a *Application) Render(ctx context.Context) error {
	return a.generator.Render(ctx)
}

// Refresh runs fetch then render.
func (a *Application) Refresh(ctx context.Context) error {
	if err := a.Fetch(ctx); err != nil {
		return err
	}
	return a.Render(ctx)
}

// Serve exposes the generated output directory over HTTP for local
// preview, plus a health endpoint.
func (a *Application) Serve() error {
	r := router.New()
	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	})

	fs := &fasthttp.FS{
		Root:       a.cfg.Output.Dir,
		IndexNames: []string{"index.html"},
	}
	r.NotFound = fs.NewRequestHandler()

	a.logger.Info("serving dashboard", "addr", a.cfg.Server.Addr, "dir", a.cfg.Output.Dir)
	return fasthttp.ListenAndServe(a.cfg.Server.Addr, r.Handler)
}

// Close releases the storage handle.
func (a *Application) Close() error {
	return a.store.Close()
}
