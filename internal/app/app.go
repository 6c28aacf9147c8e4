// Package app wires configuration into a runnable pipeline, job store and HTTP handler.
package app

import (
	"net/http"

	"github.com/spherical/slide-converter/internal/api"
	"github.com/spherical/slide-converter/internal/config"
	"github.com/spherical/slide-converter/internal/domain"
	"github.com/spherical/slide-converter/internal/jobstore"
	"github.com/spherical/slide-converter/internal/observability"
	"github.com/spherical/slide-converter/internal/pdf"
	"github.com/spherical/slide-converter/internal/pipeline"
	"github.com/spherical/slide-converter/internal/storage"
	"github.com/spherical/slide-converter/internal/tools"
	"github.com/spherical/slide-converter/internal/transfer"
)

// App holds the assembled service
type App struct {
	Config   *config.Config
	Logger   *observability.Logger
	Store    jobstore.Store
	Pipeline *pipeline.Pipeline
}

// New builds every component named by cfg
func New(cfg *config.Config, logger *observability.Logger) (*App, error) {
	store, err := newStore(cfg.Store)
	if err != nil {
		return nil, domain.ConfigError("failed to open job store", err)
	}

	client := transfer.NewClient(cfg.Transfer.Timeout, logger,
		transfer.WithRetry(transfer.RetryConfig{
			MaxRetries:     cfg.Transfer.MaxRetries,
			InitialBackoff: cfg.Transfer.InitialBackoff,
			MaxBackoff:     cfg.Transfer.MaxBackoff,
		}),
		transfer.WithCallbackMethod(cfg.Transfer.CallbackMethod),
	)

	caps := newCapabilities(cfg.Tools, tools.NewExecRunner(logger), client)

	p := pipeline.New(caps, storage.NewDirProvider(cfg.Workspace.BaseDir), store, pipeline.Options{
		Workers:            cfg.Pipeline.Workers,
		DPI:                cfg.Pipeline.DPI,
		TaskTimeout:        cfg.Pipeline.TaskTimeout,
		ToolTimeout:        cfg.Pipeline.ToolTimeout,
		FailFast:           cfg.Pipeline.FailFast,
		MaxConcurrentJobs:  int64(cfg.Pipeline.MaxConcurrentJobs),
		MaxConcurrentTasks: int64(cfg.Pipeline.MaxConcurrentTasks),
	}, logger)

	logger.Info().
		Str("backend", cfg.Tools.Backend).
		Str("normalizer", cfg.Tools.Normalizer).
		Str("store", cfg.Store.Driver).
		Int("workers", cfg.Pipeline.Workers).
		Msg("Pipeline ready")

	return &App{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Pipeline: p,
	}, nil
}

// Handler returns the HTTP API
func (a *App) Handler() http.Handler {
	return api.NewRouter(a.Logger, a.Pipeline, a.Store, api.RouterConfig{
		RequestTimeout: a.Config.Server.WriteTimeout,
		ServiceName:    a.Config.Observability.ServiceName,
	})
}

// Close releases the job store
func (a *App) Close() error {
	return a.Store.Close()
}

func newStore(cfg config.StoreConfig) (jobstore.Store, error) {
	switch cfg.Driver {
	case "redis":
		backend, err := jobstore.NewRedisBackend(jobstore.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.TTL,
		})
		if err != nil {
			return nil, err
		}
		return jobstore.NewTracker(backend), nil
	case "sqlite":
		backend, err := jobstore.NewSQLiteBackend(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return jobstore.NewTracker(backend), nil
	default:
		return jobstore.NewTracker(jobstore.NewMemoryBackend()), nil
	}
}

// newCapabilities selects the tool backend. Splitting always uses pdfseparate
// and office conversion always shells out.
func newCapabilities(cfg config.ToolsConfig, runner tools.Runner, client *transfer.Client) pipeline.Capabilities {
	caps := pipeline.Capabilities{
		Downloader: client,
		Splitter:   &tools.PDFSeparate{Runner: runner, Bin: cfg.PDFSeparate},
		Uploader:   client,
		Notifier:   client,
	}

	if cfg.Normalizer == "soffice" {
		caps.Normalizer = &tools.Soffice{Runner: runner, Bin: cfg.Soffice}
	} else {
		caps.Normalizer = &tools.Unoconv{Runner: runner, Bin: cfg.Unoconv}
	}

	if cfg.Backend == "fitz" {
		engine := pdf.NewEngine()
		caps.Counter = engine
		caps.Renderer = engine
		caps.Extractor = engine
		return caps
	}

	caps.Counter = &tools.PDFInfo{Runner: runner, Bin: cfg.PDFInfo}
	caps.Renderer = &tools.PDFToCairo{Runner: runner, Bin: cfg.PDFToCairo}
	caps.Extractor = &tools.PDFToText{Runner: runner, Bin: cfg.PDFToText}
	return caps
}
