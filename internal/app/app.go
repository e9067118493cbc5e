package app

import (
	"context"
	"io"
	"net/http"
	"os"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/turtletrace/internal/bridge"
	"github.com/dshills/turtletrace/internal/config"
	"github.com/dshills/turtletrace/internal/debug"
	"github.com/dshills/turtletrace/internal/devserver"
	"github.com/dshills/turtletrace/internal/logging"
)

// Options holds command line overrides. Empty fields keep the
// configured value.
type Options struct {
	// ConfigPath is the TOML or YAML file to load.
	ConfigPath string

	// Addr overrides server.addr.
	Addr string

	// SiteDir overrides server.siteDir.
	SiteDir string

	// LogLevel overrides logging.level.
	LogLevel string

	// LogOutput receives log lines. Defaults to stderr.
	LogOutput io.Writer
}

// Application is the turtletrace dev server with its debug bridge.
type Application struct {
	cfg      *config.Config
	logger   *logging.Logger
	registry *prometheus.Registry
	metrics  *debug.Metrics
	bridge   *bridge.Handler
	server   *devserver.Server
	running  atomic.Bool
}

// New loads configuration and builds every component.
func New(opts Options) (*Application, error) {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg, opts.LogOutput)
}

// LoadConfig loads the configuration file and applies opts on top.
func LoadConfig(opts Options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, NewComponentError("config", "init", err)
	}
	if opts.Addr != "" {
		cfg.Server.Addr = opts.Addr
	}
	if opts.SiteDir != "" {
		cfg.Server.SiteDir = opts.SiteDir
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, NewComponentError("config", "init", err)
	}
	return cfg, nil
}

// NewWithConfig builds every component from cfg.
func NewWithConfig(cfg *config.Config, logOutput io.Writer) (*Application, error) {
	if logOutput == nil {
		logOutput = os.Stderr
	}
	logger := NewLogger(cfg, logOutput)

	registry := prometheus.NewRegistry()
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, NewComponentError("metrics", "init", err)
	}
	metrics := debug.NewMetrics()
	if err := metrics.Register(registry); err != nil {
		return nil, NewComponentError("metrics", "init", err)
	}

	engineOpts := EngineOptions(cfg)
	engineOpts.Metrics = metrics
	handler := bridge.NewHandler(bridge.Config{
		Engine: engineOpts,
		Logger: logger,
	})
	if err := registry.Register(handler.Collector()); err != nil {
		return nil, NewComponentError("metrics", "init", err)
	}

	server := devserver.New(devserver.Config{
		Addr:      cfg.Server.Addr,
		Site:      os.DirFS(cfg.Server.SiteDir),
		ProxyPort: cfg.Server.ProxyPort,
		DevSuffix: cfg.Server.DevSuffix,
		Debug:     handler,
		Metrics:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Logger:    logger,
	})

	return &Application{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		metrics:  metrics,
		bridge:   handler,
		server:   server,
	}, nil
}

// NewLogger creates the logger described by cfg.
func NewLogger(cfg *config.Config, output io.Writer) *logging.Logger {
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.LogLevel()
	logCfg.Output = output
	return logging.New(logCfg)
}

// EngineOptions maps cfg onto debug engine options.
func EngineOptions(cfg *config.Config) debug.Options {
	opts := debug.DefaultOptions()
	opts.Resolver.ScanWidth = cfg.Resolver.ScanWidth
	opts.Resolver.MinOriginalLine = cfg.Resolver.MinOriginalLine
	opts.Resolver.BoilerplateLines = cfg.Resolver.BoilerplateLines
	opts.Resolver.CacheSize = cfg.Cache.SourceMapEntries
	opts.StackCacheSize = cfg.Cache.StackEntries
	opts.SourcePane = cfg.Editor.SourcePane
	opts.OverlayPane = cfg.Editor.OverlayPane
	opts.OverlaySize = cfg.Editor.OverlaySize
	return opts
}

// Run serves until ctx is cancelled or the server fails.
func (app *Application) Run(ctx context.Context) error {
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	app.logger.Info("serving %s on %s", app.cfg.Server.SiteDir, app.cfg.Server.Addr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := app.server.ListenAndServe(gctx); err != nil {
			return NewComponentError("server", "serve", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		app.bridge.Close()
		return nil
	})

	err := g.Wait()
	app.logger.Info("stopped")
	return err
}

// IsRunning returns true while Run is active.
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// Config returns the effective configuration.
func (app *Application) Config() *config.Config {
	return app.cfg
}

// Logger returns the application logger.
func (app *Application) Logger() *logging.Logger {
	return app.logger
}

// Metrics returns the shared engine metrics.
func (app *Application) Metrics() *debug.Metrics {
	return app.metrics
}

// Handler returns the HTTP handler serving every route.
func (app *Application) Handler() http.Handler {
	return app.server
}
