package main

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/helixir/citegraph/internal/config"
	"github.com/helixir/citegraph/internal/database"
	"github.com/helixir/citegraph/internal/observability"
	"github.com/helixir/citegraph/internal/papersources/semanticscholar"
	"github.com/helixir/citegraph/internal/server"
)

const metricsShutdownTimeout = 5 * time.Second

// app bundles the configuration and ambient services of one command.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	metrics *observability.Metrics
}

func loadApp(opts *rootOptions, component string) (*app, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}

	logger := observability.NewLogger(loggingConfig(cfg.Logging)).
		With().Str("command", component).Logger()

	return &app{cfg: cfg, logger: logger}, nil
}

func loggingConfig(c config.LoggingConfig) observability.LoggingConfig {
	return observability.LoggingConfig{
		Level:      c.Level,
		Format:     c.Format,
		Output:     c.Output,
		AddSource:  c.AddSource,
		TimeFormat: c.TimeFormat,
	}
}

// enableMetrics registers the collectors. It is called at most once per
// process since collectors live in the default registry.
func (a *app) enableMetrics() *observability.Metrics {
	if a.metrics == nil {
		a.metrics = observability.NewMetrics(a.cfg.Metrics.Namespace)
	}
	return a.metrics
}

// startMetricsServer serves /metrics, /healthz and /readyz in the background
// when metrics are enabled. The returned stop function is always non-nil.
func (a *app) startMetricsServer() (*server.Server, func()) {
	if !a.cfg.Metrics.Enabled {
		return nil, func() {}
	}

	srv := server.New(server.Config{
		Address:         a.cfg.Metrics.Address,
		MetricsPath:     a.cfg.Metrics.Path,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: metricsShutdownTimeout,
	}, prometheus.DefaultGatherer, a.logger)

	go func() {
		if err := srv.Start(); err != nil {
			a.logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	return srv, func() {
		if err := srv.Shutdown(context.Background()); err != nil {
			a.logger.Warn().Err(err).Msg("metrics server shutdown")
		}
	}
}

func (a *app) newSemanticScholarClient() *semanticscholar.Client {
	s2 := a.cfg.SemanticScholar
	client := semanticscholar.NewClient(semanticscholar.Config{
		BaseURL:    s2.BaseURL,
		APIKey:     s2.APIKey,
		Timeout:    s2.Timeout,
		RateLimit:  s2.RateLimit,
		BurstSize:  s2.BurstSize,
		MaxRetries: s2.MaxRetries,
		RetryDelay: s2.RetryDelay,
	}, nil)
	if a.metrics != nil {
		client = client.WithMetrics(a.metrics)
	}
	return client
}

// openDatabase connects to PostgreSQL and applies pending migrations when
// configured to.
func (a *app) openDatabase(ctx context.Context) (*database.DB, error) {
	db, err := database.New(ctx, &a.cfg.Database, a.logger)
	if err != nil {
		return nil, err
	}
	if !a.cfg.Database.MigrationAutoRun {
		return db, nil
	}

	migrator, err := database.NewMigrator(db, a.cfg.Database.MigrationPath, a.logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := errors.Join(migrator.Up(), migrator.Close()); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
