package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/upb/qruntime/config"
	"github.com/upb/qruntime/internal/audit"
	"github.com/upb/qruntime/internal/backend"
	"github.com/upb/qruntime/internal/observability"
	"github.com/upb/qruntime/internal/resolver"
	"github.com/upb/qruntime/internal/runtime"
	"github.com/upb/qruntime/repositories/postgres"
	"github.com/upb/qruntime/services/session"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger

	// Optional audit sink; both are nil when auditing is disabled.
	AuditDB  *postgres.DB
	Recorder *audit.Recorder

	// Metrics is nil when metrics are disabled.
	Metrics  *observability.Collector
	Registry *prometheus.Registry

	// Engine
	Runtime  *runtime.Client
	Resolver *resolver.Resolver
	Selector *backend.Selector
	Sessions *session.Service
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	deps.initRuntime(cfg)
	deps.initMetrics(cfg)

	if err := deps.initAudit(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize audit: %w", err)
	}

	deps.initEngine(cfg)

	logger.Debug("all dependencies initialized successfully",
		zap.String("channel", cfg.Runtime.Channel),
		zap.Bool("metrics", deps.Metrics != nil),
		zap.Bool("audit", deps.Recorder != nil))
	return deps, nil
}

// initRuntime creates the runtime service client
func (d *Dependencies) initRuntime(cfg *config.Config) {
	d.Runtime = runtime.NewClient(runtime.Config{
		Channel:      runtime.Channel(cfg.Runtime.Channel),
		AuthURL:      cfg.Runtime.AuthURL,
		IAMURL:       cfg.Runtime.IAMURL,
		RuntimeURL:   cfg.Runtime.RuntimeURL,
		Timeout:      cfg.Runtime.Timeout,
		RetryMax:     cfg.Runtime.RetryMax,
		RetryWaitMin: cfg.Runtime.RetryWaitMin,
		RetryWaitMax: cfg.Runtime.RetryWaitMax,
	}, d.Logger)
}

// initMetrics registers the resolution collector on a private registry
func (d *Dependencies) initMetrics(cfg *config.Config) {
	if !cfg.Observability.MetricsEnabled {
		return
	}
	d.Metrics = observability.NewMetricsCollector()
	d.Registry = prometheus.NewRegistry()
	d.Registry.MustRegister(
		d.Metrics,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// initAudit connects the audit database and starts the recorder
func (d *Dependencies) initAudit(ctx context.Context, cfg *config.Config) error {
	if !cfg.AuditEnabled() {
		return nil
	}

	db, err := postgres.NewDB(*cfg.AuditDatabase, d.Logger)
	if err != nil {
		return err
	}
	if err := db.InitAuditSchema(ctx); err != nil {
		_ = db.Close()
		return err
	}

	recorder := audit.NewRecorder(postgres.NewAttemptRepository(db, d.Logger), d.Logger, audit.DefaultConfig())
	if err := recorder.Start(); err != nil {
		_ = db.Close()
		return err
	}

	d.AuditDB = db
	d.Recorder = recorder
	return nil
}

// initEngine wires the resolver, selector and session service
func (d *Dependencies) initEngine(cfg *config.Config) {
	var resolverOpts []resolver.Option
	var selectorOpts []backend.Option
	if d.Metrics != nil {
		resolverOpts = append(resolverOpts, resolver.WithObserver(d.Metrics))
		selectorOpts = append(selectorOpts, backend.WithSelectionObserver(d.Metrics))
	}
	if d.Recorder != nil {
		resolverOpts = append(resolverOpts, resolver.WithObserver(d.Recorder))
	}

	d.Resolver = resolver.New(d.Logger, resolverOpts...)
	d.Selector = backend.NewSelector(d.Runtime, d.Resolver, d.Logger, selectorOpts...)

	var sessionOpts []session.Option
	if cfg.DotenvPath != "" {
		sessionOpts = append(sessionOpts, session.WithDotenv(cfg.DotenvPath))
	}
	d.Sessions = session.NewService(d.Selector, d.Runtime, d.Logger, sessionOpts...)
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	var errs []error

	if d.Recorder != nil {
		timeout := audit.DefaultConfig().WriteTimeout
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		if err := d.Recorder.Stop(timeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit recorder: %w", err))
		}
	}

	if d.AuditDB != nil {
		if err := d.AuditDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close audit database: %w", err))
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
