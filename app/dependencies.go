package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/upb/realm-guard/config"
	"github.com/upb/realm-guard/internal/observability"
	"github.com/upb/realm-guard/keycloak"
	"github.com/upb/realm-guard/middleware"
	"github.com/upb/realm-guard/repositories"
	"github.com/upb/realm-guard/repositories/postgres"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB // nil when DATABASE_URL is unset
	Logger *zap.Logger

	// Observability
	Registry *prometheus.Registry // nil when metrics are disabled
	Metrics  keycloak.Metrics

	// Repositories
	AuthEvents repositories.AuthEventRepository

	// Auth
	Auth           *AuthStack
	AuthMiddleware *middleware.AuthMiddleware
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initMetrics(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := deps.initAuth(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	logger.Info("all dependencies initialized successfully",
		zap.String("realm", cfg.Keycloak.Realm),
		zap.String("algorithm", cfg.Keycloak.Algorithm),
		zap.Bool("auth_events", deps.DB != nil),
		zap.Bool("metrics", deps.Registry != nil),
	)
	return deps, nil
}

func (d *Dependencies) initMetrics(cfg *config.Config) error {
	if !cfg.Observability.MetricsEnabled {
		d.Metrics = keycloak.NopMetrics{}
		return nil
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	metrics, err := observability.NewPrometheusMetrics(reg)
	if err != nil {
		return err
	}

	d.Registry = reg
	d.Metrics = metrics
	return nil
}

// initDatabase connects the optional auth event store
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	if !cfg.Database.Enabled() {
		d.Logger.Info("DATABASE_URL not set, auth event recording disabled")
		d.AuthEvents = repositories.NopAuthEventRepository{}
		return nil
	}

	db, err := postgres.NewDB(cfg.Database, d.Logger)
	if err != nil {
		return err
	}

	if err := db.InitSchema(ctx); err != nil {
		_ = db.Close()
		return err
	}

	d.DB = db
	d.AuthEvents = postgres.NewAuthEventRepository(db, d.Logger)
	return nil
}

func (d *Dependencies) initAuth(cfg *config.Config) error {
	stack, err := NewAuthStack(cfg.Keycloak, d.Metrics, d.Logger)
	if err != nil {
		return err
	}

	d.Auth = stack

	var sink middleware.AuthEventSink
	if d.DB != nil {
		sink = d.AuthEvents
	}
	d.AuthMiddleware = middleware.NewAuthMiddleware(stack.Guard, sink, d.Logger)

	d.Logger.Info("auth initialized",
		zap.String("issuer", cfg.Keycloak.IssuerURL()),
		zap.String("certs_url", cfg.Keycloak.CertsURL()),
		zap.String("audience", cfg.Keycloak.Audience),
		zap.Duration("refresh_threshold", cfg.Keycloak.RefreshThreshold),
	)
	return nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
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
