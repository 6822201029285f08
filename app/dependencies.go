package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/upb/fraudshield/auth"
	"github.com/upb/fraudshield/config"
	"github.com/upb/fraudshield/internal/notify"
	"github.com/upb/fraudshield/internal/observability"
	"github.com/upb/fraudshield/middleware"
	"github.com/upb/fraudshield/repositories"
	"github.com/upb/fraudshield/repositories/postgres"
	"github.com/upb/fraudshield/services/access"
	"github.com/upb/fraudshield/services/actionstate"
	"github.com/upb/fraudshield/services/entitlement"
	"github.com/upb/fraudshield/services/tenant"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	DB      *postgres.DB
	Logger  *zap.Logger
	Clock   clockwork.Clock
	Metrics *observability.Metrics

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Organizations repositories.OrganizationRepository
	Users         repositories.UserRepository
	Exclusions    repositories.ExclusionRepository
	TxManager     repositories.TransactionManager

	// Domain services
	Entitlements  *entitlement.Resolver
	Access        *access.Resolver
	Tenants       *tenant.Service
	Actions       *actionstate.Registry
	Notifications *notify.Hub

	// Auth
	TokenValidator   *auth.Validator
	TokenIssuer      *auth.Issuer
	AuthMiddleware   *middleware.AuthMiddleware
	AccessMiddleware *middleware.AccessMiddleware

	stopMaintenance context.CancelFunc
	maintenance     sync.WaitGroup
}

const defaultCleanupInterval = time.Minute

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := postgres.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps, err := NewDependenciesWithFactory(ctx, cfg, factory, clockwork.NewRealClock(), logger)
	if err != nil {
		_ = factory.Close()
		return nil, err
	}
	return deps, nil
}

// NewDependenciesWithFactory wires the application on top of an existing repository factory
func NewDependenciesWithFactory(ctx context.Context, cfg *config.Config, factory *postgres.RepositoryFactory, clock clockwork.Clock, logger *zap.Logger) (*Dependencies, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	deps := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		Clock:       clock,
		Metrics:     observability.NewMetrics(),
		RepoFactory: factory,
		DB:          factory.GetDB(),
	}

	// Test the connection
	if err := deps.DB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize database: database ping failed: %w", err)
	}
	logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))

	deps.initRepositories()

	// Entitlement tables are validated once; a gap aborts startup
	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := deps.initAuth(); err != nil {
		deps.Actions.Close()
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	if err := deps.initMetrics(); err != nil {
		deps.Actions.Close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	deps.startMaintenance()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()

	d.Organizations = repos.Organizations
	d.Users = repos.Users
	d.Exclusions = repos.Exclusions
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
}

// initServices builds the domain services
func (d *Dependencies) initServices() error {
	resolver, err := entitlement.DefaultResolver(d.Logger)
	if err != nil {
		return err
	}
	d.Entitlements = resolver
	d.Access = access.Default()

	cache := tenant.NewPlanCache(d.Config.Cache.PlanCacheSize, d.Config.Cache.PlanCacheTTL, d.Clock)
	d.Tenants = tenant.NewService(d.Organizations, d.TxManager, cache, d.Logger)

	d.Notifications = notify.NewHub(d.Logger, d.Config.Server.AllowedOrigins)
	notifier := actionstate.MultiNotifier{
		actionstate.NewLogNotifier(d.Logger),
		d.Notifications,
		actionstate.NotifierFunc(func(n actionstate.Notification) {
			d.Metrics.RecordNotification(string(n.Kind))
		}),
	}
	d.Actions = actionstate.NewRegistry(d.Logger,
		actionstate.WithClock(d.Clock),
		actionstate.WithClearDelay(d.Config.Actions.ErrorClearDelay),
		actionstate.WithMaxKeys(d.Config.Actions.MaxKeys),
		actionstate.WithNotifier(notifier),
	)

	d.Logger.Info("domain services initialized",
		zap.Duration("error_clear_delay", d.Config.Actions.ErrorClearDelay),
		zap.Int("plan_cache_size", d.Config.Cache.PlanCacheSize))
	return nil
}

// initMetrics exports the state of the in-memory stores
func (d *Dependencies) initMetrics() error {
	err := d.Metrics.RegisterPlanCache(func() (uint64, uint64, int) {
		stats := d.Tenants.CacheStats()
		return stats.Hits, stats.Misses, stats.Size
	})
	if err != nil {
		return err
	}
	return d.Metrics.RegisterActionSessions(d.Actions.Len)
}

// startMaintenance runs the janitor that drops expired plans and idle action
// sessions on every tick of the configured interval.
func (d *Dependencies) startMaintenance() {
	interval := d.Config.Cache.CleanupInterval
	if interval <= 0 {
		interval = defaultCleanupInterval
	}
	idleTTL := d.Config.Actions.SessionIdleTTL

	ctx, cancel := context.WithCancel(context.Background())
	d.stopMaintenance = cancel
	ticker := d.Clock.NewTicker(interval)

	d.maintenance.Add(1)
	go func() {
		defer d.maintenance.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				d.runMaintenance(idleTTL)
			}
		}
	}()

	d.Logger.Info("maintenance started",
		zap.Duration("interval", interval),
		zap.Duration("session_idle_ttl", idleTTL))
}

func (d *Dependencies) runMaintenance(idleTTL time.Duration) {
	plans := d.Tenants.CleanupExpired()
	sessions := d.Actions.EvictIdle(idleTTL)
	if plans > 0 || sessions > 0 {
		d.Logger.Debug("maintenance pass",
			zap.Int("expired_plans", plans),
			zap.Int("idle_sessions", sessions))
	}
}

// initAuth builds the token validator, issuer and request guards
func (d *Dependencies) initAuth() error {
	authCfg := d.Config.Auth
	if authCfg.JWTSecret == "" {
		if d.Config.IsProduction() {
			return fmt.Errorf("JWT secret is required in production")
		}
		secret, err := ephemeralSecret()
		if err != nil {
			return err
		}
		authCfg.JWTSecret = secret
		d.Logger.Warn("JWT_SECRET not set, using an ephemeral secret; sessions will not survive a restart")
	}

	d.TokenValidator = auth.NewValidator(authCfg, d.Clock)
	d.TokenIssuer = auth.NewIssuer(authCfg, d.Clock)
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.TokenValidator, d.Users, d.Logger)
	d.AccessMiddleware = middleware.NewAccessMiddleware(d.Access, d.Metrics, d.Logger)

	d.Logger.Info("auth initialized", zap.String("issuer", authCfg.Issuer))
	return nil
}

func ephemeralSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate ephemeral JWT secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs error

	// Stop the janitor before the stores it sweeps
	if d.stopMaintenance != nil {
		d.stopMaintenance()
		d.maintenance.Wait()
	}

	// Stop pending message-clear timers
	if d.Actions != nil {
		d.Actions.Close()
	}

	// Close database connection
	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if errs != nil {
		return fmt.Errorf("errors during shutdown: %w", errs)
	}

	return nil
}
