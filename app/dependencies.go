package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/resolvd/llm-governor/config"
	"github.com/resolvd/llm-governor/services/budget"
	"github.com/resolvd/llm-governor/services/gateway"
	"github.com/resolvd/llm-governor/services/providers"
	"github.com/resolvd/llm-governor/services/providers/anthropic"
	"github.com/resolvd/llm-governor/services/providers/openai"
	"github.com/resolvd/llm-governor/services/providers/openrouter"
	"github.com/resolvd/llm-governor/services/ratelimit"
	"github.com/resolvd/llm-governor/services/usage"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies. This is the central
// wiring point for dependency injection: every governed component is a
// constructed object passed by reference, never a package-level global,
// so tests can build isolated instances.
type Dependencies struct {
	Config *config.Config
	Logger *zap.Logger

	Limiter  *ratelimit.Service
	Ledger   *budget.Service
	Registry *providers.Registry
	Gateway  *gateway.Service

	// Usage journal; nil when USAGE_DATABASE_URL is unset
	Usage   *usage.Service
	usageDB *sql.DB
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	deps.Limiter = ratelimit.NewService(cfg.RateLimit.Window, cfg.RateLimit.MaxRequests, logger)
	deps.Ledger = budget.NewService(cfg.Budget.DailyLimit, logger)

	if err := deps.initProviders(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	if err := deps.initUsageJournal(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize usage journal: %w", err)
	}

	var recorder gateway.UsageRecorder
	if deps.Usage != nil {
		recorder = deps.Usage
	}

	deps.Gateway = gateway.NewService(
		deps.Limiter,
		deps.Ledger,
		deps.Registry,
		gateway.BreakerConfig{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			SuccessThreshold: cfg.Breaker.SuccessThreshold,
			Timeout:          cfg.Breaker.Timeout,
		},
		recorder,
		logger,
	)

	logger.Info("all dependencies initialized",
		zap.Strings("providers", deps.Registry.Names()),
		zap.String("daily_limit", cfg.Budget.DailyLimit.String()))

	return deps, nil
}

// initProviders registers each configured provider with its own
// transport. Providers without an API key are skipped.
func (d *Dependencies) initProviders(cfg *config.Config) error {
	d.Registry = providers.NewRegistry()

	register := func(name string, pc config.ProviderConfig, build func(providers.Config, providers.Transport) providers.Provider) error {
		if pc.APIKey == "" {
			d.Logger.Debug("provider not configured, skipping", zap.String("provider", name))
			return nil
		}
		adapter := build(providers.Config{
			APIKey:   pc.APIKey,
			BaseURL:  pc.BaseURL,
			Priority: pc.Priority,
			Timeout:  pc.Timeout,
		}, providers.NewHTTPTransport(pc.Timeout))
		return d.Registry.Register(adapter)
	}

	if err := register("openrouter", cfg.Providers.OpenRouter, func(c providers.Config, t providers.Transport) providers.Provider {
		return openrouter.New(c, t)
	}); err != nil {
		return err
	}
	if err := register("openai", cfg.Providers.OpenAI, func(c providers.Config, t providers.Transport) providers.Provider {
		return openai.New(c, t)
	}); err != nil {
		return err
	}
	if err := register("anthropic", cfg.Providers.Anthropic, func(c providers.Config, t providers.Transport) providers.Provider {
		return anthropic.New(c, t)
	}); err != nil {
		return err
	}

	if d.Registry.Count() == 0 {
		return fmt.Errorf("no providers configured")
	}
	return nil
}

// initUsageJournal connects the optional journal database
func (d *Dependencies) initUsageJournal(cfg *config.Config) error {
	if cfg.UsageDB.URL == "" {
		d.Logger.Info("usage journal disabled")
		return nil
	}

	db, err := usage.Open(cfg.UsageDB.URL, d.Logger)
	if err != nil {
		return err
	}

	d.usageDB = db
	d.Usage = usage.NewService(db, d.Logger)
	return nil
}

// StartWorkers launches the background maintenance loops. They stop
// when the context is cancelled.
func (d *Dependencies) StartWorkers(ctx context.Context) {
	go d.Limiter.StartSweepWorker(ctx, d.Config.RateLimit.SweepInterval)

	if d.Usage != nil {
		go d.Usage.StartCleanupWorker(ctx, 24*time.Hour, d.Config.UsageDB.Retention)
	}
}

// Close releases held resources
func (d *Dependencies) Close() error {
	if d.usageDB != nil {
		return d.usageDB.Close()
	}
	return nil
}
