package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/resolvd/llm-governor/models"
	"github.com/resolvd/llm-governor/services"
	"github.com/resolvd/llm-governor/services/breaker"
	"github.com/resolvd/llm-governor/services/budget"
	"github.com/resolvd/llm-governor/services/providers"
	"github.com/resolvd/llm-governor/services/ratelimit"
	"go.uber.org/zap"
)

// BreakerConfig holds per-provider circuit breaker thresholds
type BreakerConfig struct {
	FailureThreshold int
	SuccessThreshold int
	Timeout          time.Duration
}

// UsageRecorder receives per-request usage rows for observability.
// Recording is best-effort; failures never affect the request.
type UsageRecorder interface {
	RecordRequest(ctx context.Context, rec UsageRecord) error
}

// UsageRecord is one journal row describing a completed dispatch
type UsageRecord struct {
	CorrelationID string
	Identity      string
	Provider      string
	Model         string
	TokensUsed    int
	Cost          models.MicroUSD
	Success       bool
	ErrorKind     string
	LatencyMs     int64
}

// Service orchestrates dispatch across providers: admission through
// the rate limiter and budget ledger, then priority-ordered failover
// with one circuit breaker per provider.
type Service struct {
	limiter  *ratelimit.Service
	ledger   *budget.Service
	registry *providers.Registry
	breakers map[string]*breaker.Service
	usage    UsageRecorder
	logger   *zap.Logger
}

// Metrics aggregates the observability surface of the whole layer
type Metrics struct {
	RateLimit ratelimit.Metrics          `json:"rate_limit"`
	Budget    budget.Metrics             `json:"budget"`
	Breakers  map[string]breaker.Metrics `json:"breakers"`
}

// NewService wires the governance layer together. One breaker is
// created per registered provider. usage may be nil to disable the
// journal.
func NewService(
	limiter *ratelimit.Service,
	ledger *budget.Service,
	registry *providers.Registry,
	breakerCfg BreakerConfig,
	usage UsageRecorder,
	logger *zap.Logger,
) *Service {
	breakers := make(map[string]*breaker.Service)
	for _, name := range registry.Names() {
		breakers[name] = breaker.NewService(name,
			breakerCfg.FailureThreshold,
			breakerCfg.SuccessThreshold,
			breakerCfg.Timeout,
			logger)
	}

	return &Service{
		limiter:  limiter,
		ledger:   ledger,
		registry: registry,
		breakers: breakers,
		usage:    usage,
		logger:   logger,
	}
}

// SendRequest dispatches the envelope through admission control and
// priority-ordered failover. It always returns a structured envelope;
// provider failures are absorbed into the failover loop and never
// propagate as panics or raw errors.
func (s *Service) SendRequest(ctx context.Context, req *RequestEnvelope) *ResponseEnvelope {
	start := time.Now()

	correlationID := req.CorrelationID
	if correlationID == "" {
		correlationID = uuid.New().String()
	}

	s.logger.Info("dispatching request",
		zap.String("correlation_id", correlationID),
		zap.String("identity", req.Identity),
		zap.String("model", req.Model))

	// Step 1: admission, no provider contacted on denial
	if !s.limiter.IsAllowed(req.Identity) {
		err := services.NewDomainError(services.ErrorTypeRateLimit,
			"rate limit exceeded for identity", services.ErrRateLimited).
			WithDetail("identity", req.Identity)
		s.logger.Warn("request rate limited",
			zap.String("correlation_id", correlationID),
			zap.String("identity", req.Identity))
		return s.failure(ctx, req, correlationID, start, err)
	}

	// Step 2: budget gate
	if !s.ledger.IsWithinDailyLimit() {
		err := services.NewDomainError(services.ErrorTypeBudget,
			"daily budget exhausted", services.ErrBudgetExhausted)
		s.logger.Warn("request denied, daily budget exhausted",
			zap.String("correlation_id", correlationID))
		return s.failure(ctx, req, correlationID, start, err)
	}

	// Step 3: candidates supporting the model, ascending priority
	candidates := s.registry.CandidatesFor(req.Model)
	if len(candidates) == 0 {
		err := services.NewDomainError(services.ErrorTypeExhausted,
			"no provider supports model "+req.Model, services.ErrNoEligibleProvider).
			WithDetail("model", req.Model)
		return s.failure(ctx, req, correlationID, start, err)
	}

	providerReq := &providers.CompletionRequest{
		Model:     req.Model,
		Messages:  req.Messages,
		MaxTokens: req.MaxTokens,
	}

	// Step 4: failover loop
	attempted := 0
	var lastErr error
	for _, candidate := range candidates {
		name := candidate.Name()
		cb := s.breakers[name]

		// A denied breaker reflects a known-bad provider; skipping is
		// not a failure.
		if cb != nil && !cb.CanExecute() {
			s.logger.Debug("skipping provider, circuit open",
				zap.String("correlation_id", correlationID),
				zap.String("provider", name))
			continue
		}

		attempted++
		attemptStart := time.Now()

		result, err := candidate.Complete(ctx, providerReq)
		if err != nil {
			if cb != nil {
				cb.RecordFailure()
			}
			lastErr = services.WrapError(services.ErrorTypeExternal, "completion failed", err)
			s.logger.Warn("provider attempt failed",
				zap.String("correlation_id", correlationID),
				zap.String("provider", name),
				zap.Duration("attempt_latency", time.Since(attemptStart)),
				zap.Error(lastErr))
			continue
		}

		tokens := result.TotalTokens()
		cost, err := candidate.CalculateCost(tokens, req.Model)
		if err != nil {
			// Unpriced spend must not slip through ungoverned; an
			// unknown-model error fails this candidate like a
			// transport error and failover continues.
			if cb != nil {
				cb.RecordFailure()
			}
			lastErr = services.WrapError(services.ErrorTypeExternal, "cost calculation failed", err)
			s.logger.Error("cost calculation failed",
				zap.String("correlation_id", correlationID),
				zap.String("provider", name),
				zap.Error(lastErr))
			continue
		}

		if cb != nil {
			cb.RecordSuccess()
		}
		s.ledger.TrackRequest(cost)

		resp := &ResponseEnvelope{
			Success:       true,
			Content:       result.Content,
			TokensUsed:    tokens,
			Cost:          cost,
			ProcessingMs:  time.Since(start).Milliseconds(),
			Provider:      name,
			CorrelationID: correlationID,
		}

		s.logger.Info("request served",
			zap.String("correlation_id", correlationID),
			zap.String("provider", name),
			zap.Int("tokens", tokens),
			zap.String("cost", cost.String()),
			zap.Int64("processing_ms", resp.ProcessingMs))

		s.recordUsage(ctx, req, resp)
		return resp
	}

	// Step 5: every candidate denied or failed
	var dispatchErr *services.DomainError
	if attempted > 0 {
		dispatchErr = services.NewDomainError(services.ErrorTypeExhausted,
			"every attempted provider failed", services.ErrAllProvidersFailed)
		if lastErr != nil {
			dispatchErr = dispatchErr.WithDetail("last_error", lastErr.Error())
		}
	} else {
		dispatchErr = services.NewDomainError(services.ErrorTypeExhausted,
			"every candidate provider circuit is open", services.ErrNoEligibleProvider)
	}

	s.logger.Error("request exhausted all providers",
		zap.String("correlation_id", correlationID),
		zap.String("model", req.Model),
		zap.Int("candidates", len(candidates)),
		zap.Int("attempted", attempted),
		zap.Error(dispatchErr))

	return s.failure(ctx, req, correlationID, start, dispatchErr)
}

// Metrics returns the aggregated observability snapshot.
func (s *Service) Metrics() Metrics {
	breakers := make(map[string]breaker.Metrics, len(s.breakers))
	for name, cb := range s.breakers {
		breakers[name] = cb.Metrics()
	}

	return Metrics{
		RateLimit: s.limiter.Metrics(),
		Budget:    s.ledger.Metrics(),
		Breakers:  breakers,
	}
}

// failure builds a failure envelope from a domain error and journals it.
func (s *Service) failure(ctx context.Context, req *RequestEnvelope, correlationID string, start time.Time, err error) *ResponseEnvelope {
	kind, msg := classify(err)
	resp := &ResponseEnvelope{
		Success:       false,
		ErrorKind:     kind,
		ErrorMessage:  msg,
		ProcessingMs:  time.Since(start).Milliseconds(),
		CorrelationID: correlationID,
	}
	s.recordUsage(ctx, req, resp)
	return resp
}

// classify maps a domain error to the envelope's error kind. Both
// terminal outcomes carry the exhausted type, so the wrapped sentinel
// distinguishes nothing-attempted from everything-failed.
func classify(err error) (ErrorKind, string) {
	var derr *services.DomainError
	if !errors.As(err, &derr) {
		return "", err.Error()
	}

	switch derr.Type {
	case services.ErrorTypeRateLimit:
		return ErrorKindRateLimited, derr.Message
	case services.ErrorTypeBudget:
		return ErrorKindBudgetExhausted, derr.Message
	case services.ErrorTypeExhausted:
		if derr.Err == services.ErrAllProvidersFailed {
			return ErrorKindAllProvidersFailed, derr.Message
		}
		return ErrorKindNoEligibleProvider, derr.Message
	}
	return "", derr.Message
}

// recordUsage writes the journal row when a recorder is configured.
// Journal errors are logged and swallowed.
func (s *Service) recordUsage(ctx context.Context, req *RequestEnvelope, resp *ResponseEnvelope) {
	if s.usage == nil {
		return
	}

	rec := UsageRecord{
		CorrelationID: resp.CorrelationID,
		Identity:      req.Identity,
		Provider:      resp.Provider,
		Model:         req.Model,
		TokensUsed:    resp.TokensUsed,
		Cost:          resp.Cost,
		Success:       resp.Success,
		ErrorKind:     string(resp.ErrorKind),
		LatencyMs:     resp.ProcessingMs,
	}

	if err := s.usage.RecordRequest(ctx, rec); err != nil {
		s.logger.Error("failed to record usage",
			zap.String("correlation_id", resp.CorrelationID),
			zap.Error(err))
	}
}
