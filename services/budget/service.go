package budget

import (
	"sync"

	"github.com/resolvd/llm-governor/models"
	"go.uber.org/zap"
)

// Service is the running-total spend ledger for one governed budget
// scope. It accumulates in fixed-point MicroUSD so summing millions of
// fractional-cent costs never drifts. The daily rollover is owned by
// an external scheduler calling Reset; the ledger keeps no timer.
type Service struct {
	logger *zap.Logger

	mu           sync.Mutex
	dailyLimit   models.MicroUSD
	totalCost    models.MicroUSD
	requestCount int64
}

// Metrics is a consistent snapshot of the ledger
type Metrics struct {
	TotalCost       models.MicroUSD `json:"total_cost_micro"`
	RequestCount    int64           `json:"request_count"`
	DailyLimit      models.MicroUSD `json:"daily_limit_micro"`
	RemainingBudget models.MicroUSD `json:"remaining_budget_micro"`
}

// NewService creates a budget ledger with a hard daily cap. A zero or
// negative limit means no spend is permitted.
func NewService(dailyLimit models.MicroUSD, logger *zap.Logger) *Service {
	return &Service{
		logger:     logger,
		dailyLimit: dailyLimit,
	}
}

// TrackRequest adds a request's cost to the ledger. Negative costs are
// ignored; the total never decreases except through Reset.
func (s *Service) TrackRequest(cost models.MicroUSD) {
	if cost < 0 {
		s.logger.Warn("ignoring negative cost", zap.Int64("cost_micro", int64(cost)))
		cost = 0
	}

	s.mu.Lock()
	s.totalCost += cost
	s.requestCount++
	s.mu.Unlock()
}

// IsWithinDailyLimit reports whether further spend is permitted.
// Strict inequality: a ledger exactly at the limit is exhausted, and a
// non-positive limit is always exhausted.
func (s *Service) IsWithinDailyLimit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dailyLimit <= 0 {
		return false
	}
	return s.totalCost < s.dailyLimit
}

// Metrics returns a consistent snapshot of the ledger. RemainingBudget
// is clamped at zero even when the last admitted request overshot the
// limit.
func (s *Service) Metrics() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	remaining := s.dailyLimit - s.totalCost
	if remaining < 0 {
		remaining = 0
	}

	return Metrics{
		TotalCost:       s.totalCost,
		RequestCount:    s.requestCount,
		DailyLimit:      s.dailyLimit,
		RemainingBudget: remaining,
	}
}

// Reset zeroes the ledger for a new budget period. Called by the
// application's rollover scheduler, not by the ledger itself.
func (s *Service) Reset() {
	s.mu.Lock()
	total, count := s.totalCost, s.requestCount
	s.totalCost = 0
	s.requestCount = 0
	s.mu.Unlock()

	s.logger.Info("budget ledger reset",
		zap.String("spent", total.String()),
		zap.Int64("requests", count))
}
