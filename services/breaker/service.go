package breaker

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// State represents the breaker state
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Service is a three-state circuit breaker isolating one provider.
// Repeated failures trip it OPEN; after the timeout a single probe is
// admitted into HALF_OPEN, and only sustained success closes it again.
// All transitions happen under one mutex, so concurrent failures
// cannot double-trip the threshold inconsistently.
type Service struct {
	name             string
	failureThreshold int
	successThreshold int
	timeout          time.Duration
	logger           *zap.Logger

	mu              sync.Mutex
	state           State
	failureCount    int
	successCount    int
	lastFailureTime time.Time

	now func() time.Time
}

// Metrics is a snapshot of the breaker state
type Metrics struct {
	State        State `json:"state"`
	FailureCount int   `json:"failure_count"`
	SuccessCount int   `json:"success_count"`
}

// NewService creates a breaker for the named provider. failureThreshold
// consecutive failures trip it; successThreshold successes in HALF_OPEN
// close it; timeout is how long OPEN lasts before probing.
func NewService(name string, failureThreshold, successThreshold int, timeout time.Duration, logger *zap.Logger) *Service {
	return &Service{
		name:             name,
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		timeout:          timeout,
		logger:           logger,
		state:            StateClosed,
		now:              time.Now,
	}
}

// CanExecute reports whether a call to the provider may proceed.
// In OPEN, once the timeout has elapsed the breaker moves to HALF_OPEN
// and admits the caller as the probe. HALF_OPEN admits further probes
// concurrently; a single failure among them reopens the circuit.
func (s *Service) CanExecute() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return true
	case StateOpen:
		if s.now().Sub(s.lastFailureTime) >= s.timeout {
			s.transition(StateHalfOpen)
			return true
		}
		return false
	case StateHalfOpen:
		return true
	default:
		return true
	}
}

// RecordSuccess records a successful provider call.
func (s *Service) RecordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		s.failureCount = 0
	case StateHalfOpen:
		s.successCount++
		if s.successCount >= s.successThreshold {
			s.failureCount = 0
			s.successCount = 0
			s.transition(StateClosed)
		}
	}
}

// RecordFailure records a failed provider call and trips the breaker
// when the failure threshold is reached. A failure while HALF_OPEN
// reopens the circuit immediately with a fresh timeout.
func (s *Service) RecordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		s.failureCount++
		if s.failureCount >= s.failureThreshold {
			s.lastFailureTime = s.now()
			s.transition(StateOpen)
		}
	case StateHalfOpen:
		s.successCount = 0
		s.lastFailureTime = s.now()
		s.transition(StateOpen)
	case StateOpen:
		// Late result from a call that was in flight when the circuit
		// tripped; discarded so it cannot extend the open period.
	}
}

// Metrics returns a snapshot of the breaker state.
func (s *Service) Metrics() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Metrics{
		State:        s.state,
		FailureCount: s.failureCount,
		SuccessCount: s.successCount,
	}
}

// transition changes state and logs it. Caller must hold the lock.
func (s *Service) transition(to State) {
	from := s.state
	s.state = to
	s.logger.Info("circuit breaker state change",
		zap.String("provider", s.name),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Int("failure_count", s.failureCount))
}
