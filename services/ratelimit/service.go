package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Service enforces a strict sliding-window request quota per identity.
// An identity is any opaque partition key: a user id, an API key, or a
// tenant id. Windows are evaluated continuously, not on aligned
// buckets, so a burst at time T still counts against a check at
// T+window-1ms.
type Service struct {
	window      time.Duration
	maxRequests int
	logger      *zap.Logger

	mu      sync.Mutex
	windows map[string]*identityWindow

	allowed atomic.Int64
	denied  atomic.Int64

	now func() time.Time
}

// identityWindow holds the request timestamps for one identity.
// Each window has its own lock so concurrent checks for different
// identities never serialize on each other.
type identityWindow struct {
	mu sync.Mutex

	// evicted is set under mu when Sweep removes the window from the
	// map; an admission holding a stale pointer must retry on a fresh
	// window instead of recording into an orphan.
	evicted bool

	stamps []time.Time
}

// Metrics represents admission statistics for the limiter
type Metrics struct {
	Allowed           int64 `json:"allowed"`
	Denied            int64 `json:"denied"`
	TrackedIdentities int   `json:"tracked_identities"`
}

// NewService creates a sliding-window rate limiter admitting at most
// maxRequests per identity in any trailing interval of window length.
func NewService(window time.Duration, maxRequests int, logger *zap.Logger) *Service {
	return &Service{
		window:      window,
		maxRequests: maxRequests,
		logger:      logger,
		windows:     make(map[string]*identityWindow),
		now:         time.Now,
	}
}

// IsAllowed reports whether the identity may issue one more request
// right now, and records the request if so. It never errors; denial is
// the only failure mode. Admission per identity is linearizable: two
// concurrent callers racing at the limit cannot both be admitted.
func (s *Service) IsAllowed(identity string) bool {
	for {
		w := s.windowFor(identity)
		w.mu.Lock()

		// A sweep may have evicted this window between the map lookup
		// and the lock; anything recorded into it would be invisible to
		// later requests for the same identity.
		if w.evicted {
			w.mu.Unlock()
			continue
		}

		now := s.now()
		w.prune(now.Add(-s.window))

		if len(w.stamps) >= s.maxRequests {
			s.denied.Add(1)
			w.mu.Unlock()
			return false
		}

		w.stamps = append(w.stamps, now)
		s.allowed.Add(1)
		w.mu.Unlock()
		return true
	}
}

// Metrics returns a snapshot of admission statistics.
func (s *Service) Metrics() Metrics {
	s.mu.Lock()
	tracked := len(s.windows)
	s.mu.Unlock()

	return Metrics{
		Allowed:           s.allowed.Load(),
		Denied:            s.denied.Load(),
		TrackedIdentities: tracked,
	}
}

// Sweep removes identities whose windows have fully expired, bounding
// memory under high-cardinality identity spaces. Returns the number of
// identities evicted.
func (s *Service) Sweep() int {
	cutoff := s.now().Add(-s.window)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for identity, w := range s.windows {
		w.mu.Lock()
		w.prune(cutoff)
		if len(w.stamps) == 0 {
			// Marked under the window lock so a racing admission sees
			// the eviction and retries rather than landing in the
			// removed window.
			w.evicted = true
			delete(s.windows, identity)
			evicted++
		}
		w.mu.Unlock()
	}
	return evicted
}

// StartSweepWorker periodically sweeps expired identities until the
// context is cancelled. Should be run in its own goroutine.
func (s *Service) StartSweepWorker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("started rate limit sweep worker",
		zap.Duration("interval", interval),
		zap.Duration("window", s.window))

	for {
		select {
		case <-ticker.C:
			if evicted := s.Sweep(); evicted > 0 {
				s.logger.Debug("swept expired rate limit identities",
					zap.Int("evicted", evicted))
			}
		case <-ctx.Done():
			s.logger.Info("stopping rate limit sweep worker")
			return
		}
	}
}

// windowFor fetches or lazily creates the identity's window.
func (s *Service) windowFor(identity string) *identityWindow {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[identity]
	if !ok {
		w = &identityWindow{}
		s.windows[identity] = w
	}
	return w
}

// prune drops all timestamps at or before the cutoff. Caller must hold
// the window lock. Timestamps are appended in order, so the retained
// suffix is contiguous.
func (w *identityWindow) prune(cutoff time.Time) {
	keep := 0
	for keep < len(w.stamps) && !w.stamps[keep].After(cutoff) {
		keep++
	}
	if keep > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[keep:]...)
	}
}
